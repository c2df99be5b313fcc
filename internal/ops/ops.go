// Package ops implements the mutation flows the dashboard exposes for
// agents, integration configs, the fleet bot defaults, and the
// operator profile. Every flow follows the same contract: validate
// locally first (invalid input never reaches the network), apply the
// mutation, then reload the affected collection so the caller renders
// authoritative backend state instead of an optimistic guess.
package ops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/fixdeck-io/fixdeck/internal/gateway"
	"github.com/fixdeck-io/fixdeck/pkg/model"
)

// ValidationError carries every problem found in a submitted form.
// It is produced before any network traffic happens.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

// IsValidation reports whether err is a local form validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

type validator struct {
	problems []string
}

func (v *validator) require(value, field string) {
	if strings.TrimSpace(value) == "" {
		v.problems = append(v.problems, field+" is required")
	}
}

func (v *validator) requireURL(value, field string) {
	v.require(value, field)
	if strings.TrimSpace(value) == "" {
		return
	}
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		v.problems = append(v.problems, field+" must be an http(s) URL")
	}
}

func (v *validator) err() error {
	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: v.problems}
}

// --- Agents ---

// AgentGateway is the slice of the API client the agent flows need.
type AgentGateway interface {
	Agents(ctx context.Context) ([]model.Agent, error)
	Agent(ctx context.Context, id string) (model.Agent, error)
	CreateAgent(ctx context.Context, a model.Agent) (model.Agent, error)
	UpdateAgent(ctx context.Context, id string, a model.Agent) (model.Agent, error)
	DeleteAgent(ctx context.Context, id string) error
	ActivateAgent(ctx context.Context, id string) error
	DeactivateAgent(ctx context.Context, id string) error
}

// AgentOps runs the agent CRUD flows.
type AgentOps struct {
	gw     AgentGateway
	logger *slog.Logger
}

func NewAgentOps(gw AgentGateway, logger *slog.Logger) *AgentOps {
	if logger == nil {
		logger = slog.Default()
	}
	return &AgentOps{gw: gw, logger: logger}
}

func validateAgent(a model.Agent) error {
	var v validator
	v.require(a.AgentName, "agent name")
	v.require(a.LLMProvider, "llm provider")
	v.require(a.LLMModel, "llm model")
	if a.MaxConcurrentTickets < 1 {
		v.problems = append(v.problems, "max concurrent tickets must be at least 1")
	}
	if a.LLMTemperature < 0 || a.LLMTemperature > 2 {
		v.problems = append(v.problems, "llm temperature must be between 0 and 2")
	}
	return v.err()
}

// Create validates the agent, creates it, and returns the reloaded
// agent list.
func (o *AgentOps) Create(ctx context.Context, a model.Agent) ([]model.Agent, error) {
	if err := validateAgent(a); err != nil {
		return nil, err
	}
	created, err := o.gw.CreateAgent(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("ops: create agent: %w", err)
	}
	o.logger.Info("agent created", "agent", created.ID, "name", created.AgentName)
	return o.reloadAgents(ctx)
}

// Update validates and applies an edit, then returns the reloaded
// agent list.
func (o *AgentOps) Update(ctx context.Context, id string, a model.Agent) ([]model.Agent, error) {
	if err := validateAgent(a); err != nil {
		return nil, err
	}
	if _, err := o.gw.UpdateAgent(ctx, id, a); err != nil {
		return nil, fmt.Errorf("ops: update agent %s: %w", id, err)
	}
	return o.reloadAgents(ctx)
}

// Delete removes the agent and returns the reloaded list. Callers are
// responsible for confirming the deletion with the operator first.
func (o *AgentOps) Delete(ctx context.Context, id string) ([]model.Agent, error) {
	if err := o.gw.DeleteAgent(ctx, id); err != nil {
		return nil, fmt.Errorf("ops: delete agent %s: %w", id, err)
	}
	o.logger.Info("agent deleted", "agent", id)
	return o.reloadAgents(ctx)
}

// Toggle flips the agent's activation. The direction is derived from a
// fresh fetch, never from whatever the screen happens to show, so two
// dashboards toggling the same agent converge instead of fighting.
func (o *AgentOps) Toggle(ctx context.Context, id string) (model.Agent, error) {
	current, err := o.gw.Agent(ctx, id)
	if err != nil {
		return model.Agent{}, fmt.Errorf("ops: toggle agent %s: fetch: %w", id, err)
	}

	if current.Status == model.AgentActive {
		err = o.gw.DeactivateAgent(ctx, id)
	} else {
		err = o.gw.ActivateAgent(ctx, id)
	}
	if err != nil {
		return model.Agent{}, fmt.Errorf("ops: toggle agent %s: %w", id, err)
	}

	fresh, err := o.gw.Agent(ctx, id)
	if err != nil {
		return model.Agent{}, fmt.Errorf("ops: toggle agent %s: reload: %w", id, err)
	}
	o.logger.Info("agent toggled", "agent", id, "status", fresh.Status)
	return fresh, nil
}

func (o *AgentOps) reloadAgents(ctx context.Context) ([]model.Agent, error) {
	agents, err := o.gw.Agents(ctx)
	if err != nil {
		return nil, fmt.Errorf("ops: reload agents: %w", err)
	}
	return agents, nil
}

// --- Integrations ---

// IntegrationGateway is the slice of the API client the integration
// config flows need.
type IntegrationGateway interface {
	ZohoConfigs(ctx context.Context) ([]model.ZohoConfig, error)
	AddZohoConfig(ctx context.Context, cfg model.ZohoConfig) (model.ZohoConfig, error)
	DeleteZohoConfig(ctx context.Context, id string) error
	GitLabConfigs(ctx context.Context) ([]model.GitLabConfig, error)
	AddGitLabConfig(ctx context.Context, cfg model.GitLabConfig) (model.GitLabConfig, error)
	DeleteGitLabConfig(ctx context.Context, id string) error
	BotConfig(ctx context.Context) (model.BotConfig, error)
	SaveBotConfig(ctx context.Context, cfg model.BotConfig) error
}

// IntegrationOps runs the integration and bot config flows.
type IntegrationOps struct {
	gw     IntegrationGateway
	logger *slog.Logger
}

func NewIntegrationOps(gw IntegrationGateway, logger *slog.Logger) *IntegrationOps {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntegrationOps{gw: gw, logger: logger}
}

// AddZoho validates and stores a helpdesk connection, returning the
// reloaded config list.
func (o *IntegrationOps) AddZoho(ctx context.Context, cfg model.ZohoConfig) ([]model.ZohoConfig, error) {
	var v validator
	v.require(cfg.ConfigName, "config name")
	v.require(cfg.OrgID, "org id")
	v.require(cfg.ClientID, "client id")
	v.require(cfg.ClientSecret, "client secret")
	v.require(cfg.RefreshToken, "refresh token")
	if err := v.err(); err != nil {
		return nil, err
	}

	if _, err := o.gw.AddZohoConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("ops: add zoho config: %w", err)
	}
	configs, err := o.gw.ZohoConfigs(ctx)
	if err != nil {
		return nil, fmt.Errorf("ops: reload zoho configs: %w", err)
	}
	return configs, nil
}

// DeleteZoho removes a helpdesk connection and returns the reloaded
// list. Confirmation happens in the UI before this is called.
func (o *IntegrationOps) DeleteZoho(ctx context.Context, id string) ([]model.ZohoConfig, error) {
	if err := o.gw.DeleteZohoConfig(ctx, id); err != nil {
		return nil, fmt.Errorf("ops: delete zoho config %s: %w", id, err)
	}
	configs, err := o.gw.ZohoConfigs(ctx)
	if err != nil {
		return nil, fmt.Errorf("ops: reload zoho configs: %w", err)
	}
	return configs, nil
}

// AddGitLab validates and stores a source-control connection,
// returning the reloaded config list.
func (o *IntegrationOps) AddGitLab(ctx context.Context, cfg model.GitLabConfig) ([]model.GitLabConfig, error) {
	var v validator
	v.require(cfg.ConfigName, "config name")
	v.requireURL(cfg.GitLabURL, "gitlab url")
	v.require(cfg.PersonalToken, "personal token")
	v.require(cfg.Username, "username")
	if err := v.err(); err != nil {
		return nil, err
	}

	if _, err := o.gw.AddGitLabConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("ops: add gitlab config: %w", err)
	}
	configs, err := o.gw.GitLabConfigs(ctx)
	if err != nil {
		return nil, fmt.Errorf("ops: reload gitlab configs: %w", err)
	}
	return configs, nil
}

// DeleteGitLab removes a source-control connection and returns the
// reloaded list.
func (o *IntegrationOps) DeleteGitLab(ctx context.Context, id string) ([]model.GitLabConfig, error) {
	if err := o.gw.DeleteGitLabConfig(ctx, id); err != nil {
		return nil, fmt.Errorf("ops: delete gitlab config %s: %w", id, err)
	}
	configs, err := o.gw.GitLabConfigs(ctx)
	if err != nil {
		return nil, fmt.Errorf("ops: reload gitlab configs: %w", err)
	}
	return configs, nil
}

// LoadBot fetches the fleet defaults. A backend with no stored config
// yet yields the built-in defaults instead of an error.
func (o *IntegrationOps) LoadBot(ctx context.Context) (model.BotConfig, error) {
	cfg, err := o.gw.BotConfig(ctx)
	if errors.Is(err, gateway.ErrNotFound) {
		return model.DefaultBotConfig(), nil
	}
	if err != nil {
		return model.BotConfig{}, fmt.Errorf("ops: load bot config: %w", err)
	}
	return cfg, nil
}

// SaveBot validates and stores the fleet defaults, returning the
// reloaded config.
func (o *IntegrationOps) SaveBot(ctx context.Context, cfg model.BotConfig) (model.BotConfig, error) {
	var v validator
	v.require(cfg.LLMProvider, "llm provider")
	v.require(cfg.LLMModel, "llm model")
	if cfg.LLMTemperature < 0 || cfg.LLMTemperature > 2 {
		v.problems = append(v.problems, "llm temperature must be between 0 and 2")
	}
	if cfg.MaxConcurrentTickets < 0 {
		v.problems = append(v.problems, "max concurrent tickets must not be negative")
	}
	if err := v.err(); err != nil {
		return model.BotConfig{}, err
	}

	if err := o.gw.SaveBotConfig(ctx, cfg); err != nil {
		return model.BotConfig{}, fmt.Errorf("ops: save bot config: %w", err)
	}
	fresh, err := o.gw.BotConfig(ctx)
	if err != nil {
		return model.BotConfig{}, fmt.Errorf("ops: reload bot config: %w", err)
	}
	o.logger.Info("bot config saved", "provider", fresh.LLMProvider, "model", fresh.LLMModel)
	return fresh, nil
}

// --- Profile ---

// ProfileGateway is the slice of the API client the profile flow needs.
type ProfileGateway interface {
	Profile(ctx context.Context) (model.UserProfile, error)
	UpdateProfile(ctx context.Context, p model.UserProfile) (model.UserProfile, error)
}

// ProfileOps runs the operator profile flow.
type ProfileOps struct {
	gw     ProfileGateway
	logger *slog.Logger
}

func NewProfileOps(gw ProfileGateway, logger *slog.Logger) *ProfileOps {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileOps{gw: gw, logger: logger}
}

// Load fetches the operator's profile.
func (o *ProfileOps) Load(ctx context.Context) (model.UserProfile, error) {
	p, err := o.gw.Profile(ctx)
	if err != nil {
		return model.UserProfile{}, fmt.Errorf("ops: load profile: %w", err)
	}
	return p, nil
}

// Save validates and applies a profile edit, then returns the freshly
// reloaded profile.
func (o *ProfileOps) Save(ctx context.Context, p model.UserProfile) (model.UserProfile, error) {
	var v validator
	v.require(p.FullName, "full name")
	v.require(p.Email, "email")
	if trimmed := strings.TrimSpace(p.Email); trimmed != "" && !strings.Contains(trimmed, "@") {
		v.problems = append(v.problems, "email must contain @")
	}
	if err := v.err(); err != nil {
		return model.UserProfile{}, err
	}

	if _, err := o.gw.UpdateProfile(ctx, p); err != nil {
		return model.UserProfile{}, fmt.Errorf("ops: update profile: %w", err)
	}
	fresh, err := o.gw.Profile(ctx)
	if err != nil {
		return model.UserProfile{}, fmt.Errorf("ops: reload profile: %w", err)
	}
	return fresh, nil
}
