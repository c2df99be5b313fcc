// Package gateway is the typed HTTP client for the fixdeck control
// plane API. It is a thin request/response wrapper: no retries, no
// caching, no local mutation. Callers decide how to degrade on
// failure; the client's only job is to surface every non-2xx response
// as a typed error.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fixdeck-io/fixdeck/pkg/model"
)

// Sentinel errors for the status classes callers branch on. A 401
// forces the dashboard back to the login view; 403/404 block a single
// screen without ending the session.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("access denied")
	ErrNotFound     = errors.New("not found")
)

// APIError is a non-2xx response from the control plane.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error (status %d)", e.StatusCode)
}

// Unwrap maps the status code onto the matching sentinel so callers
// can use errors.Is without inspecting codes.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// TokenSource supplies the bearer token for outgoing requests. An
// empty token sends the request unauthenticated.
type TokenSource interface {
	Token() string
}

// Client issues authenticated requests against the /api surface.
type Client struct {
	http    *http.Client
	baseURL string
	tokens  TokenSource
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client rooted at baseURL (without the /api suffix).
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// --- Auth ---

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a bearer token. The caller decides
// where the token lives (see internal/session).
func (c *Client) Login(ctx context.Context, creds model.Credentials) (string, error) {
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", creds, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("gateway: login response carried no token")
	}
	return resp.Token, nil
}

// Register creates a new operator account.
func (c *Client) Register(ctx context.Context, reg model.Registration) error {
	return c.do(ctx, http.MethodPost, "/auth/register", reg, nil)
}

// --- Profile ---

func (c *Client) Profile(ctx context.Context) (model.UserProfile, error) {
	var p model.UserProfile
	err := c.do(ctx, http.MethodGet, "/profile", nil, &p)
	return p, err
}

func (c *Client) UpdateProfile(ctx context.Context, p model.UserProfile) (model.UserProfile, error) {
	var updated model.UserProfile
	err := c.do(ctx, http.MethodPut, "/profile", p, &updated)
	return updated, err
}

// --- Agents ---

func (c *Client) Agents(ctx context.Context) ([]model.Agent, error) {
	var agents []model.Agent
	err := c.do(ctx, http.MethodGet, "/agents", nil, &agents)
	return agents, err
}

func (c *Client) Agent(ctx context.Context, id string) (model.Agent, error) {
	var a model.Agent
	err := c.do(ctx, http.MethodGet, "/agents/"+url.PathEscape(id), nil, &a)
	return a, err
}

func (c *Client) CreateAgent(ctx context.Context, a model.Agent) (model.Agent, error) {
	var created model.Agent
	err := c.do(ctx, http.MethodPost, "/agents", a, &created)
	return created, err
}

func (c *Client) UpdateAgent(ctx context.Context, id string, a model.Agent) (model.Agent, error) {
	var updated model.Agent
	err := c.do(ctx, http.MethodPut, "/agents/"+url.PathEscape(id), a, &updated)
	return updated, err
}

func (c *Client) DeleteAgent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/agents/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ActivateAgent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, "/agents/"+url.PathEscape(id)+"/activate", nil, nil)
}

func (c *Client) DeactivateAgent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, "/agents/"+url.PathEscape(id)+"/deactivate", nil, nil)
}

// --- Tickets (read-only) ---

func (c *Client) Tickets(ctx context.Context) ([]model.Ticket, error) {
	var tickets []model.Ticket
	err := c.do(ctx, http.MethodGet, "/admin/tickets", nil, &tickets)
	return tickets, err
}

func (c *Client) Ticket(ctx context.Context, id string) (model.Ticket, error) {
	var t model.Ticket
	err := c.do(ctx, http.MethodGet, "/admin/tickets/"+url.PathEscape(id), nil, &t)
	return t, err
}

func (c *Client) TicketsByStatus(ctx context.Context, status model.TicketStatus) ([]model.Ticket, error) {
	var tickets []model.Ticket
	err := c.do(ctx, http.MethodGet, "/admin/tickets/status/"+url.PathEscape(string(status)), nil, &tickets)
	return tickets, err
}

// TicketLogs fetches the complete processing trail for one ticket.
// The backend returns the full trail on every call; the watcher
// replaces its copy wholesale rather than merging.
func (c *Client) TicketLogs(ctx context.Context, id string) ([]model.ProcessingLog, error) {
	var logs []model.ProcessingLog
	err := c.do(ctx, http.MethodGet, "/admin/tickets/"+url.PathEscape(id)+"/logs", nil, &logs)
	return logs, err
}

// --- Admin ---

func (c *Client) Health(ctx context.Context) (model.AppHealth, error) {
	var h model.AppHealth
	err := c.do(ctx, http.MethodGet, "/admin/health", nil, &h)
	return h, err
}

type syncResponse struct {
	Message string `json:"message"`
}

// SyncZoho asks the backend to pull fresh tickets from the helpdesk.
func (c *Client) SyncZoho(ctx context.Context) (string, error) {
	var resp syncResponse
	if err := c.do(ctx, http.MethodPost, "/admin/sync/zoho", nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// --- Integration configs ---

func (c *Client) ZohoConfigs(ctx context.Context) ([]model.ZohoConfig, error) {
	var configs []model.ZohoConfig
	err := c.do(ctx, http.MethodGet, "/config/zoho", nil, &configs)
	return configs, err
}

func (c *Client) AddZohoConfig(ctx context.Context, cfg model.ZohoConfig) (model.ZohoConfig, error) {
	var created model.ZohoConfig
	err := c.do(ctx, http.MethodPost, "/config/zoho", cfg, &created)
	return created, err
}

func (c *Client) DeleteZohoConfig(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/config/zoho/"+url.PathEscape(id), nil, nil)
}

func (c *Client) GitLabConfigs(ctx context.Context) ([]model.GitLabConfig, error) {
	var configs []model.GitLabConfig
	err := c.do(ctx, http.MethodGet, "/config/gitlab", nil, &configs)
	return configs, err
}

func (c *Client) AddGitLabConfig(ctx context.Context, cfg model.GitLabConfig) (model.GitLabConfig, error) {
	var created model.GitLabConfig
	err := c.do(ctx, http.MethodPost, "/config/gitlab", cfg, &created)
	return created, err
}

func (c *Client) DeleteGitLabConfig(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/config/gitlab/"+url.PathEscape(id), nil, nil)
}

func (c *Client) BotConfig(ctx context.Context) (model.BotConfig, error) {
	var cfg model.BotConfig
	err := c.do(ctx, http.MethodGet, "/config/bot", nil, &cfg)
	return cfg, err
}

func (c *Client) SaveBotConfig(ctx context.Context, cfg model.BotConfig) error {
	return c.do(ctx, http.MethodPost, "/config/bot", cfg, nil)
}

// --- Plumbing ---

type errorResponse struct {
	Error string `json:"error"`
}

// do issues one request against the /api surface. out may be nil for
// endpoints whose body the caller discards.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("gateway: marshal %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api"+path, body)
	if err != nil {
		return fmt.Errorf("gateway: create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("gateway: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: requestID}
		var er errorResponse
		if json.Unmarshal(respBody, &er) == nil && er.Error != "" {
			apiErr.Message = er.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		c.logger.Debug("api request failed",
			"method", method, "path", path,
			"status", resp.StatusCode, "request_id", requestID)
		return apiErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("gateway: unmarshal %s %s: %w", method, path, err)
	}
	return nil
}
