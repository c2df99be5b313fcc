package ops

import (
	"context"
	"errors"
	"testing"

	"github.com/fixdeck-io/fixdeck/internal/gateway"
	"github.com/fixdeck-io/fixdeck/pkg/model"
)

type fakeAgentGateway struct {
	agents     map[string]model.Agent
	listCalls  int
	fetchCalls int
	calls      []string
}

func (f *fakeAgentGateway) Agents(ctx context.Context) ([]model.Agent, error) {
	f.listCalls++
	f.calls = append(f.calls, "list")
	out := make([]model.Agent, 0, len(f.agents))
	for _, a := range f.agents {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAgentGateway) Agent(ctx context.Context, id string) (model.Agent, error) {
	f.fetchCalls++
	f.calls = append(f.calls, "fetch "+id)
	a, ok := f.agents[id]
	if !ok {
		return model.Agent{}, &gateway.APIError{StatusCode: 404, Message: "no such agent"}
	}
	return a, nil
}

func (f *fakeAgentGateway) CreateAgent(ctx context.Context, a model.Agent) (model.Agent, error) {
	f.calls = append(f.calls, "create")
	a.ID = "a-new"
	f.agents[a.ID] = a
	return a, nil
}

func (f *fakeAgentGateway) UpdateAgent(ctx context.Context, id string, a model.Agent) (model.Agent, error) {
	f.calls = append(f.calls, "update "+id)
	a.ID = id
	f.agents[id] = a
	return a, nil
}

func (f *fakeAgentGateway) DeleteAgent(ctx context.Context, id string) error {
	f.calls = append(f.calls, "delete "+id)
	delete(f.agents, id)
	return nil
}

func (f *fakeAgentGateway) ActivateAgent(ctx context.Context, id string) error {
	f.calls = append(f.calls, "activate "+id)
	a := f.agents[id]
	a.Status = model.AgentActive
	f.agents[id] = a
	return nil
}

func (f *fakeAgentGateway) DeactivateAgent(ctx context.Context, id string) error {
	f.calls = append(f.calls, "deactivate "+id)
	a := f.agents[id]
	a.Status = model.AgentInactive
	f.agents[id] = a
	return nil
}

func validAgent() model.Agent {
	return model.Agent{
		AgentName:            "fixer",
		LLMProvider:          "anthropic",
		LLMModel:             "claude-3-5-sonnet-20241022",
		MaxConcurrentTickets: 2,
		LLMTemperature:       0.7,
	}
}

func TestCreateAgentReloadsList(t *testing.T) {
	gw := &fakeAgentGateway{agents: map[string]model.Agent{}}
	o := NewAgentOps(gw, nil)

	agents, err := o.Create(context.Background(), validAgent())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(agents) != 1 {
		t.Fatalf("returned list has %d agents, want 1", len(agents))
	}
	if gw.listCalls != 1 {
		t.Errorf("list calls = %d, want 1 (reload after create)", gw.listCalls)
	}
}

func TestCreateAgentValidationBlocksNetwork(t *testing.T) {
	gw := &fakeAgentGateway{agents: map[string]model.Agent{}}
	o := NewAgentOps(gw, nil)

	a := validAgent()
	a.AgentName = "  "
	a.MaxConcurrentTickets = 0

	_, err := o.Create(context.Background(), a)
	if err == nil {
		t.Fatal("Create() with invalid form succeeded")
	}
	if !IsValidation(err) {
		t.Errorf("error is not a ValidationError: %v", err)
	}
	if len(gw.calls) != 0 {
		t.Errorf("gateway calls = %v, want none for invalid input", gw.calls)
	}
}

func TestToggleDerivesDirectionFromFreshState(t *testing.T) {
	// The stored agent is ACTIVE even if the caller's stale view says
	// otherwise; toggle must deactivate.
	gw := &fakeAgentGateway{agents: map[string]model.Agent{
		"a1": {ID: "a1", AgentName: "fixer", Status: model.AgentActive},
	}}
	o := NewAgentOps(gw, nil)

	fresh, err := o.Toggle(context.Background(), "a1")
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if fresh.Status != model.AgentInactive {
		t.Errorf("status after toggle = %v, want INACTIVE", fresh.Status)
	}
	want := []string{"fetch a1", "deactivate a1", "fetch a1"}
	if len(gw.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", gw.calls, want)
	}
	for i := range want {
		if gw.calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, gw.calls[i], want[i])
		}
	}
}

func TestToggleInactiveActivates(t *testing.T) {
	gw := &fakeAgentGateway{agents: map[string]model.Agent{
		"a1": {ID: "a1", Status: model.AgentInactive},
	}}
	o := NewAgentOps(gw, nil)

	fresh, err := o.Toggle(context.Background(), "a1")
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if fresh.Status != model.AgentActive {
		t.Errorf("status after toggle = %v, want ACTIVE", fresh.Status)
	}
}

func TestToggleMissingAgent(t *testing.T) {
	gw := &fakeAgentGateway{agents: map[string]model.Agent{}}
	o := NewAgentOps(gw, nil)

	_, err := o.Toggle(context.Background(), "ghost")
	if !errors.Is(err, gateway.ErrNotFound) {
		t.Errorf("Toggle() error = %v, want ErrNotFound", err)
	}
}

func TestDeleteAgentReloadsList(t *testing.T) {
	gw := &fakeAgentGateway{agents: map[string]model.Agent{
		"a1": {ID: "a1"}, "a2": {ID: "a2"},
	}}
	o := NewAgentOps(gw, nil)

	agents, err := o.Delete(context.Background(), "a1")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(agents) != 1 || agents[0].ID != "a2" {
		t.Errorf("agents after delete = %v, want just a2", agents)
	}
}

type fakeIntegrationGateway struct {
	zoho      []model.ZohoConfig
	gitlab    []model.GitLabConfig
	bot       model.BotConfig
	botStored bool
	calls     []string
}

func (f *fakeIntegrationGateway) ZohoConfigs(ctx context.Context) ([]model.ZohoConfig, error) {
	f.calls = append(f.calls, "zoho.list")
	return f.zoho, nil
}

func (f *fakeIntegrationGateway) AddZohoConfig(ctx context.Context, cfg model.ZohoConfig) (model.ZohoConfig, error) {
	f.calls = append(f.calls, "zoho.add")
	cfg.ID = "z-new"
	f.zoho = append(f.zoho, cfg)
	return cfg, nil
}

func (f *fakeIntegrationGateway) DeleteZohoConfig(ctx context.Context, id string) error {
	f.calls = append(f.calls, "zoho.delete")
	kept := f.zoho[:0]
	for _, c := range f.zoho {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	f.zoho = kept
	return nil
}

func (f *fakeIntegrationGateway) GitLabConfigs(ctx context.Context) ([]model.GitLabConfig, error) {
	f.calls = append(f.calls, "gitlab.list")
	return f.gitlab, nil
}

func (f *fakeIntegrationGateway) AddGitLabConfig(ctx context.Context, cfg model.GitLabConfig) (model.GitLabConfig, error) {
	f.calls = append(f.calls, "gitlab.add")
	cfg.ID = "g-new"
	f.gitlab = append(f.gitlab, cfg)
	return cfg, nil
}

func (f *fakeIntegrationGateway) DeleteGitLabConfig(ctx context.Context, id string) error {
	f.calls = append(f.calls, "gitlab.delete")
	return nil
}

func (f *fakeIntegrationGateway) BotConfig(ctx context.Context) (model.BotConfig, error) {
	f.calls = append(f.calls, "bot.load")
	if !f.botStored {
		return model.BotConfig{}, &gateway.APIError{StatusCode: 404, Message: "no bot config"}
	}
	return f.bot, nil
}

func (f *fakeIntegrationGateway) SaveBotConfig(ctx context.Context, cfg model.BotConfig) error {
	f.calls = append(f.calls, "bot.save")
	f.bot = cfg
	f.botStored = true
	return nil
}

func TestAddZohoValidatesRequiredFields(t *testing.T) {
	gw := &fakeIntegrationGateway{}
	o := NewIntegrationOps(gw, nil)

	_, err := o.AddZoho(context.Background(), model.ZohoConfig{ConfigName: "prod"})
	if !IsValidation(err) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if len(gw.calls) != 0 {
		t.Errorf("gateway calls = %v, want none", gw.calls)
	}
}

func TestAddGitLabRejectsBadURL(t *testing.T) {
	o := NewIntegrationOps(&fakeIntegrationGateway{}, nil)

	_, err := o.AddGitLab(context.Background(), model.GitLabConfig{
		ConfigName:    "main",
		GitLabURL:     "git@internal:repo.git",
		PersonalToken: "tok",
		Username:      "bot",
	})
	if !IsValidation(err) {
		t.Errorf("error = %v, want ValidationError", err)
	}
}

func TestAddGitLabReloadsList(t *testing.T) {
	gw := &fakeIntegrationGateway{}
	o := NewIntegrationOps(gw, nil)

	configs, err := o.AddGitLab(context.Background(), model.GitLabConfig{
		ConfigName:    "main",
		GitLabURL:     "https://gitlab.internal",
		PersonalToken: "tok",
		Username:      "bot",
	})
	if err != nil {
		t.Fatalf("AddGitLab() error = %v", err)
	}
	if len(configs) != 1 || configs[0].ID != "g-new" {
		t.Errorf("configs = %v, want the stored config", configs)
	}
}

func TestLoadBotDefaultsWhenUnset(t *testing.T) {
	o := NewIntegrationOps(&fakeIntegrationGateway{}, nil)

	cfg, err := o.LoadBot(context.Background())
	if err != nil {
		t.Fatalf("LoadBot() error = %v", err)
	}
	want := model.DefaultBotConfig()
	if cfg.LLMProvider != want.LLMProvider || cfg.LLMModel != want.LLMModel {
		t.Errorf("cfg = %+v, want defaults %+v", cfg, want)
	}
}

func TestSaveBotRoundTrips(t *testing.T) {
	gw := &fakeIntegrationGateway{}
	o := NewIntegrationOps(gw, nil)

	cfg := model.DefaultBotConfig()
	cfg.BotName = "fixdeck-bot"
	fresh, err := o.SaveBot(context.Background(), cfg)
	if err != nil {
		t.Fatalf("SaveBot() error = %v", err)
	}
	if fresh.BotName != "fixdeck-bot" {
		t.Errorf("reloaded bot name = %q", fresh.BotName)
	}
}

type fakeProfileGateway struct {
	profile model.UserProfile
	updates int
}

func (f *fakeProfileGateway) Profile(ctx context.Context) (model.UserProfile, error) {
	return f.profile, nil
}

func (f *fakeProfileGateway) UpdateProfile(ctx context.Context, p model.UserProfile) (model.UserProfile, error) {
	f.updates++
	f.profile = p
	return p, nil
}

func TestProfileSaveReloads(t *testing.T) {
	gw := &fakeProfileGateway{profile: model.UserProfile{Username: "op", FullName: "Old Name", Email: "op@fixdeck.io"}}
	o := NewProfileOps(gw, nil)

	fresh, err := o.Save(context.Background(), model.UserProfile{
		Username: "op", FullName: "New Name", Email: "op@fixdeck.io",
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if fresh.FullName != "New Name" {
		t.Errorf("reloaded full name = %q", fresh.FullName)
	}
	if gw.updates != 1 {
		t.Errorf("updates = %d, want 1", gw.updates)
	}
}

func TestProfileSaveRejectsBadEmail(t *testing.T) {
	gw := &fakeProfileGateway{}
	o := NewProfileOps(gw, nil)

	_, err := o.Save(context.Background(), model.UserProfile{FullName: "Op", Email: "not-an-email"})
	if !IsValidation(err) {
		t.Errorf("error = %v, want ValidationError", err)
	}
	if gw.updates != 0 {
		t.Error("invalid profile reached the network")
	}
}
