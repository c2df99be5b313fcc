package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/fixdeck-io/fixdeck/internal/store"
	"github.com/fixdeck-io/fixdeck/pkg/model"
)

func newTestServer(t *testing.T, syncer Syncer) (*Server, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	srv := NewServer(st, syncer, Config{
		Host:       "127.0.0.1",
		Port:       0,
		Secret:     "test-secret",
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, nil)
	return srv, st
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func login(t *testing.T, srv *Server) string {
	t.Helper()
	w := doJSON(t, srv, "POST", "/api/auth/register", "", model.Registration{
		Username: "op", Password: "hunter2hunter2", Email: "op@fixdeck.io", FullName: "Operator",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, srv, "POST", "/api/auth/login", "", model.Credentials{Username: "op", Password: "hunter2hunter2"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["token"] == "" {
		t.Fatal("login returned no token")
	}
	return resp["token"]
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	token := login(t, srv)

	user, err := srv.verifyToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if user != "op" {
		t.Errorf("subject = %q, want op", user)
	}
}

func TestLoginBadPassword(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	login(t, srv)

	w := doJSON(t, srv, "POST", "/api/auth/login", "", model.Credentials{Username: "op", Password: "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestLoginUnknownUserSameResponse(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := doJSON(t, srv, "POST", "/api/auth/login", "", model.Credentials{Username: "ghost", Password: "x"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["error"] != "invalid credentials" {
		t.Errorf("error = %q, must not reveal whether the user exists", body["error"])
	}
}

func TestRegisterShortPassword(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	w := doJSON(t, srv, "POST", "/api/auth/register", "", model.Registration{Username: "op", Password: "short"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	for _, path := range []string{"/api/agents", "/api/admin/tickets", "/api/admin/health", "/api/profile"} {
		w := doJSON(t, srv, "GET", path, "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token = %d, want 401", path, w.Code)
		}
	}
}

func TestProtectedRoutesRejectForgedToken(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	w := doJSON(t, srv, "GET", "/api/agents", "not-a-jwt", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAgentLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	token := login(t, srv)

	w := doJSON(t, srv, "POST", "/api/agents", token, model.Agent{
		AgentName: "fixer", LLMProvider: "anthropic", LLMModel: "claude-3-5-sonnet-20241022",
		MaxConcurrentTickets: 2,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	var created model.Agent
	json.NewDecoder(w.Body).Decode(&created)
	if created.ID == "" {
		t.Fatal("created agent has no ID")
	}
	if created.Status != model.AgentInactive {
		t.Errorf("new agent status = %q, want INACTIVE", created.Status)
	}

	// Activate, then verify the list reflects it.
	w = doJSON(t, srv, "PUT", "/api/agents/"+created.ID+"/activate", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("activate status = %d", w.Code)
	}
	var activated model.Agent
	json.NewDecoder(w.Body).Decode(&activated)
	if activated.Status != model.AgentActive {
		t.Errorf("status = %q, want ACTIVE", activated.Status)
	}
	if activated.LastActiveAt == nil {
		t.Error("lastActiveAt not stamped")
	}

	w = doJSON(t, srv, "DELETE", "/api/agents/"+created.ID, token, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", w.Code)
	}
	w = doJSON(t, srv, "GET", "/api/agents/"+created.ID, token, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestTicketEndpointsAreReadOnlyViews(t *testing.T) {
	srv, st := newTestServer(t, nil)
	token := login(t, srv)

	tk, _ := st.SaveTicket(model.Ticket{Subject: "Crash on save", Status: model.TicketFixing, Priority: model.PriorityHigh})
	st.AppendLog(tk.ID, model.ProcessingLog{Step: model.StepTicketReceived, Status: model.OutcomeSuccess, Message: "got it"})

	w := doJSON(t, srv, "GET", "/api/admin/tickets", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var tickets []model.Ticket
	json.NewDecoder(w.Body).Decode(&tickets)
	if len(tickets) != 1 || tickets[0].ID != tk.ID {
		t.Errorf("tickets = %v", tickets)
	}

	w = doJSON(t, srv, "GET", "/api/admin/tickets/status/FIXING", token, nil)
	json.NewDecoder(w.Body).Decode(&tickets)
	if len(tickets) != 1 {
		t.Errorf("filtered tickets = %d, want 1", len(tickets))
	}

	w = doJSON(t, srv, "GET", "/api/admin/tickets/status/BOGUS", token, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bogus status filter = %d, want 400", w.Code)
	}

	w = doJSON(t, srv, "GET", "/api/admin/tickets/"+tk.ID+"/logs", token, nil)
	var logs []model.ProcessingLog
	json.NewDecoder(w.Body).Decode(&logs)
	if len(logs) != 1 || logs[0].Step != model.StepTicketReceived {
		t.Errorf("logs = %v", logs)
	}

	w = doJSON(t, srv, "GET", "/api/admin/tickets/ghost/logs", token, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("logs for missing ticket = %d, want 404", w.Code)
	}
}

func TestEmptyCollectionsEncodeAsArrays(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	token := login(t, srv)

	for _, path := range []string{"/api/agents", "/api/admin/tickets", "/api/config/zoho", "/api/config/gitlab"} {
		w := doJSON(t, srv, "GET", path, token, nil)
		if got := w.Body.String(); got != "[]\n" {
			t.Errorf("GET %s body = %q, want []", path, got)
		}
	}
}

func TestProfileRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	token := login(t, srv)

	w := doJSON(t, srv, "PUT", "/api/profile", token, model.UserProfile{
		Email: "op@fixdeck.io", FullName: "Operator Prime", Timezone: "Europe/Berlin",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("put profile = %d", w.Code)
	}

	w = doJSON(t, srv, "GET", "/api/profile", token, nil)
	var p model.UserProfile
	json.NewDecoder(w.Body).Decode(&p)
	if p.FullName != "Operator Prime" || p.Timezone != "Europe/Berlin" {
		t.Errorf("profile = %+v", p)
	}
	if p.Username != "op" {
		t.Errorf("username = %q, want op", p.Username)
	}
}

func TestBotConfigNotFoundUntilSaved(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	token := login(t, srv)

	w := doJSON(t, srv, "GET", "/api/config/bot", token, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unset bot config = %d, want 404", w.Code)
	}

	w = doJSON(t, srv, "POST", "/api/config/bot", token, model.DefaultBotConfig())
	if w.Code != http.StatusOK {
		t.Fatalf("save bot config = %d", w.Code)
	}

	w = doJSON(t, srv, "GET", "/api/config/bot", token, nil)
	if w.Code != http.StatusOK {
		t.Errorf("bot config after save = %d", w.Code)
	}
}

type fakeSyncer struct {
	n   int
	err error
}

func (f *fakeSyncer) SyncZoho(ctx context.Context) (int, error) { return f.n, f.err }

func TestSyncZoho(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSyncer{n: 3})
	token := login(t, srv)

	w := doJSON(t, srv, "POST", "/api/admin/sync/zoho", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sync status = %d", w.Code)
	}
	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["message"] != "synced 3 new tickets" {
		t.Errorf("message = %q", resp["message"])
	}
}

func TestSyncZohoFailure(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSyncer{err: errors.New("zoho 502")})
	token := login(t, srv)

	w := doJSON(t, srv, "POST", "/api/admin/sync/zoho", token, nil)
	if w.Code != http.StatusBadGateway {
		t.Errorf("sync status = %d, want 502", w.Code)
	}
}

func TestSyncZohoUnavailableWithoutSyncer(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	token := login(t, srv)

	w := doJSON(t, srv, "POST", "/api/admin/sync/zoho", token, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("sync status = %d, want 503", w.Code)
	}
}

func TestAuthRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	limited := false
	for i := 0; i < 10; i++ {
		w := doJSON(t, srv, "POST", "/api/auth/login", "", model.Credentials{Username: "ghost", Password: "x"})
		if w.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Error("10 rapid auth attempts never hit the rate limit")
	}
}

func TestCORSPreflightIsOpen(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/agents", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS origin header")
	}
}
