package sim

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fixdeck-io/fixdeck/internal/store"
	"github.com/fixdeck-io/fixdeck/pkg/model"
)

func newTestSim(t *testing.T, cfg Config, notifier Notifier) (*Simulator, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "sim.db"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if cfg.Seed == 0 {
		cfg.Seed = 1
	}
	return New(st, notifier, cfg, nil), st
}

func activeAgent(t *testing.T, st *store.SQLiteStore) {
	t.Helper()
	a, err := st.SaveAgent(model.Agent{AgentName: "fixer", LLMProvider: "p", LLMModel: "m"})
	if err != nil {
		t.Fatalf("seed agent: %v", err)
	}
	if _, err := st.SetAgentStatus(a.ID, model.AgentActive); err != nil {
		t.Fatalf("activate agent: %v", err)
	}
}

func TestPendingTicketIgnoredWithoutActiveAgent(t *testing.T) {
	sim, st := newTestSim(t, Config{FailurePercent: 0}, nil)
	tk, _ := st.SaveTicket(model.Ticket{Subject: "a", Status: model.TicketPending})

	sim.Advance(context.Background())

	got, _ := st.TicketByID(tk.ID)
	if got.Status != model.TicketPending {
		t.Errorf("status = %q, want PENDING with no active agents", got.Status)
	}
}

func TestPendingTicketPickedUp(t *testing.T) {
	sim, st := newTestSim(t, Config{FailurePercent: 0}, nil)
	activeAgent(t, st)
	tk, _ := st.SaveTicket(model.Ticket{Subject: "a", Status: model.TicketPending})

	sim.Advance(context.Background())

	got, _ := st.TicketByID(tk.ID)
	if got.Status != model.TicketProcessing {
		t.Errorf("status = %q, want PROCESSING", got.Status)
	}
	logs, _ := st.Logs(tk.ID)
	if len(logs) != 1 || logs[0].Step != model.StepTicketReceived || logs[0].Status != model.OutcomeInProgress {
		t.Errorf("logs after pickup = %v", logs)
	}
}

func TestTicketRunsToCompletion(t *testing.T) {
	sim, st := newTestSim(t, Config{FailurePercent: 0}, nil)
	activeAgent(t, st)
	tk, _ := st.SaveTicket(model.Ticket{
		Subject: "a", Status: model.TicketPending,
		CreatedAt: time.Now().Add(-time.Minute),
	})

	// Enough rounds to conclude all 13 steps.
	for i := 0; i < len(model.StepOrder)+3; i++ {
		sim.Advance(context.Background())
	}

	got, _ := st.TicketByID(tk.ID)
	if got.Status != model.TicketCompleted {
		t.Fatalf("status = %q, want COMPLETED", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("completedAt not stamped")
	}
	if got.ProcessingTimeMs <= 0 {
		t.Errorf("processingTimeMs = %d, want > 0", got.ProcessingTimeMs)
	}
	if got.PullRequestURL == "" {
		t.Error("completed ticket has no merge request URL")
	}
	if got.RepositoryName == "" || got.BranchName == "" {
		t.Errorf("repository metadata missing: repo=%q branch=%q", got.RepositoryName, got.BranchName)
	}

	// Every step concluded, in pipeline order.
	logs, _ := st.Logs(tk.ID)
	concluded := map[model.ProcessingStep]bool{}
	for _, entry := range logs {
		if entry.Status.Conclusive() {
			if entry.Status == model.OutcomeFailure {
				t.Errorf("unexpected failure at %s", entry.Step)
			}
			concluded[entry.Step] = true
		}
	}
	for _, step := range model.StepOrder {
		if !concluded[step] {
			t.Errorf("step %s never concluded", step)
		}
	}
}

func TestFailureSettlesTicket(t *testing.T) {
	sim, st := newTestSim(t, Config{FailurePercent: 100}, nil)
	activeAgent(t, st)
	tk, _ := st.SaveTicket(model.Ticket{Subject: "a", Status: model.TicketPending})

	sim.Advance(context.Background()) // pick up
	sim.Advance(context.Background()) // fail at the first step

	got, _ := st.TicketByID(tk.ID)
	if got.Status != model.TicketFailed {
		t.Fatalf("status = %q, want FAILED", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("failed ticket has no completedAt")
	}

	logs, _ := st.Logs(tk.ID)
	var failure *model.ProcessingLog
	for i := range logs {
		if logs[i].Status == model.OutcomeFailure {
			failure = &logs[i]
		}
	}
	if failure == nil {
		t.Fatal("no failure log entry")
	}
	if failure.ErrorDetails == "" {
		t.Error("failure entry has no error details")
	}

	// A settled ticket must not advance further.
	sim.Advance(context.Background())
	after, _ := st.Logs(tk.ID)
	if len(after) != len(logs) {
		t.Errorf("logs grew after settlement: %d -> %d", len(logs), len(after))
	}
}

func TestStatusFollowsPhase(t *testing.T) {
	sim, st := newTestSim(t, Config{FailurePercent: 0}, nil)
	activeAgent(t, st)
	tk, _ := st.SaveTicket(model.Ticket{Subject: "a", Status: model.TicketPending})

	seen := map[model.TicketStatus]bool{}
	for i := 0; i < len(model.StepOrder)+3; i++ {
		sim.Advance(context.Background())
		got, _ := st.TicketByID(tk.ID)
		seen[got.Status] = true
	}
	for _, want := range []model.TicketStatus{model.TicketProcessing, model.TicketAnalyzing, model.TicketFixing, model.TicketCompleted} {
		if !seen[want] {
			t.Errorf("status %s never observed during the run", want)
		}
	}
}

type recordingNotifier struct {
	mu      sync.Mutex
	settled []model.Ticket
}

func (r *recordingNotifier) TicketSettled(ctx context.Context, t model.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settled = append(r.settled, t)
}

func TestNotifierToldOnceOnSettlement(t *testing.T) {
	n := &recordingNotifier{}
	sim, st := newTestSim(t, Config{FailurePercent: 100}, n)
	activeAgent(t, st)
	st.SaveTicket(model.Ticket{Subject: "a", Status: model.TicketPending})

	for i := 0; i < 5; i++ {
		sim.Advance(context.Background())
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.settled) != 1 {
		t.Fatalf("notifications = %d, want 1", len(n.settled))
	}
	if n.settled[0].Status != model.TicketFailed {
		t.Errorf("notified status = %q", n.settled[0].Status)
	}
}

func TestSyncZohoRequiresActiveConfig(t *testing.T) {
	sim, _ := newTestSim(t, Config{}, nil)
	if _, err := sim.SyncZoho(context.Background()); err == nil {
		t.Error("sync without helpdesk config succeeded")
	}
}

func TestSyncZohoCreatesPendingTickets(t *testing.T) {
	sim, st := newTestSim(t, Config{}, nil)
	st.AddZohoConfig(model.ZohoConfig{ConfigName: "prod", OrgID: "o", ClientID: "c", ClientSecret: "s", RefreshToken: "r", IsActive: true})

	n, err := sim.SyncZoho(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if n < 1 || n > 3 {
		t.Errorf("synced = %d, want 1..3", n)
	}

	pending := model.TicketPending
	tickets, _ := st.Tickets(&pending)
	if len(tickets) != n {
		t.Errorf("pending tickets = %d, want %d", len(tickets), n)
	}
	for _, tk := range tickets {
		if tk.ZohoTicketID == "" || tk.Subject == "" {
			t.Errorf("synced ticket missing fields: %+v", tk)
		}
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	sim, st := newTestSim(t, Config{}, nil)

	if err := sim.Seed(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	agents, _ := st.Agents()
	tickets, _ := st.Tickets(nil)
	if len(agents) != 2 {
		t.Errorf("seeded agents = %d, want 2", len(agents))
	}
	if len(tickets) == 0 {
		t.Error("no tickets seeded")
	}

	if err := sim.Seed(); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	again, _ := st.Agents()
	if len(again) != len(agents) {
		t.Errorf("second seed added agents: %d -> %d", len(agents), len(again))
	}
}
