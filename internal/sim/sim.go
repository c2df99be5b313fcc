// Package sim drives the remediation pipeline inside fixdeckd. It
// advances pending and active tickets step by step on a cron cadence,
// appending processing logs and promoting statuses exactly the way
// the real pipeline would, so the dashboard can be exercised without
// a live agent fleet.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fixdeck-io/fixdeck/internal/store"
	"github.com/fixdeck-io/fixdeck/pkg/model"
)

// Notifier is told when a ticket reaches a terminal status. A nil
// Notifier disables settlement notifications.
type Notifier interface {
	TicketSettled(ctx context.Context, t model.Ticket)
}

// Config tunes the simulated pipeline.
type Config struct {
	// AdvanceInterval is the cadence at which every in-flight ticket
	// moves one step forward.
	AdvanceInterval time.Duration
	// FailurePercent is the chance (0..100) that a ticket fails at
	// some step instead of completing.
	FailurePercent int
	// Seed fixes the random source; 0 means time-seeded.
	Seed int64
}

// Simulator owns the pipeline clock.
type Simulator struct {
	st       store.Store
	notifier Notifier
	cfg      Config
	logger   *slog.Logger
	cron     *cron.Cron

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a simulator. notifier may be nil.
func New(st store.Store, notifier Notifier, cfg Config, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AdvanceInterval <= 0 {
		cfg.AdvanceInterval = 3 * time.Second
	}
	if cfg.FailurePercent < 0 || cfg.FailurePercent > 100 {
		cfg.FailurePercent = 15
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{
		st:       st,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		cron:     cron.New(),
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Start registers the advance job and blocks until the context is
// cancelled.
func (s *Simulator) Start(ctx context.Context) error {
	schedule := fmt.Sprintf("@every %s", s.cfg.AdvanceInterval)
	_, err := s.cron.AddFunc(schedule, func() { s.Advance(ctx) })
	if err != nil {
		return fmt.Errorf("sim: schedule %q: %w", schedule, err)
	}

	s.cron.Start()
	s.logger.Info("pipeline simulator started", "interval", s.cfg.AdvanceInterval)

	<-ctx.Done()
	s.cron.Stop()
	s.logger.Info("pipeline simulator stopped")
	return ctx.Err()
}

// Advance moves every in-flight ticket one step forward. Pending
// tickets are picked up only while at least one agent is active.
func (s *Simulator) Advance(ctx context.Context) {
	health, err := s.st.Health()
	if err != nil {
		s.logger.Error("advance: health", "error", err)
		return
	}

	if health.ActiveAgents > 0 {
		pending := model.TicketPending
		tickets, err := s.st.Tickets(&pending)
		if err != nil {
			s.logger.Error("advance: list pending", "error", err)
			return
		}
		for _, t := range tickets {
			s.pickUp(ctx, t)
		}
	}

	for _, status := range []model.TicketStatus{model.TicketProcessing, model.TicketAnalyzing, model.TicketFixing} {
		st := status
		tickets, err := s.st.Tickets(&st)
		if err != nil {
			s.logger.Error("advance: list active", "status", status, "error", err)
			return
		}
		for _, t := range tickets {
			if ctx.Err() != nil {
				return
			}
			s.step(ctx, t)
		}
	}
}

func (s *Simulator) pickUp(ctx context.Context, t model.Ticket) {
	t.Status = model.TicketProcessing
	if _, err := s.st.SaveTicket(t); err != nil {
		s.logger.Error("pick up ticket", "ticket", t.ID, "error", err)
		return
	}
	err := s.st.AppendLog(t.ID, model.ProcessingLog{
		Step:    model.StepTicketReceived,
		Status:  model.OutcomeInProgress,
		Message: "ticket accepted for processing",
	})
	if err != nil {
		s.logger.Error("pick up log", "ticket", t.ID, "error", err)
		return
	}
	s.logger.Info("ticket picked up", "ticket", t.ID, "subject", t.Subject)
}

// step concludes the ticket's current pipeline step and opens the
// next one, promoting the ticket status along phase boundaries.
func (s *Simulator) step(ctx context.Context, t model.Ticket) {
	logs, err := s.st.Logs(t.ID)
	if err != nil {
		s.logger.Error("step: load logs", "ticket", t.ID, "error", err)
		return
	}

	idx := nextStepIndex(logs)
	if idx >= len(model.StepOrder) {
		s.settle(ctx, t, true, "")
		return
	}
	step := model.StepOrder[idx]

	if s.roll(s.cfg.FailurePercent) {
		detail := failureDetail(step)
		s.appendLog(t.ID, step, model.OutcomeFailure, "step failed", detail)
		s.settle(ctx, t, false, detail)
		return
	}

	outcome := model.OutcomeSuccess
	if s.roll(10) {
		outcome = model.OutcomeWarning
	}
	s.appendLog(t.ID, step, outcome, stepMessage(step), "")

	// Stamp repository metadata as the pipeline discovers it.
	switch step {
	case model.StepIdentifyingRepository:
		t.RepositoryName = repoFor(t)
	case model.StepCreatingBranch:
		t.BranchName = fmt.Sprintf("fixdeck/%s", shortID(t.ID))
	case model.StepCreatingPR:
		t.PullRequestURL = fmt.Sprintf("https://gitlab.internal/%s/-/merge_requests/%d", repoFor(t), 100+s.intn(900))
	}

	if idx+1 >= len(model.StepOrder) {
		s.settle(ctx, t, true, "")
		return
	}

	// Open the next step and promote status when crossing a phase.
	next := model.StepOrder[idx+1]
	s.appendLog(t.ID, next, model.OutcomeInProgress, stepMessage(next)+"...", "")

	status := phaseFor(idx + 1)
	if status != t.Status {
		t.Status = status
	}
	if _, err := s.st.SaveTicket(t); err != nil {
		s.logger.Error("step: save ticket", "ticket", t.ID, "error", err)
	}
}

func (s *Simulator) settle(ctx context.Context, t model.Ticket, ok bool, detail string) {
	now := time.Now().UTC()
	if ok {
		t.Status = model.TicketCompleted
	} else {
		t.Status = model.TicketFailed
	}
	t.CompletedAt = &now
	t.ProcessingTimeMs = now.Sub(t.CreatedAt).Milliseconds()

	saved, err := s.st.SaveTicket(t)
	if err != nil {
		s.logger.Error("settle: save ticket", "ticket", t.ID, "error", err)
		return
	}
	s.logger.Info("ticket settled",
		"ticket", t.ID, "status", t.Status, "processing_ms", t.ProcessingTimeMs)
	if s.notifier != nil {
		s.notifier.TicketSettled(ctx, saved)
	}
}

// SyncZoho simulates a helpdesk pull: it requires an active helpdesk
// connection and creates a small batch of fresh pending tickets.
func (s *Simulator) SyncZoho(ctx context.Context) (int, error) {
	configs, err := s.st.ZohoConfigs()
	if err != nil {
		return 0, fmt.Errorf("sim: sync: %w", err)
	}
	active := false
	for _, c := range configs {
		if c.IsActive {
			active = true
			break
		}
	}
	if !active {
		return 0, errors.New("sim: sync: no active helpdesk connection")
	}

	n := 1 + s.intn(3)
	for i := 0; i < n; i++ {
		sample := sampleTickets[s.intn(len(sampleTickets))]
		_, err := s.st.SaveTicket(model.Ticket{
			ZohoTicketID: fmt.Sprintf("zoho-%d", 100000+s.intn(900000)),
			TicketNumber: fmt.Sprintf("#%d", 1000+s.intn(9000)),
			Subject:      sample.subject,
			Description:  sample.description,
			Priority:     sample.priority,
			Status:       model.TicketPending,
		})
		if err != nil {
			return i, fmt.Errorf("sim: sync: %w", err)
		}
	}
	s.logger.Info("helpdesk sync complete", "new_tickets", n)
	return n, nil
}

// Seed populates an empty store with a demo fleet and ticket backlog.
func (s *Simulator) Seed() error {
	agents, err := s.st.Agents()
	if err != nil {
		return fmt.Errorf("sim: seed: %w", err)
	}
	if len(agents) > 0 {
		return nil
	}

	fixer, err := s.st.SaveAgent(model.Agent{
		AgentName:            "backend-fixer",
		AgentDescription:     "Fixes backend service tickets",
		LLMProvider:          "anthropic",
		LLMModel:             "claude-3-5-sonnet-20241022",
		LLMMaxTokens:         8192,
		LLMTemperature:       0.2,
		AutoProcessTickets:   true,
		MaxConcurrentTickets: 3,
		GitWorkspaceDir:      "/var/lib/fixdeck/workspaces",
	})
	if err != nil {
		return fmt.Errorf("sim: seed agent: %w", err)
	}
	if _, err := s.st.SetAgentStatus(fixer.ID, model.AgentActive); err != nil {
		return fmt.Errorf("sim: seed agent: %w", err)
	}
	_, err = s.st.SaveAgent(model.Agent{
		AgentName:            "frontend-fixer",
		AgentDescription:     "Handles UI and dashboard tickets",
		LLMProvider:          "anthropic",
		LLMModel:             "claude-3-5-sonnet-20241022",
		LLMMaxTokens:         8192,
		LLMTemperature:       0.4,
		MaxConcurrentTickets: 1,
	})
	if err != nil {
		return fmt.Errorf("sim: seed agent: %w", err)
	}

	for _, sample := range sampleTickets {
		_, err := s.st.SaveTicket(model.Ticket{
			ZohoTicketID: fmt.Sprintf("zoho-%d", 100000+s.intn(900000)),
			TicketNumber: fmt.Sprintf("#%d", 1000+s.intn(9000)),
			Subject:      sample.subject,
			Description:  sample.description,
			Priority:     sample.priority,
			Status:       model.TicketPending,
		})
		if err != nil {
			return fmt.Errorf("sim: seed ticket: %w", err)
		}
	}
	s.logger.Info("demo data seeded", "tickets", len(sampleTickets))
	return nil
}

// --- helpers ---

func (s *Simulator) appendLog(ticketID string, step model.ProcessingStep, outcome model.LogOutcome, msg, detail string) {
	err := s.st.AppendLog(ticketID, model.ProcessingLog{
		Step:         step,
		Status:       outcome,
		Message:      msg,
		ErrorDetails: detail,
	})
	if err != nil {
		s.logger.Error("append log", "ticket", ticketID, "step", step, "error", err)
	}
}

func (s *Simulator) roll(percent int) bool {
	return s.intn(100) < percent
}

func (s *Simulator) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// nextStepIndex finds the first step without a conclusive log entry.
func nextStepIndex(logs []model.ProcessingLog) int {
	concluded := make(map[model.ProcessingStep]bool, len(logs))
	for _, entry := range logs {
		if entry.Status.Conclusive() {
			concluded[entry.Step] = true
		}
	}
	for i, step := range model.StepOrder {
		if !concluded[step] {
			return i
		}
	}
	return len(model.StepOrder)
}

// phaseFor maps a step index onto the ticket status the pipeline
// reports while working on it.
func phaseFor(idx int) model.TicketStatus {
	step := model.StepOrder[idx]
	switch step {
	case model.StepTicketReceived, model.StepExtractingKeywords,
		model.StepIdentifyingRepository:
		return model.TicketProcessing
	case model.StepAnalyzingDocs, model.StepCloningRepository,
		model.StepCreatingBranch, model.StepAnalyzingCode:
		return model.TicketAnalyzing
	}
	return model.TicketFixing
}

func stepMessage(step model.ProcessingStep) string {
	return step.Label()
}

func failureDetail(step model.ProcessingStep) string {
	switch step {
	case model.StepIdentifyingRepository:
		return "no repository matched the extracted keywords"
	case model.StepCloningRepository:
		return "git clone failed: connection reset by peer"
	case model.StepApplyingChanges:
		return "patch did not apply cleanly"
	case model.StepPushing:
		return "push rejected: protected branch"
	}
	return fmt.Sprintf("%s failed", step.Label())
}

func repoFor(t model.Ticket) string {
	if t.RepositoryName != "" {
		return t.RepositoryName
	}
	repos := []string{"platform/billing", "platform/auth-service", "web/dashboard", "infra/ingest"}
	sum := 0
	for _, c := range t.ID {
		sum += int(c)
	}
	return repos[sum%len(repos)]
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type sampleTicket struct {
	subject     string
	description string
	priority    model.Priority
}

var sampleTickets = []sampleTicket{
	{"Login page returns 500 after password reset", "Users report an internal error when logging in immediately after resetting their password.", model.PriorityCritical},
	{"Invoice PDF renders with wrong currency symbol", "EUR invoices show the dollar sign in the total line.", model.PriorityHigh},
	{"Dashboard chart tooltip off by one day", "Hovering the daily ticket chart shows the previous day's count.", model.PriorityMedium},
	{"Export job times out on large datasets", "CSV export of more than 50k rows hits the 30s gateway timeout.", model.PriorityHigh},
	{"Typo in onboarding email subject", "The welcome email subject reads 'Welcom'.", model.PriorityLow},
	{"Search ignores ticket number prefix", "Searching for #1042 returns no results although the ticket exists.", model.PriorityMedium},
}
