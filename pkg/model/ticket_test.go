package model

import "testing"

func TestTicketStatusActive(t *testing.T) {
	active := []TicketStatus{TicketProcessing, TicketAnalyzing, TicketFixing}
	for _, s := range active {
		if !s.Active() {
			t.Errorf("%s.Active() = false, want true", s)
		}
		if s.Terminal() {
			t.Errorf("%s.Terminal() = true, want false", s)
		}
	}

	inactive := []TicketStatus{TicketPending, TicketCompleted, TicketFailed}
	for _, s := range inactive {
		if s.Active() {
			t.Errorf("%s.Active() = true, want false", s)
		}
	}
}

func TestTicketStatusTerminal(t *testing.T) {
	if !TicketCompleted.Terminal() || !TicketFailed.Terminal() {
		t.Error("COMPLETED and FAILED must be terminal")
	}
	if TicketPending.Terminal() {
		t.Error("PENDING must not be terminal")
	}
}

func TestStepOrderHasNoDuplicates(t *testing.T) {
	seen := make(map[ProcessingStep]bool)
	for _, s := range StepOrder {
		if seen[s] {
			t.Errorf("duplicate step %s in StepOrder", s)
		}
		seen[s] = true
	}
	if len(StepOrder) != 13 {
		t.Errorf("len(StepOrder) = %d, want 13", len(StepOrder))
	}
}

func TestStepIndex(t *testing.T) {
	if got := StepIndex(StepTicketReceived); got != 0 {
		t.Errorf("StepIndex(TICKET_RECEIVED) = %d, want 0", got)
	}
	if got := StepIndex(StepCleanup); got != len(StepOrder)-1 {
		t.Errorf("StepIndex(CLEANUP) = %d, want %d", got, len(StepOrder)-1)
	}
	if got := StepIndex("NOT_A_STEP"); got != -1 {
		t.Errorf("StepIndex(unknown) = %d, want -1", got)
	}
}

func TestPriorityRank(t *testing.T) {
	if PriorityCritical.Rank() <= PriorityHigh.Rank() {
		t.Error("CRITICAL must outrank HIGH")
	}
	if PriorityLow.Rank() <= Priority("BOGUS").Rank() {
		t.Error("LOW must outrank unknown priorities")
	}
}

func TestLogOutcomeConclusive(t *testing.T) {
	for _, o := range []LogOutcome{OutcomeSuccess, OutcomeFailure, OutcomeWarning} {
		if !o.Conclusive() {
			t.Errorf("%s.Conclusive() = false, want true", o)
		}
	}
	if OutcomeInProgress.Conclusive() {
		t.Error("in_progress must not be conclusive")
	}
}
