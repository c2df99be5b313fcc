// Package flow projects a ticket's processing trail onto the fixed
// pipeline step sequence for rendering. The projection is a pure
// function of its two inputs and is recomputed on every render; it
// holds no state of its own.
package flow

import (
	"time"

	"github.com/fixdeck-io/fixdeck/pkg/model"
)

// StepState classifies one pipeline step for display.
type StepState int

const (
	// StepPending means the pipeline has not reached this step.
	StepPending StepState = iota
	// StepActive means the step is inferred to be running right now.
	StepActive
	// StepCompleted means a conclusive success (or warning) was logged.
	StepCompleted
	// StepFailed means the step logged a failure; nothing after it is
	// reachable.
	StepFailed
)

func (s StepState) String() string {
	switch s {
	case StepActive:
		return "active"
	case StepCompleted:
		return "completed"
	case StepFailed:
		return "failed"
	}
	return "pending"
}

// StepView is the rendered classification of one pipeline step.
type StepView struct {
	Step    model.ProcessingStep
	State   StepState
	Outcome model.LogOutcome // zero when no log entry exists
	// Message is the most relevant log message: the conclusive
	// entry's when one exists, otherwise a transient in_progress one.
	Message      string
	ErrorDetails string
	Timestamp    time.Time
	// Warned is set when the step completed with a warning outcome.
	Warned bool
}

// Project maps the ticket status and its ordered log trail onto the
// fixed step sequence. The returned slice always has one entry per
// step in model.StepOrder.
//
// Classification rules:
//   - a conclusive log entry decides the step: success/warning →
//     completed, failure → failed;
//   - a failure makes every later step pending regardless of any
//     stray entries after it;
//   - a step with only an in_progress entry is active;
//   - a step with no entry is active when the ticket status is in the
//     active set and the immediately preceding step concluded
//     successfully; this is how the current step is inferred before
//     the backend emits its log;
//   - everything else is pending.
func Project(status model.TicketStatus, trail []model.ProcessingLog) []StepView {
	byStep := collapse(trail)

	views := make([]StepView, len(model.StepOrder))
	failed := false
	inferred := false

	for i, step := range model.StepOrder {
		view := StepView{Step: step, State: StepPending}

		entry, ok := byStep[step]
		switch {
		case failed:
			// Nothing after a failure is reachable.

		case ok:
			view.Outcome = entry.Status
			view.Message = entry.Message
			view.ErrorDetails = entry.ErrorDetails
			view.Timestamp = entry.CreatedAt
			switch entry.Status {
			case model.OutcomeFailure:
				view.State = StepFailed
				failed = true
			case model.OutcomeInProgress:
				view.State = StepActive
				inferred = true
			default: // success or warning
				view.State = StepCompleted
				view.Warned = entry.Status == model.OutcomeWarning
			}

		case !inferred && status.Active() && i > 0 && concluded(byStep, model.StepOrder[i-1]):
			view.State = StepActive
			inferred = true
		}

		views[i] = view
	}
	return views
}

// Current returns the step presently active in the projection, if any.
func Current(views []StepView) (model.ProcessingStep, bool) {
	for _, v := range views {
		if v.State == StepActive {
			return v.Step, true
		}
	}
	return "", false
}

// collapse reduces the trail to at most one entry per step, letting a
// conclusive outcome shadow an earlier in_progress one while keeping
// the later of two conclusive entries.
func collapse(trail []model.ProcessingLog) map[model.ProcessingStep]model.ProcessingLog {
	byStep := make(map[model.ProcessingStep]model.ProcessingLog, len(trail))
	for _, entry := range trail {
		prev, ok := byStep[entry.Step]
		if !ok {
			byStep[entry.Step] = entry
			continue
		}
		if prev.Status.Conclusive() && !entry.Status.Conclusive() {
			continue // never downgrade to in_progress
		}
		if !prev.Status.Conclusive() || !entry.CreatedAt.Before(prev.CreatedAt) {
			byStep[entry.Step] = entry
		}
	}
	return byStep
}

// concluded reports whether the step has a successful (or warning)
// conclusive entry.
func concluded(byStep map[model.ProcessingStep]model.ProcessingLog, step model.ProcessingStep) bool {
	entry, ok := byStep[step]
	return ok && entry.Status.Conclusive() && entry.Status != model.OutcomeFailure
}
