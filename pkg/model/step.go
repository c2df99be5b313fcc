package model

import "time"

// ProcessingStep identifies one named stage of the fixed remediation
// pipeline.
type ProcessingStep string

const (
	StepTicketReceived        ProcessingStep = "TICKET_RECEIVED"
	StepExtractingKeywords    ProcessingStep = "EXTRACTING_KEYWORDS"
	StepIdentifyingRepository ProcessingStep = "IDENTIFYING_REPOSITORY"
	StepAnalyzingDocs         ProcessingStep = "ANALYZING_DOCUMENTATION"
	StepCloningRepository     ProcessingStep = "CLONING_REPOSITORY"
	StepCreatingBranch        ProcessingStep = "CREATING_BRANCH"
	StepAnalyzingCode         ProcessingStep = "ANALYZING_CODE"
	StepApplyingChanges       ProcessingStep = "APPLYING_CHANGES"
	StepCommitting            ProcessingStep = "COMMITTING"
	StepPushing               ProcessingStep = "PUSHING"
	StepCreatingPR            ProcessingStep = "CREATING_PR"
	StepUpdatingTicket        ProcessingStep = "UPDATING_TICKET"
	StepCleanup               ProcessingStep = "CLEANUP"
)

// StepOrder is the fixed sequence the pipeline executes. Index order
// is the authoritative ordering for progress projection.
var StepOrder = []ProcessingStep{
	StepTicketReceived,
	StepExtractingKeywords,
	StepIdentifyingRepository,
	StepAnalyzingDocs,
	StepCloningRepository,
	StepCreatingBranch,
	StepAnalyzingCode,
	StepApplyingChanges,
	StepCommitting,
	StepPushing,
	StepCreatingPR,
	StepUpdatingTicket,
	StepCleanup,
}

// StepIndex returns the step's position in StepOrder, or -1 for an
// unknown step.
func StepIndex(step ProcessingStep) int {
	for i, s := range StepOrder {
		if s == step {
			return i
		}
	}
	return -1
}

// Label returns a short human-readable name for the step.
func (s ProcessingStep) Label() string {
	switch s {
	case StepTicketReceived:
		return "Ticket received"
	case StepExtractingKeywords:
		return "Extracting keywords"
	case StepIdentifyingRepository:
		return "Identifying repository"
	case StepAnalyzingDocs:
		return "Analyzing documentation"
	case StepCloningRepository:
		return "Cloning repository"
	case StepCreatingBranch:
		return "Creating branch"
	case StepAnalyzingCode:
		return "Analyzing code"
	case StepApplyingChanges:
		return "Applying changes"
	case StepCommitting:
		return "Committing"
	case StepPushing:
		return "Pushing"
	case StepCreatingPR:
		return "Opening merge request"
	case StepUpdatingTicket:
		return "Updating helpdesk ticket"
	case StepCleanup:
		return "Cleanup"
	}
	return string(s)
}

// LogOutcome is the recorded result of one pipeline step.
type LogOutcome string

const (
	OutcomeSuccess    LogOutcome = "success"
	OutcomeFailure    LogOutcome = "failure"
	OutcomeWarning    LogOutcome = "warning"
	OutcomeInProgress LogOutcome = "in_progress"
)

// Conclusive reports whether the outcome is final for its step.
// An in_progress entry may later be shadowed by a conclusive one.
func (o LogOutcome) Conclusive() bool {
	return o == OutcomeSuccess || o == OutcomeFailure || o == OutcomeWarning
}

// ProcessingLog is an immutable record of one step's outcome for one
// ticket. The backend appends them as the pipeline advances; the
// dashboard only reads.
type ProcessingLog struct {
	Step         ProcessingStep `json:"step"`
	Status       LogOutcome     `json:"status"`
	Message      string         `json:"message"`
	ErrorDetails string         `json:"errorDetails,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}
