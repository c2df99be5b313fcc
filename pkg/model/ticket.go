package model

import "time"

// TicketStatus represents the lifecycle state of a ticket in the
// remediation pipeline. Transitions are monotonic: once a ticket
// reaches a terminal status it never returns to an active one.
type TicketStatus string

const (
	TicketPending    TicketStatus = "PENDING"
	TicketProcessing TicketStatus = "PROCESSING"
	TicketAnalyzing  TicketStatus = "ANALYZING"
	TicketFixing     TicketStatus = "FIXING"
	TicketCompleted  TicketStatus = "COMPLETED"
	TicketFailed     TicketStatus = "FAILED"
)

// Active reports whether the status is one the pipeline is still
// working on. The dashboard only polls tickets in an active status.
func (s TicketStatus) Active() bool {
	switch s {
	case TicketProcessing, TicketAnalyzing, TicketFixing:
		return true
	}
	return false
}

// Terminal reports whether no further pipeline progress is expected.
func (s TicketStatus) Terminal() bool {
	return s == TicketCompleted || s == TicketFailed
}

// Valid reports whether s is a known status value.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketPending, TicketProcessing, TicketAnalyzing, TicketFixing,
		TicketCompleted, TicketFailed:
		return true
	}
	return false
}

// Priority is the ordered severity of a ticket.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// Rank returns the priority's position for sorting, higher is more
// urgent. Unknown values rank below LOW.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Ticket is one unit of inbound work tracked through the external
// remediation pipeline. Tickets are created and mutated by the
// backend only; the dashboard observes them by re-fetching.
type Ticket struct {
	ID               string       `json:"id"`
	ZohoTicketID     string       `json:"zohoTicketId"`
	TicketNumber     string       `json:"ticketNumber"`
	Subject          string       `json:"subject"`
	Description      string       `json:"description"`
	Status           TicketStatus `json:"status"`
	Priority         Priority     `json:"priority"`
	RepositoryName   string       `json:"repositoryName,omitempty"`
	BranchName       string       `json:"branchName,omitempty"`
	PullRequestURL   string       `json:"pullRequestUrl,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
	CompletedAt      *time.Time   `json:"completedAt,omitempty"`
	ProcessingTimeMs int64        `json:"processingTimeMs,omitempty"`
}
