// Package store persists the control plane's state: operator
// accounts, agents, tickets with their processing trails, and
// integration configuration.
package store

import (
	"errors"

	"github.com/fixdeck-io/fixdeck/pkg/model"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("store: not found")

// User is an operator account. PasswordHash is a bcrypt hash; the
// plaintext never touches the store.
type User struct {
	Username     string
	PasswordHash string
	Profile      model.UserProfile
}

// Store is the persistence interface the server and simulator run on.
type Store interface {
	// CreateUser inserts a new operator account.
	CreateUser(u User) error
	// UserByUsername retrieves an account with its password hash.
	UserByUsername(username string) (User, error)
	// SaveProfile replaces the profile of an existing account.
	SaveProfile(username string, p model.UserProfile) error

	// SaveAgent creates or updates an agent.
	SaveAgent(a model.Agent) (model.Agent, error)
	// AgentByID retrieves one agent.
	AgentByID(id string) (model.Agent, error)
	// Agents lists all agents, newest first.
	Agents() ([]model.Agent, error)
	// DeleteAgent removes an agent.
	DeleteAgent(id string) error
	// SetAgentStatus flips an agent's activation and stamps
	// last_active_at when activating.
	SetAgentStatus(id string, status model.AgentStatus) (model.Agent, error)

	// SaveTicket creates or updates a ticket.
	SaveTicket(t model.Ticket) (model.Ticket, error)
	// TicketByID retrieves one ticket.
	TicketByID(id string) (model.Ticket, error)
	// Tickets lists tickets, optionally filtered by status, newest
	// first. A nil status means all tickets.
	Tickets(status *model.TicketStatus) ([]model.Ticket, error)
	// AppendLog adds one processing trail entry.
	AppendLog(ticketID string, entry model.ProcessingLog) error
	// Logs returns a ticket's full trail in creation order.
	Logs(ticketID string) ([]model.ProcessingLog, error)

	// Health aggregates ticket counts and agent activity.
	Health() (model.AppHealth, error)

	ZohoConfigs() ([]model.ZohoConfig, error)
	AddZohoConfig(cfg model.ZohoConfig) (model.ZohoConfig, error)
	DeleteZohoConfig(id string) error

	GitLabConfigs() ([]model.GitLabConfig, error)
	AddGitLabConfig(cfg model.GitLabConfig) (model.GitLabConfig, error)
	DeleteGitLabConfig(id string) error

	// BotConfig returns the fleet defaults. ErrNotFound means nothing
	// was stored yet.
	BotConfig() (model.BotConfig, error)
	// SaveBotConfig replaces the fleet defaults.
	SaveBotConfig(cfg model.BotConfig) error
}
