package model

import "time"

// AgentStatus is the two-valued activation state of an agent.
type AgentStatus string

const (
	AgentActive   AgentStatus = "ACTIVE"
	AgentInactive AgentStatus = "INACTIVE"
)

// Agent is the configuration plus runtime status of one autonomous
// ticket-fixing worker. A newly created agent starts INACTIVE;
// activation is an explicit separate action.
type Agent struct {
	ID                   string      `json:"id"`
	AgentName            string      `json:"agentName"`
	AgentDescription     string      `json:"agentDescription"`
	PrePrompts           string      `json:"prePrompts,omitempty"`
	BotEmail             string      `json:"botEmail,omitempty"`
	LLMProvider          string      `json:"llmProvider"`
	LLMAPIKey            string      `json:"llmApiKey"`
	LLMModel             string      `json:"llmModel"`
	LLMMaxTokens         int         `json:"llmMaxTokens"`
	LLMTemperature       float64     `json:"llmTemperature"`
	Status               AgentStatus `json:"status"`
	AutoProcessTickets   bool        `json:"autoProcessTickets"`
	MaxConcurrentTickets int         `json:"maxConcurrentTickets"`
	GitWorkspaceDir      string      `json:"gitWorkspaceDir"`
	CreatedAt            time.Time   `json:"createdAt"`
	UpdatedAt            time.Time   `json:"updatedAt"`
	LastActiveAt         *time.Time  `json:"lastActiveAt,omitempty"`
}

// BotConfig holds fleet-wide defaults applied to agents that don't
// override them.
type BotConfig struct {
	BotName              string  `json:"botName"`
	BotEmail             string  `json:"botEmail"`
	LLMProvider          string  `json:"llmProvider"`
	LLMAPIKey            string  `json:"llmApiKey"`
	LLMModel             string  `json:"llmModel"`
	LLMMaxTokens         int     `json:"llmMaxTokens"`
	LLMTemperature       float64 `json:"llmTemperature"`
	AutoProcessTickets   bool    `json:"autoProcessTickets"`
	MaxConcurrentTickets int     `json:"maxConcurrentTickets"`
	GitWorkspaceDir      string  `json:"gitWorkspaceDir"`
}

// DefaultBotConfig is what the dashboard assumes when the backend has
// no stored bot configuration yet.
func DefaultBotConfig() BotConfig {
	return BotConfig{
		LLMProvider: "anthropic",
		LLMModel:    "claude-3-5-sonnet-20241022",
	}
}
