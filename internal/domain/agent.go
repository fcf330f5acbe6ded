package domain

import "time"

type AgentStatus string

const (
	AgentActive   AgentStatus = "active"
	AgentInactive AgentStatus = "inactive"
	AgentError    AgentStatus = "error"
)

// Agent — DTO агента в том виде, в котором его отдает бэкенд.
// Дашборд не валидирует схему, типизированная форма нужна mock-бэкенду и тестам.
type Agent struct {
	ID        string      `json:"agent_id"`
	Name      string      `json:"name"`
	Type      string      `json:"type"`
	Status    AgentStatus `json:"status"`
	Version   string      `json:"version,omitempty"`
	CreatedAt time.Time   `json:"created_at"`

	// Метаданные для Observability
	LastActive   time.Time `json:"last_active"`
	EventCount   int64     `json:"event_count"`
	SessionCount int64     `json:"session_count"`
	ErrorCount   int64     `json:"error_count"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
