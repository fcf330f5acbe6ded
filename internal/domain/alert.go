package domain

import "time"

type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// Alert — срабатывание правила безопасности по событию агента.
type Alert struct {
	ID          string        `json:"alert_id"`
	AgentID     string        `json:"agent_id"`
	EventID     string        `json:"event_id,omitempty"`
	AlertType   string        `json:"alert_type"`
	Severity    AlertSeverity `json:"severity"`
	Status      string        `json:"status"` // open, acknowledged, resolved
	Description string        `json:"description"`
	Timestamp   time.Time     `json:"timestamp"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
}
