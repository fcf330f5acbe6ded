package domain

import "time"

type Event struct {
	ID        string                 `json:"id"`         // UUID события
	TraceID   string                 `json:"trace_id"`   // Сквозной ID запроса
	SessionID string                 `json:"session_id"` // Сессия агента
	AgentID   string                 `json:"agent_id"`   // Кто делал
	EventType string                 `json:"event_type"` // llm_request, tool_call, ...
	Level     string                 `json:"level"`      // info, warning, error
	Channel   string                 `json:"channel"`    // LLM, TOOL, SYSTEM
	Payload   map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}
