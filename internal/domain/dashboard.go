package domain

import "time"

// DashboardMetrics — сводка для главной страницы дашборда.
type DashboardMetrics struct {
	Period    TimeRange     `json:"period"`
	Activity  ActivityStats `json:"activity"`  // Нагрузка и трафик
	Alerts    AlertStats    `json:"alerts"`    // Срабатывания правил
	Quality   QualityStats  `json:"quality"`   // Latency и ошибки
	Generated time.Time     `json:"generated_at"`
}

type ActivityStats struct {
	TotalEvents   int64 `json:"total_events"`
	TotalSessions int64 `json:"total_sessions"`
	ActiveAgents  int   `json:"active_agents"`
	TotalAgents   int   `json:"total_agents"`
}

type AlertStats struct {
	Open     int `json:"open"`
	Critical int `json:"critical"`
	Resolved int `json:"resolved"`
}

type QualityStats struct {
	AvgResponseMs float64 `json:"avg_response_time_ms"`
	P95LatencyMs  float64 `json:"p95_latency_ms"`
	ErrorRate     float64 `json:"error_rate"`
}

// MetricPoint — точка временного ряда метрики.
type MetricPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}
