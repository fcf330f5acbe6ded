package connectors

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/cylestio-dashboard/internal/domain"
)

// MockUpstream имитирует бэкенд мониторинга: агенты, события, алерты и метрики.
// Нужен тестам и cmd/mockapi (адрес mock-бэкенда по умолчанию :8080).
type MockUpstream struct {
	router  *chi.Mux
	now     func() time.Time
	latency time.Duration

	agents []domain.Agent
	events []domain.Event
	alerts []domain.Alert
}

type MockOption func(*MockUpstream)

// WithLatency имитирует задержку бэкенда: от d до 2d на запрос.
func WithLatency(d time.Duration) MockOption {
	return func(m *MockUpstream) { m.latency = d }
}

func WithClock(now func() time.Time) MockOption {
	return func(m *MockUpstream) { m.now = now }
}

// MockMetricResources — метрики, которые отдает mock-бэкенд.
var MockMetricResources = []string{
	"dashboard", "agents", "events", "alerts",
	"token_usage", "response_time", "error_rate",
	"request_count", "session_count", "tool_usage", "llm_usage",
}

func NewMockUpstream(opts ...MockOption) *MockUpstream {
	m := &MockUpstream{
		router: chi.NewRouter(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.seed(m.now().UTC().Truncate(time.Minute))
	m.routes()
	return m
}

func (m *MockUpstream) routes() {
	r := m.router
	r.Use(m.simulateLatency)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		mockJSON(w, http.StatusOK, map[string]any{"status": "ok", "timestamp": m.now().UTC()})
	})

	// Списки отдаются в трех разных формах, как это делают разные версии бэкенда
	r.Get("/v1/agents", m.listAgents)  // {"items": [...], "total": N}
	r.Get("/v1/events", m.listEvents)  // {"events": [...], "total": N}
	r.Get("/v1/alerts", m.listAlerts)  // [...]
	r.Get("/v1/agents/{id}", m.getAgent)
	r.Get("/v1/dashboard", m.dashboard)

	r.Get("/api/v1/metrics/{resource}", m.metric)
}

func (m *MockUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.router.ServeHTTP(w, r)
}

func (m *MockUpstream) simulateLatency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.latency > 0 {
			// В v2 используется rand.Int64N (с большой N)
			delay := m.latency + time.Duration(rand.Int64N(int64(m.latency)))
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (m *MockUpstream) seed(base time.Time) {
	statuses := []domain.AgentStatus{domain.AgentActive, domain.AgentActive, domain.AgentInactive, domain.AgentError}
	for i := 0; i < 12; i++ {
		m.agents = append(m.agents, domain.Agent{
			ID:           fmt.Sprintf("agent-%03d", i+1),
			Name:         fmt.Sprintf("Agent %d", i+1),
			Type:         []string{"assistant", "chatbot", "autonomous"}[i%3],
			Status:       statuses[i%len(statuses)],
			Version:      "1.0." + strconv.Itoa(i%4),
			CreatedAt:    base.Add(-time.Duration(30+i) * 24 * time.Hour),
			LastActive:   base.Add(-time.Duration(i*17) * time.Minute),
			EventCount:   int64(100 * (i + 1)),
			SessionCount: int64(5 * (i + 1)),
			ErrorCount:   int64(i % 5),
		})
	}

	types := []string{"llm_request", "llm_response", "tool_call", "tool_result", "security_check"}
	for i := 0; i < 40; i++ {
		agent := m.agents[i%len(m.agents)]
		m.events = append(m.events, domain.Event{
			ID:        fmt.Sprintf("evt-%04d", i+1),
			TraceID:   fmt.Sprintf("trace-%03d", i/4),
			SessionID: fmt.Sprintf("sess-%03d", i/8),
			AgentID:   agent.ID,
			EventType: types[i%len(types)],
			Level:     []string{"info", "info", "warning", "error"}[i%4],
			Channel:   []string{"LLM", "TOOL", "SYSTEM"}[i%3],
			Timestamp: base.Add(-time.Duration(i*45) * time.Minute),
		})
	}

	severities := []domain.AlertSeverity{domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh, domain.SeverityCritical}
	for i := 0; i < 8; i++ {
		evt := m.events[i*3]
		alert := domain.Alert{
			ID:          fmt.Sprintf("alert-%03d", i+1),
			AgentID:     evt.AgentID,
			EventID:     evt.ID,
			AlertType:   []string{"prompt_injection", "sensitive_data", "rate_anomaly"}[i%3],
			Severity:    severities[i%len(severities)],
			Status:      "open",
			Description: "Suspicious activity detected",
			Timestamp:   evt.Timestamp,
		}
		if i%3 == 0 {
			resolved := evt.Timestamp.Add(time.Hour)
			alert.Status, alert.ResolvedAt = "resolved", &resolved
		}
		m.alerts = append(m.alerts, alert)
	}
}

func (m *MockUpstream) listAgents(w http.ResponseWriter, r *http.Request) {
	page, size := mockPage(r)
	items := append([]domain.Agent(nil), m.agents...)
	if r.URL.Query().Get("sort_by") == "name" {
		sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	}
	mockJSON(w, http.StatusOK, map[string]any{
		"items":     paginate(items, page, size),
		"total":     len(items),
		"page":      page,
		"page_size": size,
	})
}

func (m *MockUpstream) listEvents(w http.ResponseWriter, r *http.Request) {
	page, size := mockPage(r)
	mockJSON(w, http.StatusOK, map[string]any{
		"events": paginate(m.events, page, size),
		"total":  len(m.events),
	})
}

func (m *MockUpstream) listAlerts(w http.ResponseWriter, r *http.Request) {
	page, size := mockPage(r)
	mockJSON(w, http.StatusOK, paginate(m.alerts, page, size))
}

func (m *MockUpstream) getAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, a := range m.agents {
		if a.ID == id {
			mockJSON(w, http.StatusOK, a)
			return
		}
	}
	mockJSON(w, http.StatusNotFound, map[string]string{"detail": "Agent not found"})
}

func (m *MockUpstream) dashboard(w http.ResponseWriter, r *http.Request) {
	mockJSON(w, http.StatusOK, m.overview())
}

func (m *MockUpstream) overview() domain.DashboardMetrics {
	now := m.now().UTC()
	out := domain.DashboardMetrics{
		Period:    domain.TimeRange{Range: domain.Range24h, Start: now.Add(-24 * time.Hour), End: now},
		Generated: now,
	}
	for _, a := range m.agents {
		out.Activity.TotalAgents++
		out.Activity.TotalEvents += a.EventCount
		out.Activity.TotalSessions += a.SessionCount
		if a.Status == domain.AgentActive {
			out.Activity.ActiveAgents++
		}
	}
	for _, al := range m.alerts {
		switch {
		case al.Status == "resolved":
			out.Alerts.Resolved++
		case al.Severity == domain.SeverityCritical:
			out.Alerts.Critical++
			out.Alerts.Open++
		default:
			out.Alerts.Open++
		}
	}
	out.Quality = domain.QualityStats{AvgResponseMs: 420.5, P95LatencyMs: 1310, ErrorRate: 0.023}
	return out
}

func (m *MockUpstream) metric(w http.ResponseWriter, r *http.Request) {
	resource := chi.URLParam(r, "resource")
	known := false
	for _, name := range MockMetricResources {
		if name == resource {
			known = true
			break
		}
	}
	if !known {
		mockJSON(w, http.StatusNotFound, map[string]string{"detail": "Metric not found"})
		return
	}
	if resource == "dashboard" {
		mockJSON(w, http.StatusOK, m.overview())
		return
	}

	now := m.now().UTC().Truncate(time.Hour)
	points := make([]domain.MetricPoint, 0, 24)
	for i := 23; i >= 0; i-- {
		points = append(points, domain.MetricPoint{
			Timestamp: now.Add(-time.Duration(i) * time.Hour),
			Value:     float64((i*37)%100) + 0.5,
		})
	}
	mockJSON(w, http.StatusOK, map[string]any{
		"metric":      resource,
		"from":        points[0].Timestamp,
		"to":          points[len(points)-1].Timestamp,
		"interval":    "1h",
		"data":        points,
		"total_count": len(points),
	})
}

func mockPage(r *http.Request) (page, size int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	size, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	return page, size
}

func paginate[T any](items []T, page, size int) []T {
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func mockJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
