package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/xela07ax/cylestio-dashboard/internal/connectors"
	"go.uber.org/zap"
)

const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
	HealthError    = "error"

	backendHealthPath = "/health"
)

type HealthReport struct {
	Status       string       `json:"status"`
	Timestamp    time.Time    `json:"timestamp"`
	ResponseTime int64        `json:"responseTime"` // мс
	API          APIHealth    `json:"api"`
	System       SystemHealth `json:"system"`
}

type APIHealth struct {
	URL          string `json:"url"`
	Status       string `json:"status"`
	StatusCode   int    `json:"statusCode,omitempty"`
	ResponseTime int64  `json:"responseTime"` // мс
	Error        string `json:"error,omitempty"`
}

type SystemHealth struct {
	GoVersion    string       `json:"goVersion"`
	Uptime       float64      `json:"uptime"` // секунды
	Memory       MemoryHealth `json:"memory"`
	Environment  string       `json:"environment"`
	NumGoroutine int          `json:"numGoroutine"`
}

type MemoryHealth struct {
	Alloc     uint64 `json:"alloc"`
	HeapInuse uint64 `json:"heapInuse"`
	Sys       uint64 `json:"sys"`
}

// HealthHandler проверяет бэкенд и отдает состояние дашборда.
type HealthHandler struct {
	api     Fetcher
	apiURL  string
	env     string
	started time.Time
	logger  *zap.Logger
}

func NewHealthHandler(api Fetcher, apiURL, env string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		api:     api,
		apiURL:  apiURL,
		env:     env,
		started: time.Now(),
		logger:  logger.Named("health"),
	}
}

// Health GET /api/health. Всегда 200, кроме внутреннего сбоя самой проверки.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("health check panicked", zap.Any("panic", rec))
			writeError(w, http.StatusInternalServerError, "Health check failed")
		}
	}()

	start := time.Now()
	api := h.probe(r)

	report := HealthReport{
		Status:       api.Status,
		Timestamp:    start.UTC(),
		ResponseTime: time.Since(start).Milliseconds(),
		API:          api,
		System:       h.system(),
	}

	body, err := json.Marshal(report)
	if err != nil {
		h.logger.Error("health report encode failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Health check failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (h *HealthHandler) probe(r *http.Request) APIHealth {
	out := APIHealth{URL: h.apiURL}

	start := time.Now()
	resp, err := h.api.Fetch(r.Context(), http.MethodGet, backendHealthPath, nil, nil)
	out.ResponseTime = time.Since(start).Milliseconds()

	var (
		statusErr *connectors.StatusError
		parseErr  *connectors.ParseError
	)
	switch {
	case err == nil:
		out.Status, out.StatusCode = HealthHealthy, resp.Status
	case errors.As(err, &statusErr):
		out.Status, out.StatusCode = HealthDegraded, statusErr.Status
		out.Error = connectors.Normalize(err).Message
	case errors.As(err, &parseErr):
		// ответ пришел, но это не JSON
		out.Status = HealthDegraded
		out.Error = connectors.Normalize(err).Message
	default:
		out.Status = HealthError
		out.Error = connectors.Normalize(err).Message
	}

	if out.Status != HealthHealthy {
		h.logger.Warn("backend health check failed",
			zap.String("url", h.apiURL),
			zap.String("status", out.Status),
			zap.String("error", out.Error))
	}
	return out
}

func (h *HealthHandler) system() SystemHealth {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return SystemHealth{
		GoVersion:    runtime.Version(),
		Uptime:       time.Since(h.started).Seconds(),
		Memory:       MemoryHealth{Alloc: ms.Alloc, HeapInuse: ms.HeapInuse, Sys: ms.Sys},
		Environment:  h.env,
		NumGoroutine: runtime.NumGoroutine(),
	}
}
