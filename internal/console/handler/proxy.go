package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/cylestio-dashboard/internal/connectors"
	"go.uber.org/zap"
)

// MetricsPathPrefix — под этим путем метрики живут и у нас, и у бэкенда.
const MetricsPathPrefix = "/api/v1/metrics/"

// Fetcher — низкоуровневый вызов бэкенда со статусом ответа.
type Fetcher interface {
	Fetch(ctx context.Context, method, path string, query url.Values, body any) (*connectors.Response, error)
}

// MetricsResource — одна строка таблицы прокси: подпуть бэкенда и подпись для ошибки.
type MetricsResource struct {
	Path  string
	Label string
}

// DefaultMetricsResources — метрики, которые дашборд проксирует в mock-бэкенд.
var DefaultMetricsResources = map[string]MetricsResource{
	"dashboard":     {Path: "dashboard", Label: "dashboard"},
	"agents":        {Path: "agents", Label: "agent"},
	"events":        {Path: "events", Label: "event"},
	"alerts":        {Path: "alerts", Label: "alert"},
	"token_usage":   {Path: "token_usage", Label: "token usage"},
	"response_time": {Path: "response_time", Label: "response time"},
	"error_rate":    {Path: "error_rate", Label: "error rate"},
	"request_count": {Path: "request_count", Label: "request count"},
	"session_count": {Path: "session_count", Label: "session count"},
	"tool_usage":    {Path: "tool_usage", Label: "tool usage"},
	"llm_usage":     {Path: "llm_usage", Label: "LLM usage"},
}

// ProxyHandler — чистый pass-through метрик: без кэша, ретраев и правки payload.
type ProxyHandler struct {
	upstream  Fetcher
	resources map[string]MetricsResource
	observer  UpstreamObserver
	logger    *zap.Logger
}

func NewProxyHandler(upstream Fetcher, resources map[string]MetricsResource, observer UpstreamObserver, logger *zap.Logger) *ProxyHandler {
	if resources == nil {
		resources = DefaultMetricsResources
	}
	return &ProxyHandler{
		upstream:  upstream,
		resources: resources,
		observer:  observerOrNop(observer),
		logger:    logger.Named("metrics-proxy"),
	}
}

// Metrics GET /api/v1/metrics/{resource} -> <mock>/api/v1/metrics/<resource>
func (h *ProxyHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "resource")
	res, ok := h.resources[name]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown metrics resource")
		return
	}
	failMsg := fmt.Sprintf("Failed to fetch %s data", res.Label)

	resp, err := h.upstream.Fetch(r.Context(), http.MethodGet, MetricsPathPrefix+res.Path, r.URL.Query(), nil)
	if err != nil {
		kind := connectors.KindOf(err)
		h.observer.ObserveUpstreamError(kind)
		h.logger.Warn("metrics proxy failed",
			zap.String("resource", name),
			zap.String("kind", string(kind)),
			zap.Error(err))

		// Статус бэкенда отдаем как есть, все остальное — 500
		var statusErr *connectors.StatusError
		if errors.As(err, &statusErr) {
			writeError(w, errorStatus(statusErr.Status), failMsg)
			return
		}
		writeError(w, http.StatusInternalServerError, failMsg)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	if bodyAllowed(resp.Status) {
		w.Write(resp.Body)
	}
}

// errorStatus: тело ошибки нельзя отдать с 1xx/3xx, такие статусы превращаем в 502
func errorStatus(status int) int {
	if status < http.StatusBadRequest {
		return http.StatusBadGateway
	}
	return status
}

func bodyAllowed(status int) bool {
	return status != http.StatusNoContent && status != http.StatusNotModified && status >= http.StatusOK
}
