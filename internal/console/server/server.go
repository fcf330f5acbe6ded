package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xela07ax/cylestio-dashboard/internal/connectors"
	"github.com/xela07ax/cylestio-dashboard/internal/console/handler"
	"github.com/xela07ax/cylestio-dashboard/internal/console/service"
	"github.com/xela07ax/cylestio-dashboard/internal/domain"
	"github.com/xela07ax/cylestio-dashboard/internal/infra"
	"github.com/xela07ax/cylestio-dashboard/internal/view"
	"go.uber.org/zap"
)

type ConsoleServer struct {
	router   *chi.Mux
	logger   *zap.Logger
	cfg      *infra.Config
	gatherer prometheus.Gatherer
	metrics  *Metrics

	// Обработчики
	proxyHandler  *handler.ProxyHandler     // /api/v1/metrics/{resource}
	healthHandler *handler.HealthHandler    // /api/health
	dashHandler   *handler.DashboardHandler // /api/dashboard
}

// NewConsoleServer инициализирует сервер дашборда со всеми зависимостями
func NewConsoleServer(
	cfg *infra.Config,
	logger *zap.Logger,
	gatherer prometheus.Gatherer,
	metrics *Metrics,
	proxyH *handler.ProxyHandler,
	healthH *handler.HealthHandler,
	dashH *handler.DashboardHandler,
) *ConsoleServer {
	s := &ConsoleServer{
		router:        chi.NewRouter(),
		logger:        logger.Named("console-api"),
		cfg:           cfg,
		gatherer:      gatherer,
		metrics:       metrics,
		proxyHandler:  proxyH,
		healthHandler: healthH,
		dashHandler:   dashH,
	}

	s.routes()
	return s
}

// Build собирает сервер из конфигурации: клиенты бэкенда, сервис, виджет и обработчики.
// Данные страниц ходят в APIConfig.BaseURL(), прокси метрик — всегда в mock.
func Build(cfg *infra.Config, logger *zap.Logger, reg *prometheus.Registry) *ConsoleServer {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics := NewMetrics(reg)

	// 1. Клиенты бэкенда
	apiClient := connectors.NewClient(cfg.API.BaseURL(), cfg.API.Timeout, logger)
	mockClient := connectors.NewClient(cfg.API.MockURL, cfg.API.Timeout, logger)

	// 2. Сервис и виджет обзора
	dashService := service.NewDashboardService(apiClient, logger)
	overview := view.NewPanel(func(ctx context.Context, _ domain.PaginationParams, tr domain.TimeRange) (json.RawMessage, error) {
		return dashService.GetOverview(ctx, tr)
	}, nil).OnStale(metrics.ObserveStaleDiscard)

	// 3. Обработчики
	proxyH := handler.NewProxyHandler(mockClient, handler.DefaultMetricsResources, metrics, logger)
	healthH := handler.NewHealthHandler(apiClient, apiClient.BaseURL(), cfg.App.Env, logger)
	dashH := handler.NewDashboardHandler(dashService, overview, handler.PageDefaults{
		Pagination: view.PaginationOptions{PageSize: view.DefaultPageSize},
		Range:      domain.Range24h,
	}, metrics, logger)

	return NewConsoleServer(cfg, logger, reg, metrics, proxyH, healthH, dashH)
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TracingMiddleware)
	r.Use(RequestLogger(s.logger))
	r.Use(s.metrics.Middleware) // снаружи Recoverer, иначе паника не попадет в счетчики
	r.Use(middleware.Recoverer)

	// --- 2. Служебные роуты ---
	r.Get("/api/health", s.healthHandler.Health)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	// --- 3. Прокси метрик в бэкенд ---
	r.Get("/api/v1/metrics/{resource}", s.proxyHandler.Metrics)

	// --- 4. Данные страниц дашборда ---
	r.Route("/api/dashboard", func(r chi.Router) {
		r.Get("/agents", s.dashHandler.Agents)
		r.Get("/agents/{id}", s.dashHandler.Agent)
		r.Get("/events", s.dashHandler.Events)
		r.Get("/alerts", s.dashHandler.Alerts)

		// Виджет обзора с кнопкой обновления
		r.Route("/overview", func(r chi.Router) {
			r.Get("/", s.dashHandler.Overview)
			r.Post("/refresh", s.dashHandler.RefreshOverview)
			r.Post("/retry", s.dashHandler.RetryOverview)
			r.Post("/dismiss", s.dashHandler.DismissOverview)
		})
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
