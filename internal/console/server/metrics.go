package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/xela07ax/cylestio-dashboard/internal/connectors"
)

type Metrics struct {
	// Traffic: входящие запросы по роуту и статусу
	RequestsTotal *prometheus.CounterVec

	// Latency: сколько заняла обработка, включая поход в бэкенд
	RequestDuration *prometheus.HistogramVec

	// Errors: отказы бэкенда по нормализованной категории
	UpstreamErrors *prometheus.CounterVec

	// Отброшенные устаревшие результаты обновления виджета
	StaleDiscarded prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served by the dashboard.",
		}, []string{"route", "status"}),

		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of dashboard request latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"route", "status"}),

		UpstreamErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "upstream_errors_total",
			Help: "Total number of backend failures by kind.",
		}, []string{"kind"}), // типы: network, http, parse, local, unknown

		StaleDiscarded: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "panel_stale_discarded_total",
			Help: "Refresh results dropped because a newer refresh had started.",
		}),
	}
}

func (m *Metrics) ObserveUpstreamError(kind connectors.ErrorKind) {
	m.UpstreamErrors.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) ObserveStaleDiscard() {
	m.StaleDiscarded.Inc()
}
