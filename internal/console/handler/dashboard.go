package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/cylestio-dashboard/internal/connectors"
	"github.com/xela07ax/cylestio-dashboard/internal/domain"
	"github.com/xela07ax/cylestio-dashboard/internal/view"
	"go.uber.org/zap"
)

// PageService Описываем, что нам нужно от сервиса
type PageService interface {
	ListAgents(ctx context.Context, p domain.PaginationParams, tr domain.TimeRange) (*domain.ListResult, error)
	ListEvents(ctx context.Context, p domain.PaginationParams, tr domain.TimeRange) (*domain.ListResult, error)
	ListAlerts(ctx context.Context, p domain.PaginationParams, tr domain.TimeRange) (*domain.ListResult, error)
	GetAgent(ctx context.Context, id string) (json.RawMessage, error)
}

type listFunc func(ctx context.Context, p domain.PaginationParams, tr domain.TimeRange) (*domain.ListResult, error)

// PageResponse — данные страницы либо нормализованная ошибка для панели ошибки.
type PageResponse struct {
	Data  any                         `json:"data"`
	Error *connectors.NormalizedError `json:"error"`
}

// PageDefaults — значения по умолчанию для страниц дашборда.
type PageDefaults struct {
	Pagination view.PaginationOptions
	Range      domain.RangePreset
}

type DashboardHandler struct {
	service  PageService
	overview *view.Panel[json.RawMessage]
	defaults PageDefaults
	clock    view.Clock
	observer UpstreamObserver
	logger   *zap.Logger
}

func NewDashboardHandler(
	s PageService,
	overview *view.Panel[json.RawMessage],
	defaults PageDefaults,
	observer UpstreamObserver,
	logger *zap.Logger,
) *DashboardHandler {
	if defaults.Range == "" {
		defaults.Range = domain.Range24h
	}
	return &DashboardHandler{
		service:  s,
		overview: overview,
		defaults: defaults,
		observer: observerOrNop(observer),
		logger:   logger.Named("dashboard"),
	}
}

// WithClock подменяет часы для окна времени по умолчанию и пресетов.
func (h *DashboardHandler) WithClock(clock view.Clock) *DashboardHandler {
	h.clock = clock
	return h
}

func (h *DashboardHandler) Agents(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListAgents)
}

func (h *DashboardHandler) Events(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListEvents)
}

func (h *DashboardHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListAlerts)
}

func (h *DashboardHandler) Agent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	raw, err := h.service.GetAgent(r.Context(), id)
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PageResponse{Data: raw})
}

// Overview отдает текущий снимок виджета без запроса к бэкенду.
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.overview.Snapshot())
}

func (h *DashboardHandler) RefreshOverview(w http.ResponseWriter, r *http.Request) {
	params, tr, ok := h.viewState(w, r)
	if !ok {
		return
	}
	snap, committed := h.overview.Refresh(r.Context(), params, tr)
	h.observeSnapshot(snap, committed)
	writeJSON(w, http.StatusOK, snap)
}

// RetryOverview повторяет последний refresh. Если его не было — обычный refresh по умолчанию.
func (h *DashboardHandler) RetryOverview(w http.ResponseWriter, r *http.Request) {
	snap, committed, err := h.overview.Retry(r.Context())
	if errors.Is(err, view.ErrNothingToRetry) {
		params := view.NewPagination(h.defaults.Pagination).Params()
		tr := view.NewTimeRange(h.defaults.Range, h.clock).Value()
		snap, committed = h.overview.Refresh(r.Context(), params, tr)
	}
	h.observeSnapshot(snap, committed)
	writeJSON(w, http.StatusOK, snap)
}

func (h *DashboardHandler) DismissOverview(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.overview.DismissError())
}

func (h *DashboardHandler) list(w http.ResponseWriter, r *http.Request, fetch listFunc) {
	params, tr, ok := h.viewState(w, r)
	if !ok {
		return
	}
	res, err := fetch(r.Context(), params, tr)
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PageResponse{Data: res})
}

// viewState собирает страницу и окно времени из query string.
func (h *DashboardHandler) viewState(w http.ResponseWriter, r *http.Request) (domain.PaginationParams, domain.TimeRange, bool) {
	q := r.URL.Query()
	tr, err := view.TimeRangeFromQuery(q, h.defaults.Range, h.clock)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return domain.PaginationParams{}, domain.TimeRange{}, false
	}
	return view.PaginationFromQuery(q, h.defaults.Pagination).Params(), tr.Value(), true
}

// respondFailure: ошибки загрузки не роняют страницу, а уходят в поле error.
func (h *DashboardHandler) respondFailure(w http.ResponseWriter, err error) {
	ne := connectors.Normalize(err)
	h.observer.ObserveUpstreamError(ne.Kind)
	h.logger.Warn("page data fetch failed", zap.String("kind", string(ne.Kind)), zap.Error(err))
	writeJSON(w, http.StatusOK, PageResponse{Error: &ne})
}

func (h *DashboardHandler) observeSnapshot(snap view.Snapshot[json.RawMessage], committed bool) {
	if committed && snap.Error != nil {
		h.observer.ObserveUpstreamError(snap.Error.Kind)
	}
}
