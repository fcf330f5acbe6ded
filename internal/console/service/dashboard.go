package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/xela07ax/cylestio-dashboard/internal/connectors"
	"github.com/xela07ax/cylestio-dashboard/internal/domain"
	"go.uber.org/zap"
)

// Пути бэкенда для данных страниц
const (
	PathAgents    = "/v1/agents"
	PathEvents    = "/v1/events"
	PathAlerts    = "/v1/alerts"
	PathDashboard = "/v1/dashboard"
)

var ErrEmptyAgentID = errors.New("service: agent id is required")

// DashboardService отдает данные страниц дашборда: списки агентов, событий и алертов,
// карточку агента и сводные метрики. DTO проходят насквозь без валидации схемы.
type DashboardService struct {
	api    connectors.Requester
	logger *zap.Logger
}

func NewDashboardService(api connectors.Requester, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		api:    api,
		logger: logger.Named("dashboard-service"),
	}
}

func (s *DashboardService) ListAgents(ctx context.Context, p domain.PaginationParams, tr domain.TimeRange) (*domain.ListResult, error) {
	return s.list(ctx, "agents", PathAgents, p, tr)
}

func (s *DashboardService) ListEvents(ctx context.Context, p domain.PaginationParams, tr domain.TimeRange) (*domain.ListResult, error) {
	return s.list(ctx, "events", PathEvents, p, tr)
}

func (s *DashboardService) ListAlerts(ctx context.Context, p domain.PaginationParams, tr domain.TimeRange) (*domain.ListResult, error) {
	return s.list(ctx, "alerts", PathAlerts, p, tr)
}

// GetAgent отдает карточку агента как есть.
func (s *DashboardService) GetAgent(ctx context.Context, id string) (json.RawMessage, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEmptyAgentID
	}
	raw, err := s.api.Do(ctx, http.MethodGet, PathAgents+"/"+url.PathEscape(id), nil, nil)
	if err != nil {
		s.logger.Warn("agent fetch failed",
			zap.String("agent_id", id),
			zap.String("kind", string(connectors.KindOf(err))),
			zap.Error(err))
		return nil, fmt.Errorf("get agent %s: %w", id, err)
	}
	return raw, nil
}

// GetOverview отдает сводные метрики за окно времени.
func (s *DashboardService) GetOverview(ctx context.Context, tr domain.TimeRange) (json.RawMessage, error) {
	raw, err := s.api.Do(ctx, http.MethodGet, PathDashboard, tr.Values(), nil)
	if err != nil {
		s.logger.Warn("overview fetch failed",
			zap.String("kind", string(connectors.KindOf(err))),
			zap.Error(err))
		return nil, fmt.Errorf("get overview: %w", err)
	}
	return raw, nil
}

func (s *DashboardService) list(ctx context.Context, resource, path string, p domain.PaginationParams, tr domain.TimeRange) (*domain.ListResult, error) {
	// 1. Запрос к бэкенду
	query := domain.MergeValues(p.Values(), tr.Values())
	raw, err := s.api.Do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		s.logger.Warn("list fetch failed",
			zap.String("resource", resource),
			zap.String("kind", string(connectors.KindOf(err))),
			zap.Error(err))
		return nil, fmt.Errorf("list %s: %w", resource, err)
	}

	// 2. Распознаем форму списка
	page, err := connectors.DecodeList(raw)
	if err != nil {
		s.logger.Warn("unexpected list shape", zap.String("resource", resource), zap.Error(err))
		return nil, fmt.Errorf("list %s: %w", resource, err)
	}

	s.logger.Debug("list fetched",
		zap.String("resource", resource),
		zap.String("shape", string(page.Shape)),
		zap.Int("items", len(page.Items)),
		zap.Int("total", page.Total))

	return &domain.ListResult{
		Items:      page.Items,
		Total:      page.Total,
		Shape:      string(page.Shape),
		Pagination: p,
		TimeRange:  tr,
	}, nil
}
