// Package indexer — разовый прогон, который выкачивает агентов, события и алерты
// из бэкенда и складывает их в PostgreSQL. В рантайм дашборда не входит.
package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/xela07ax/cylestio-dashboard/internal/connectors"
	"github.com/xela07ax/cylestio-dashboard/internal/domain"
	"github.com/xela07ax/cylestio-dashboard/internal/infra"
	"github.com/xela07ax/cylestio-dashboard/internal/view"
	"go.uber.org/zap"
)

var (
	ErrLocked          = errors.New("indexer: another run holds the lock")
	ErrUnknownResource = errors.New("indexer: unknown resource")
)

// ResourcePaths — что и откуда индексируем.
var ResourcePaths = map[string]string{
	"agents": "/v1/agents",
	"events": "/v1/events",
	"alerts": "/v1/alerts",
}

// Запасные поля для ID документа, по приоритету
var idFields = []string{"agent_id", "event_id", "alert_id"}

// Store — куда пишем документы.
type Store interface {
	Upsert(ctx context.Context, docs []domain.IndexDocument) (int64, error)
}

// Locker — исключение параллельных прогонов.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// ResourceReport — итог по одному ресурсу.
type ResourceReport struct {
	Resource string `json:"resource"`
	Pages    int    `json:"pages"`
	Fetched  int    `json:"fetched"`
	Indexed  int64  `json:"indexed"`
	Skipped  int    `json:"skipped"`
}

type Report struct {
	Resources []ResourceReport `json:"resources"`
	Duration  time.Duration    `json:"duration"`
}

type Indexer struct {
	api    connectors.Requester
	store  Store
	locker Locker
	cfg    infra.IndexerConfig
	clock  view.Clock
	logger *zap.Logger
}

func New(api connectors.Requester, store Store, locker Locker, cfg infra.IndexerConfig, logger *zap.Logger) *Indexer {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1000
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Minute
	}
	if len(cfg.Resources) == 0 {
		cfg.Resources = []string{"agents", "events", "alerts"}
	}
	return &Indexer{
		api:    api,
		store:  store,
		locker: locker,
		cfg:    cfg,
		clock:  time.Now,
		logger: logger.Named("indexer"),
	}
}

// WithClock подменяет часы (окно времени и indexed_at).
func (ix *Indexer) WithClock(clock view.Clock) *Indexer {
	ix.clock = clock
	return ix
}

// Run выполняет один прогон под блокировкой.
func (ix *Indexer) Run(ctx context.Context) (*Report, error) {
	start := ix.clock()

	// 1. Блокировка
	ok, err := ix.locker.Acquire(ctx, infra.RedisKeyLockIndexer, ix.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLocked
	}
	defer func() {
		// контекст прогона мог уже истечь, снимаем блокировку отдельным
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ix.locker.Release(releaseCtx, infra.RedisKeyLockIndexer); err != nil {
			ix.logger.Warn("failed to release indexer lock", zap.Error(err))
		}
	}()

	// 2. Окно времени замораживаем один раз на весь прогон
	tr := view.NewTimeRange(domain.RangePreset(ix.cfg.Range), ix.clock).Value()

	report := &Report{}
	for _, resource := range ix.cfg.Resources {
		rr, err := ix.indexResource(ctx, resource, tr)
		report.Resources = append(report.Resources, rr)
		if err != nil {
			return report, fmt.Errorf("index %s: %w", resource, err)
		}
	}
	report.Duration = ix.clock().Sub(start)

	ix.logger.Info("indexing finished",
		zap.Int("resources", len(report.Resources)),
		zap.Duration("duration", report.Duration))
	return report, nil
}

func (ix *Indexer) indexResource(ctx context.Context, resource string, tr domain.TimeRange) (ResourceReport, error) {
	rr := ResourceReport{Resource: resource}
	path, ok := ResourcePaths[strings.TrimSpace(resource)]
	if !ok {
		return rr, fmt.Errorf("%w: %q", ErrUnknownResource, resource)
	}

	pg := view.NewPagination(view.PaginationOptions{PageSize: ix.cfg.PageSize, SortOrder: domain.SortAsc})
	for rr.Pages < ix.cfg.MaxPages {
		params := pg.Params()
		raw, err := ix.api.Do(ctx, http.MethodGet, path, domain.MergeValues(params.Values(), tr.Values()), nil)
		if err != nil {
			return rr, err
		}
		page, err := connectors.DecodeList(raw)
		if err != nil {
			return rr, err
		}
		rr.Pages++
		rr.Fetched += len(page.Items)

		docs, skipped := ix.documents(resource, page.Items)
		rr.Skipped += skipped
		if len(docs) > 0 {
			n, err := ix.store.Upsert(ctx, docs)
			if err != nil {
				return rr, err
			}
			rr.Indexed += n
		}

		ix.logger.Debug("page indexed",
			zap.String("resource", resource),
			zap.Int("page", params.Page),
			zap.Int("items", len(page.Items)),
			zap.String("shape", string(page.Shape)))

		// Короткая страница или достигнут total — дальше пусто
		if len(page.Items) < params.PageSize {
			break
		}
		if page.TotalKnown && rr.Fetched >= page.Total {
			break
		}
		pg.NextPage()
	}

	ix.logger.Info("resource indexed",
		zap.String("resource", resource),
		zap.Int("pages", rr.Pages),
		zap.Int("fetched", rr.Fetched),
		zap.Int64("indexed", rr.Indexed),
		zap.Int("skipped", rr.Skipped))
	return rr, nil
}

func (ix *Indexer) documents(resource string, items []json.RawMessage) ([]domain.IndexDocument, int) {
	now := ix.clock().UTC()
	docs := make([]domain.IndexDocument, 0, len(items))
	skipped := 0
	for _, item := range items {
		id, ok := DocumentID(resource, item)
		if !ok {
			skipped++
			ix.logger.Warn("item without id skipped", zap.String("resource", resource))
			continue
		}
		docs = append(docs, domain.IndexDocument{Resource: resource, ID: id, Payload: item, IndexedAt: now})
	}
	return docs, skipped
}

// DocumentID берет ID из первого непустого поля: id, затем <ресурс>_id
// (alert_id для alerts), затем остальные *_id.
func DocumentID(resource string, item json.RawMessage) (string, bool) {
	var fields map[string]any
	if err := json.Unmarshal(item, &fields); err != nil {
		return "", false
	}
	keys := append([]string{"id", strings.TrimSuffix(resource, "s") + "_id"}, idFields...)
	for _, key := range keys {
		switch v := fields[key].(type) {
		case string:
			if v = strings.TrimSpace(v); v != "" {
				return v, true
			}
		case float64:
			return fmt.Sprintf("%.0f", v), true
		}
	}
	return "", false
}
