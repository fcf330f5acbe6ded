package view

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/xela07ax/cylestio-dashboard/internal/connectors"
	"github.com/xela07ax/cylestio-dashboard/internal/domain"
)

var ErrNothingToRetry = errors.New("view: panel has not been refreshed yet")

// Loader загружает данные виджета для заданной страницы и окна.
type Loader[T any] func(ctx context.Context, p domain.PaginationParams, tr domain.TimeRange) (T, error)

// Snapshot — то, что видит виджет: последние данные, ошибка и флаг загрузки.
type Snapshot[T any] struct {
	Data       T                           `json:"data"`
	Error      *connectors.NormalizedError `json:"error"`
	Loading    bool                        `json:"loading"`
	UpdatedAt  time.Time                   `json:"updated_at"`
	Generation uint64                      `json:"generation"`
}

// Panel — состояние виджета с кнопкой обновления.
// Коммитится только результат последнего запущенного Refresh: ответ, пришедший
// после старта более нового обновления, отбрасывается.
type Panel[T any] struct {
	mu   sync.Mutex
	load Loader[T]
	now  Clock

	gen  uint64
	snap Snapshot[T]

	lastParams domain.PaginationParams
	lastRange  domain.TimeRange
	hasLast    bool

	onStale func()
}

func NewPanel[T any](load Loader[T], clock Clock) *Panel[T] {
	if clock == nil {
		clock = time.Now
	}
	return &Panel[T]{load: load, now: clock}
}

// OnStale регистрирует хук на отброшенный устаревший результат (для метрик).
func (p *Panel[T]) OnStale(fn func()) *Panel[T] {
	p.mu.Lock()
	p.onStale = fn
	p.mu.Unlock()
	return p
}

// Refresh запускает загрузку. committed=false — результат устарел и отброшен.
// Ошибка загрузчика нормализуется и сохраняется в снимке, наружу не выходит.
func (p *Panel[T]) Refresh(ctx context.Context, params domain.PaginationParams, tr domain.TimeRange) (snap Snapshot[T], committed bool) {
	// 1. Новое поколение
	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.snap.Loading = true
	p.lastParams, p.lastRange, p.hasLast = params, tr, true
	p.mu.Unlock()

	// 2. Загрузка без блокировки
	data, err := p.load(ctx, params, tr)

	// 3. Коммит, только если никто не стартовал позже
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		if p.onStale != nil {
			p.onStale()
		}
		return p.snap, false
	}

	if err != nil {
		ne := connectors.Normalize(err)
		p.snap.Error = &ne
	} else {
		p.snap.Data = data
		p.snap.Error = nil
	}
	p.snap.Loading = false
	p.snap.UpdatedAt = p.now()
	p.snap.Generation = gen
	return p.snap, true
}

// Retry повторяет последний Refresh с теми же параметрами.
func (p *Panel[T]) Retry(ctx context.Context) (Snapshot[T], bool, error) {
	p.mu.Lock()
	params, tr, ok := p.lastParams, p.lastRange, p.hasLast
	p.mu.Unlock()
	if !ok {
		return p.Snapshot(), false, ErrNothingToRetry
	}
	snap, committed := p.Refresh(ctx, params, tr)
	return snap, committed, nil
}

// DismissError закрывает панель ошибки, данные остаются.
func (p *Panel[T]) DismissError() Snapshot[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Error = nil
	return p.snap
}

func (p *Panel[T]) Snapshot() Snapshot[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}
