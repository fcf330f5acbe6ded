package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ReliabilityConfig настраивает защиту исходящих вызовов.
type ReliabilityConfig struct {
	Name          string
	RateLimit     float64 // запросов в секунду
	RateBurst     int
	RetryAttempts uint
	CBMaxRequests uint32
	CBInterval    time.Duration
	CBTimeout     time.Duration // время, через которое CB попробует "закрыться"
	CBFailures    uint32        // подряд идущих отказов до размыкания
}

// ReliableRequester оборачивает Requester в rate limiter, circuit breaker и ретраи.
// Используется только индексатором: прокси и данные страниц ходят напрямую.
type ReliableRequester struct {
	next     Requester
	cb       *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
	attempts uint
	logger   *zap.Logger
}

func NewReliableRequester(next Requester, cfg ReliabilityConfig, logger *zap.Logger) *ReliableRequester {
	if cfg.Name == "" {
		cfg.Name = "upstream-api"
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.CBFailures == 0 {
		cfg.CBFailures = 5
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 20
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("reliability")

	failures := cfg.CBFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.CBMaxRequests,
		Interval:    cfg.CBInterval,
		Timeout:     cfg.CBTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// 4xx — ответ бэкенда, а не его отказ: предохранитель не трогаем
		IsSuccessful: func(err error) bool {
			return err == nil || !IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &ReliableRequester{
		next:     next,
		cb:       cb,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		attempts: cfg.RetryAttempts,
		logger:   logger,
	}
}

func (w *ReliableRequester) Do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	var finalData json.RawMessage

	// 1. Circuit Breaker
	_, err := w.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(w.attempts),
			retry.LastErrorOnly(true),
			retry.RetryIf(IsRetryable),
			// Умный расчет задержки
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				// 429 с Retry-After — ждем ровно столько, сколько попросили
				var statusErr *StatusError
				if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
					return statusErr.RetryAfter
				}
				return retry.BackOffDelay(n, err, config)
			}),
		)

		retryErr := r.Do(func() error {
			// 2. Rate Limiter на каждую попытку
			if err := w.limiter.Wait(ctx); err != nil {
				return &LocalError{Op: "rate limit", Err: err}
			}

			var callErr error
			finalData, callErr = w.next.Do(ctx, method, path, query, body)
			if callErr != nil {
				w.logger.Debug("upstream attempt failed",
					zap.String("path", path),
					zap.String("kind", string(KindOf(callErr))),
					zap.Error(callErr))
			}
			return callErr
		})

		return finalData, retryErr
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &NetworkError{Method: method, URL: path, Err: fmt.Errorf("circuit breaker: %w", err)}
		}
		return nil, err
	}
	return finalData, nil
}

var _ Requester = (*ReliableRequester)(nil)
