package connectors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorKind — закрытый набор категорий отказа при обращении к бэкенду.
type ErrorKind string

const (
	KindNetwork ErrorKind = "network" // ответа нет: таймаут, DNS, connection refused
	KindHTTP    ErrorKind = "http"    // ответ есть, статус вне 2xx
	KindParse   ErrorKind = "parse"   // ответ есть, но форма не та
	KindLocal   ErrorKind = "local"   // локальная ошибка, сеть ни при чем
	KindUnknown ErrorKind = "unknown"
)

var (
	ErrInvalidJSON = errors.New("response body is not valid JSON")
	ErrNoListShape = errors.New("response matches no known list shape")
)

// NetworkError — запрос ушел, но ответ не получен.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("connectors: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout сообщает, что отказ вызван таймаутом.
func (e *NetworkError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// StatusError — бэкенд ответил статусом вне 2xx.
type StatusError struct {
	Status     int
	Message    string
	Body       []byte
	RetryAfter time.Duration // из заголовка Retry-After, если он был
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("connectors: upstream returned %d: %s", e.Status, e.Message)
}

// Retryable: 5xx и 429 имеет смысл повторять, остальное — нет.
func (e *StatusError) Retryable() bool {
	return e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
}

// ParseError — ответ получен, но тело не JSON или не подходит ни под одну форму.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("connectors: parse response: %v", e.Err)
	}
	return fmt.Sprintf("connectors: parse response from %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// LocalError — сбой на нашей стороне до отправки запроса.
type LocalError struct {
	Op  string
	Err error
}

func (e *LocalError) Error() string {
	return fmt.Sprintf("connectors: %s: %v", e.Op, e.Err)
}

func (e *LocalError) Unwrap() error { return e.Err }

// KindOf классифицирует ошибку по закрытому набору категорий.
func KindOf(err error) ErrorKind {
	var (
		netErr    *NetworkError
		statusErr *StatusError
		parseErr  *ParseError
		localErr  *LocalError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &statusErr):
		return KindHTTP
	case errors.As(err, &netErr):
		return KindNetwork
	case errors.As(err, &parseErr):
		return KindParse
	case errors.As(err, &localErr):
		return KindLocal
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindNetwork
	default:
		return KindUnknown
	}
}

// IsRetryable решает, стоит ли повторять вызов: сеть, 5xx и 429.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	return KindOf(err) == KindNetwork
}
