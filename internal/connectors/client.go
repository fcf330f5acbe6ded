package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xela07ax/cylestio-dashboard/internal/infra"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultTimeout = 5 * time.Second

	// Тело ответа больше этого не читаем
	maxBodySize = 8 << 20
)

// Requester — то, что сервисам нужно от клиента бэкенда.
// Позволяет подменить клиент обёрткой надежности или фейком в тестах.
type Requester interface {
	Do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error)
}

// Response — ответ бэкенда со статусом, нужен прокси-роутам.
type Response struct {
	Status int
	Header http.Header
	Body   json.RawMessage
}

// Client — преднастроенный HTTP клиент бэкенда: фиксированный baseURL, таймаут и JSON заголовки.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	headers http.Header
	logger  *zap.Logger
}

type ClientOption func(*Client)

// WithHTTPClient подменяет транспорт. Таймаут клиента все равно выставляется из конфигурации.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithHeader добавляет заголовок по умолчанию.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger, opts ...ClientOption) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		baseURL: baseURL,
		timeout: timeout,
		http:    &http.Client{},
		headers: http.Header{},
		logger:  logger.Named("api-client"),
	}
	c.headers.Set("Content-Type", "application/json")
	c.headers.Set("Accept", "application/json")

	for _, opt := range opts {
		opt(c)
	}

	hc := *c.http
	hc.Timeout = timeout
	c.http = &hc
	return c
}

func (c *Client) BaseURL() string        { return c.baseURL }
func (c *Client) Timeout() time.Duration { return c.timeout }

// Do выполняет запрос и возвращает тело любого 2xx ответа.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	resp, err := c.Fetch(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPost, path, nil, body)
}

// GetJSON декодирует 2xx ответ в out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	raw, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ParseError{URL: c.URL(path, query), Err: err}
	}
	return nil
}

// URL собирает абсолютный адрес запроса.
func (c *Client) URL(path string, query url.Values) string {
	path = strings.TrimSpace(path)
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Fetch — низкоуровневый вызов: отдает статус и заголовки вместе с телом.
// Статус вне 2xx -> *StatusError, отказ транспорта -> *NetworkError, не-JSON -> *ParseError.
func (c *Client) Fetch(ctx context.Context, method, path string, query url.Values, body any) (*Response, error) {
	target := c.URL(path, query)

	// 1. Тело запроса
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &LocalError{Op: "encode request body", Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &LocalError{Op: "build request", Err: err}
	}
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if traceID := infra.TraceID(ctx); traceID != "" {
		req.Header.Set(infra.TraceHeader, traceID)
	}

	c.logger.Debug("upstream request",
		zap.String("method", method),
		zap.String("url", target))

	// 2. Вызов
	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("upstream request failed", zap.String("url", target), zap.Error(err))
		return nil, &NetworkError{Method: method, URL: target, Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return nil, &NetworkError{Method: method, URL: target, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug("upstream response",
		zap.String("url", target),
		zap.Int("status", res.StatusCode),
		zap.String("shape", describeShape(raw)),
		zap.Duration("elapsed", time.Since(start)))

	// 3. Статус
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &StatusError{
			Status:     res.StatusCode,
			Message:    statusMessage(raw, res.StatusCode),
			Body:       raw,
			RetryAfter: parseRetryAfter(res.Header.Get("Retry-After")),
		}
	}

	// 4. Тело ответа
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		trimmed = []byte("null")
	}
	if !json.Valid(trimmed) {
		return nil, &ParseError{URL: target, Err: ErrInvalidJSON}
	}

	return &Response{Status: res.StatusCode, Header: res.Header, Body: json.RawMessage(trimmed)}, nil
}

// statusMessage достает человекочитаемое сообщение из тела ошибки бэкенда.
func statusMessage(body []byte, status int) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"detail", "message", "error"} {
			if s, ok := payload[key].(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", status)
}

func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func describeShape(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "empty"
	}
	switch trimmed[0] {
	case '[':
		return "array"
	case '{':
		return "object"
	default:
		return "scalar"
	}
}

var _ Requester = (*Client)(nil)
