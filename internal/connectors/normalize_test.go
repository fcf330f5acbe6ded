package connectors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type badJSON struct{}

func (badJSON) MarshalJSON() ([]byte, error) { return nil, errors.New("cannot marshal") }

type panickyJSON struct{}

func (panickyJSON) MarshalJSON() ([]byte, error) { panic("boom") }

type panickyStringer struct{ Ch chan int }

func (panickyStringer) String() string { panic("stringer exploded") }

type label string

type point struct{ X, Y int }

func (p point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

type apiFailure struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func TestNormalizeStringVerbatim(t *testing.T) {
	for _, s := range []string{"plain failure", "", "  padded  ", "{\"json\":\"looking\"}"} {
		got := Normalize(s)
		assert.Equal(t, s, got.Message)
	}
	assert.Equal(t, "named", Normalize(label("named")).Message)
	assert.Equal(t, "bytes", Normalize([]byte("bytes")).Message)
}

func TestNormalizeMessageField(t *testing.T) {
	assert.Equal(t, "boom", Normalize(errors.New("boom")).Message)
	assert.Equal(t, "wrapped: boom", Normalize(fmt.Errorf("wrapped: %w", errors.New("boom"))).Message)

	m := map[string]any{"message": "from map", "status": float64(418)}
	got := Normalize(m)
	assert.Equal(t, "from map", got.Message)
	assert.Equal(t, 418, got.Status)
	assert.Equal(t, m, got.Detail)
}

func TestNormalizeTypedMessageField(t *testing.T) {
	sm := map[string]string{"message": "boom", "code": "3"}
	got := Normalize(sm)
	assert.Equal(t, "boom", got.Message)
	assert.Equal(t, sm, got.Detail)

	failure := apiFailure{Message: "boom", Code: 3}
	assert.Equal(t, "boom", Normalize(failure).Message)
	assert.Equal(t, "boom", Normalize(&failure).Message)
	assert.Equal(t, failure, Normalize(failure).Detail)

	// пустое сообщение — дальше по цепочке, к сериализации
	assert.Equal(t, `{"message":"","code":3}`, Normalize(apiFailure{Code: 3}).Message)
	assert.Equal(t, `{"code":"3"}`, Normalize(map[string]string{"code": "3"}).Message)
}

func TestNormalizeClosedErrorSet(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		got := Normalize(&StatusError{Status: http.StatusNotFound, Message: "Agent not found", Body: []byte(`{"detail":"Agent not found"}`)})
		assert.Equal(t, "Agent not found", got.Message)
		assert.Equal(t, http.StatusNotFound, got.Status)
		assert.Equal(t, KindHTTP, got.Kind)
		assert.Equal(t, json.RawMessage(`{"detail":"Agent not found"}`), got.Detail)
	})

	t.Run("status without message", func(t *testing.T) {
		got := Normalize(&StatusError{Status: http.StatusBadGateway, Body: []byte("upstream down")})
		assert.Equal(t, "Bad Gateway", got.Message)
		assert.Equal(t, "upstream down", got.Detail)
	})

	t.Run("network", func(t *testing.T) {
		got := Normalize(&NetworkError{Method: "GET", URL: "http://x", Err: errors.New("connection refused")})
		assert.Equal(t, KindNetwork, got.Kind)
		assert.Contains(t, got.Message, "connection refused")
		assert.Zero(t, got.Status)
	})

	t.Run("parse", func(t *testing.T) {
		got := Normalize(&ParseError{URL: "http://x/v1/events", Err: ErrInvalidJSON})
		assert.Equal(t, KindParse, got.Kind)
		assert.Contains(t, got.Message, "not valid JSON")
	})

	t.Run("local", func(t *testing.T) {
		got := Normalize(&LocalError{Op: "encode request body", Err: errors.New("bad")})
		assert.Equal(t, KindLocal, got.Kind)
	})

	t.Run("wrapped status keeps kind", func(t *testing.T) {
		got := Normalize(fmt.Errorf("list agents: %w", &StatusError{Status: 503, Message: "busy"}))
		assert.Equal(t, KindHTTP, got.Kind)
		assert.Equal(t, 503, got.Status)
		assert.Equal(t, "busy", got.Message)
	})
}

func TestNormalizeStringerAndSerialization(t *testing.T) {
	assert.Equal(t, "(1,2)", Normalize(point{1, 2}).Message)
	assert.Equal(t, "42", Normalize(42).Message)
	assert.Equal(t, `{"a":1}`, Normalize(map[string]int{"a": 1}).Message)
}

func TestNormalizeNeverPanics(t *testing.T) {
	cases := map[string]any{
		"nil":                nil,
		"channel":            make(chan int),
		"func":               func() {},
		"marshal error":      badJSON{},
		"marshal panic":      panickyJSON{},
		"stringer panic":     panickyStringer{Ch: make(chan int)},
		"typed nil error":    (*StatusError)(nil),
		"nil normalized":     (*NormalizedError)(nil),
		"unserializable map": map[string]any{"ch": make(chan int)},
	}
	for name, v := range cases {
		t.Run(name, func(t *testing.T) {
			var got NormalizedError
			require.NotPanics(t, func() { got = Normalize(v) })
			assert.Equal(t, UnknownErrorMessage, got.Message)
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	first := Normalize(&StatusError{Status: 500, Message: "oops"})
	second := Normalize(first)
	assert.Equal(t, first, second)
}

func TestKindOfAndRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&NetworkError{Err: errors.New("refused")}))
	assert.True(t, IsRetryable(&StatusError{Status: 503}))
	assert.True(t, IsRetryable(&StatusError{Status: 429}))
	assert.False(t, IsRetryable(&StatusError{Status: 404}))
	assert.False(t, IsRetryable(&ParseError{Err: ErrInvalidJSON}))
	assert.False(t, IsRetryable(nil))
	assert.Equal(t, KindUnknown, KindOf(errors.New("x")))
}
