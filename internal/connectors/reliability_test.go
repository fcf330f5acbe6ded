package connectors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testReliabilityConfig() ReliabilityConfig {
	return ReliabilityConfig{
		Name:          "test",
		RateLimit:     1000,
		RateBurst:     10,
		RetryAttempts: 3,
		CBMaxRequests: 1,
		CBInterval:    time.Minute,
		CBTimeout:     time.Minute,
		CBFailures:    5,
	}
}

func TestReliableRequesterRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[1,2,3]`))
	}))
	defer server.Close()

	rr := NewReliableRequester(NewClient(server.URL, time.Second, nil), testReliabilityConfig(), zaptest.NewLogger(t))
	raw, err := rr.Do(context.Background(), http.MethodGet, "/v1/alerts", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "[1,2,3]", string(raw))
	assert.Equal(t, int32(3), calls.Load())
}

func TestReliableRequesterDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	rr := NewReliableRequester(NewClient(server.URL, time.Second, nil), testReliabilityConfig(), nil)
	_, err := rr.Do(context.Background(), http.MethodGet, "/v1/agents/missing", nil, nil)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Status)
	assert.Equal(t, int32(1), calls.Load())
}

func TestReliableRequesterOpensCircuit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testReliabilityConfig()
	cfg.RetryAttempts = 1
	cfg.CBFailures = 2
	rr := NewReliableRequester(NewClient(server.URL, time.Second, nil), cfg, nil)

	for i := 0; i < 2; i++ {
		_, err := rr.Do(context.Background(), http.MethodGet, "/", nil, nil)
		require.Error(t, err)
	}

	_, err := rr.Do(context.Background(), http.MethodGet, "/", nil, nil)
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), calls.Load())
}
