package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/cylestio-dashboard/internal/connectors"
	"go.uber.org/zap"
)

func newProxyRouter(upstreamURL string, observer UpstreamObserver) http.Handler {
	h := NewProxyHandler(connectors.NewClient(upstreamURL, time.Second, nil), nil, observer, zap.NewNop())
	r := chi.NewRouter()
	r.Get("/api/v1/metrics/{resource}", h.Metrics)
	return r
}

func TestProxyRelaysUpstreamVerbatim(t *testing.T) {
	var gotPath, gotQuery string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"metric":"token_usage","data":[{"value":1}]}`))
	}))
	defer upstream.Close()

	rec := doRequest(t, newProxyRouter(upstream.URL, nil), http.MethodGet, "/api/v1/metrics/token_usage?time_range=24h")

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"metric":"token_usage","data":[{"value":1}]}`, rec.Body.String())
	assert.Equal(t, "/api/v1/metrics/token_usage", gotPath)
	assert.Equal(t, "time_range=24h", gotQuery)
}

func TestProxyUpstreamStatusIsRelayed(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"not found", http.StatusNotFound},
		{"unauthorized", http.StatusUnauthorized},
		{"bad gateway", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"detail":"whatever"}`))
			}))
			defer upstream.Close()
			observer := &countingObserver{}

			rec := doRequest(t, newProxyRouter(upstream.URL, observer), http.MethodGet, "/api/v1/metrics/token_usage")

			assert.Equal(t, tt.status, rec.Code)
			var body ErrorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "Failed to fetch token usage data", body.Error)
			assert.Equal(t, []connectors.ErrorKind{connectors.KindHTTP}, observer.kinds)
		})
	}
}

func TestProxyBodylessUpstreamStatuses(t *testing.T) {
	notModified := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))
	defer notModified.Close()

	rec := doRequest(t, newProxyRouter(notModified.URL, nil), http.MethodGet, "/api/v1/metrics/token_usage")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch token usage data"}`, rec.Body.String())

	noContent := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer noContent.Close()

	rec = doRequest(t, newProxyRouter(noContent.URL, nil), http.MethodGet, "/api/v1/metrics/token_usage")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestProxyNetworkFailureIs500(t *testing.T) {
	rec := doRequest(t, newProxyRouter(closedServerURL(), nil), http.MethodGet, "/api/v1/metrics/response_time")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch response time data"}`, rec.Body.String())
}

func TestProxyParseFailureIs500(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>proxy error page</html>"))
	}))
	defer upstream.Close()

	rec := doRequest(t, newProxyRouter(upstream.URL, nil), http.MethodGet, "/api/v1/metrics/error_rate")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch error rate data"}`, rec.Body.String())
}

func TestProxyUnknownResource(t *testing.T) {
	rec := doRequest(t, newProxyRouter(closedServerURL(), nil), http.MethodGet, "/api/v1/metrics/bitcoin_price")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Unknown metrics resource"}`, rec.Body.String())
}

func TestProxyEveryDefaultResourceAgainstMock(t *testing.T) {
	upstream := httptest.NewServer(connectors.NewMockUpstream())
	defer upstream.Close()
	router := newProxyRouter(upstream.URL, nil)

	for name := range DefaultMetricsResources {
		rec := doRequest(t, router, http.MethodGet, "/api/v1/metrics/"+name)
		assert.Equal(t, http.StatusOK, rec.Code, name)
	}
}
