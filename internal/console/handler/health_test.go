package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/cylestio-dashboard/internal/connectors"
	"go.uber.org/zap"
)

func healthOf(t *testing.T, apiURL string) (int, HealthReport) {
	t.Helper()
	h := NewHealthHandler(connectors.NewClient(apiURL, time.Second, nil), apiURL, "test", zap.NewNop())
	rec := doRequest(t, http.HandlerFunc(h.Health), http.MethodGet, "/api/health")

	var report HealthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	return rec.Code, report
}

func TestHealthHealthy(t *testing.T) {
	upstream := httptest.NewServer(connectors.NewMockUpstream())
	defer upstream.Close()

	code, report := healthOf(t, upstream.URL)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, HealthHealthy, report.Status)
	assert.Equal(t, HealthHealthy, report.API.Status)
	assert.Equal(t, http.StatusOK, report.API.StatusCode)
	assert.Equal(t, upstream.URL, report.API.URL)
	assert.Empty(t, report.API.Error)
	assert.Equal(t, "test", report.System.Environment)
	assert.NotEmpty(t, report.System.GoVersion)
	assert.False(t, report.Timestamp.IsZero())
}

func TestHealthDegraded(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"detail":"database unavailable"}`))
	}))
	defer upstream.Close()

	code, report := healthOf(t, upstream.URL)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, HealthDegraded, report.Status)
	assert.Equal(t, http.StatusServiceUnavailable, report.API.StatusCode)
	assert.Equal(t, "database unavailable", report.API.Error)
}

func TestHealthUnreachable(t *testing.T) {
	code, report := healthOf(t, closedServerURL())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, HealthError, report.Status)
	assert.Zero(t, report.API.StatusCode)
	assert.NotEmpty(t, report.API.Error)
}
