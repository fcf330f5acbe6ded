package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/cylestio-dashboard/internal/connectors"
	"github.com/xela07ax/cylestio-dashboard/internal/domain"
	"github.com/xela07ax/cylestio-dashboard/internal/infra"
	"go.uber.org/zap/zaptest"
)

type memStore struct {
	mu   sync.Mutex
	docs map[string]domain.IndexDocument
	err  error
}

func newMemStore() *memStore { return &memStore{docs: map[string]domain.IndexDocument{}} }

func (s *memStore) Upsert(ctx context.Context, docs []domain.IndexDocument) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		s.docs[d.Resource+"/"+d.ID] = d
	}
	return int64(len(docs)), nil
}

func (s *memStore) count(resource string) int {
	n := 0
	for _, d := range s.docs {
		if d.Resource == resource {
			n++
		}
	}
	return n
}

type memLocker struct {
	held     map[string]bool
	released []string
}

func newMemLocker() *memLocker { return &memLocker{held: map[string]bool{}} }

func (l *memLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *memLocker) Release(ctx context.Context, key string) error {
	delete(l.held, key)
	l.released = append(l.released, key)
	return nil
}

type pagedRequester struct {
	calls []url.Values
	pages map[string][]string // путь -> тела страниц по порядку
}

func (r *pagedRequester) Do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	r.calls = append(r.calls, query)
	pages := r.pages[path]
	page, _ := strconv.Atoi(query.Get("page"))
	if page < 1 || page > len(pages) {
		return json.RawMessage(`[]`), nil
	}
	return json.RawMessage(pages[page-1]), nil
}

func testIndexerConfig() infra.IndexerConfig {
	return infra.IndexerConfig{PageSize: 5, MaxPages: 10, Range: "7d", LockTTL: time.Minute}
}

func TestIndexerAgainstMockUpstream(t *testing.T) {
	upstream := httptest.NewServer(connectors.NewMockUpstream())
	defer upstream.Close()

	store, locker := newMemStore(), newMemLocker()
	api := connectors.NewClient(upstream.URL, time.Second, nil)
	ix := New(api, store, locker, testIndexerConfig(), zaptest.NewLogger(t))

	report, err := ix.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Resources, 3)

	// agents: 12 штук, {"items","total"} -> 3 страницы по 5
	assert.Equal(t, ResourceReport{Resource: "agents", Pages: 3, Fetched: 12, Indexed: 12}, report.Resources[0])
	// events: 40 штук, {"events","total"} -> 8 страниц
	assert.Equal(t, 8, report.Resources[1].Pages)
	assert.Equal(t, 40, store.count("events"))
	// alerts: голый массив без total -> до короткой страницы
	assert.Equal(t, 2, report.Resources[2].Pages)
	assert.Equal(t, 8, store.count("alerts"))

	_, ok := store.docs["alerts/alert-001"]
	assert.True(t, ok, "alerts must be keyed by alert_id")

	assert.Equal(t, []string{infra.RedisKeyLockIndexer}, locker.released)
	assert.Empty(t, locker.held)
}

func TestIndexerRespectsLock(t *testing.T) {
	locker := newMemLocker()
	locker.held[infra.RedisKeyLockIndexer] = true

	ix := New(&pagedRequester{}, newMemStore(), locker, testIndexerConfig(), zaptest.NewLogger(t))
	_, err := ix.Run(context.Background())
	assert.ErrorIs(t, err, ErrLocked)
	assert.Empty(t, locker.released)
}

func TestIndexerStopsOnTotalAndUsesFrozenRange(t *testing.T) {
	api := &pagedRequester{pages: map[string][]string{
		"/v1/agents": {
			`{"items":[{"agent_id":"a1"},{"agent_id":"a2"}],"total":4}`,
			`{"items":[{"agent_id":"a3"},{"agent_id":"a4"}],"total":4}`,
			`{"items":[{"agent_id":"never"},{"agent_id":"fetched"}],"total":4}`,
		},
	}}
	now := time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := testIndexerConfig()
	cfg.PageSize = 2
	cfg.Resources = []string{"agents"}

	store := newMemStore()
	ix := New(api, store, newMemLocker(), cfg, zaptest.NewLogger(t)).WithClock(func() time.Time { return now })

	report, err := ix.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Resources[0].Pages)
	assert.Equal(t, 4, store.count("agents"))

	require.Len(t, api.calls, 2)
	for i, q := range api.calls {
		assert.Equal(t, "2", q.Get("page_size"))
		assert.Equal(t, "asc", q.Get("sort_order"))
		assert.Equal(t, "7d", q.Get("time_range"))
		assert.Equal(t, "2023-02-22T12:00:00Z", q.Get("start_time"))
		assert.Equal(t, "2023-03-01T12:00:00Z", q.Get("end_time"))
		assert.Equal(t, strconv.Itoa(i+1), q.Get("page"))
	}
}

func TestIndexerSkipsItemsWithoutID(t *testing.T) {
	api := &pagedRequester{pages: map[string][]string{
		"/v1/events": {`[{"id":"e1"},{"payload":"no id"},{"event_id":"e3"}]`},
	}}
	cfg := testIndexerConfig()
	cfg.Resources = []string{"events"}

	store := newMemStore()
	report, err := New(api, store, newMemLocker(), cfg, zaptest.NewLogger(t)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ResourceReport{Resource: "events", Pages: 1, Fetched: 3, Indexed: 2, Skipped: 1}, report.Resources[0])
}

func TestIndexerErrors(t *testing.T) {
	cfg := testIndexerConfig()
	cfg.Resources = []string{"sessions"}
	locker := newMemLocker()
	_, err := New(&pagedRequester{}, newMemStore(), locker, cfg, zaptest.NewLogger(t)).Run(context.Background())
	assert.ErrorIs(t, err, ErrUnknownResource)
	assert.Equal(t, []string{infra.RedisKeyLockIndexer}, locker.released, "lock released on failure")

	api := &pagedRequester{pages: map[string][]string{"/v1/alerts": {`[{"alert_id":"x"}]`}}}
	cfg.Resources = []string{"alerts"}
	store := newMemStore()
	store.err = errors.New("disk full")
	_, err = New(api, store, newMemLocker(), cfg, zaptest.NewLogger(t)).Run(context.Background())
	assert.ErrorContains(t, err, "disk full")

	api = &pagedRequester{pages: map[string][]string{"/v1/alerts": {`{"status":"ok"}`}}}
	_, err = New(api, newMemStore(), newMemLocker(), cfg, zaptest.NewLogger(t)).Run(context.Background())
	assert.ErrorIs(t, err, connectors.ErrNoListShape)
}

func TestDocumentID(t *testing.T) {
	tests := []struct {
		resource string
		body     string
		want     string
		ok       bool
	}{
		{"agents", `{"agent_id":"a1"}`, "a1", true},
		{"alerts", `{"agent_id":"a1","alert_id":"al-1"}`, "al-1", true},
		{"events", `{"id":"e1","agent_id":"a1"}`, "e1", true},
		{"events", `{"id":42}`, "42", true},
		{"events", `{"id":"  "}`, "", false},
		{"events", `[1,2]`, "", false},
	}
	for _, tt := range tests {
		got, ok := DocumentID(tt.resource, json.RawMessage(tt.body))
		assert.Equal(t, tt.ok, ok, tt.body)
		assert.Equal(t, tt.want, got, tt.body)
	}
}
