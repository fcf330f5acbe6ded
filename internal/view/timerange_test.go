package view

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/cylestio-dashboard/internal/domain"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2023, 1, 10, 12, 0, 0, 0, time.UTC)}
}

func TestTimeRangeDefaultPreset(t *testing.T) {
	clock := newFakeClock()
	tr := NewTimeRange(domain.Range24h, clock.Now)

	v := tr.Value()
	assert.Equal(t, domain.Range24h, v.Range)
	assert.Equal(t, clock.now, v.End)
	assert.Equal(t, clock.now.Add(-24*time.Hour), v.Start)
}

func TestTimeRangeUnknownDefaultFallsBack(t *testing.T) {
	tr := NewTimeRange("90y", newFakeClock().Now)
	assert.Equal(t, domain.Range24h, tr.Value().Range)
}

func TestTimeRangeSelectSevenDays(t *testing.T) {
	clock := newFakeClock()
	tr := NewTimeRange(domain.Range24h, clock.Now)

	clock.Advance(90 * time.Minute)
	selectedAt := clock.now
	require.NoError(t, tr.SelectPreset(domain.Range7d))

	v := tr.Value()
	assert.Equal(t, domain.Range7d, v.Range)
	assert.Equal(t, selectedAt, v.End)
	assert.Equal(t, selectedAt.Add(-7*24*time.Hour), v.Start)
}

func TestTimeRangeFrozenUntilNextChange(t *testing.T) {
	clock := newFakeClock()
	tr := NewTimeRange(domain.Range1h, clock.Now)
	before := tr.Value()

	clock.Advance(3 * time.Hour)
	assert.Equal(t, before, tr.Value())

	require.NoError(t, tr.SelectPreset(domain.Range1h))
	assert.Equal(t, clock.now, tr.Value().End)
}

func TestTimeRangeCustom(t *testing.T) {
	tr := NewTimeRange(domain.Range24h, newFakeClock().Now)
	start := time.Date(2022, 12, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2022, 12, 31, 23, 59, 59, 0, time.UTC)

	require.NoError(t, tr.SetCustom(start, end))
	v := tr.Value()
	assert.Equal(t, domain.RangeCustom, v.Range)
	assert.Equal(t, start, v.Start)
	assert.Equal(t, end, v.End)
}

func TestTimeRangeCustomRejectsInverted(t *testing.T) {
	tr := NewTimeRange(domain.Range24h, newFakeClock().Now)
	before := tr.Value()
	at := time.Date(2022, 12, 15, 0, 0, 0, 0, time.UTC)

	assert.ErrorIs(t, tr.SetCustom(at, at), ErrInvalidRange)
	assert.ErrorIs(t, tr.SetCustom(at.Add(time.Hour), at), ErrInvalidRange)
	assert.Equal(t, before, tr.Value())
}

func TestTimeRangeUnknownPreset(t *testing.T) {
	tr := NewTimeRange(domain.Range24h, newFakeClock().Now)
	assert.ErrorIs(t, tr.SelectPreset("2w"), ErrUnknownPreset)
	assert.ErrorIs(t, tr.SelectPreset(domain.RangeCustom), ErrUnknownPreset)
}

func TestTimeRangeFromQuery(t *testing.T) {
	clock := newFakeClock()

	tr, err := TimeRangeFromQuery(url.Values{"range": {"30d"}}, domain.Range24h, clock.Now)
	require.NoError(t, err)
	assert.Equal(t, domain.Range30d, tr.Value().Range)

	tr, err = TimeRangeFromQuery(url.Values{}, domain.Range7d, clock.Now)
	require.NoError(t, err)
	assert.Equal(t, domain.Range7d, tr.Value().Range)

	tr, err = TimeRangeFromQuery(url.Values{
		"range": {"custom"},
		"start": {"2022-12-15T00:00:00Z"},
		"end":   {"2022-12-31T23:59:59Z"},
	}, domain.Range24h, clock.Now)
	require.NoError(t, err)
	assert.Equal(t, domain.RangeCustom, tr.Value().Range)
	assert.Equal(t, "2022-12-15T00:00:00Z", tr.Value().Values().Get("start_time"))
	assert.Equal(t, "2022-12-31T23:59:59Z", tr.Value().Values().Get("end_time"))

	_, err = TimeRangeFromQuery(url.Values{"start": {"2022-12-31T00:00:00Z"}, "end": {"2022-12-01T00:00:00Z"}}, domain.Range24h, clock.Now)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = TimeRangeFromQuery(url.Values{"range": {"custom"}, "start": {"yesterday"}}, domain.Range24h, clock.Now)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = TimeRangeFromQuery(url.Values{"range": {"1y"}}, domain.Range24h, clock.Now)
	assert.ErrorIs(t, err, ErrUnknownPreset)
}
