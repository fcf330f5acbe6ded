package view

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/xela07ax/cylestio-dashboard/internal/domain"
)

var (
	ErrUnknownPreset = errors.New("view: unknown time range preset")
	ErrInvalidRange  = errors.New("view: start must be before end")
)

// Clock — источник текущего времени, подменяется в тестах.
type Clock func() time.Time

// TimeRange — выбранное окно времени. Значения замораживаются в момент выбора
// и не пересчитываются сами, даже когда реальное время уходит вперед.
type TimeRange struct {
	clock   Clock
	current domain.TimeRange
}

// NewTimeRange выбирает preset по умолчанию. Неизвестный preset заменяется на 24h.
func NewTimeRange(def domain.RangePreset, clock Clock) *TimeRange {
	if clock == nil {
		clock = time.Now
	}
	tr := &TimeRange{clock: clock}
	if err := tr.SelectPreset(def); err != nil {
		_ = tr.SelectPreset(domain.Range24h)
	}
	return tr
}

// TimeRangeFromQuery читает range, start и end (RFC 3339) из query string.
func TimeRangeFromQuery(q url.Values, def domain.RangePreset, clock Clock) (*TimeRange, error) {
	tr := NewTimeRange(def, clock)

	preset := domain.RangePreset(strings.TrimSpace(q.Get("range")))
	start, end := strings.TrimSpace(q.Get("start")), strings.TrimSpace(q.Get("end"))

	switch {
	case preset == domain.RangeCustom || (preset == "" && (start != "" || end != "")):
		s, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return nil, fmt.Errorf("%w: start: %v", ErrInvalidRange, err)
		}
		e, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return nil, fmt.Errorf("%w: end: %v", ErrInvalidRange, err)
		}
		if err := tr.SetCustom(s, e); err != nil {
			return nil, err
		}
	case preset != "":
		if err := tr.SelectPreset(preset); err != nil {
			return nil, err
		}
	}
	return tr, nil
}

// SelectPreset: end = now, start = now - длительность, вычисляется один раз.
func (t *TimeRange) SelectPreset(p domain.RangePreset) error {
	d, ok := domain.PresetDuration(p)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, p)
	}
	now := t.clock()
	t.current = domain.TimeRange{Range: p, Start: now.Add(-d), End: now}
	return nil
}

// SetCustom требует start строго раньше end.
func (t *TimeRange) SetCustom(start, end time.Time) error {
	if !start.Before(end) {
		return ErrInvalidRange
	}
	t.current = domain.TimeRange{Range: domain.RangeCustom, Start: start, End: end}
	return nil
}

func (t *TimeRange) Value() domain.TimeRange { return t.current }
