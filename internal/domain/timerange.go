package domain

import (
	"net/url"
	"time"
)

type RangePreset string

const (
	Range1h     RangePreset = "1h"
	Range24h    RangePreset = "24h"
	Range7d     RangePreset = "7d"
	Range30d    RangePreset = "30d"
	RangeCustom RangePreset = "custom"
)

var presetDurations = map[RangePreset]time.Duration{
	Range1h:  time.Hour,
	Range24h: 24 * time.Hour,
	Range7d:  7 * 24 * time.Hour,
	Range30d: 30 * 24 * time.Hour,
}

// PresetDuration возвращает длительность именованного окна. Для custom — false.
func PresetDuration(p RangePreset) (time.Duration, bool) {
	d, ok := presetDurations[p]
	return d, ok
}

// TimeRange — окно времени. Инвариант: Start < End.
type TimeRange struct {
	Range RangePreset `json:"range"`
	Start time.Time   `json:"start_time"`
	End   time.Time   `json:"end_time"`
}

// Values рендерит окно в query string бэкенда (RFC 3339, UTC).
func (r TimeRange) Values() url.Values {
	v := url.Values{}
	if r.Range != "" {
		v.Set("time_range", string(r.Range))
	}
	if !r.Start.IsZero() {
		v.Set("start_time", r.Start.UTC().Format(time.RFC3339))
	}
	if !r.End.IsZero() {
		v.Set("end_time", r.End.UTC().Format(time.RFC3339))
	}
	return v
}
