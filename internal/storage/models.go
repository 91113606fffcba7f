package storage

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Reading is one persisted observation of the pizza index. Immutable after
// creation; at most one per minute-bucket.
type Reading struct {
	ObservedAt time.Time       `json:"timestamp"`
	IndexValue decimal.Decimal `json:"index_value"`
	HourOfDay  int             `json:"dc_hour"`
	Weekday    int             `json:"dc_weekday"`
	IsOvertime bool            `json:"is_overtime"`
	IsWeekend  bool            `json:"is_weekend"`
	RawPayload json.RawMessage `json:"raw_data,omitempty"`
	CreatedAt  time.Time       `json:"-"`
}

// Spike is a flagged transition between two consecutive readings.
type Spike struct {
	ObservedAt   time.Time       `json:"timestamp"`
	IndexFrom    decimal.Decimal `json:"index_from"`
	IndexTo      decimal.Decimal `json:"index_to"`
	ChangeAmount decimal.Decimal `json:"change_amount"`
	IsOvertime   bool            `json:"is_overtime"`
	IsWeekend    bool            `json:"is_weekend"`
	Notes        string          `json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"-"`
}

// HourlyPattern aggregates readings by reference-zone hour.
type HourlyPattern struct {
	Hour        int
	AvgIndex    decimal.Decimal
	MinIndex    decimal.Decimal
	MaxIndex    decimal.Decimal
	StddevIndex decimal.Decimal
	SampleCount int64
}

// WeekdayPattern aggregates readings by reference-zone weekday (0=Sunday).
type WeekdayPattern struct {
	Weekday     int
	AvgIndex    decimal.Decimal
	MinIndex    decimal.Decimal
	MaxIndex    decimal.Decimal
	StddevIndex decimal.Decimal
	SampleCount int64
}

// ForecastRow joins a reading with its hourly/weekday pattern and the
// blended forecast computed by the pizza_forecast view.
type ForecastRow struct {
	ObservedAt time.Time
	IndexValue decimal.Decimal
	HourlyAvg  decimal.Decimal
	WeekdayAvg decimal.Decimal
	Blended    decimal.Decimal
}

// MinuteBucket truncates an instant to the deduplication resolution.
func MinuteBucket(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}

// SameMinute reports whether two instants fall into the same minute-bucket.
func SameMinute(a, b time.Time) bool {
	return MinuteBucket(a).Equal(MinuteBucket(b))
}
