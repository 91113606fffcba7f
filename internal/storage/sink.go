package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotConfigured indicates the storage backend was not initialised.
	ErrNotConfigured = errors.New("storage: backend not configured")
	// ErrDuplicateReading indicates a reading already exists for the
	// candidate minute-bucket. Callers treat it as a benign skip.
	ErrDuplicateReading = errors.New("storage: reading already recorded for this minute")
)

// Sink is the persistence capability the ingestion pipeline depends on.
// AppendReading must return ErrDuplicateReading on a minute-bucket
// collision; AppendSpike is independent and best-effort.
type Sink interface {
	AppendReading(ctx context.Context, reading Reading) error
	AppendSpike(ctx context.Context, spike Spike) error
	MostRecentReading(ctx context.Context) (*Reading, error)
	Close()
}

// HistoryBrowser lists stored readings and spikes for the CLI surfaces.
type HistoryBrowser interface {
	ListRecentReadings(ctx context.Context, limit int) ([]Reading, error)
	ListReadingsBetween(ctx context.Context, from, to time.Time) ([]Reading, error)
	ListRecentSpikes(ctx context.Context, limit int) ([]Spike, error)
}

// PatternReader exposes the derived aggregates and the blended forecast.
// Only the database backend maintains these.
type PatternReader interface {
	HourlyPatterns(ctx context.Context) ([]HourlyPattern, error)
	WeekdayPatterns(ctx context.Context) ([]WeekdayPattern, error)
	LatestForecast(ctx context.Context, limit int) ([]ForecastRow, error)
}
