package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizza-index-watcher/internal/clock"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pizza-index.json")
	clk := clock.Fixed{Instant: time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)}
	return NewFileStore(path, clk, zerolog.Nop())
}

func readingAt(ts time.Time, index int64) Reading {
	return Reading{
		ObservedAt: ts,
		IndexValue: decimal.NewFromInt(index),
		HourOfDay:  ts.Hour(),
		Weekday:    int(ts.Weekday()),
	}
}

func TestFileStoreAppendAndReadBack(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	latest, err := store.MostRecentReading(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest, "empty store should report no reading")

	ts := time.Date(2024, time.March, 1, 12, 0, 30, 0, time.UTC)
	require.NoError(t, store.AppendReading(ctx, readingAt(ts, 42)))

	latest, err = store.MostRecentReading(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.ObservedAt.Equal(ts))
	assert.True(t, latest.IndexValue.Equal(decimal.NewFromInt(42)))
}

func TestFileStoreDuplicateMinute(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	base := time.Date(2024, time.March, 1, 12, 0, 10, 0, time.UTC)
	require.NoError(t, store.AppendReading(ctx, readingAt(base, 40)))

	// same minute, different second
	err := store.AppendReading(ctx, readingAt(base.Add(35*time.Second), 41))
	assert.ErrorIs(t, err, ErrDuplicateReading)

	// one second into the next minute is a different bucket
	next := time.Date(2024, time.March, 1, 12, 1, 0, 0, time.UTC)
	require.NoError(t, store.AppendReading(ctx, readingAt(next, 42)))

	readings, err := store.ListRecentReadings(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, readings, 2)
}

func TestFileStoreReadingRetention(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	// seed a full document directly instead of 10k rewrites
	base := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	doc := document{Readings: make([]Reading, 0, maxStoredReadings)}
	for i := 0; i < maxStoredReadings; i++ {
		doc.Readings = append(doc.Readings, readingAt(base.Add(time.Duration(i)*time.Minute), int64(i%100)))
	}
	require.NoError(t, store.save(doc))

	newest := base.Add(time.Duration(maxStoredReadings) * time.Minute)
	require.NoError(t, store.AppendReading(ctx, readingAt(newest, 55)))

	loaded, err := store.load()
	require.NoError(t, err)
	require.Len(t, loaded.Readings, maxStoredReadings)
	// oldest entry evicted, order preserved
	assert.True(t, loaded.Readings[0].ObservedAt.Equal(base.Add(time.Minute)))
	assert.True(t, loaded.Readings[maxStoredReadings-1].ObservedAt.Equal(newest))
}

func TestFileStoreSpikeRetention(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	base := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	doc := document{Spikes: make([]Spike, 0, maxStoredSpikes)}
	for i := 0; i < maxStoredSpikes; i++ {
		doc.Spikes = append(doc.Spikes, Spike{
			ObservedAt: base.Add(time.Duration(i) * time.Hour),
			IndexFrom:  decimal.NewFromInt(40),
			IndexTo:    decimal.NewFromInt(80),
		})
	}
	require.NoError(t, store.save(doc))

	newest := base.Add(time.Duration(maxStoredSpikes) * time.Hour)
	require.NoError(t, store.AppendSpike(ctx, Spike{ObservedAt: newest}))

	loaded, err := store.load()
	require.NoError(t, err)
	require.Len(t, loaded.Spikes, maxStoredSpikes)
	assert.True(t, loaded.Spikes[0].ObservedAt.Equal(base.Add(time.Hour)))
	assert.True(t, loaded.Spikes[maxStoredSpikes-1].ObservedAt.Equal(newest))
}

func TestFileStoreLastUpdateUsesClock(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	ts := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.AppendReading(ctx, readingAt(ts, 10)))

	doc, err := store.load()
	require.NoError(t, err)
	assert.True(t, doc.LastUpdate.Equal(time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)))
}

func TestFileStoreListBetween(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.AppendReading(ctx, readingAt(base.Add(time.Duration(i)*time.Minute), int64(i))))
	}

	window, err := store.ListReadingsBetween(ctx, base.Add(time.Minute), base.Add(3*time.Minute))
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.True(t, window[0].ObservedAt.Equal(base.Add(time.Minute)))
	assert.True(t, window[1].ObservedAt.Equal(base.Add(2*time.Minute)))
}
