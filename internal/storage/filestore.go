package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"pizza-index-watcher/internal/clock"
)

// Retention limits for the flat-file dataset, oldest entries evicted first.
const (
	maxStoredReadings = 10000
	maxStoredSpikes   = 100
)

// document is the full on-disk dataset, rewritten as one unit per tick.
type document struct {
	Readings   []Reading `json:"readings"`
	Spikes     []Spike   `json:"spikes"`
	LastUpdate time.Time `json:"lastUpdate"`
}

// FileStore persists the dataset as a single JSON document. The whole file
// is read, mutated, and atomically rewritten on every append; a single
// writer at a time is assumed.
type FileStore struct {
	path   string
	clk    clock.Clock
	logger zerolog.Logger
}

// NewFileStore builds a flat-file store rooted at path.
func NewFileStore(path string, clk clock.Clock, logger zerolog.Logger) *FileStore {
	if clk == nil {
		clk = clock.System{}
	}
	return &FileStore{
		path:   path,
		clk:    clk,
		logger: logger.With().Str("component", "file_store").Logger(),
	}
}

// Close is a no-op; every write already flushes to disk.
func (s *FileStore) Close() {}

// AppendReading appends a reading, trims retention, and rewrites the file.
func (s *FileStore) AppendReading(_ context.Context, reading Reading) error {
	doc, err := s.load()
	if err != nil {
		return err
	}

	if n := len(doc.Readings); n > 0 && SameMinute(doc.Readings[n-1].ObservedAt, reading.ObservedAt) {
		return ErrDuplicateReading
	}

	doc.Readings = append(doc.Readings, reading)
	if overflow := len(doc.Readings) - maxStoredReadings; overflow > 0 {
		doc.Readings = doc.Readings[overflow:]
	}
	// trim spikes here too so an over-length document is repaired even on
	// ticks that flag nothing
	if overflow := len(doc.Spikes) - maxStoredSpikes; overflow > 0 {
		doc.Spikes = doc.Spikes[overflow:]
	}
	doc.LastUpdate = s.clk.Now()

	return s.save(doc)
}

// AppendSpike appends a spike, trims retention, and rewrites the file.
func (s *FileStore) AppendSpike(_ context.Context, spike Spike) error {
	doc, err := s.load()
	if err != nil {
		return err
	}

	doc.Spikes = append(doc.Spikes, spike)
	if overflow := len(doc.Spikes) - maxStoredSpikes; overflow > 0 {
		doc.Spikes = doc.Spikes[overflow:]
	}
	doc.LastUpdate = s.clk.Now()

	return s.save(doc)
}

// MostRecentReading returns the last appended reading, or nil when empty.
func (s *FileStore) MostRecentReading(_ context.Context) (*Reading, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	if len(doc.Readings) == 0 {
		return nil, nil
	}
	last := doc.Readings[len(doc.Readings)-1]
	return &last, nil
}

// ListRecentReadings returns up to limit readings, newest first.
func (s *FileStore) ListRecentReadings(_ context.Context, limit int) ([]Reading, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	n := len(doc.Readings)
	if limit > n {
		limit = n
	}
	result := make([]Reading, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		result = append(result, doc.Readings[i])
	}
	return result, nil
}

// ListReadingsBetween returns readings in [from, to), oldest first.
func (s *FileStore) ListReadingsBetween(_ context.Context, from, to time.Time) ([]Reading, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	result := make([]Reading, 0)
	for _, r := range doc.Readings {
		if !r.ObservedAt.Before(from) && r.ObservedAt.Before(to) {
			result = append(result, r)
		}
	}
	return result, nil
}

// ListRecentSpikes returns up to limit spikes, newest first.
func (s *FileStore) ListRecentSpikes(_ context.Context, limit int) ([]Spike, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	n := len(doc.Spikes)
	if limit > n {
		limit = n
	}
	result := make([]Spike, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		result = append(result, doc.Spikes[i])
	}
	return result, nil
}

func (s *FileStore) load() (document, error) {
	if s.path == "" {
		return document{}, ErrNotConfigured
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return document{}, nil
		}
		return document{}, fmt.Errorf("read dataset: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}, fmt.Errorf("decode dataset %s: %w", s.path, err)
	}
	return doc, nil
}

// save writes the document to a temp file in the same directory and renames
// it over the destination, so readers never observe a partial dataset.
func (s *FileStore) save(doc document) error {
	dir := filepath.Dir(s.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dataset directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp dataset: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp dataset: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace dataset: %w", err)
	}
	return nil
}

var (
	_ Sink           = (*FileStore)(nil)
	_ HistoryBrowser = (*FileStore)(nil)
)
