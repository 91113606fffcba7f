package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pizza-index-watcher/internal/alerting"
	"pizza-index-watcher/internal/clock"
	"pizza-index-watcher/internal/fetcher"
	"pizza-index-watcher/internal/scheduler"
	"pizza-index-watcher/internal/spike"
	"pizza-index-watcher/internal/storage"
	"pizza-index-watcher/internal/timeclass"
)

// Status classifies the outcome of one collection tick.
type Status string

const (
	// StatusSuccess means a new reading was persisted.
	StatusSuccess Status = "success"
	// StatusSkipped means a reading already existed for the minute-bucket;
	// a benign no-op, not a failure.
	StatusSkipped Status = "skipped"
	// StatusError means the tick failed; the next scheduled tick is the
	// sole recovery mechanism.
	StatusError Status = "error"
)

// TickResult summarises one run of the ingestion pipeline.
type TickResult struct {
	Status     Status
	Index      decimal.Decimal
	SpikeFired bool
}

// Service orchestrates one ingestion pipeline run per scheduling tick:
// classify the instant, aggregate the upstream payload, guard against
// duplicates, detect spikes, and persist.
type Service struct {
	scheduler *scheduler.Scheduler
	fetch     fetcher.IndexFetcher
	sink      storage.Sink
	notifier  alerting.Notifier
	clk       clock.Clock
	logger    zerolog.Logger
	alertsOn  bool
}

// New constructs the collection service.
func New(sched *scheduler.Scheduler, fetch fetcher.IndexFetcher, sink storage.Sink, notifier alerting.Notifier, clk clock.Clock, alertsOn bool, logger zerolog.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{
		scheduler: sched,
		fetch:     fetch,
		sink:      sink,
		notifier:  notifier,
		clk:       clk,
		logger:    logger.With().Str("component", "service").Logger(),
		alertsOn:  alertsOn,
	}
}

// Run begins the scheduled collection loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, func(ctx context.Context, _ time.Time) error {
		result, err := s.ProcessTick(ctx)
		if err != nil {
			return err
		}
		if result.Status == StatusSkipped {
			s.logger.Debug().Msg("tick skipped: reading already recorded for this minute")
		}
		return nil
	})
}

// ProcessTick 执行一次完整的采集流水线。
func (s *Service) ProcessTick(ctx context.Context) (TickResult, error) {
	if s.sink == nil {
		return TickResult{Status: StatusError}, storage.ErrNotConfigured
	}

	now := s.clk.Now()
	cls := timeclass.Classify(now)

	index, raw, err := s.fetch.FetchIndex(ctx)
	if err != nil {
		return TickResult{Status: StatusError}, fmt.Errorf("fetch index: %w", err)
	}

	prev, err := s.sink.MostRecentReading(ctx)
	if err != nil {
		return TickResult{Status: StatusError}, fmt.Errorf("load previous reading: %w", err)
	}

	if prev != nil && storage.SameMinute(prev.ObservedAt, now) {
		return TickResult{Status: StatusSkipped, Index: index}, nil
	}

	reading := storage.Reading{
		ObservedAt: now,
		IndexValue: index,
		HourOfDay:  cls.HourOfDay,
		Weekday:    cls.Weekday,
		IsOvertime: cls.IsOvertime,
		IsWeekend:  cls.IsWeekend,
		RawPayload: raw,
		CreatedAt:  now,
	}

	if err := s.sink.AppendReading(ctx, reading); err != nil {
		if errors.Is(err, storage.ErrDuplicateReading) {
			// a concurrent writer won the minute-bucket; benign
			return TickResult{Status: StatusSkipped, Index: index}, nil
		}
		return TickResult{Status: StatusError}, fmt.Errorf("append reading: %w", err)
	}

	s.logger.Info().Time("observed_at", now).
		Str("index", index.StringFixed(2)).
		Int("hour", cls.HourOfDay).
		Int("weekday", cls.Weekday).
		Bool("overtime", cls.IsOvertime).
		Bool("weekend", cls.IsWeekend).
		Msg("reading recorded")

	result := TickResult{Status: StatusSuccess, Index: index}

	if prev != nil {
		result.SpikeFired = s.handleSpike(ctx, prev.IndexValue, reading)
	}

	return result, nil
}

// handleSpike evaluates the transition and, when flagged, records and
// notifies best-effort. The reading is already committed, so nothing here
// can fail the tick.
func (s *Service) handleSpike(ctx context.Context, from decimal.Decimal, reading storage.Reading) bool {
	res := spike.Evaluate(from, reading.IndexValue)
	if !res.IsSpike {
		return false
	}

	record := storage.Spike{
		ObservedAt:   reading.ObservedAt,
		IndexFrom:    from,
		IndexTo:      reading.IndexValue,
		ChangeAmount: res.Change,
		IsOvertime:   reading.IsOvertime,
		IsWeekend:    reading.IsWeekend,
		Notes:        res.Note(),
	}

	if err := s.sink.AppendSpike(ctx, record); err != nil {
		s.logger.Error().Err(err).Time("observed_at", reading.ObservedAt).Msg("failed to persist spike record")
	}

	s.logger.Warn().Time("observed_at", reading.ObservedAt).
		Str("from", from.StringFixed(2)).
		Str("to", reading.IndexValue.StringFixed(2)).
		Str("reason", res.Reason).
		Msg("spike detected")

	if s.alertsOn && s.notifier != nil {
		note := alerting.Notification{
			ObservedAt:   reading.ObservedAt,
			IndexFrom:    from,
			IndexTo:      reading.IndexValue,
			ChangeAmount: res.Change,
			Reason:       res.Reason,
			IsOvertime:   reading.IsOvertime,
			IsWeekend:    reading.IsWeekend,
		}
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).Time("observed_at", reading.ObservedAt).Msg("failed to dispatch alert")
		}
	}

	return true
}
