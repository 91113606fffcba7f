package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	insertReadingSQL = `INSERT INTO pizza_readings (
        observed_at,
        index_value,
        dc_hour,
        dc_weekday,
        is_overtime,
        is_weekend,
        raw_data
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    );`

	insertSpikeSQL = `INSERT INTO pizza_spikes (
        observed_at,
        index_from,
        index_to,
        change_amount,
        is_overtime,
        is_weekend,
        notes
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    );`

	mostRecentReadingSQL = `SELECT
        observed_at,
        index_value,
        dc_hour,
        dc_weekday,
        is_overtime,
        is_weekend,
        raw_data,
        created_at
    FROM pizza_readings
    ORDER BY observed_at DESC
    LIMIT 1;`

	listRecentReadingsSQL = `SELECT
        observed_at,
        index_value,
        dc_hour,
        dc_weekday,
        is_overtime,
        is_weekend,
        raw_data,
        created_at
    FROM pizza_readings
    ORDER BY observed_at DESC
    LIMIT $1;`

	listReadingsBetweenSQL = `SELECT
        observed_at,
        index_value,
        dc_hour,
        dc_weekday,
        is_overtime,
        is_weekend,
        raw_data,
        created_at
    FROM pizza_readings
    WHERE observed_at >= $1
      AND observed_at < $2
    ORDER BY observed_at;`

	listRecentSpikesSQL = `SELECT
        observed_at,
        index_from,
        index_to,
        change_amount,
        is_overtime,
        is_weekend,
        notes,
        created_at
    FROM pizza_spikes
    ORDER BY observed_at DESC
    LIMIT $1;`

	countReadingsSQL = `SELECT COUNT(*) FROM pizza_readings;`

	refreshHourlySQL = `INSERT INTO hourly_patterns (hour, avg_index, min_index, max_index, stddev_index, sample_count)
    SELECT dc_hour,
           AVG(index_value),
           MIN(index_value),
           MAX(index_value),
           COALESCE(STDDEV(index_value), 0),
           COUNT(*)
    FROM pizza_readings
    GROUP BY dc_hour;`

	refreshWeekdaySQL = `INSERT INTO weekday_patterns (weekday, avg_index, min_index, max_index, stddev_index, sample_count)
    SELECT dc_weekday,
           AVG(index_value),
           MIN(index_value),
           MAX(index_value),
           COALESCE(STDDEV(index_value), 0),
           COUNT(*)
    FROM pizza_readings
    GROUP BY dc_weekday;`

	listHourlyPatternsSQL = `SELECT hour, avg_index, min_index, max_index, stddev_index, sample_count
    FROM hourly_patterns ORDER BY hour;`

	listWeekdayPatternsSQL = `SELECT weekday, avg_index, min_index, max_index, stddev_index, sample_count
    FROM weekday_patterns ORDER BY weekday;`

	latestForecastSQL = `SELECT observed_at, index_value, hourly_avg, weekday_avg, blended_forecast
    FROM pizza_forecast
    ORDER BY observed_at DESC
    LIMIT $1;`
)

// PostgresStore persists readings and spikes in PostgreSQL. The unique
// minute index on pizza_readings turns concurrent-writer collisions into
// ErrDuplicateReading instead of a second row.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wires a pgx pool into a store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *PostgresStore) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// AppendReading inserts a reading and recomputes the hourly/weekday
// patterns in the same transaction. A minute-bucket collision rolls back
// and surfaces as ErrDuplicateReading.
func (s *PostgresStore) AppendReading(ctx context.Context, reading Reading) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin append reading: %w", err)
	}
	defer tx.Rollback(ctx)

	var raw interface{}
	if len(reading.RawPayload) > 0 {
		raw = []byte(reading.RawPayload)
	}

	_, execErr := tx.Exec(ctx, insertReadingSQL,
		reading.ObservedAt,
		reading.IndexValue.String(),
		reading.HourOfDay,
		reading.Weekday,
		reading.IsOvertime,
		reading.IsWeekend,
		raw,
	)
	if execErr != nil {
		if isUniqueViolation(execErr) {
			return ErrDuplicateReading
		}
		return fmt.Errorf("insert reading: %w", execErr)
	}

	for _, stmt := range []string{
		`DELETE FROM hourly_patterns;`,
		refreshHourlySQL,
		`DELETE FROM weekday_patterns;`,
		refreshWeekdaySQL,
	} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("refresh patterns: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit append reading: %w", err)
	}
	return nil
}

// AppendSpike inserts a spike record. Independent of the reading write.
func (s *PostgresStore) AppendSpike(ctx context.Context, spike Spike) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var notes interface{}
	if spike.Notes != "" {
		notes = spike.Notes
	}

	_, execErr := pool.Exec(ctx, insertSpikeSQL,
		spike.ObservedAt,
		spike.IndexFrom.String(),
		spike.IndexTo.String(),
		spike.ChangeAmount.String(),
		spike.IsOvertime,
		spike.IsWeekend,
		notes,
	)
	if execErr != nil {
		return fmt.Errorf("insert spike: %w", execErr)
	}
	return nil
}

// MostRecentReading returns the latest stored reading, or nil when empty.
func (s *PostgresStore) MostRecentReading(ctx context.Context) (*Reading, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, mostRecentReadingSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("most recent reading: %w", queryErr)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	reading, scanErr := scanReading(rows)
	if scanErr != nil {
		return nil, scanErr
	}
	return &reading, rows.Err()
}

// ListRecentReadings lists the most recent readings, newest first.
func (s *PostgresStore) ListRecentReadings(ctx context.Context, limit int) ([]Reading, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentReadingsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent readings: %w", queryErr)
	}
	defer rows.Close()

	return collectReadings(rows, limit)
}

// ListReadingsBetween lists readings within a half-open time window.
func (s *PostgresStore) ListReadingsBetween(ctx context.Context, from, to time.Time) ([]Reading, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listReadingsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list readings between: %w", queryErr)
	}
	defer rows.Close()

	return collectReadings(rows, 0)
}

// ListRecentSpikes lists the most recent spikes, newest first.
func (s *PostgresStore) ListRecentSpikes(ctx context.Context, limit int) ([]Spike, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSpikesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent spikes: %w", queryErr)
	}
	defer rows.Close()

	spikes := make([]Spike, 0, limit)
	for rows.Next() {
		var (
			rec       Spike
			fromStr   string
			toStr     string
			changeStr string
			notes     *string
		)
		if err := rows.Scan(
			&rec.ObservedAt,
			&fromStr,
			&toStr,
			&changeStr,
			&rec.IsOvertime,
			&rec.IsWeekend,
			&notes,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}

		var convErr error
		if rec.IndexFrom, convErr = decimal.NewFromString(fromStr); convErr != nil {
			return nil, fmt.Errorf("parse index_from: %w", convErr)
		}
		if rec.IndexTo, convErr = decimal.NewFromString(toStr); convErr != nil {
			return nil, fmt.Errorf("parse index_to: %w", convErr)
		}
		if rec.ChangeAmount, convErr = decimal.NewFromString(changeStr); convErr != nil {
			return nil, fmt.Errorf("parse change_amount: %w", convErr)
		}
		if notes != nil {
			rec.Notes = *notes
		}

		spikes = append(spikes, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return spikes, nil
}

// CountReadings counts stored readings.
func (s *PostgresStore) CountReadings(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countReadingsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count readings: %w", scanErr)
	}
	return count, nil
}

// HourlyPatterns lists the hourly aggregates.
func (s *PostgresStore) HourlyPatterns(ctx context.Context) ([]HourlyPattern, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listHourlyPatternsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list hourly patterns: %w", queryErr)
	}
	defer rows.Close()

	patterns := make([]HourlyPattern, 0, 24)
	for rows.Next() {
		var (
			p   HourlyPattern
			agg [4]string
		)
		if err := rows.Scan(&p.Hour, &agg[0], &agg[1], &agg[2], &agg[3], &p.SampleCount); err != nil {
			return nil, err
		}
		if err := parseAggregates(agg, &p.AvgIndex, &p.MinIndex, &p.MaxIndex, &p.StddevIndex); err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// WeekdayPatterns lists the weekday aggregates.
func (s *PostgresStore) WeekdayPatterns(ctx context.Context) ([]WeekdayPattern, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listWeekdayPatternsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list weekday patterns: %w", queryErr)
	}
	defer rows.Close()

	patterns := make([]WeekdayPattern, 0, 7)
	for rows.Next() {
		var (
			p   WeekdayPattern
			agg [4]string
		)
		if err := rows.Scan(&p.Weekday, &agg[0], &agg[1], &agg[2], &agg[3], &p.SampleCount); err != nil {
			return nil, err
		}
		if err := parseAggregates(agg, &p.AvgIndex, &p.MinIndex, &p.MaxIndex, &p.StddevIndex); err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// LatestForecast reads the newest rows of the pizza_forecast view.
func (s *PostgresStore) LatestForecast(ctx context.Context, limit int) ([]ForecastRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, latestForecastSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("latest forecast: %w", queryErr)
	}
	defer rows.Close()

	result := make([]ForecastRow, 0, limit)
	for rows.Next() {
		var (
			row ForecastRow
			agg [4]string
		)
		if err := rows.Scan(&row.ObservedAt, &agg[0], &agg[1], &agg[2], &agg[3]); err != nil {
			return nil, err
		}
		if err := parseAggregates(agg, &row.IndexValue, &row.HourlyAvg, &row.WeekdayAvg, &row.Blended); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func collectReadings(rows pgx.Rows, hint int) ([]Reading, error) {
	readings := make([]Reading, 0, hint)
	for rows.Next() {
		reading, scanErr := scanReading(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		readings = append(readings, reading)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return readings, nil
}

func scanReading(rows pgx.Rows) (Reading, error) {
	var (
		reading  Reading
		indexStr string
		raw      []byte
	)

	if err := rows.Scan(
		&reading.ObservedAt,
		&indexStr,
		&reading.HourOfDay,
		&reading.Weekday,
		&reading.IsOvertime,
		&reading.IsWeekend,
		&raw,
		&reading.CreatedAt,
	); err != nil {
		return Reading{}, err
	}

	index, err := decimal.NewFromString(indexStr)
	if err != nil {
		return Reading{}, fmt.Errorf("parse index_value: %w", err)
	}
	reading.IndexValue = index
	if len(raw) > 0 {
		reading.RawPayload = json.RawMessage(raw)
	}

	return reading, nil
}

func parseAggregates(src [4]string, dst ...*decimal.Decimal) error {
	for i, s := range src {
		value, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("parse aggregate column %d: %w", i, err)
		}
		*dst[i] = value
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

var (
	_ Sink           = (*PostgresStore)(nil)
	_ HistoryBrowser = (*PostgresStore)(nil)
	_ PatternReader  = (*PostgresStore)(nil)
)
