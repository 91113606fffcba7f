package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyPayload indicates the upstream returned zero locations; the
	// mean is undefined and the tick must fail rather than propagate NaN.
	ErrEmptyPayload = errors.New("fetcher: upstream returned no locations")
	// ErrMalformedPayload indicates the upstream response does not match the
	// expected shape.
	ErrMalformedPayload = errors.New("fetcher: upstream payload has unexpected shape")
)

// UpstreamOptions parameterise the popularity API client.
type UpstreamOptions struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
}

// Upstream fetches location popularity from the public pizza index API.
type Upstream struct {
	opts   UpstreamOptions
	logger zerolog.Logger
	client *http.Client
}

// NewUpstream constructs an upstream fetcher.
func NewUpstream(opts UpstreamOptions, logger zerolog.Logger) *Upstream {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Upstream{
		opts:   opts,
		logger: logger.With().Str("component", "upstream_fetcher").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

type locationsEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type locationRecord struct {
	Name              string   `json:"name"`
	CurrentPopularity *float64 `json:"current_popularity"`
}

// FetchIndex retrieves the location list and reduces it to the mean
// popularity across all locations.
func (u *Upstream) FetchIndex(ctx context.Context) (decimal.Decimal, json.RawMessage, error) {
	if u.opts.URL == "" {
		return decimal.Decimal{}, nil, errors.New("upstream url not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.opts.URL, nil)
	if err != nil {
		return decimal.Decimal{}, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(u.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "pizzawatcher/1.0")
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return decimal.Decimal{}, nil, fmt.Errorf("fetch upstream: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Decimal{}, nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, nil, fmt.Errorf("upstream error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var envelope locationsEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return decimal.Decimal{}, nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if !envelope.Success {
		return decimal.Decimal{}, nil, errors.New("upstream reported success=false")
	}
	if len(envelope.Data) == 0 {
		return decimal.Decimal{}, nil, fmt.Errorf("%w: missing data field", ErrMalformedPayload)
	}

	var records []locationRecord
	if err := json.Unmarshal(envelope.Data, &records); err != nil {
		return decimal.Decimal{}, nil, fmt.Errorf("%w: data is not a location list", ErrMalformedPayload)
	}

	index, err := meanPopularity(records)
	if err != nil {
		return decimal.Decimal{}, nil, err
	}

	u.logger.Debug().Int("locations", len(records)).Str("index", index.String()).Msg("aggregated upstream payload")
	return index, json.RawMessage(payload), nil
}

// meanPopularity averages popularity across locations. A missing or null
// popularity counts as zero and stays in the denominator; the spike
// thresholds are calibrated against that policy.
func meanPopularity(records []locationRecord) (decimal.Decimal, error) {
	if len(records) == 0 {
		return decimal.Decimal{}, ErrEmptyPayload
	}

	sum := decimal.Zero
	for _, rec := range records {
		if rec.CurrentPopularity == nil {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(*rec.CurrentPopularity))
	}

	return sum.Div(decimal.NewFromInt(int64(len(records)))), nil
}

var _ IndexFetcher = (*Upstream)(nil)
