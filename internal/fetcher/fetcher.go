package fetcher

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// IndexFetcher retrieves the aggregated pizza index from the upstream
// popularity API, along with the raw payload for auditing.
type IndexFetcher interface {
	FetchIndex(ctx context.Context) (decimal.Decimal, json.RawMessage, error)
}
