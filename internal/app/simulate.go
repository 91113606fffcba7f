package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"pizza-index-watcher/internal/fetcher"
	"pizza-index-watcher/internal/service"
	"pizza-index-watcher/internal/storage"
)

// SimulateTick 用给定的 popularity 列表模拟一次完整采集，包括 spike 判定与
// 告警链路。Nothing touches the configured backend: the tick runs against an
// in-memory sink, optionally seeded with a previous index value so the spike
// detector has a baseline.
func (a *App) SimulateTick(ctx context.Context, popularity []float64, previous *float64) error {
	sink := &simSink{}
	if previous != nil {
		sink.prev = &storage.Reading{
			ObservedAt: a.Clock.Now().Add(-10 * time.Minute),
			IndexValue: decimal.NewFromFloat(*previous),
		}
	}

	fetch := &staticPayloadFetcher{popularity: popularity}
	svc := service.New(nil, fetch, sink, a.newNotifier(), a.Clock, a.Config.Alerting.Enabled, a.Logger)

	result, err := svc.ProcessTick(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "status=%s index=%s spike=%t\n", result.Status, result.Index.StringFixed(2), result.SpikeFired)
	return nil
}

type simSink struct {
	prev *storage.Reading
}

func (s *simSink) AppendReading(_ context.Context, _ storage.Reading) error { return nil }

func (s *simSink) AppendSpike(_ context.Context, _ storage.Spike) error { return nil }

func (s *simSink) MostRecentReading(_ context.Context) (*storage.Reading, error) {
	return s.prev, nil
}

func (s *simSink) Close() {}

type staticPayloadFetcher struct {
	popularity []float64
}

func (f *staticPayloadFetcher) FetchIndex(_ context.Context) (decimal.Decimal, json.RawMessage, error) {
	if len(f.popularity) == 0 {
		return decimal.Decimal{}, nil, fetcher.ErrEmptyPayload
	}
	sum := decimal.Zero
	for _, p := range f.popularity {
		sum = sum.Add(decimal.NewFromFloat(p))
	}
	raw, _ := json.Marshal(map[string]any{"success": true, "simulated": true})
	return sum.Div(decimal.NewFromInt(int64(len(f.popularity)))), raw, nil
}

var (
	_ storage.Sink         = (*simSink)(nil)
	_ fetcher.IndexFetcher = (*staticPayloadFetcher)(nil)
)
