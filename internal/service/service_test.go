package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pizza-index-watcher/internal/alerting"
	"pizza-index-watcher/internal/clock"
	"pizza-index-watcher/internal/storage"
)

type staticFetcher struct {
	index decimal.Decimal
	err   error
}

func (f *staticFetcher) FetchIndex(ctx context.Context) (decimal.Decimal, json.RawMessage, error) {
	if f.err != nil {
		return decimal.Decimal{}, nil, f.err
	}
	return f.index, json.RawMessage(`{"success":true,"data":[]}`), nil
}

type memorySink struct {
	readings []storage.Reading
	spikes   []storage.Spike
	spikeErr error
}

func (m *memorySink) AppendReading(ctx context.Context, r storage.Reading) error {
	if n := len(m.readings); n > 0 && storage.SameMinute(m.readings[n-1].ObservedAt, r.ObservedAt) {
		return storage.ErrDuplicateReading
	}
	m.readings = append(m.readings, r)
	return nil
}

func (m *memorySink) AppendSpike(ctx context.Context, s storage.Spike) error {
	if m.spikeErr != nil {
		return m.spikeErr
	}
	m.spikes = append(m.spikes, s)
	return nil
}

func (m *memorySink) MostRecentReading(ctx context.Context) (*storage.Reading, error) {
	if len(m.readings) == 0 {
		return nil, nil
	}
	last := m.readings[len(m.readings)-1]
	return &last, nil
}

func (m *memorySink) Close() {}

type recordingNotifier struct {
	notes []alerting.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, n alerting.Notification) error {
	r.notes = append(r.notes, n)
	return nil
}

// 19:00Z maps to 14:00 Wednesday in the reference zone.
var baseInstant = time.Date(2024, time.January, 10, 19, 0, 0, 0, time.UTC)

func newTestService(sink storage.Sink, fetch *staticFetcher, notifier alerting.Notifier, at time.Time) *Service {
	return New(nil, fetch, sink, notifier, clock.Fixed{Instant: at}, notifier != nil, zerolog.Nop())
}

func TestProcessTickFirstReading(t *testing.T) {
	sink := &memorySink{}
	svc := newTestService(sink, &staticFetcher{index: decimal.NewFromInt(50)}, nil, baseInstant)

	result, err := svc.ProcessTick(context.Background())
	if err != nil {
		t.Fatalf("首次采集不应报错: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("期望 success, 实际 %s", result.Status)
	}
	if result.SpikeFired {
		t.Fatal("无前值时不应触发 spike")
	}
	if len(sink.readings) != 1 {
		t.Fatalf("应持久化 1 条 reading, 实际 %d", len(sink.readings))
	}

	r := sink.readings[0]
	if r.HourOfDay != 14 || r.Weekday != 3 || r.IsOvertime || r.IsWeekend {
		t.Fatalf("时间分类不正确: %+v", r)
	}
	if !r.IndexValue.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("指数应为 50, 实际 %s", r.IndexValue.String())
	}
	if len(r.RawPayload) == 0 {
		t.Fatal("raw payload 应被保留")
	}
}

func TestProcessTickIdempotentWithinMinute(t *testing.T) {
	sink := &memorySink{}
	fetch := &staticFetcher{index: decimal.NewFromInt(50)}
	svc := newTestService(sink, fetch, nil, baseInstant)

	ctx := context.Background()
	if _, err := svc.ProcessTick(ctx); err != nil {
		t.Fatalf("第一次采集失败: %v", err)
	}

	// identical instant within the same minute
	result, err := svc.ProcessTick(ctx)
	if err != nil {
		t.Fatalf("重复采集不应报错: %v", err)
	}
	if result.Status != StatusSkipped {
		t.Fatalf("期望 skipped, 实际 %s", result.Status)
	}
	if len(sink.readings) != 1 {
		t.Fatalf("同一分钟应只有 1 条 reading, 实际 %d", len(sink.readings))
	}
}

func TestProcessTickAcrossMinuteBoundary(t *testing.T) {
	sink := &memorySink{}
	fetch := &staticFetcher{index: decimal.NewFromInt(50)}

	ctx := context.Background()
	first := time.Date(2024, time.January, 10, 19, 0, 59, 0, time.UTC)
	if _, err := newTestService(sink, fetch, nil, first).ProcessTick(ctx); err != nil {
		t.Fatalf("第一次采集失败: %v", err)
	}

	// one second later, but in the next minute-bucket
	second := first.Add(time.Second)
	result, err := newTestService(sink, fetch, nil, second).ProcessTick(ctx)
	if err != nil {
		t.Fatalf("跨分钟采集失败: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("跨分钟应为 success, 实际 %s", result.Status)
	}
	if len(sink.readings) != 2 {
		t.Fatalf("应有 2 条 reading, 实际 %d", len(sink.readings))
	}
}

func TestProcessTickSpikeDetection(t *testing.T) {
	sink := &memorySink{}
	fetch := &staticFetcher{index: decimal.NewFromInt(48)}
	notifier := &recordingNotifier{}

	ctx := context.Background()
	if _, err := newTestService(sink, fetch, notifier, baseInstant).ProcessTick(ctx); err != nil {
		t.Fatalf("第一次采集失败: %v", err)
	}

	fetch.index = decimal.NewFromInt(75)
	result, err := newTestService(sink, fetch, notifier, baseInstant.Add(10*time.Minute)).ProcessTick(ctx)
	if err != nil {
		t.Fatalf("第二次采集失败: %v", err)
	}
	if !result.SpikeFired {
		t.Fatal("48 -> 75 应触发 spike")
	}
	if len(sink.spikes) != 1 {
		t.Fatalf("应持久化 1 条 spike, 实际 %d", len(sink.spikes))
	}

	s := sink.spikes[0]
	if !s.IndexFrom.Equal(decimal.NewFromInt(48)) || !s.IndexTo.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("spike 数值不正确: %+v", s)
	}
	if !s.ChangeAmount.Equal(decimal.NewFromInt(27)) {
		t.Fatalf("change 应为 27, 实际 %s", s.ChangeAmount.String())
	}
	if len(notifier.notes) != 1 {
		t.Fatalf("应发送 1 条告警, 实际 %d", len(notifier.notes))
	}
}

func TestProcessTickNoSpikeOnModestRise(t *testing.T) {
	sink := &memorySink{}
	fetch := &staticFetcher{index: decimal.NewFromInt(60)}

	ctx := context.Background()
	if _, err := newTestService(sink, fetch, nil, baseInstant).ProcessTick(ctx); err != nil {
		t.Fatalf("第一次采集失败: %v", err)
	}

	fetch.index = decimal.NewFromInt(65)
	result, err := newTestService(sink, fetch, nil, baseInstant.Add(10*time.Minute)).ProcessTick(ctx)
	if err != nil {
		t.Fatalf("第二次采集失败: %v", err)
	}
	if result.SpikeFired {
		t.Fatal("60 -> 65 不应触发 spike")
	}
	if len(sink.spikes) != 0 {
		t.Fatalf("不应持久化 spike, 实际 %d", len(sink.spikes))
	}
}

func TestProcessTickSpikeWriteFailureDoesNotFailTick(t *testing.T) {
	sink := &memorySink{spikeErr: errors.New("disk full")}
	fetch := &staticFetcher{index: decimal.NewFromInt(40)}

	ctx := context.Background()
	if _, err := newTestService(sink, fetch, nil, baseInstant).ProcessTick(ctx); err != nil {
		t.Fatalf("第一次采集失败: %v", err)
	}

	fetch.index = decimal.NewFromInt(80)
	result, err := newTestService(sink, fetch, nil, baseInstant.Add(10*time.Minute)).ProcessTick(ctx)
	if err != nil {
		t.Fatalf("spike 写入失败不应导致 tick 失败: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("期望 success, 实际 %s", result.Status)
	}
	if !result.SpikeFired {
		t.Fatal("spike 仍应被判定为触发")
	}
	if len(sink.readings) != 2 {
		t.Fatalf("reading 应已提交, 实际 %d", len(sink.readings))
	}
}

func TestProcessTickFetchFailure(t *testing.T) {
	sink := &memorySink{}
	fetch := &staticFetcher{err: errors.New("connection refused")}

	result, err := newTestService(sink, fetch, nil, baseInstant).ProcessTick(context.Background())
	if err == nil {
		t.Fatal("上游失败应返回错误")
	}
	if result.Status != StatusError {
		t.Fatalf("期望 error, 实际 %s", result.Status)
	}
	if len(sink.readings) != 0 {
		t.Fatal("失败的 tick 不应写入 reading")
	}
}
