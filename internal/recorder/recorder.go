// Package recorder drains the tick broadcast into batched transactional
// writes, and persists order intents/executions individually (spec.md
// §4.6).
package recorder

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hadron-mkt/hadron/internal/broadcast"
	"github.com/hadron-mkt/hadron/internal/domain"
)

// Flush thresholds recommended by spec.md §4.6.
const (
	DefaultBatchSize     = 100
	DefaultFlushInterval = 5 * time.Second
)

// TickStore persists a batch of ticks in a single transaction. Duplicates
// across replay/reconnect are tolerated — the tick table has no
// uniqueness constraint, it is a best-effort real-time log, not a
// guaranteed ledger (spec.md §8 resolves this Open Question).
type TickStore interface {
	InsertBatch(ctx context.Context, ticks []domain.HadronTick) error
}

// IntentStore persists individual intents and executions, one
// transaction per row (spec.md §4.6: "lower volume; written
// individually").
type IntentStore interface {
	InsertIntent(ctx context.Context, intent domain.OrderIntent) error
	InsertExecution(ctx context.Context, execution domain.OrderExecution) error
}

// Metrics receives recorder counters for the health surface.
type Metrics interface {
	ObserveBatchSize(n int)
	ObserveFlushLatency(d time.Duration)
	IncFlushFailure()
	IncLag(skipped int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveBatchSize(int)          {}
func (noopMetrics) ObserveFlushLatency(time.Duration) {}
func (noopMetrics) IncFlushFailure()              {}
func (noopMetrics) IncLag(int)                    {}

// TickBatcher accumulates ticks from the broadcast and flushes them on a
// size or time threshold, whichever comes first.
type TickBatcher struct {
	store         TickStore
	batchSize     int
	flushInterval time.Duration
	metrics       Metrics

	buf []domain.HadronTick
}

// NewTickBatcher builds a batcher. Zero values fall back to spec.md's
// recommended defaults (100 ticks / 5 s).
func NewTickBatcher(store TickStore, batchSize int, flushInterval time.Duration, metrics Metrics) *TickBatcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &TickBatcher{
		store:         store,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		metrics:       metrics,
		buf:           make([]domain.HadronTick, 0, batchSize),
	}
}

// Run subscribes to the broadcast and drains it until ctx is cancelled,
// performing a final flush before returning (spec.md §8's resolved
// shutdown Open Question: one last drain-flush, never waiting past the
// consumer's current lag).
//
// A background goroutine turns sub.Recv's blocking, lag-detecting
// protocol into a plain channel so the main loop can race it against the
// flush timer and cancellation in one select (the size/time "whichever
// first" threshold of spec.md §4.6).
func (b *TickBatcher) Run(ctx context.Context, sub *broadcast.Subscriber[domain.HadronTick]) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recorder: run loop panicked, exiting")
		}
	}()

	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	ticks := make(chan domain.HadronTick)
	go b.pump(ctx, sub, ticks)

	for {
		select {
		case <-ctx.Done():
			b.flush(context.Background())
			return
		case <-ticker.C:
			b.flush(ctx)
		case tick, ok := <-ticks:
			if !ok {
				b.flush(context.Background())
				return
			}
			b.buf = append(b.buf, tick)
			if len(b.buf) >= b.batchSize {
				b.flush(ctx)
			}
		}
	}
}

// pump forwards ticks from sub onto out, logging and resuming on lag,
// and closes out once ctx is cancelled or the broadcast is closed.
func (b *TickBatcher) pump(ctx context.Context, sub *broadcast.Subscriber[domain.HadronTick], out chan<- domain.HadronTick) {
	defer close(out)
	for {
		tick, err := sub.Recv(ctx)
		if err != nil {
			var lagged *broadcast.Lagged
			if errors.As(err, &lagged) {
				log.Warn().Int("skipped", lagged.Skipped).Msg("recorder: broadcast lag, resuming")
				b.metrics.IncLag(lagged.Skipped)
				continue
			}
			return
		}
		select {
		case out <- tick:
		case <-ctx.Done():
			return
		}
	}
}

// flush writes the current batch in one transaction, retrying once on
// failure and dropping the batch on a second failure (spec.md §4.6: "the
// pipeline must not block").
func (b *TickBatcher) flush(ctx context.Context) {
	if len(b.buf) == 0 {
		return
	}
	batch := b.buf
	b.buf = make([]domain.HadronTick, 0, b.batchSize)

	b.metrics.ObserveBatchSize(len(batch))
	start := time.Now()

	err := b.store.InsertBatch(ctx, batch)
	if err != nil {
		log.Warn().Err(err).Int("batch_size", len(batch)).Msg("recorder: tick batch flush failed, retrying once")
		err = b.store.InsertBatch(ctx, batch)
	}
	b.metrics.ObserveFlushLatency(time.Since(start))

	if err != nil {
		b.metrics.IncFlushFailure()
		log.Error().Err(err).Int("batch_size", len(batch)).Msg("recorder: tick batch dropped after retry")
	}
}

// IntentWriter persists intents and executions individually, satisfying
// gateway.IntentRecorder.
type IntentWriter struct {
	store IntentStore
}

// NewIntentWriter builds an IntentWriter over the given store.
func NewIntentWriter(store IntentStore) *IntentWriter {
	return &IntentWriter{store: store}
}

func (w *IntentWriter) RecordIntent(ctx context.Context, intent domain.OrderIntent) error {
	return w.store.InsertIntent(ctx, intent)
}

func (w *IntentWriter) RecordExecution(ctx context.Context, execution domain.OrderExecution) error {
	return w.store.InsertExecution(ctx, execution)
}
