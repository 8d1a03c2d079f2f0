// Package normalizer implements the single-consumer task that drains raw
// venue events and produces the unified HadronTick broadcast stream
// (spec.md §4.2).
package normalizer

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hadron-mkt/hadron/internal/broadcast"
	"github.com/hadron-mkt/hadron/internal/domain"
)

// Metrics receives resolution hit/miss counters for the health surface.
type Metrics interface {
	RecordResolutionHit()
	RecordResolutionMiss()
	RecordDrop(reason string)
}

type noopMetrics struct{}

func (noopMetrics) RecordResolutionHit()    {}
func (noopMetrics) RecordResolutionMiss()   {}
func (noopMetrics) RecordDrop(string)       {}

// Normalizer dispatches each RawEvent to a venue-specific Translator,
// resolving venue symbols to instrument ids along the way, and publishes
// resulting ticks onto a bounded broadcast channel.
type Normalizer struct {
	store      InstrumentStore
	warmCache  *SecondLevelCache
	broadcaster *broadcast.Broadcaster[domain.HadronTick]
	metrics    Metrics
	storeTimeout time.Duration

	mu    sync.RWMutex
	cache map[string]int64 // "source|ticker" -> instrument_id

	translators map[string]Translator
}

// New builds a Normalizer publishing onto a broadcast channel of the
// given capacity (spec.md recommends 10,000).
func New(store InstrumentStore, warmCache *SecondLevelCache, capacity int, metrics Metrics) *Normalizer {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Normalizer{
		store:        store,
		warmCache:    warmCache,
		broadcaster:  broadcast.New[domain.HadronTick](capacity),
		metrics:      metrics,
		storeTimeout: 5 * time.Second,
		cache:        make(map[string]int64),
		translators:  make(map[string]Translator),
	}
}

// RegisterTranslator binds a Translator to a venue source family (e.g.
// "polygon", "kalshi"). Unknown (source, venue) pairs are logged and
// dropped without error, per spec.md §4.2.
func (n *Normalizer) RegisterTranslator(source string, t Translator) {
	n.translators[source] = t
}

// Broadcaster exposes the tick fan-out for the router and recorder to
// subscribe to.
func (n *Normalizer) Broadcaster() *broadcast.Broadcaster[domain.HadronTick] {
	return n.broadcaster
}

// Run drains raw until ctx is cancelled, translating and publishing
// ticks. It is the sole writer to the broadcast channel, so
// normalizer-output-to-broadcast-input is strictly serial per spec.md §5.
func (n *Normalizer) Run(ctx context.Context, raw <-chan domain.RawEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("normalizer: run loop panicked, exiting")
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-raw:
			if !ok {
				return
			}
			n.handle(ctx, ev)
		}
	}
}

func (n *Normalizer) handle(ctx context.Context, ev domain.RawEvent) {
	translator, ok := n.translators[ev.Source]
	if !ok {
		log.Warn().Str("source", ev.Source).Str("venue", ev.Venue).Msg("normalizer: no translator for venue, dropping")
		n.metrics.RecordDrop("unknown_venue")
		return
	}

	resolve := func(ctx context.Context, ticker, assetClass string) (int64, error) {
		return n.resolve(ctx, ev.Source, ticker, assetClass)
	}

	tick, err := translator.Translate(ctx, ev, resolve)
	if err != nil {
		log.Warn().Err(err).Str("source", ev.Source).Msg("normalizer: translation error, dropping event")
		n.metrics.RecordDrop("translate_error")
		return
	}
	if tick == nil {
		return
	}
	n.broadcaster.Publish(*tick)
}

// resolve implements the cache -> store lookup -> auto-create sequence
// of spec.md §4.2, steps 1-3.
func (n *Normalizer) resolve(ctx context.Context, source, ticker, assetClass string) (int64, error) {
	key := source + "|" + ticker

	n.mu.RLock()
	if id, ok := n.cache[key]; ok {
		n.mu.RUnlock()
		n.metrics.RecordResolutionHit()
		return id, nil
	}
	n.mu.RUnlock()

	n.metrics.RecordResolutionMiss()

	if n.warmCache != nil {
		if id, ok := n.warmCache.Get(ctx, source, ticker); ok {
			n.cacheSet(key, id)
			return id, nil
		}
	}

	storeCtx, cancel := context.WithTimeout(ctx, n.storeTimeout)
	id, found, err := n.lookupWithRetry(storeCtx, source, ticker)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("normalizer: resolve %s/%s: %w", source, ticker, err)
	}
	if found {
		n.cacheSet(key, id)
		n.warmCacheSet(ctx, source, ticker, id)
		return id, nil
	}

	inst := domain.NewAutoCreatedInstrument(source, ticker, assetClass)
	insertCtx, cancel2 := context.WithTimeout(ctx, n.storeTimeout)
	id, found, err = n.insertWithRetry(insertCtx, inst)
	cancel2()
	if err != nil {
		return 0, fmt.Errorf("normalizer: auto-create %s/%s: %w", source, ticker, err)
	}
	if !found {
		// Lost the race to a concurrent first-sight insert; re-query and
		// adopt the winner's id (spec.md §9 "auto-create race").
		reselectCtx, cancel3 := context.WithTimeout(ctx, n.storeTimeout)
		id, found, err = n.store.Lookup(reselectCtx, source, ticker)
		cancel3()
		if err != nil || !found {
			return 0, fmt.Errorf("normalizer: re-select after insert conflict %s/%s: %w", source, ticker, err)
		}
	}

	n.cacheSet(key, id)
	n.warmCacheSet(ctx, source, ticker, id)
	return id, nil
}

// lookupWithRetry retries a transient store error once, per spec.md
// §4.2's "Store errors during auto-create are retried once."
func (n *Normalizer) lookupWithRetry(ctx context.Context, source, ticker string) (int64, bool, error) {
	id, found, err := n.store.Lookup(ctx, source, ticker)
	if err == nil {
		return id, found, nil
	}
	return n.store.Lookup(ctx, source, ticker)
}

func (n *Normalizer) insertWithRetry(ctx context.Context, inst domain.Instrument) (int64, bool, error) {
	id, found, err := n.store.Insert(ctx, inst)
	if err == nil {
		return id, found, nil
	}
	return n.store.Insert(ctx, inst)
}

func (n *Normalizer) cacheSet(key string, id int64) {
	n.mu.Lock()
	n.cache[key] = id
	n.mu.Unlock()
}

func (n *Normalizer) warmCacheSet(ctx context.Context, source, ticker string, id int64) {
	if n.warmCache == nil {
		return
	}
	n.warmCache.Set(ctx, source, ticker, id)
}
