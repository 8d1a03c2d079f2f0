// Package router classifies each tick into a (priority, shard) pair and
// dispatches it to the appropriate bounded per-shard queue (spec.md §4.3).
package router

import (
	"context"
	"errors"
	"hash/fnv"
	"runtime/debug"

	"github.com/rs/zerolog/log"

	"github.com/hadron-mkt/hadron/internal/broadcast"
	"github.com/hadron-mkt/hadron/internal/domain"
)

// Policy classifies a tick's priority. The default (MVP) policy is
// stateless; position-awareness and watchlist membership can be added by
// providing a different Policy without changing Router's interface.
type Policy interface {
	Classify(tick domain.HadronTick) domain.Priority
}

// DefaultPolicy implements spec.md §4.3's MVP mapping: Trade->FAST,
// Quote->WARM, BookUpdate->WARM, Other->DROP.
type DefaultPolicy struct{}

func (DefaultPolicy) Classify(tick domain.HadronTick) domain.Priority {
	switch tick.TickType {
	case domain.TickTrade:
		return domain.PriorityFast
	case domain.TickQuote, domain.TickBookUpdate:
		return domain.PriorityWarm
	default:
		return domain.PriorityDrop
	}
}

// ShardQueues holds one bounded queue per live priority class for a
// single shard.
type ShardQueues struct {
	Fast chan domain.HadronTick
	Warm chan domain.HadronTick
	Cold chan domain.HadronTick
}

// Recommended capacities from spec.md §4.3/§5.
const (
	FastCapacity = 10_000
	WarmCapacity = 1_000
	ColdCapacity = 100
)

func newShardQueues() *ShardQueues {
	return &ShardQueues{
		Fast: make(chan domain.HadronTick, FastCapacity),
		Warm: make(chan domain.HadronTick, WarmCapacity),
		Cold: make(chan domain.HadronTick, ColdCapacity),
	}
}

// Metrics receives router-level counters for the health surface.
type Metrics interface {
	SetQueueDepth(shard int, priority domain.Priority, depth int)
	IncDrop(priority domain.Priority)
	IncLag(skipped int)
}

type noopMetrics struct{}

func (noopMetrics) SetQueueDepth(int, domain.Priority, int) {}
func (noopMetrics) IncDrop(domain.Priority)                 {}
func (noopMetrics) IncLag(int)                              {}

// Router classifies and shards the tick broadcast stream.
type Router struct {
	numShards int
	shards    []*ShardQueues
	policy    Policy
	metrics   Metrics
}

// New creates a Router with numShards shard queue sets and the given
// classification policy (DefaultPolicy if nil).
func New(numShards int, policy Policy, metrics Metrics) *Router {
	if numShards <= 0 {
		numShards = 1
	}
	if policy == nil {
		policy = DefaultPolicy{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	shards := make([]*ShardQueues, numShards)
	for i := range shards {
		shards[i] = newShardQueues()
	}
	return &Router{numShards: numShards, shards: shards, policy: policy, metrics: metrics}
}

// Shard returns the queue set for shard i. Panics if out of range — a
// caller bug, not a runtime condition to recover from.
func (r *Router) Shard(i int) *ShardQueues {
	return r.shards[i]
}

// NumShards reports the configured shard count.
func (r *Router) NumShards() int {
	return r.numShards
}

// ShardFor hashes instrumentID to a shard in [0, N). The same instrument
// always lands on the same shard (spec.md §4.3).
func ShardFor(instrumentID int64, numShards int) int {
	h := fnv.New64a()
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(instrumentID >> (8 * i))
	}
	_, _ = h.Write(buf[:])
	return int(h.Sum64() % uint64(numShards))
}

// Run drains sub until ctx is cancelled, classifying and dispatching each
// tick. On a Lagged signal it logs, increments the lag counter, and
// resumes from the current position — never from the dropped ticks
// (spec.md §4.3's broadcast lag handling).
func (r *Router) Run(ctx context.Context, sub *broadcast.Subscriber[domain.HadronTick]) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("router: run loop panicked, exiting")
		}
	}()
	for {
		tick, err := sub.Recv(ctx)
		if err != nil {
			var lagged *broadcast.Lagged
			if errors.As(err, &lagged) {
				log.Warn().Int("skipped", lagged.Skipped).Msg("router: broadcast lag, resuming")
				r.metrics.IncLag(lagged.Skipped)
				continue
			}
			return // ctx cancelled or stream closed
		}
		r.dispatch(tick)
	}
}

func (r *Router) dispatch(tick domain.HadronTick) {
	priority := r.policy.Classify(tick)
	if priority == domain.PriorityDrop {
		r.metrics.IncDrop(priority)
		return
	}

	shard := r.shards[ShardFor(tick.InstrumentID, r.numShards)]

	switch priority {
	case domain.PriorityFast:
		// FAST blocks: backpressure flows back into the broadcast
		// subscriber rather than dropping a trade the hot path cares
		// about (spec.md §4.3).
		shard.Fast <- tick
	case domain.PriorityWarm:
		select {
		case shard.Warm <- tick:
		default:
			r.metrics.IncDrop(domain.PriorityWarm)
		}
	case domain.PriorityCold:
		select {
		case shard.Cold <- tick:
		default:
			r.metrics.IncDrop(domain.PriorityCold)
		}
	}
}
