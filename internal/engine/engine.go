// Package engine runs one decision loop per shard, owning that shard's
// instrument state exclusively and draining its priority queues under a
// fairness bound (spec.md §4.4/§5).
package engine

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/hadron-mkt/hadron/internal/domain"
	"github.com/hadron-mkt/hadron/internal/router"
	"github.com/hadron-mkt/hadron/internal/strategy"
)

// ringSize is the per-instrument trade-price window (spec.md §3's K=5).
const ringSize = 5

// fairnessQuantum bounds how many consecutive FAST ticks a shard may
// service before it is forced to also drain one WARM tick, so a busy
// instrument can never starve WARM traffic (spec.md §5).
const fairnessQuantum = 256

// Metrics receives per-shard counters for the health surface.
type Metrics interface {
	IncTick(shard int, priority domain.Priority)
	IncDecision(shard int, strategyID string, kind domain.DecisionKind)
	IncPanic(shard int)
}

type noopMetrics struct{}

func (noopMetrics) IncTick(int, domain.Priority)                {}
func (noopMetrics) IncDecision(int, string, domain.DecisionKind) {}
func (noopMetrics) IncPanic(int)                                 {}

// PriceSink receives the last observed trade price per instrument. The
// gateway's concurrent last-price map satisfies this so the engine never
// needs to import the gateway package directly.
type PriceSink interface {
	Set(instrumentID int64, price decimal.Decimal)
}

type noopPriceSink struct{}

func (noopPriceSink) Set(int64, decimal.Decimal) {}

// Engine owns one shard's instrument-state map and runs every registered
// strategy against each tick it drains.
type Engine struct {
	shardIndex int
	queues     *router.ShardQueues
	strategies []strategy.Strategy
	decisions  chan<- domain.StrategyDecision
	metrics    Metrics
	lastPrice  PriceSink

	states map[int64]*domain.InstrumentState
}

// New builds an Engine for one shard. factories constructs a fresh
// Strategy instance per shard so strategy-internal state never crosses
// shard boundaries (spec.md §4.4). lastPrice may be nil if the caller
// has no gateway wired up (e.g. in tests).
func New(shardIndex int, queues *router.ShardQueues, factories []strategy.Factory, decisions chan<- domain.StrategyDecision, metrics Metrics) *Engine {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	strategies := make([]strategy.Strategy, 0, len(factories))
	for _, f := range factories {
		strategies = append(strategies, f())
	}
	return &Engine{
		shardIndex: shardIndex,
		queues:     queues,
		strategies: strategies,
		decisions:  decisions,
		metrics:    metrics,
		lastPrice:  noopPriceSink{},
		states:     make(map[int64]*domain.InstrumentState),
	}
}

// WithPriceSink wires a last-price sink (typically the gateway's
// LastPriceMap) so the gateway can look up execution prices without the
// engine depending on the gateway package.
func (e *Engine) WithPriceSink(sink PriceSink) *Engine {
	if sink != nil {
		e.lastPrice = sink
	}
	return e
}

// Run drains the shard's queues until ctx is cancelled. A panic inside
// tick processing is recovered and logged: it is fatal to this shard's
// loop (the caller should restart it), never to the process (spec.md
// §5's shard isolation).
func (e *Engine) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.metrics.IncPanic(e.shardIndex)
			log.Error().
				Int("shard", e.shardIndex).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("engine: shard panicked, loop exiting")
			err = fmt.Errorf("engine: shard %d panicked: %v", e.shardIndex, r)
		}
	}()

	fastStreak := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		// Every fairnessQuantum-th iteration, give WARM a forced chance
		// ahead of FAST even if FAST still has backlog.
		if fastStreak >= fairnessQuantum {
			select {
			case tick := <-e.queues.Warm:
				e.process(domain.PriorityWarm, tick)
				fastStreak = 0
				continue
			default:
			}
		}

		// Strict FAST > WARM > COLD: drain whichever highest-priority
		// queue is non-empty before ever touching a lower one. A plain
		// multi-case select would pick pseudo-randomly among all ready
		// channels, letting a custom Policy that emits COLD ticks starve
		// WARM (spec.md §4.4).
		select {
		case tick := <-e.queues.Fast:
			e.process(domain.PriorityFast, tick)
			fastStreak++
			continue
		default:
		}

		select {
		case tick := <-e.queues.Warm:
			e.process(domain.PriorityWarm, tick)
			fastStreak = 0
			continue
		default:
		}

		select {
		case tick := <-e.queues.Cold:
			e.process(domain.PriorityCold, tick)
			fastStreak = 0
			continue
		default:
		}

		// All three queues were empty at the time of the checks above;
		// block until ctx is cancelled or any one of them gets a tick.
		// Priority is re-applied from the top of the loop on the very
		// next iteration, so this block never lets a COLD tick jump
		// ahead of a FAST/WARM backlog that builds up afterward.
		select {
		case <-ctx.Done():
			return nil
		case tick := <-e.queues.Fast:
			e.process(domain.PriorityFast, tick)
			fastStreak++
		case tick := <-e.queues.Warm:
			e.process(domain.PriorityWarm, tick)
			fastStreak = 0
		case tick := <-e.queues.Cold:
			e.process(domain.PriorityCold, tick)
			fastStreak = 0
		}
	}
}

func (e *Engine) process(priority domain.Priority, tick domain.HadronTick) {
	e.metrics.IncTick(e.shardIndex, priority)

	state, ok := e.states[tick.InstrumentID]
	if !ok {
		state = domain.NewInstrumentState(tick.InstrumentID, ringSize)
		e.states[tick.InstrumentID] = state
	}

	// Quote/book ticks update nothing in the rolling trade-price window;
	// only trades advance the ring (spec.md §3 InstrumentState is a
	// trade-price ring specifically).
	if tick.TickType == domain.TickTrade {
		state.Observe(tick.Price, tick.Timestamp)
		e.lastPrice.Set(tick.InstrumentID, tick.Price)
	}

	for _, s := range e.strategies {
		decision, err := s.OnTick(state, tick)
		if err != nil {
			log.Warn().Err(err).Str("strategy", s.Identify()).Int64("instrument_id", tick.InstrumentID).Msg("engine: strategy error, treated as no decision")
			continue
		}
		if decision == nil || decision.DecisionKind == domain.DecisionHold {
			if decision != nil {
				e.metrics.IncDecision(e.shardIndex, decision.StrategyID, decision.DecisionKind)
			}
			continue
		}
		e.metrics.IncDecision(e.shardIndex, decision.StrategyID, decision.DecisionKind)

		select {
		case e.decisions <- *decision:
		default:
			log.Warn().Str("strategy", decision.StrategyID).Int64("instrument_id", decision.InstrumentID).Msg("engine: decision channel full, dropping")
		}
	}
}
