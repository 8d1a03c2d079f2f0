// Package coordinator turns strategy decisions into order intents,
// applying risk gates and resolving same-instrument conflicts before a
// single intent reaches the gateway (spec.md §4.5).
package coordinator

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hadron-mkt/hadron/internal/domain"
)

// conflictWindow is how long a pending decision for an instrument stays
// open to challengers before it is finalized into an intent (spec.md
// §4.5's "short window").
const conflictWindow = 250 * time.Millisecond

// DefaultQuantity is the quantity of every intent the coordinator builds;
// decision metadata is not consulted for a quantity.
const DefaultQuantity = 1

// RiskGate decides whether a decision may proceed to an intent. The MVP
// gate always passes; the hook exists so position/exposure limits can be
// added later without changing Coordinator's shape (spec.md §4.5).
type RiskGate interface {
	Allow(decision domain.StrategyDecision) bool
}

// AllowAllGate is the MVP risk gate: no position or exposure tracking.
type AllowAllGate struct{}

func (AllowAllGate) Allow(domain.StrategyDecision) bool { return true }

// StrategyPriority breaks confidence ties by strategy id (spec.md §4.5:
// "ties are broken by strategy priority, then by arrival order"). Lower
// rank wins ties. Unknown strategy ids rank last.
type StrategyPriority map[string]int

func (p StrategyPriority) rank(strategyID string) int {
	if r, ok := p[strategyID]; ok {
		return r
	}
	return len(p) + 1
}

// Metrics receives coordinator counters for the health surface.
type Metrics interface {
	IncIntent(side domain.Side)
	IncGateRejected()
	IncConflictResolved()
}

type noopMetrics struct{}

func (noopMetrics) IncIntent(domain.Side)  {}
func (noopMetrics) IncGateRejected()       {}
func (noopMetrics) IncConflictResolved()   {}

type pending struct {
	decision domain.StrategyDecision
	arrival  time.Time
	timer    *time.Timer
}

// Coordinator is the single point where decisions across all shards
// converge into order intents.
type Coordinator struct {
	gate     RiskGate
	priority StrategyPriority
	intents  chan<- domain.OrderIntent
	metrics  Metrics

	pendingByInstrument map[int64]*pending
}

// New builds a Coordinator. gate defaults to AllowAllGate; priority may
// be nil (all strategies rank equally, first-arrival wins ties).
func New(gate RiskGate, priority StrategyPriority, intents chan<- domain.OrderIntent, metrics Metrics) *Coordinator {
	if gate == nil {
		gate = AllowAllGate{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Coordinator{
		gate:                gate,
		priority:            priority,
		intents:             intents,
		metrics:             metrics,
		pendingByInstrument: make(map[int64]*pending),
	}
}

// Run consumes decisions until ctx is cancelled or the channel closes.
// It is single-threaded by design: conflict resolution on
// pendingByInstrument requires no locking because only this goroutine
// ever touches it (spec.md §5's "no component may hold a lock across a
// suspension point" — here there simply is no lock).
func (c *Coordinator) Run(ctx context.Context, decisions <-chan domain.StrategyDecision) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("coordinator: run loop panicked, exiting")
		}
	}()
	resolved := make(chan int64, 64)
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-decisions:
			if !ok {
				return
			}
			c.handle(ctx, d, resolved)
		case instrumentID := <-resolved:
			c.finalize(instrumentID)
		}
	}
}

func (c *Coordinator) handle(ctx context.Context, d domain.StrategyDecision, resolved chan<- int64) {
	if d.DecisionKind == domain.DecisionHold {
		return
	}
	if !c.gate.Allow(d) {
		c.metrics.IncGateRejected()
		return
	}

	existing, ok := c.pendingByInstrument[d.InstrumentID]
	if !ok {
		p := &pending{decision: d, arrival: d.Timestamp}
		p.timer = time.AfterFunc(conflictWindow, func() {
			select {
			case resolved <- d.InstrumentID:
			case <-ctx.Done():
			}
		})
		c.pendingByInstrument[d.InstrumentID] = p
		return
	}

	if c.winner(existing.decision, d) == d {
		existing.decision = d
		c.metrics.IncConflictResolved()
	}
}

// winner implements spec.md §4.5's conflict rule: higher confidence
// wins; ties broken by strategy priority, then by arrival order (the
// incumbent keeps ties on arrival since it arrived first).
func (c *Coordinator) winner(incumbent, challenger domain.StrategyDecision) domain.StrategyDecision {
	if challenger.Confidence > incumbent.Confidence {
		return challenger
	}
	if challenger.Confidence < incumbent.Confidence {
		return incumbent
	}
	if c.priority.rank(challenger.StrategyID) < c.priority.rank(incumbent.StrategyID) {
		return challenger
	}
	return incumbent
}

func (c *Coordinator) finalize(instrumentID int64) {
	p, ok := c.pendingByInstrument[instrumentID]
	if !ok {
		return
	}
	delete(c.pendingByInstrument, instrumentID)

	intent := c.buildIntent(p.decision)
	select {
	case c.intents <- intent:
		c.metrics.IncIntent(intent.Side)
	default:
		log.Warn().Int64("instrument_id", instrumentID).Msg("coordinator: intent channel full, dropping")
	}
}

func (c *Coordinator) buildIntent(d domain.StrategyDecision) domain.OrderIntent {
	side := domain.SideBuy
	if d.DecisionKind == domain.DecisionSell {
		side = domain.SideSell
	}

	return domain.OrderIntent{
		IntentID:     uuid.New(),
		InstrumentID: d.InstrumentID,
		StrategyID:   d.StrategyID,
		Side:         side,
		Quantity:     DefaultQuantity,
		OrderType:    domain.OrderMarket,
		Timestamp:    time.Now(),
		Metadata:     d.Metadata,
	}
}
