// Package gateway simulates order execution: it persists intents, then
// synthesizes a fill using the last known tick price (spec.md §4.5).
package gateway

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hadron-mkt/hadron/internal/domain"
)

// simulatedVenue is the venue tag attached to every synthesized
// execution (spec.md §4.5: "venue = simulated").
const simulatedVenue = "simulated"

// IntentRecorder persists order intents and executions. The recorder
// package's writer satisfies this.
type IntentRecorder interface {
	RecordIntent(ctx context.Context, intent domain.OrderIntent) error
	RecordExecution(ctx context.Context, execution domain.OrderExecution) error
}

// Metrics receives gateway counters for the health surface.
type Metrics interface {
	IncExecution(status domain.ExecStatus)
	IncPriceMiss()
}

type noopMetrics struct{}

func (noopMetrics) IncExecution(domain.ExecStatus) {}
func (noopMetrics) IncPriceMiss()                  {}

// Gateway is the simulation variant of spec.md §4.5: every intent fills
// immediately at the last observed price for its instrument. A real-venue
// variant would implement the same interface driven by venue callbacks
// instead of synthesizing executions inline.
type Gateway struct {
	recorder  IntentRecorder
	lastPrice *LastPriceMap
	metrics   Metrics
}

// New builds a simulation Gateway.
func New(recorder IntentRecorder, lastPrice *LastPriceMap, metrics Metrics) *Gateway {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Gateway{recorder: recorder, lastPrice: lastPrice, metrics: metrics}
}

// Run consumes intents until ctx is cancelled or the channel closes. A
// panic while handling one intent is recovered and logged rather than
// taking the process down with it.
func (g *Gateway) Run(ctx context.Context, intents <-chan domain.OrderIntent) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("gateway: run loop panicked, exiting")
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case intent, ok := <-intents:
			if !ok {
				return
			}
			g.handle(ctx, intent)
		}
	}
}

func (g *Gateway) handle(ctx context.Context, intent domain.OrderIntent) {
	if err := g.recorder.RecordIntent(ctx, intent); err != nil {
		log.Error().Err(err).Str("intent_id", intent.IntentID.String()).Msg("gateway: failed to record intent")
		return
	}

	price, ok := g.lastPrice.Get(intent.InstrumentID)
	if !ok {
		g.metrics.IncPriceMiss()
		// No observed price yet for this instrument; fall back to the
		// intent's own limit price if one was attached, otherwise the
		// execution cannot be synthesized meaningfully.
		if intent.LimitPrice == nil {
			log.Warn().Int64("instrument_id", intent.InstrumentID).Msg("gateway: no last price known, dropping simulated fill")
			return
		}
		price = *intent.LimitPrice
	}

	execution := domain.OrderExecution{
		IntentID:         intent.IntentID,
		InstrumentID:     intent.InstrumentID,
		Venue:            simulatedVenue,
		ExecutedAt:       time.Now(),
		ExecutedPrice:    price,
		ExecutedQuantity: intent.Quantity,
		Status:           domain.ExecFilled,
	}

	if err := g.recorder.RecordExecution(ctx, execution); err != nil {
		log.Error().Err(err).Str("intent_id", intent.IntentID.String()).Msg("gateway: failed to record execution")
		return
	}
	g.metrics.IncExecution(execution.Status)
}
