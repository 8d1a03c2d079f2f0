// Package domain holds the wire-independent types that flow through the
// Hadron pipeline: raw venue frames, normalized ticks, per-instrument
// state, strategy decisions, order intents and their executions.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TickType classifies a HadronTick's originating event.
type TickType string

const (
	TickTrade      TickType = "trade"
	TickQuote      TickType = "quote"
	TickBookUpdate TickType = "book_update"
	TickOther      TickType = "other"
)

// DecisionKind is a strategy's verdict for an instrument at a point in time.
type DecisionKind string

const (
	DecisionHold DecisionKind = "hold"
	DecisionBuy  DecisionKind = "buy"
	DecisionSell DecisionKind = "sell"
)

// Side is the direction of an order intent or execution.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType is the kind of order an intent requests.
type OrderType string

const (
	OrderMarket    OrderType = "market"
	OrderLimit     OrderType = "limit"
	OrderStop      OrderType = "stop"
	OrderStopLimit OrderType = "stop_limit"
)

// ExecStatus is the realized outcome of an OrderIntent.
type ExecStatus string

const (
	ExecFilled          ExecStatus = "filled"
	ExecPartiallyFilled ExecStatus = "partially_filled"
	ExecRejected        ExecStatus = "rejected"
	ExecCancelled       ExecStatus = "cancelled"
)

// Priority is the router's classification of a tick's urgency.
type Priority string

const (
	PriorityFast Priority = "fast"
	PriorityWarm Priority = "warm"
	PriorityCold Priority = "cold"
	PriorityDrop Priority = "drop"
)

// RawEvent is emitted by every venue adapter for a data-bearing frame.
// The payload is retained verbatim so the normalizer (or an auditor) can
// always reconstruct the tick it was translated into.
type RawEvent struct {
	Source      string    // venue family, e.g. "polygon", "kalshi"
	Venue       string    // specific channel/endpoint, e.g. "polygon_ws_delayed"
	ReceivedAt  time.Time // monotonic ingest wall time
	Payload     []byte    // opaque verbatim frame
	RoutingHint string    // optional venue-symbol extracted early
}

// HadronTick is the normalized representation of a trade, quote, or book
// update, resolved against a stable instrument identity.
type HadronTick struct {
	InstrumentID int64
	Venue        string
	TickType     TickType
	Price        decimal.Decimal
	Size         *int64 // nil for quote-only events
	Timestamp    time.Time
	Source       string
}

// InstrumentState is per-instrument rolling state held exclusively by the
// shard that owns the instrument. It is never persisted; all durable
// state lives in the tick table.
type InstrumentState struct {
	InstrumentID      int64
	Prices            []decimal.Decimal // bounded ring of the last K trade prices
	ringCap           int
	ringPos           int
	ringFilled        bool
	RollingMean       decimal.Decimal
	LastTickTimestamp time.Time
	LastPrice         decimal.Decimal
}

// NewInstrumentState creates state with a ring buffer of capacity k.
func NewInstrumentState(instrumentID int64, k int) *InstrumentState {
	if k <= 0 {
		k = 5
	}
	return &InstrumentState{
		InstrumentID: instrumentID,
		Prices:       make([]decimal.Decimal, k),
		ringCap:      k,
	}
}

// Observe appends a trade price to the ring and recomputes the rolling
// mean and last-price/timestamp fields. It is the only mutator of
// InstrumentState; strategies must treat it as read-only.
func (s *InstrumentState) Observe(price decimal.Decimal, ts time.Time) {
	s.Prices[s.ringPos] = price
	s.ringPos = (s.ringPos + 1) % s.ringCap
	if s.ringPos == 0 {
		s.ringFilled = true
	}
	s.LastPrice = price
	s.LastTickTimestamp = ts

	n := s.ringCap
	if !s.ringFilled {
		n = s.ringPos
	}
	if n == 0 {
		s.RollingMean = decimal.Zero
		return
	}
	sum := decimal.Zero
	for i := 0; i < n; i++ {
		sum = sum.Add(s.Prices[i])
	}
	s.RollingMean = sum.Div(decimal.NewFromInt(int64(n)))
}

// Count returns how many prices have been observed, capped at the ring size.
func (s *InstrumentState) Count() int {
	if s.ringFilled {
		return s.ringCap
	}
	return s.ringPos
}

// StrategyDecision is a strategy's verdict for one instrument at one tick.
type StrategyDecision struct {
	StrategyID     string
	InstrumentID   int64
	DecisionKind   DecisionKind
	Confidence     float64 // in [0.0, 1.0]
	ReferencePrice decimal.Decimal
	Timestamp      time.Time
	Metadata       map[string]string
}

// OrderIntent is a request to buy or sell produced from exactly one
// non-Hold decision (no fan-out).
type OrderIntent struct {
	IntentID     uuid.UUID
	InstrumentID int64
	StrategyID   string
	Side         Side
	Quantity     int64
	OrderType    OrderType
	LimitPrice   *decimal.Decimal // present iff OrderType != OrderMarket
	Timestamp    time.Time
	Metadata     map[string]string
}

// OrderExecution is the realized outcome of an OrderIntent.
type OrderExecution struct {
	IntentID         uuid.UUID
	InstrumentID     int64
	Venue            string
	ExecutedAt       time.Time
	ExecutedPrice    decimal.Decimal
	ExecutedQuantity int64
	Status           ExecStatus
	VenueOrderID     *string
}

// Instrument is the subset of the instrument-table row the core reads
// and writes. The table itself is owned by an external collaborator.
type Instrument struct {
	ID            int64
	Ticker        string
	AssetClass    string
	PrimarySource string
	Status        string
	Name          string
}

// NewAutoCreatedInstrument builds the minimal instrument record the
// normalizer inserts when a venue symbol has never been seen before. Name
// is built from source (the venue family, e.g. "kalshi"), not the
// specific channel string, so it stays stable across channels of the
// same venue.
func NewAutoCreatedInstrument(source, ticker, assetClass string) Instrument {
	return Instrument{
		Ticker:        ticker,
		AssetClass:    assetClass,
		PrimarySource: source,
		Status:        "active",
		Name:          source + " Market: " + ticker,
	}
}
