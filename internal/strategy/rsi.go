package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/hadron-mkt/hadron/internal/domain"
)

// RSIThreshold is a second seeded strategy demonstrating pluggability
// (spec.md §4.4 "multiple strategies may run concurrently against the
// same state"): Buy when Wilder's RSI drops below an oversold threshold,
// Sell when it rises above an overbought threshold, Hold otherwise.
//
// RSI needs its own rolling window distinct from InstrumentState's
// shared ring (which is sized for the SMA strategy); each engine
// constructs a fresh instance per shard via Factory, so this window never
// crosses a shard boundary and the strategy never mutates InstrumentState.
type RSIThreshold struct {
	enableState
	id         string
	window     int
	oversold   float64
	overbought float64

	perInstrument map[int64]*rsiWindow
}

type rsiWindow struct {
	prices []decimal.Decimal
}

// NewRSIThreshold builds an RSI-threshold strategy over the given
// lookback window (e.g. 14).
func NewRSIThreshold(id string, window int, oversold, overbought float64) *RSIThreshold {
	if window < 2 {
		window = 14
	}
	s := &RSIThreshold{
		id:            id,
		window:        window,
		oversold:      oversold,
		overbought:    overbought,
		perInstrument: make(map[int64]*rsiWindow),
	}
	s.Enable()
	return s
}

func (s *RSIThreshold) Identify() string { return s.id }

func (s *RSIThreshold) OnTick(state *domain.InstrumentState, tick domain.HadronTick) (*domain.StrategyDecision, error) {
	if !s.Enabled() {
		return nil, nil
	}

	w, ok := s.perInstrument[state.InstrumentID]
	if !ok {
		w = &rsiWindow{}
		s.perInstrument[state.InstrumentID] = w
	}
	w.prices = append(w.prices, tick.Price)
	if len(w.prices) > s.window+1 {
		w.prices = w.prices[len(w.prices)-(s.window+1):]
	}
	if len(w.prices) < s.window+1 {
		return nil, nil
	}

	rsi := wilderRSI(w.prices)

	var kind domain.DecisionKind
	switch {
	case rsi < s.oversold:
		kind = domain.DecisionBuy
	case rsi > s.overbought:
		kind = domain.DecisionSell
	default:
		kind = domain.DecisionHold
	}

	confidence := rsiConfidence(rsi, s.oversold, s.overbought)

	return &domain.StrategyDecision{
		StrategyID:     s.id,
		InstrumentID:   state.InstrumentID,
		DecisionKind:   kind,
		Confidence:     confidence,
		ReferencePrice: tick.Price,
		Timestamp:      tick.Timestamp,
	}, nil
}

func wilderRSI(prices []decimal.Decimal) float64 {
	var gain, loss float64
	for i := 1; i < len(prices); i++ {
		d, _ := prices[i].Sub(prices[i-1]).Float64()
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	n := float64(len(prices) - 1)
	avgGain := gain / n
	avgLoss := loss / n
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

func rsiConfidence(rsi, oversold, overbought float64) float64 {
	switch {
	case rsi < oversold:
		return clamp01((oversold - rsi) / oversold)
	case rsi > overbought:
		return clamp01((rsi - overbought) / (100 - overbought))
	default:
		return 0
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
