package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/hadron-mkt/hadron/internal/domain"
)

// SMACrossover is the seeded strategy of spec.md §4.4: Buy when the last
// price exceeds the rolling mean by more than epsilon, Sell when it
// falls short by more than epsilon, Hold otherwise.
type SMACrossover struct {
	enableState
	id      string
	epsilon decimal.Decimal
}

// NewSMACrossover builds an SMA-crossover strategy with the given epsilon
// (e.g. 0.01 for 1%). id lets multiple differently-tuned instances coexist.
func NewSMACrossover(id string, epsilon float64) *SMACrossover {
	s := &SMACrossover{id: id, epsilon: decimal.NewFromFloat(epsilon)}
	s.Enable()
	return s
}

func (s *SMACrossover) Identify() string { return s.id }

func (s *SMACrossover) OnTick(state *domain.InstrumentState, tick domain.HadronTick) (*domain.StrategyDecision, error) {
	if !s.Enabled() || state.Count() == 0 {
		return nil, nil
	}

	mean := state.RollingMean
	upper := mean.Mul(decimal.NewFromInt(1).Add(s.epsilon))
	lower := mean.Mul(decimal.NewFromInt(1).Sub(s.epsilon))

	var kind domain.DecisionKind
	switch {
	case state.LastPrice.GreaterThan(upper):
		kind = domain.DecisionBuy
	case state.LastPrice.LessThan(lower):
		kind = domain.DecisionSell
	default:
		kind = domain.DecisionHold
	}

	confidence := confidenceFromDeviation(state.LastPrice, mean)

	return &domain.StrategyDecision{
		StrategyID:     s.id,
		InstrumentID:   state.InstrumentID,
		DecisionKind:   kind,
		Confidence:     confidence,
		ReferencePrice: tick.Price,
		Timestamp:      tick.Timestamp,
		Metadata: map[string]string{
			"mean": mean.String(),
		},
	}, nil
}

// confidenceFromDeviation maps the relative deviation of price from mean
// into [0, 1], saturating at a 10% move.
func confidenceFromDeviation(price, mean decimal.Decimal) float64 {
	if mean.IsZero() {
		return 0
	}
	dev := price.Sub(mean).Div(mean).Abs()
	cap := decimal.NewFromFloat(0.10)
	if dev.GreaterThan(cap) {
		dev = cap
	}
	ratio, _ := dev.Div(cap).Float64()
	return ratio
}
