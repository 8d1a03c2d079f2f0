package strategy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hadron-mkt/hadron/internal/domain"
)

// TestSMACrossoverSeedScenario reproduces spec.md §9's seed scenario:
// feeding prices [100,101,102,103,104] through a ring of size 5 with
// epsilon=0.01 should yield a Buy once the last price clears the
// rolling mean by more than 1%.
func TestSMACrossoverSeedScenario(t *testing.T) {
	s := NewSMACrossover("sma-1", 0.01)
	state := domain.NewInstrumentState(1, 5)

	var decisions []domain.DecisionKind
	for _, p := range []float64{100, 101, 102, 103, 104} {
		ts := time.Now()
		price := decimal.NewFromFloat(p)
		state.Observe(price, ts)
		d, err := s.OnTick(state, domain.HadronTick{InstrumentID: 1, Price: price, Timestamp: ts, TickType: domain.TickTrade})
		require.NoError(t, err)
		if d != nil {
			decisions = append(decisions, d.DecisionKind)
		}
	}

	require.NotEmpty(t, decisions)
	assert.Equal(t, domain.DecisionBuy, decisions[len(decisions)-1])
}

func TestSMACrossoverHoldWithinEpsilon(t *testing.T) {
	s := NewSMACrossover("sma-1", 0.5) // wide epsilon, nothing should trip it
	state := domain.NewInstrumentState(1, 5)

	for _, p := range []float64{100, 101, 102} {
		ts := time.Now()
		price := decimal.NewFromFloat(p)
		state.Observe(price, ts)
		d, err := s.OnTick(state, domain.HadronTick{InstrumentID: 1, Price: price, Timestamp: ts, TickType: domain.TickTrade})
		require.NoError(t, err)
		require.NotNil(t, d)
		assert.Equal(t, domain.DecisionHold, d.DecisionKind)
	}
}

func TestSMACrossoverDisabledYieldsNil(t *testing.T) {
	s := NewSMACrossover("sma-1", 0.01)
	s.Disable()
	state := domain.NewInstrumentState(1, 5)
	ts := time.Now()
	price := decimal.NewFromFloat(100)
	state.Observe(price, ts)

	d, err := s.OnTick(state, domain.HadronTick{InstrumentID: 1, Price: price, Timestamp: ts, TickType: domain.TickTrade})
	require.NoError(t, err)
	assert.Nil(t, d)
}
