package strategy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hadron-mkt/hadron/internal/domain"
)

func tickAt(instrumentID int64, price float64) domain.HadronTick {
	return domain.HadronTick{
		InstrumentID: instrumentID,
		TickType:     domain.TickTrade,
		Price:        decimal.NewFromFloat(price),
		Timestamp:    time.Now(),
	}
}

func TestRSIThresholdNoDecisionUntilWindowFilled(t *testing.T) {
	s := NewRSIThreshold("rsi-1", 3, 30, 70)
	state := domain.NewInstrumentState(1, 5)

	for i, p := range []float64{100, 101} {
		tick := tickAt(1, p)
		state.Observe(tick.Price, tick.Timestamp)
		d, err := s.OnTick(state, tick)
		require.NoError(t, err)
		assert.Nil(t, d, "decision %d should be nil until the window fills", i)
	}
}

func TestRSIThresholdSellsOnSustainedRise(t *testing.T) {
	s := NewRSIThreshold("rsi-1", 3, 30, 70)
	state := domain.NewInstrumentState(1, 5)

	var last *domain.StrategyDecision
	for _, p := range []float64{100, 101, 102, 103, 104} {
		tick := tickAt(1, p)
		state.Observe(tick.Price, tick.Timestamp)
		d, err := s.OnTick(state, tick)
		require.NoError(t, err)
		if d != nil {
			last = d
		}
	}

	require.NotNil(t, last)
	assert.Equal(t, domain.DecisionSell, last.DecisionKind)
	assert.Greater(t, last.Confidence, 0.0)
}

func TestRSIThresholdBuysOnSustainedDrop(t *testing.T) {
	s := NewRSIThreshold("rsi-1", 3, 30, 70)
	state := domain.NewInstrumentState(1, 5)

	var last *domain.StrategyDecision
	for _, p := range []float64{104, 103, 102, 101, 100} {
		tick := tickAt(1, p)
		state.Observe(tick.Price, tick.Timestamp)
		d, err := s.OnTick(state, tick)
		require.NoError(t, err)
		if d != nil {
			last = d
		}
	}

	require.NotNil(t, last)
	assert.Equal(t, domain.DecisionBuy, last.DecisionKind)
}

func TestRSIThresholdDisabledYieldsNil(t *testing.T) {
	s := NewRSIThreshold("rsi-1", 3, 30, 70)
	s.Disable()
	state := domain.NewInstrumentState(1, 5)

	tick := tickAt(1, 100)
	state.Observe(tick.Price, tick.Timestamp)
	d, err := s.OnTick(state, tick)
	require.NoError(t, err)
	assert.Nil(t, d)
}
