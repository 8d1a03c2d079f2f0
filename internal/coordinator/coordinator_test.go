package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hadron-mkt/hadron/internal/domain"
)

func decision(strategyID string, instrumentID int64, kind domain.DecisionKind, confidence float64) domain.StrategyDecision {
	return domain.StrategyDecision{
		StrategyID:     strategyID,
		InstrumentID:   instrumentID,
		DecisionKind:   kind,
		Confidence:     confidence,
		ReferencePrice: decimal.NewFromInt(100),
		Timestamp:      time.Now(),
	}
}

func TestCoordinatorProducesOneIntentPerDecision(t *testing.T) {
	intents := make(chan domain.OrderIntent, 4)
	c := New(nil, nil, intents, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	decisions := make(chan domain.StrategyDecision, 4)
	go c.Run(ctx, decisions)

	decisions <- decision("sma-1", 1, domain.DecisionBuy, 0.8)

	select {
	case intent := <-intents:
		assert.Equal(t, domain.SideBuy, intent.Side)
		assert.Equal(t, int64(1), intent.InstrumentID)
		assert.NotEqual(t, intent.IntentID.String(), "")
	case <-time.After(2 * time.Second):
		t.Fatal("expected an intent")
	}
}

func TestCoordinatorHoldNeverProducesIntent(t *testing.T) {
	intents := make(chan domain.OrderIntent, 4)
	c := New(nil, nil, intents, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	decisions := make(chan domain.StrategyDecision, 4)
	go c.Run(ctx, decisions)

	decisions <- decision("sma-1", 1, domain.DecisionHold, 0.0)

	select {
	case intent := <-intents:
		t.Fatalf("unexpected intent from Hold decision: %+v", intent)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestCoordinatorResolvesConflictByConfidence(t *testing.T) {
	intents := make(chan domain.OrderIntent, 4)
	c := New(nil, nil, intents, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	decisions := make(chan domain.StrategyDecision, 4)
	go c.Run(ctx, decisions)

	decisions <- decision("sma-1", 1, domain.DecisionBuy, 0.3)
	decisions <- decision("rsi-1", 1, domain.DecisionSell, 0.9)

	select {
	case intent := <-intents:
		assert.Equal(t, domain.SideSell, intent.Side, "higher-confidence decision should win")
		assert.Equal(t, "rsi-1", intent.StrategyID)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a resolved intent")
	}
}

func TestCoordinatorRiskGateRejectsDecision(t *testing.T) {
	intents := make(chan domain.OrderIntent, 4)
	denyAll := denyAllGate{}
	c := New(denyAll, nil, intents, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	decisions := make(chan domain.StrategyDecision, 4)
	go c.Run(ctx, decisions)

	decisions <- decision("sma-1", 1, domain.DecisionBuy, 0.8)

	select {
	case intent := <-intents:
		t.Fatalf("gate should have rejected decision, got intent %+v", intent)
	case <-time.After(400 * time.Millisecond):
	}
}

type denyAllGate struct{}

func (denyAllGate) Allow(domain.StrategyDecision) bool { return false }

func TestStrategyPriorityRankUnknownRanksLast(t *testing.T) {
	p := StrategyPriority{"sma-1": 0, "rsi-1": 1}
	require.Equal(t, 0, p.rank("sma-1"))
	require.Equal(t, 1, p.rank("rsi-1"))
	require.Equal(t, 3, p.rank("unknown"))
}
