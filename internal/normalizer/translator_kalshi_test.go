package normalizer

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hadron-mkt/hadron/internal/domain"
)

func TestKalshiTranslatorTickerUsesLastPrice(t *testing.T) {
	ev := domain.RawEvent{
		Source:     "kalshi",
		Venue:      "kalshi_ws",
		ReceivedAt: time.Now(),
		Payload:    []byte(`{"type":"ticker","data":{"market_ticker":"INXD-24","last_price":55}}`),
	}

	tick, err := KalshiTranslator{}.Translate(context.Background(), ev, resolveStub(3, nil))
	require.NoError(t, err)
	require.NotNil(t, tick)
	assert.Equal(t, domain.TickQuote, tick.TickType)
	assert.True(t, tick.Price.Equal(decimal.NewFromFloat(0.55)))
}

func TestKalshiTranslatorTickerFallsBackToBidAskMidpoint(t *testing.T) {
	ev := domain.RawEvent{
		Source:  "kalshi",
		Payload: []byte(`{"type":"ticker","data":{"market_ticker":"INXD-24","bid":40,"ask":60}}`),
	}

	tick, err := KalshiTranslator{}.Translate(context.Background(), ev, resolveStub(3, nil))
	require.NoError(t, err)
	require.NotNil(t, tick)
	assert.True(t, tick.Price.Equal(decimal.NewFromFloat(0.50)))
}

func TestKalshiTranslatorTickerDropsWhenNoPriceField(t *testing.T) {
	ev := domain.RawEvent{
		Source:  "kalshi",
		Payload: []byte(`{"type":"ticker","data":{"market_ticker":"INXD-24"}}`),
	}
	tick, err := KalshiTranslator{}.Translate(context.Background(), ev, resolveStub(3, nil))
	require.NoError(t, err)
	assert.Nil(t, tick)
}

func TestKalshiTranslatorTrade(t *testing.T) {
	ev := domain.RawEvent{
		Source:  "kalshi",
		Payload: []byte(`{"type":"trade","data":{"market_ticker":"INXD-24","price":72,"count":3,"taker_side":"yes"}}`),
	}
	tick, err := KalshiTranslator{}.Translate(context.Background(), ev, resolveStub(3, nil))
	require.NoError(t, err)
	require.NotNil(t, tick)
	assert.Equal(t, domain.TickTrade, tick.TickType)
	require.NotNil(t, tick.Size)
	assert.Equal(t, int64(3), *tick.Size)
	assert.True(t, tick.Price.Equal(decimal.NewFromFloat(0.72)))
}

func TestKalshiTranslatorOrderbookDeltaDropsSilently(t *testing.T) {
	ev := domain.RawEvent{
		Source:  "kalshi",
		Payload: []byte(`{"type":"orderbook_delta","data":{"market_ticker":"INXD-24"}}`),
	}
	tick, err := KalshiTranslator{}.Translate(context.Background(), ev, resolveStub(3, nil))
	require.NoError(t, err)
	assert.Nil(t, tick)
}

func TestCentsToDecimalBoundaries(t *testing.T) {
	assert.True(t, centsToDecimal(0).Equal(decimal.NewFromInt(0)))
	assert.True(t, centsToDecimal(100).Equal(decimal.NewFromInt(1)))
}
