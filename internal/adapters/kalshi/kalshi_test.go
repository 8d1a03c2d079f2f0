package kalshi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrameKeepsDataFramesDropsControlFrames(t *testing.T) {
	v := New("wss://example", "key-id", nil, []string{"ticker"}, "INXD-24")

	subscribed, err := v.ParseFrame([]byte(`{"type":"subscribed","id":1}`))
	require.NoError(t, err)
	assert.Empty(t, subscribed)

	ticker, err := v.ParseFrame([]byte(`{"type":"ticker","data":{"market_ticker":"INXD-24","last_price":55}}`))
	require.NoError(t, err)
	require.Len(t, ticker, 1)
	assert.Equal(t, "INXD-24", ticker[0].RoutingHint)
	assert.Equal(t, "kalshi", ticker[0].Source)
}

func TestParseFrameReturnsErrorOnVenueError(t *testing.T) {
	v := New("wss://example", "key-id", nil, nil, "")
	_, err := v.ParseFrame([]byte(`{"type":"error","msg":{"code":6,"msg":"bad subscription"}}`))
	assert.Error(t, err)
}

func TestFrameTypeAndDecodeTicker(t *testing.T) {
	payload := []byte(`{"type":"ticker","data":{"market_ticker":"INXD-24","bid":40,"ask":60}}`)
	assert.Equal(t, "ticker", FrameType(payload))

	ticker, err := DecodeTicker(payload)
	require.NoError(t, err)
	assert.Equal(t, "INXD-24", ticker.MarketTicker)
	require.NotNil(t, ticker.Bid)
	require.NotNil(t, ticker.Ask)
	assert.Equal(t, int64(40), *ticker.Bid)
	assert.Equal(t, int64(60), *ticker.Ask)
}

func TestDecodeTrade(t *testing.T) {
	payload := []byte(`{"type":"trade","data":{"market_ticker":"INXD-24","price":72,"count":3,"taker_side":"yes"}}`)
	trade, err := DecodeTrade(payload)
	require.NoError(t, err)
	assert.Equal(t, int64(72), trade.Price)
	assert.Equal(t, int64(3), trade.Count)
}

func TestSubscribeIsNoOpWithNoChannels(t *testing.T) {
	v := New("wss://example", "key-id", nil, nil, "")
	assert.NoError(t, v.Subscribe(nil, nil))
}

func TestAuthenticateIsNoOp(t *testing.T) {
	v := New("wss://example", "key-id", nil, nil, "")
	assert.NoError(t, v.Authenticate(nil, nil))
}

func TestCentsToDecimalString(t *testing.T) {
	assert.Equal(t, "72", CentsToDecimalString(72))
}
