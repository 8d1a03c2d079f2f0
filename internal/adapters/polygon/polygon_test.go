package polygon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrameFlattensJSONArray(t *testing.T) {
	v := New("realtime", "wss://example", "key", []string{"T.AAPL"})
	frame := []byte(`[{"ev":"T","sym":"AAPL","p":101.5,"s":10,"t":1700000000000000000},{"ev":"Q","sym":"MSFT","bp":99,"ap":101}]`)

	events, err := v.ParseFrame(frame)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "AAPL", events[0].RoutingHint)
	assert.Equal(t, "polygon", events[0].Source)
	assert.Equal(t, "polygon_ws_realtime", events[0].Venue)
	assert.Equal(t, "MSFT", events[1].RoutingHint)
}

func TestParseFrameRejectsMalformedJSON(t *testing.T) {
	v := New("delayed", "wss://example", "key", nil)
	_, err := v.ParseFrame([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecodeDataEventRoundTrips(t *testing.T) {
	v := New("realtime", "wss://example", "key", []string{"T.AAPL"})
	events, err := v.ParseFrame([]byte(`[{"ev":"T","sym":"AAPL","p":55.25,"s":7,"t":42}]`))
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev, err := DecodeDataEvent(events[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, "T", ev.EventType())
	assert.Equal(t, "AAPL", ev.Symbol())
	assert.Equal(t, 55.25, ev.TradePrice())
	assert.Equal(t, int64(7), ev.TradeSize())
	assert.Equal(t, int64(42), ev.EventNanos())
}

func TestEventTimeTruncatesToMicrosecond(t *testing.T) {
	got := EventTime(1732900000123456789)
	want := time.Date(2024, 11, 29, 16, 26, 40, 123456000, time.UTC)
	assert.True(t, got.Equal(want), "got %s, want %s", got.Format(time.RFC3339Nano), want.Format(time.RFC3339Nano))
}

func TestParseNativeSymbolStripsChannelPrefix(t *testing.T) {
	assert.Equal(t, "AAPL", ParseNativeSymbol("T.AAPL"))
	assert.Equal(t, "AAPL", ParseNativeSymbol("AAPL"))
}

func TestSubscribeIsNoOpWithNoTickers(t *testing.T) {
	v := New("realtime", "wss://example", "key", nil)
	assert.NoError(t, v.Subscribe(nil, nil))
}

func TestChannelIncludesMode(t *testing.T) {
	v := New("delayed", "wss://example", "key", nil)
	assert.Equal(t, "polygon_ws_delayed", v.Channel())
}
