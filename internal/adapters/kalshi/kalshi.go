// Package kalshi implements the pre-connect-header-auth venue variant
// (spec.md §4.1, §6): RSA-PSS signature over the API-prefixed path
// attached as request headers at handshake time, JSON command/message
// wire format, integer-cents prediction-market pricing.
package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hadron-mkt/hadron/internal/adapters/common"
	"github.com/hadron-mkt/hadron/internal/domain"
)

const apiPrefix = "/trade-api/v2"

// Venue implements common.Venue for a Kalshi-style prediction-market feed.
type Venue struct {
	endpoint     string
	accessKeyID  string
	signer       *common.Signer
	channels     []string
	marketTicker string

	cmdID int64
}

// New builds a Kalshi adapter. signer wraps the PEM private key read from
// the read-only credential mount; accessKeyID identifies it to the venue.
func New(endpoint, accessKeyID string, signer *common.Signer, channels []string, marketTicker string) *Venue {
	return &Venue{
		endpoint:     endpoint,
		accessKeyID:  accessKeyID,
		signer:       signer,
		channels:     channels,
		marketTicker: marketTicker,
	}
}

func (v *Venue) Source() string  { return "kalshi" }
func (v *Venue) Channel() string { return "kalshi_ws" }

// Connect signs the handshake path and attaches {access-key, signature,
// timestamp-ms} as headers before dialing — auth happens before the
// socket opens, unlike the post-connect-message variant.
func (v *Venue) Connect(ctx context.Context) (common.Conn, error) {
	timestampMs := time.Now().UnixMilli()
	path := apiPrefix + "/ws"

	sig, err := v.signer.Sign(timestampMs, http.MethodGet, path)
	if err != nil {
		return nil, fmt.Errorf("kalshi: sign handshake: %w", err)
	}

	headers := http.Header{}
	headers.Set("KALSHI-ACCESS-KEY", v.accessKeyID)
	headers.Set("KALSHI-ACCESS-SIGNATURE", sig)
	headers.Set("KALSHI-ACCESS-TIMESTAMP", strconv.FormatInt(timestampMs, 10))

	dialer := websocket.Dialer{HandshakeTimeout: 30 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, v.endpoint, headers)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, &common.AuthError{Venue: v.Channel(), Err: err}
		}
		return nil, fmt.Errorf("kalshi: dial: %w", err)
	}
	return conn, nil
}

// Authenticate is a no-op: auth happened at handshake time via signed
// headers. The state machine still transitions through Authenticating
// for a consistent health surface across venue variants.
func (v *Venue) Authenticate(ctx context.Context, conn common.Conn) error {
	return nil
}

type subscribeCmd struct {
	ID     int64            `json:"id"`
	Cmd    string           `json:"cmd"`
	Params subscribeParams  `json:"params"`
}

type subscribeParams struct {
	Channels     []string `json:"channels"`
	MarketTicker string   `json:"market_ticker,omitempty"`
}

// Subscribe issues one subscribe command per reconnect with a fresh
// monotonic id; the venue tolerates re-subscription after a disconnect.
func (v *Venue) Subscribe(ctx context.Context, conn common.Conn) error {
	if len(v.channels) == 0 {
		return nil
	}
	id := atomic.AddInt64(&v.cmdID, 1)
	cmd := subscribeCmd{
		ID:  id,
		Cmd: "subscribe",
		Params: subscribeParams{
			Channels:     v.channels,
			MarketTicker: v.marketTicker,
		},
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("kalshi: marshal subscribe: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return &common.SubscriptionError{Channel: fmt.Sprintf("%v", v.channels), Err: err}
	}
	return nil
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	ID   int64           `json:"id"`
	Msg  *errMsg         `json:"msg"`
}

type errMsg struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

type tickerData struct {
	MarketTicker string `json:"market_ticker"`
	Bid          *int64 `json:"bid"`
	Ask          *int64 `json:"ask"`
	LastPrice    *int64 `json:"last_price"`
	Volume       int64  `json:"volume"`
}

type tradeData struct {
	MarketTicker string `json:"market_ticker"`
	Price        int64  `json:"price"`
	Count        int64  `json:"count"`
	Side         string `json:"taker_side"`
	TS           int64  `json:"ts"`
}

// ParseFrame translates one JSON message into zero RawEvents (control
// frames: subscribed/error) or one data RawEvent (ticker/trades/book).
func (v *Venue) ParseFrame(data []byte) ([]domain.RawEvent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("kalshi: parse frame: %w", err)
	}

	switch env.Type {
	case "subscribed":
		return nil, nil
	case "error":
		if env.Msg != nil {
			return nil, fmt.Errorf("kalshi: venue error %d: %s", env.Msg.Code, env.Msg.Msg)
		}
		return nil, fmt.Errorf("kalshi: venue error")
	case "ticker", "trade", "trades", "orderbook_delta", "orderbook_snapshot":
		hint := routingHintFromData(env.Data)
		return []domain.RawEvent{{
			Source:      v.Source(),
			Venue:       v.Channel(),
			ReceivedAt:  time.Now().UTC(),
			Payload:     append([]byte(nil), data...), // keep the full {"type":...,"data":...} envelope
			RoutingHint: hint,
		}}, nil
	default:
		return nil, nil
	}
}

func routingHintFromData(raw json.RawMessage) string {
	var probe struct {
		MarketTicker string `json:"market_ticker"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	return probe.MarketTicker
}

// FrameType reports the "type" discriminator of a kept RawEvent payload
// so the normalizer translator can dispatch ticker vs. trade vs. book.
func FrameType(payload []byte) string {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return ""
	}
	return env.Type
}

// DecodeTicker decodes a ticker-frame payload for the normalizer translator.
func DecodeTicker(payload []byte) (tickerData, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return tickerData{}, err
	}
	var t tickerData
	err := json.Unmarshal(env.Data, &t)
	return t, err
}

// DecodeTrade decodes a trade-frame payload for the normalizer translator.
func DecodeTrade(payload []byte) (tradeData, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return tradeData{}, err
	}
	var t tradeData
	err := json.Unmarshal(env.Data, &t)
	return t, err
}

// CentsToDecimalString formats an integer cent count as a base-10 string;
// it does not divide by 100 (72 -> "72"). The normalizer does the
// cents-to-price conversion via shopspring/decimal.
func CentsToDecimalString(cents int64) string {
	return strconv.FormatInt(cents, 10)
}
