// Package polygon implements the post-connect-message-auth venue variant
// (spec.md §4.1, §6): auth frame sent after the socket opens, comma
// separated channel-prefixed subscription strings, JSON-array data frames.
package polygon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hadron-mkt/hadron/internal/adapters/common"
	"github.com/hadron-mkt/hadron/internal/domain"
)

// Venue implements common.Venue for a Polygon-style equity feed.
type Venue struct {
	mode     string // "delayed" | "realtime"
	endpoint string
	apiKey   string
	tickers  []string // e.g. "T.AAPL", "T.MSFT"
}

// New builds a Polygon adapter. endpoint is the full wss:// URL for the
// configured mode; apiKey is read by the caller from the venue-specific
// environment variable (spec.md §6 credential provisioning).
func New(mode, endpoint, apiKey string, tickers []string) *Venue {
	return &Venue{mode: mode, endpoint: endpoint, apiKey: apiKey, tickers: tickers}
}

func (v *Venue) Source() string { return "polygon" }

func (v *Venue) Channel() string { return "polygon_ws_" + v.mode }

func (v *Venue) Connect(ctx context.Context) (common.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 30 * time.Second}
	conn, _, err := dialer.DialContext(ctx, v.endpoint, http.Header{})
	if err != nil {
		return nil, fmt.Errorf("polygon: dial: %w", err)
	}
	return conn, nil
}

type authRequest struct {
	Action string `json:"action"`
	Params string `json:"params"`
}

type authStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Authenticate sends the API key in the message body (not the URL) and
// awaits the venue's auth-success signal within 30s, per spec.md §5.
func (v *Venue) Authenticate(ctx context.Context, conn common.Conn) error {
	req := authRequest{Action: "auth", Params: v.apiKey}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("polygon: marshal auth: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("polygon: send auth: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("polygon: read auth response: %w", err)
		}

		var statuses []authStatus
		if err := json.Unmarshal(frame, &statuses); err != nil {
			var single authStatus
			if err2 := json.Unmarshal(frame, &single); err2 != nil {
				continue
			}
			statuses = []authStatus{single}
		}
		for _, s := range statuses {
			switch s.Status {
			case "auth_success":
				return nil
			case "auth_failed":
				return &common.AuthError{Venue: v.Channel(), Err: fmt.Errorf("auth_failed: %s", s.Message)}
			}
		}
	}
}

type subscribeRequest struct {
	Action string `json:"action"`
	Params string `json:"params"`
}

// Subscribe sends the comma-separated, channel-prefixed subscription
// string. Idempotent: re-issuing the same params string after reconnect
// is a no-op on the venue side.
func (v *Venue) Subscribe(ctx context.Context, conn common.Conn) error {
	if len(v.tickers) == 0 {
		return nil
	}
	req := subscribeRequest{Action: "subscribe", Params: strings.Join(v.tickers, ",")}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("polygon: marshal subscribe: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return &common.SubscriptionError{Channel: req.Params, Err: err}
	}
	return nil
}

// dataEvent mirrors the fields used across Polygon's trade/quote/book
// event shapes; unused fields for a given "ev" discriminator are left zero.
type dataEvent struct {
	Ev   string  `json:"ev"`
	Sym  string  `json:"sym"`
	P    float64 `json:"p"`  // trade price
	S    int64   `json:"s"`  // trade size
	T    int64   `json:"t"`  // event time, nanoseconds since epoch
	BP   float64 `json:"bp"` // quote bid price
	AP   float64 `json:"ap"` // quote ask price
	BS   int64   `json:"bs"`
	AS   int64   `json:"as"`
}

// ParseFrame flattens Polygon's batched JSON-array frames into RawEvents.
// Every array element becomes a RawEvent whatever its "ev" discriminator;
// status elements and unrecognized discriminators are dropped later by
// the normalizer's translator, not treated as fatal.
func (v *Venue) ParseFrame(data []byte) ([]domain.RawEvent, error) {
	var events []dataEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("polygon: parse frame: %w", err)
	}

	now := time.Now().UTC()
	raw := make([]domain.RawEvent, 0, len(events))
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			continue
		}
		raw = append(raw, domain.RawEvent{
			Source:      v.Source(),
			Venue:       v.Channel(),
			ReceivedAt:  now,
			Payload:     payload,
			RoutingHint: e.Sym,
		})
	}
	return raw, nil
}

// EventTime converts a Polygon nanosecond epoch timestamp to time.Time,
// truncated to microsecond precision per spec.md §4.2.
func EventTime(nanos int64) time.Time {
	return time.Unix(0, nanos).UTC().Truncate(time.Microsecond)
}

// ParseNativeSymbol strips the channel prefix ("T.AAPL" -> "AAPL").
func ParseNativeSymbol(tickerParam string) string {
	parts := strings.SplitN(tickerParam, ".", 2)
	if len(parts) == 2 {
		return parts[1]
	}
	return tickerParam
}

// DecodeDataEvent is exported for the normalizer's translator to decode
// a RawEvent's payload without re-deriving the struct shape.
func DecodeDataEvent(payload []byte) (ev dataEvent, err error) {
	err = json.Unmarshal(payload, &ev)
	return
}

// Accessors used by the normalizer translator (kept unexported fields
// private to this package, exposed read-only here).
func (e dataEvent) EventType() string    { return e.Ev }
func (e dataEvent) Symbol() string       { return e.Sym }
func (e dataEvent) TradePrice() float64  { return e.P }
func (e dataEvent) TradeSize() int64     { return e.S }
func (e dataEvent) EventNanos() int64    { return e.T }
func (e dataEvent) BidPrice() float64    { return e.BP }
func (e dataEvent) AskPrice() float64    { return e.AP }
