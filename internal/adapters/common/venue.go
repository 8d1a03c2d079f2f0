package common

import (
	"context"

	"github.com/hadron-mkt/hadron/internal/domain"
)

// Venue abstracts over a venue's wire protocol; the driver loop is
// generic over it. Per spec.md §9 "Polymorphic venue adapters", each
// variant supplies {connect, authenticate, subscribe, parse_frame} and
// shares the reconnect/backoff engine in Run.
type Venue interface {
	// Source is the venue family, e.g. "polygon" or "kalshi".
	Source() string
	// Channel is the specific endpoint/mode, e.g. "polygon_ws_delayed".
	Channel() string

	// Connect dials the venue and returns a live connection.
	Connect(ctx context.Context) (Conn, error)
	// Authenticate performs the venue's auth handshake. Returns
	// *AuthError for unrecoverable credential failures.
	Authenticate(ctx context.Context, conn Conn) error
	// Subscribe issues subscription requests for the configured universe.
	// Must be idempotent: safe to call again after reconnect.
	Subscribe(ctx context.Context, conn Conn) error
	// ParseFrame translates one inbound frame into zero or more RawEvents.
	// A nil, nil return means the frame was a control/status frame.
	ParseFrame(data []byte) ([]domain.RawEvent, error)
}
