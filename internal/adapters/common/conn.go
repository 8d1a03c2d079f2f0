package common

import "time"

// Conn is the minimal surface the driver loop needs from a websocket
// connection. *websocket.Conn (github.com/gorilla/websocket) satisfies
// this directly; tests substitute a fake.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}
