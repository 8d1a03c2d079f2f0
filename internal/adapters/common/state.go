package common

// ConnState is a venue adapter connection's position in the lifecycle
// spec.md §4.1 defines: Connecting -> Authenticating -> Subscribing ->
// Streaming -> (Disconnected | Faulted) -> Connecting ...
type ConnState string

const (
	StateConnecting     ConnState = "connecting"
	StateAuthenticating ConnState = "authenticating"
	StateSubscribing    ConnState = "subscribing"
	StateStreaming      ConnState = "streaming"
	StateDisconnected   ConnState = "disconnected"
	StateFaulted        ConnState = "faulted"
)
