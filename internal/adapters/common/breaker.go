package common

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// FaultBreaker gives the health surface a crisp signal distinct from
// "still reconnecting": once a venue's consecutive authentication
// failures cross the threshold, the breaker opens and the adapter is
// reported Faulted until an operator intervenes (credential rotation),
// rather than burning the reconnect loop forever on a dead key.
type FaultBreaker struct {
	venue   string
	breaker *gobreaker.CircuitBreaker
}

// NewFaultBreaker builds a breaker that trips after consecutiveFailures
// auth failures in a row and stays open for cooldown before allowing a
// single trial request through again.
func NewFaultBreaker(venue string, consecutiveFailures uint32, cooldown time.Duration) *FaultBreaker {
	settings := gobreaker.Settings{
		Name:        venue + "-auth",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("venue", venue).Str("from", from.String()).Str("to", to.String()).
				Msg("adapter fault breaker state change")
		},
	}
	return &FaultBreaker{venue: venue, breaker: gobreaker.NewCircuitBreaker(settings)}
}

// Allow reports whether an authentication attempt may proceed right now.
// It only reads state (letting gobreaker's own cooldown-elapsed ->
// half-open transition happen), never feeds a synthetic success into the
// breaker: doing so via Execute would reset ConsecutiveFailures on every
// call and the breaker would never trip.
func (f *FaultBreaker) Allow() bool {
	return f.breaker.State() != gobreaker.StateOpen
}

// RecordAuthFailure feeds one auth failure into the breaker's trip
// condition. The attempt already happened outside the breaker, so it is
// replayed through Execute as a callback that only returns the failure.
func (f *FaultBreaker) RecordAuthFailure() {
	_, _ = f.breaker.Execute(func() (interface{}, error) {
		return nil, errAuthFailed
	})
}

// RecordAuthSuccess resets the breaker's consecutive-failure counter.
func (f *FaultBreaker) RecordAuthSuccess() {
	_, _ = f.breaker.Execute(func() (interface{}, error) { return nil, nil })
}

// State reports the breaker's current gobreaker state as a string.
func (f *FaultBreaker) State() string {
	return f.breaker.State().String()
}

var errAuthFailed = authFailedErr{}

type authFailedErr struct{}

func (authFailedErr) Error() string { return "authentication failed" }
