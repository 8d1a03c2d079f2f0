package common

import (
	"math/rand"
	"time"
)

// Backoff implements the exponential-with-jitter reconnect policy from
// spec.md §4.1: starts at 1s, doubles to a 60s cap, jittered +/-20%. A
// Streaming period of at least resetAfter resets the sequence.
type Backoff struct {
	base      time.Duration
	cap       time.Duration
	resetAfter time.Duration
	attempt   int
}

// NewBackoff builds the spec-recommended policy (1s base, 60s cap, 30s
// streaming-reset window).
func NewBackoff() *Backoff {
	return &Backoff{
		base:       time.Second,
		cap:        60 * time.Second,
		resetAfter: 30 * time.Second,
	}
}

// Next returns the delay to wait before the next reconnect attempt and
// advances the internal attempt counter.
func (b *Backoff) Next() time.Duration {
	d := b.base << uint(b.attempt)
	if d <= 0 || d > b.cap {
		d = b.cap
	}
	b.attempt++

	jitter := 0.2
	delta := float64(d) * jitter
	offset := (rand.Float64()*2 - 1) * delta
	result := time.Duration(float64(d) + offset)
	if result < 0 {
		result = b.base
	}
	return result
}

// Reset clears the attempt counter, e.g. after a Streaming period that
// lasted at least resetAfter.
func (b *Backoff) Reset() {
	b.attempt = 0
}

// ResetAfter is the minimum time in Streaming state before a successful
// connection resets the backoff sequence.
func (b *Backoff) ResetAfter() time.Duration {
	return b.resetAfter
}
