// Package ratelimit provides per-venue token-bucket rate limiting so
// adapters don't trip a venue's per-message or per-connection limits
// during subscribe storms and resubscribe-after-reconnect bursts.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter is a token-bucket limiter for a single venue.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
}

// New creates a Limiter allowing rps requests per second with the given
// burst capacity.
func New(rps float64, burst int) *Limiter {
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Allow reports whether a request may proceed right now without blocking.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Wait blocks until a request is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Manager holds one Limiter per venue.
type Manager struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
}

// NewManager creates an empty venue rate-limiter registry.
func NewManager() *Manager {
	return &Manager{limiters: make(map[string]*Limiter)}
}

// AddVenue registers a limiter for venue.
func (m *Manager) AddVenue(venue string, rps float64, burst int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[venue] = New(rps, burst)
}

// Wait blocks until venue's limiter admits a request, or ctx is done. If
// no limiter is registered for venue, it returns immediately.
func (m *Manager) Wait(ctx context.Context, venue string) error {
	m.mu.RLock()
	l, ok := m.limiters[venue]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return l.Wait(ctx)
}

// Limiter returns the registered Limiter for venue, or nil if none was
// added via AddVenue.
func (m *Manager) Limiter(venue string) *Limiter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.limiters[venue]
}
