package common

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hadron-mkt/hadron/internal/domain"
	"github.com/hadron-mkt/hadron/internal/ratelimit"
)

// Sink is the bounded MPSC channel every adapter pushes RawEvents into.
// Sending blocks when the channel is at capacity — this is the
// backpressure contract of spec.md §4.1: adapters never buffer
// unboundedly themselves.
type Sink = chan<- domain.RawEvent

// Driver runs a single venue's connection lifecycle forever until ctx is
// cancelled: Connecting -> Authenticating -> Subscribing -> Streaming ->
// (Disconnected | Faulted) -> Connecting ..., per spec.md §4.1.
type Driver struct {
	venue   Venue
	sink    Sink
	health  Health
	breaker *FaultBreaker
	backoff *Backoff
	limiter *ratelimit.Limiter
}

// NewDriver wires a venue to its event sink, health reporter, and fault
// breaker. health and breaker may be nil to use no-op defaults.
func NewDriver(venue Venue, sink Sink, health Health, breaker *FaultBreaker) *Driver {
	if health == nil {
		health = NoopHealth{}
	}
	return &Driver{
		venue:   venue,
		sink:    sink,
		health:  health,
		breaker: breaker,
		backoff: NewBackoff(),
	}
}

// WithRateLimiter attaches a token-bucket limiter guarding the venue's
// (re)subscribe calls, so a burst of reconnects never trips the venue's
// own per-message or per-connection rate limit.
func (d *Driver) WithRateLimiter(limiter *ratelimit.Limiter) *Driver {
	d.limiter = limiter
	return d
}

// Run drives the reconnect loop until ctx is cancelled or the adapter
// faults: an unrecoverable auth failure ends Run once the fault breaker
// has tripped, or at once when no breaker is attached (Faulted is
// terminal for this adapter, never for the process).
func (d *Driver) Run(ctx context.Context) {
	venue := d.venue.Channel()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("venue", venue).Interface("panic", r).Bytes("stack", debug.Stack()).
				Msg("adapter: run loop panicked, exiting")
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		if d.breaker != nil && !d.breaker.Allow() {
			d.health.SetConnState(venue, StateFaulted)
			log.Warn().Str("venue", venue).Msg("adapter fault breaker open, skipping connect attempt")
			if !sleepCtx(ctx, d.backoff.Next()) {
				return
			}
			continue
		}

		d.health.SetConnState(venue, StateConnecting)
		conn, err := d.venue.Connect(ctx)
		if err != nil {
			log.Warn().Err(err).Str("venue", venue).Msg("connect failed, backing off")
			d.health.SetConnState(venue, StateDisconnected)
			if !sleepCtx(ctx, d.backoff.Next()) {
				return
			}
			continue
		}

		if !d.runConnection(ctx, conn) {
			return
		}
	}
}

// runConnection drives one connection attempt through Authenticating,
// Subscribing, and Streaming. It returns false if the driver should stop
// entirely (ctx cancelled or the venue is terminally faulted).
func (d *Driver) runConnection(ctx context.Context, conn Conn) bool {
	venue := d.venue.Channel()
	defer conn.Close()

	d.health.SetConnState(venue, StateAuthenticating)
	if err := d.venue.Authenticate(ctx, conn); err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			if d.breaker != nil {
				d.breaker.RecordAuthFailure()
			}
			log.Error().Err(err).Str("venue", venue).Msg("unrecoverable auth failure, faulting adapter")
			d.health.SetConnState(venue, StateFaulted)
			if d.breaker == nil || !d.breaker.Allow() {
				return false
			}
			if !sleepCtx(ctx, d.backoff.Next()) {
				return false
			}
			return true
		}
		log.Warn().Err(err).Str("venue", venue).Msg("transient auth error, reconnecting")
		d.health.SetConnState(venue, StateDisconnected)
		if !sleepCtx(ctx, d.backoff.Next()) {
			return false
		}
		return true
	}
	if d.breaker != nil {
		d.breaker.RecordAuthSuccess()
	}

	d.health.SetConnState(venue, StateSubscribing)
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return false
		}
	}
	if err := d.venue.Subscribe(ctx, conn); err != nil {
		var subErr *SubscriptionError
		if errors.As(err, &subErr) {
			log.Warn().Err(err).Str("venue", venue).Msg("partial subscription failure, continuing")
		} else {
			log.Warn().Err(err).Str("venue", venue).Msg("subscribe failed, reconnecting")
			d.health.SetConnState(venue, StateDisconnected)
			if !sleepCtx(ctx, d.backoff.Next()) {
				return false
			}
			return true
		}
	}

	d.health.SetConnState(venue, StateStreaming)
	streamStart := time.Now()

	for {
		if ctx.Err() != nil {
			return false
		}

		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, frame, err := conn.ReadMessage()
		if err != nil {
			log.Warn().Err(err).Str("venue", venue).Msg("read error, reconnecting")
			d.health.SetConnState(venue, StateDisconnected)
			d.health.IncReconnect(venue)
			if !sleepCtx(ctx, d.backoff.Next()) {
				return false
			}
			return true
		}

		if time.Since(streamStart) >= d.backoff.ResetAfter() {
			d.backoff.Reset()
		}

		events, perr := d.venue.ParseFrame(frame)
		if perr != nil {
			log.Warn().Err(perr).Str("venue", venue).Msg("parse error, skipping frame")
			continue
		}
		for _, ev := range events {
			select {
			case d.sink <- ev:
				d.health.RecordMessage(venue)
			case <-ctx.Done():
				return false
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
