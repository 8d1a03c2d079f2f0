// Package strategy implements pluggable decision producers invoked per
// tick against shard-local instrument state (spec.md §4.4).
package strategy

import (
	"github.com/hadron-mkt/hadron/internal/domain"
)

// Strategy is polymorphic over the capability set {identify, on_tick,
// enable/disable}. Implementations must never mutate the InstrumentState
// passed to OnTick — the engine owns all writes to it.
type Strategy interface {
	Identify() string
	Enable()
	Disable()
	Enabled() bool
	// OnTick returns a decision for this tick, or nil for no opinion. An
	// error is logged by the engine and treated as equivalent to nil —
	// the shard continues (spec.md §4.4 failure semantics).
	OnTick(state *domain.InstrumentState, tick domain.HadronTick) (*domain.StrategyDecision, error)
}

// Factory builds a fresh Strategy instance. Each shard's engine gets its
// own instances so per-strategy internal state (if any) never crosses
// shard boundaries, consistent with spec.md's "no cross-shard
// coordination."
type Factory func() Strategy

// enableState is embedded by strategies for the Enable/Disable/Enabled
// capability.
type enableState struct {
	enabled bool
}

func (e *enableState) Enable()       { e.enabled = true }
func (e *enableState) Disable()      { e.enabled = false }
func (e *enableState) Enabled() bool { return e.enabled }
