package gateway

import (
	"sync"

	"github.com/shopspring/decimal"
)

// LastPriceMap is the concurrent map of spec.md §5: written by every
// shard's engine as it observes ticks, read by the gateway when
// synthesizing an execution price. sync.Map is the correct tool here —
// it is the stdlib's answer for a map with disjoint keys under heavy
// concurrent write-once-read-many access, and no third-party
// concurrent-map library appears anywhere in the example corpus.
type LastPriceMap struct {
	m sync.Map // int64 instrument_id -> decimal.Decimal
}

// NewLastPriceMap builds an empty map.
func NewLastPriceMap() *LastPriceMap {
	return &LastPriceMap{}
}

// Set records the most recent observed price for an instrument. Called
// by engines; safe for concurrent use across shards since each shard
// only ever writes its own instrument ids.
func (l *LastPriceMap) Set(instrumentID int64, price decimal.Decimal) {
	l.m.Store(instrumentID, price)
}

// Get returns the last known price for an instrument, or false if none
// has been observed yet.
func (l *LastPriceMap) Get(instrumentID int64) (decimal.Decimal, bool) {
	v, ok := l.m.Load(instrumentID)
	if !ok {
		return decimal.Decimal{}, false
	}
	return v.(decimal.Decimal), true
}
