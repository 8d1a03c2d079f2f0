package normalizer

import (
	"context"

	"github.com/hadron-mkt/hadron/internal/domain"
)

// ResolveFunc resolves a venue-native ticker to a stable instrument id,
// auto-creating the instrument with assetClass as its default if unseen.
type ResolveFunc func(ctx context.Context, ticker, assetClass string) (int64, error)

// Translator converts one venue's RawEvent into a HadronTick. A nil tick
// with a nil error means the frame carried no price (quote-only control
// data, or an event the translator intentionally ignores) and should be
// dropped silently, per spec.md §4.2's "any translator that cannot
// extract a price drops the event silently (logged)."
type Translator interface {
	Translate(ctx context.Context, ev domain.RawEvent, resolve ResolveFunc) (*domain.HadronTick, error)
}
