package normalizer

import (
	"context"

	"github.com/hadron-mkt/hadron/internal/domain"
)

// InstrumentStore is the external instrument table the normalizer reads
// from and auto-creates into (spec.md §6). Implementations must make
// Insert race-safe via "ON CONFLICT (primary_source, ticker) DO NOTHING
// RETURNING id" so two adapters racing to first-see the same symbol
// converge on one row.
type InstrumentStore interface {
	// Lookup finds an existing instrument by (primary_source, ticker).
	Lookup(ctx context.Context, primarySource, ticker string) (id int64, found bool, err error)
	// Insert attempts to create a new instrument row. If the row already
	// exists (a concurrent insert won the race), found is false and the
	// caller must re-Lookup.
	Insert(ctx context.Context, inst domain.Instrument) (id int64, found bool, err error)
}
