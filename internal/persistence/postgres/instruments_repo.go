// Package postgres implements Hadron's store interfaces (instruments,
// ticks, intents, executions) against PostgreSQL via sqlx and lib/pq,
// grounded on the teacher's trades_repo.go style: context-timeout
// wrapping per call, ON CONFLICT DO NOTHING + re-SELECT for race-safe
// inserts, pq.Error inspection for duplicate-key detection.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hadron-mkt/hadron/internal/domain"
)

// InstrumentsRepo implements normalizer.InstrumentStore against the
// instrument table.
type InstrumentsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewInstrumentsRepo builds a repo with a bounded per-call timeout
// (spec.md §5 recommends 5 s for normalization store round-trips).
func NewInstrumentsRepo(db *sqlx.DB, timeout time.Duration) *InstrumentsRepo {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &InstrumentsRepo{db: db, timeout: timeout}
}

// Lookup finds an existing instrument by (primary_source, ticker).
func (r *InstrumentsRepo) Lookup(ctx context.Context, primarySource, ticker string) (int64, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var id int64
	err := r.db.GetContext(ctx, &id,
		`SELECT id FROM instruments WHERE primary_source = $1 AND ticker = $2`,
		primarySource, ticker)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("postgres: lookup instrument %s/%s: %w", primarySource, ticker, err)
	}
	return id, true, nil
}

// Insert creates a new instrument row, racing safely against a concurrent
// first-sight insert of the same symbol via ON CONFLICT DO NOTHING. If
// the row already existed, found is false and the caller re-Lookups
// (spec.md §9's auto-create race).
func (r *InstrumentsRepo) Insert(ctx context.Context, inst domain.Instrument) (int64, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var id int64
	err := r.db.GetContext(ctx, &id, `
		INSERT INTO instruments (ticker, asset_class, primary_source, status, name)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (primary_source, ticker) DO NOTHING
		RETURNING id`,
		inst.Ticker, inst.AssetClass, inst.PrimarySource, inst.Status, inst.Name)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("postgres: insert instrument %s/%s: %w", inst.PrimarySource, inst.Ticker, err)
	}
	return id, true, nil
}
