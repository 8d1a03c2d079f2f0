package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hadron-mkt/hadron/internal/domain"
)

// TicksRepo implements recorder.TickStore: a single-transaction batch
// insert, mirroring the teacher's InsertBatch (BeginTxx -> PrepareContext
// -> loop -> Commit). The tick table carries no uniqueness constraint —
// duplicates on replay/reconnect are accepted, it is a best-effort
// real-time log (spec.md §8).
type TicksRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewTicksRepo builds a repo. timeout bounds each whole batch
// transaction; it is fixed and does not scale with batch size.
func NewTicksRepo(db *sqlx.DB, timeout time.Duration) *TicksRepo {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TicksRepo{db: db, timeout: timeout}
}

func (r *TicksRepo) InsertBatch(ctx context.Context, ticks []domain.HadronTick) error {
	if len(ticks) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin tick batch tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ticks (instrument_id, venue, tick_type, price, size, ts, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`)
	if err != nil {
		return fmt.Errorf("postgres: prepare tick insert: %w", err)
	}
	defer stmt.Close()

	for _, tick := range ticks {
		if _, err := stmt.ExecContext(ctx,
			tick.InstrumentID, tick.Venue, string(tick.TickType),
			tick.Price, tick.Size, tick.Timestamp, tick.Source); err != nil {
			return fmt.Errorf("postgres: insert tick in batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit tick batch: %w", err)
	}
	return nil
}
