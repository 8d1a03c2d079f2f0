package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/hadron-mkt/hadron/internal/domain"
)

// IntentsRepo implements recorder.IntentStore: intents and executions are
// low-volume and written individually, one transaction per row per
// spec.md §4.6.
type IntentsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewIntentsRepo(db *sqlx.DB, timeout time.Duration) *IntentsRepo {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &IntentsRepo{db: db, timeout: timeout}
}

func (r *IntentsRepo) InsertIntent(ctx context.Context, intent domain.OrderIntent) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var limitPrice interface{}
	if intent.LimitPrice != nil {
		limitPrice = *intent.LimitPrice
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_intents (intent_id, instrument_id, strategy_id, side, quantity, order_type, limit_price, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		intent.IntentID, intent.InstrumentID, intent.StrategyID, string(intent.Side),
		intent.Quantity, string(intent.OrderType), limitPrice, intent.Timestamp)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("postgres: duplicate intent %s: %w", intent.IntentID, err)
		}
		return fmt.Errorf("postgres: insert intent %s: %w", intent.IntentID, err)
	}
	return nil
}

func (r *IntentsRepo) InsertExecution(ctx context.Context, execution domain.OrderExecution) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_executions (intent_id, instrument_id, venue, executed_at, executed_price, executed_quantity, status, venue_order_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		execution.IntentID, execution.InstrumentID, execution.Venue, execution.ExecutedAt,
		execution.ExecutedPrice, execution.ExecutedQuantity, string(execution.Status), execution.VenueOrderID)
	if err != nil {
		return fmt.Errorf("postgres: insert execution for intent %s: %w", execution.IntentID, err)
	}
	return nil
}
