package normalizer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/hadron-mkt/hadron/internal/adapters/kalshi"
	"github.com/hadron-mkt/hadron/internal/domain"
)

// centsToDecimal converts an integer-cents probability price to a
// decimal in [0, 1], satisfying the boundary behavior that 0 and 100
// cents normalize to exactly 0.00 and 1.00 (spec.md §8).
func centsToDecimal(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
}

// KalshiTranslator implements the prediction-market translation rules of
// spec.md §4.2: ticker updates become Quote ticks (midpoint fallback when
// last_price is absent), trade frames become Trade ticks, book snapshots
// become BookUpdate ticks priced at the bid/ask midpoint, and book deltas
// carry no price and are dropped.
type KalshiTranslator struct{}

func (KalshiTranslator) Translate(ctx context.Context, ev domain.RawEvent, resolve ResolveFunc) (*domain.HadronTick, error) {
	switch kalshi.FrameType(ev.Payload) {
	case "ticker":
		t, err := kalshi.DecodeTicker(ev.Payload)
		if err != nil {
			return nil, fmt.Errorf("kalshi translator: decode ticker: %w", err)
		}
		var cents int64
		switch {
		case t.LastPrice != nil:
			cents = *t.LastPrice
		case t.Bid != nil && t.Ask != nil:
			cents = (*t.Bid + *t.Ask) / 2
		case t.Bid != nil:
			cents = *t.Bid
		case t.Ask != nil:
			cents = *t.Ask
		default:
			log.Warn().Str("market", t.MarketTicker).Msg("kalshi ticker missing price, dropping")
			return nil, nil
		}
		id, err := resolve(ctx, t.MarketTicker, "other")
		if err != nil {
			return nil, err
		}
		return &domain.HadronTick{
			InstrumentID: id,
			Venue:        ev.Venue,
			TickType:     domain.TickQuote,
			Price:        centsToDecimal(cents),
			Size:         nil,
			Timestamp:    ev.ReceivedAt,
			Source:       ev.Source,
		}, nil

	case "trade", "trades":
		t, err := kalshi.DecodeTrade(ev.Payload)
		if err != nil {
			return nil, fmt.Errorf("kalshi translator: decode trade: %w", err)
		}
		id, err := resolve(ctx, t.MarketTicker, "other")
		if err != nil {
			return nil, err
		}
		size := t.Count
		ts := ev.ReceivedAt
		return &domain.HadronTick{
			InstrumentID: id,
			Venue:        ev.Venue,
			TickType:     domain.TickTrade,
			Price:        centsToDecimal(t.Price),
			Size:         &size,
			Timestamp:    ts,
			Source:       ev.Source,
		}, nil

	case "orderbook_snapshot":
		b, err := kalshi.DecodeTicker(ev.Payload) // snapshot shares bid/ask shape with ticker
		if err != nil || (b.Bid == nil && b.Ask == nil) {
			return nil, nil
		}
		var cents int64
		switch {
		case b.Bid != nil && b.Ask != nil:
			cents = (*b.Bid + *b.Ask) / 2
		case b.Bid != nil:
			cents = *b.Bid
		default:
			cents = *b.Ask
		}
		id, err := resolve(ctx, b.MarketTicker, "other")
		if err != nil {
			return nil, err
		}
		return &domain.HadronTick{
			InstrumentID: id,
			Venue:        ev.Venue,
			TickType:     domain.TickBookUpdate,
			Price:        centsToDecimal(cents),
			Size:         nil,
			Timestamp:    ev.ReceivedAt,
			Source:       ev.Source,
		}, nil

	case "orderbook_delta":
		// Deltas carry only incremental level changes, no standalone
		// top-of-book price; spec.md §4.2 drops any translator output
		// that cannot extract a price.
		return nil, nil

	default:
		log.Debug().Str("frame_type", kalshi.FrameType(ev.Payload)).Msg("kalshi: unrecognized frame type, dropping")
		return nil, nil
	}
}
