package normalizer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/hadron-mkt/hadron/internal/adapters/polygon"
	"github.com/hadron-mkt/hadron/internal/domain"
)

// PolygonTranslator implements the equity-like translation rules of
// spec.md §4.2: trade events carry price+size at nanosecond precision
// (truncated to microsecond), quote events carry the bid/ask midpoint with
// a null size.
type PolygonTranslator struct{}

func (PolygonTranslator) Translate(ctx context.Context, ev domain.RawEvent, resolve ResolveFunc) (*domain.HadronTick, error) {
	data, err := polygon.DecodeDataEvent(ev.Payload)
	if err != nil {
		return nil, fmt.Errorf("polygon translator: decode: %w", err)
	}

	switch data.EventType() {
	case "T": // trade
		if data.TradePrice() == 0 {
			log.Warn().Str("sym", data.Symbol()).Msg("polygon trade missing price, dropping")
			return nil, nil
		}
		id, err := resolve(ctx, data.Symbol(), "equity")
		if err != nil {
			return nil, err
		}
		size := data.TradeSize()
		ts := polygon.EventTime(data.EventNanos())
		if data.EventNanos() == 0 {
			ts = ev.ReceivedAt
		}
		return &domain.HadronTick{
			InstrumentID: id,
			Venue:        ev.Venue,
			TickType:     domain.TickTrade,
			Price:        decimal.NewFromFloat(data.TradePrice()).Round(6),
			Size:         &size,
			Timestamp:    ts,
			Source:       ev.Source,
		}, nil

	case "Q": // quote
		if data.BidPrice() == 0 && data.AskPrice() == 0 {
			return nil, nil
		}
		mid := (data.BidPrice() + data.AskPrice()) / 2
		if data.BidPrice() == 0 {
			mid = data.AskPrice()
		} else if data.AskPrice() == 0 {
			mid = data.BidPrice()
		}
		id, err := resolve(ctx, data.Symbol(), "equity")
		if err != nil {
			return nil, err
		}
		return &domain.HadronTick{
			InstrumentID: id,
			Venue:        ev.Venue,
			TickType:     domain.TickQuote,
			Price:        decimal.NewFromFloat(mid).Round(6),
			Size:         nil,
			Timestamp:    ev.ReceivedAt,
			Source:       ev.Source,
		}, nil

	default:
		log.Debug().Str("ev", data.EventType()).Msg("polygon: unrecognized event type, dropping")
		return nil, nil
	}
}
