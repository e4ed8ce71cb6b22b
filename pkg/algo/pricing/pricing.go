package pricing

import (
	"algoexec/pkg/algo/params"
	"algoexec/pkg/indicator"
	"algoexec/pkg/types"
	"errors"
	"fmt"
	"math"
)

// ErrDataUnavailable means the market context cannot yet answer a price reference.
var ErrDataUnavailable = errors.New("price data unavailable")

// MarketContext is the market state a reference is resolved against.
// Book levels are best first; candle series are oldest first.
type MarketContext struct {
	Book      *types.BookDepthEvent
	LastTrade *types.TradeEvent
	Candles   map[types.Interval][]types.KLineEvent
}

// Resolve returns the reference base price shifted by its delta.
func Resolve(ref *params.PriceReference, mc MarketContext) (float64, error) {
	base, err := basePrice(ref, mc)
	if err != nil {
		return 0, err
	}
	return base + ref.DeltaValue(), nil
}

func basePrice(ref *params.PriceReference, mc MarketContext) (float64, error) {
	switch ref.Type {
	case params.PriceRefAsk:
		if mc.Book == nil || len(mc.Book.Asks) == 0 {
			return 0, fmt.Errorf("no ask in book: %w", ErrDataUnavailable)
		}
		return mc.Book.Asks[0].Price, nil

	case params.PriceRefBid:
		if mc.Book == nil || len(mc.Book.Bids) == 0 {
			return 0, fmt.Errorf("no bid in book: %w", ErrDataUnavailable)
		}
		return mc.Book.Bids[0].Price, nil

	case params.PriceRefMid:
		if mc.Book == nil || len(mc.Book.Asks) == 0 || len(mc.Book.Bids) == 0 {
			return 0, fmt.Errorf("book side empty: %w", ErrDataUnavailable)
		}
		return (mc.Book.Asks[0].Price + mc.Book.Bids[0].Price) / 2, nil

	case params.PriceRefLast:
		if mc.LastTrade == nil {
			return 0, fmt.Errorf("no trade seen: %w", ErrDataUnavailable)
		}
		return mc.LastTrade.Price, nil

	case params.PriceRefMA, params.PriceRefEMA:
		period := ref.Period()
		candles := mc.Candles[ref.CandleTimeFrame]
		if period < 1 || len(candles) < period {
			return 0, fmt.Errorf("%d of %d %s candles for %s(%d): %w",
				len(candles), period, ref.CandleTimeFrame, ref.Type, period, ErrDataUnavailable)
		}
		values := indicator.CandlePrices(candles, ref.CandlePrice)
		var line []float64
		if ref.Type == params.PriceRefMA {
			line = indicator.CalculateMovingAverage(values[len(values)-period:], period)
		} else {
			line = indicator.CalculateEMA(values, period)
		}
		return line[len(line)-1], nil
	}
	return 0, fmt.Errorf("unknown price reference type %q", ref.Type)
}

// Target resolves the offset reference and clamps it so it never crosses the cap:
// a buy never pays above the cap, a sell never asks below it.
func Target(offset, capRef *params.PriceReference, isBuy bool, mc MarketContext) (float64, error) {
	target, err := Resolve(offset, mc)
	if err != nil {
		return 0, fmt.Errorf("fail to resolve offset: %w", err)
	}
	if capRef == nil {
		return target, nil
	}

	limit, err := Resolve(capRef, mc)
	if err != nil {
		return 0, fmt.Errorf("fail to resolve cap: %w", err)
	}
	if isBuy {
		return math.Min(target, limit), nil
	}
	return math.Max(target, limit), nil
}

// SlicePrice is the submission price of a slice; market slices carry no price.
func SlicePrice(args params.Args, isBuy bool, mc MarketContext) (float64, error) {
	switch args.OrderType {
	case types.AlgoOrderMarket:
		return 0, nil
	case types.AlgoOrderLimit:
		return args.LimitPrice, nil
	default:
		return Target(args.RelativeOffset, args.RelativeCap, isBuy, mc)
	}
}
