package types

// Interval is a candle time frame width.
type Interval string

const (
	Interval1m  = Interval("1m")
	Interval5m  = Interval("5m")
	Interval15m = Interval("15m")
	Interval30m = Interval("30m")
	Interval1h  = Interval("1h")
	Interval3h  = Interval("3h")
	Interval6h  = Interval("6h")
	Interval12h = Interval("12h")
	Interval1D  = Interval("1D")
	Interval7D  = Interval("7D")
	Interval14D = Interval("14D")
	Interval1M  = Interval("1M")
)

// Intervals lists every recognized candle width, shortest first.
var Intervals = []Interval{
	Interval1m, Interval5m, Interval15m, Interval30m,
	Interval1h, Interval3h, Interval6h, Interval12h,
	Interval1D, Interval7D, Interval14D, Interval1M,
}

type CandlePrice string

const (
	CandlePriceOpen  = CandlePrice("open")
	CandlePriceHigh  = CandlePrice("high")
	CandlePriceLow   = CandlePrice("low")
	CandlePriceClose = CandlePrice("close")
)
