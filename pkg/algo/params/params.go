package params

import (
	"algoexec/pkg/types"
	"algoexec/pkg/utils"
	"encoding/json"
	"fmt"
	"time"
)

type PriceRefType string

const (
	PriceRefAsk  = PriceRefType("ask")
	PriceRefBid  = PriceRefType("bid")
	PriceRefMid  = PriceRefType("mid")
	PriceRefLast = PriceRefType("last")
	PriceRefMA   = PriceRefType("ma")
	PriceRefEMA  = PriceRefType("ema")
)

var PriceRefTypes = []PriceRefType{PriceRefAsk, PriceRefBid, PriceRefMid, PriceRefLast, PriceRefMA, PriceRefEMA}

// IsIndicator reports whether the reference is computed from a candle series.
func (t PriceRefType) IsIndicator() bool {
	return t == PriceRefMA || t == PriceRefEMA
}

// PriceReference describes how a live price is derived: a book/trade reference or an
// indicator over candles, shifted by Delta.
type PriceReference struct {
	Type            PriceRefType      `json:"type" jsonschema:"enum=ask,enum=bid,enum=mid,enum=last,enum=ma,enum=ema"`
	Delta           *float64          `json:"delta,omitempty"`
	Args            []float64         `json:"args,omitempty"`
	CandlePrice     types.CandlePrice `json:"candlePrice,omitempty" jsonschema:"enum=open,enum=high,enum=low,enum=close"`
	CandleTimeFrame types.Interval    `json:"candleTimeFrame,omitempty"`
}

// Period is the indicator window; only meaningful for ma/ema references.
func (r *PriceReference) Period() int {
	if len(r.Args) == 0 {
		return 0
	}
	return int(r.Args[0])
}

// DeltaValue returns the offset, zero when unset.
func (r *PriceReference) DeltaValue() float64 {
	if r.Delta == nil {
		return 0
	}
	return *r.Delta
}

// Params is the wire form of an accumulate/distribute order. Pointer fields keep
// presence explicit so the validator can tell a missing value from a zero one.
type Params struct {
	Symbol             string              `json:"symbol"`
	Amount             *float64            `json:"amount"`
	SliceAmount        *float64            `json:"sliceAmount"`
	OrderType          types.AlgoOrderType `json:"orderType" jsonschema:"enum=MARKET,enum=LIMIT,enum=RELATIVE"`
	LimitPrice         *float64            `json:"limitPrice,omitempty"`
	SliceInterval      *float64            `json:"sliceInterval"`
	IntervalDistortion *float64            `json:"intervalDistortion"`
	AmountDistortion   *float64            `json:"amountDistortion"`
	SubmitDelay        *float64            `json:"submitDelay"`
	CancelDelay        *float64            `json:"cancelDelay"`
	CatchUp            *bool               `json:"catchUp"`
	AwaitFill          *bool               `json:"awaitFill"`
	RelativeOffset     *PriceReference     `json:"relativeOffset,omitempty"`
	RelativeCap        *PriceReference     `json:"relativeCap,omitempty"`
	Lev                *float64            `json:"lev,omitempty"`
	Futures            bool                `json:"_futures,omitempty"`
}

// Decode reads params from JSON the way a form submits them: a field whose value
// has the wrong JSON type is treated as absent and left for Validate to report.
func Decode(data []byte) (Params, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Params{}, fmt.Errorf("fail to decode params: %w", err)
	}

	p := Params{
		Amount:             field[float64](raw, "amount"),
		SliceAmount:        field[float64](raw, "sliceAmount"),
		LimitPrice:         field[float64](raw, "limitPrice"),
		SliceInterval:      field[float64](raw, "sliceInterval"),
		IntervalDistortion: field[float64](raw, "intervalDistortion"),
		AmountDistortion:   field[float64](raw, "amountDistortion"),
		SubmitDelay:        field[float64](raw, "submitDelay"),
		CancelDelay:        field[float64](raw, "cancelDelay"),
		CatchUp:            field[bool](raw, "catchUp"),
		AwaitFill:          field[bool](raw, "awaitFill"),
		Lev:                field[float64](raw, "lev"),
		RelativeOffset:     priceRefField(raw, "relativeOffset"),
		RelativeCap:        priceRefField(raw, "relativeCap"),
	}
	if s := field[string](raw, "symbol"); s != nil {
		p.Symbol = *s
	}
	if s := field[string](raw, "orderType"); s != nil {
		p.OrderType = types.AlgoOrderType(*s)
	}
	if f := field[bool](raw, "_futures"); f != nil {
		p.Futures = *f
	}
	return p, nil
}

func field[T any](raw map[string]json.RawMessage, key string) *T {
	v, ok := raw[key]
	if !ok || string(v) == "null" {
		return nil
	}
	var out T
	if err := json.Unmarshal(v, &out); err != nil {
		return nil
	}
	return &out
}

func priceRefField(raw map[string]json.RawMessage, key string) *PriceReference {
	obj := field[map[string]json.RawMessage](raw, key)
	if obj == nil {
		return nil
	}
	ref := &PriceReference{Delta: field[float64](*obj, "delta")}
	if t := field[string](*obj, "type"); t != nil {
		ref.Type = PriceRefType(*t)
	}
	if a := field[[]float64](*obj, "args"); a != nil {
		ref.Args = *a
	}
	if cp := field[string](*obj, "candlePrice"); cp != nil {
		ref.CandlePrice = types.CandlePrice(*cp)
	}
	if tf := field[string](*obj, "candleTimeFrame"); tf != nil {
		ref.CandleTimeFrame = types.Interval(*tf)
	}
	return ref
}

// Args is a validated parameter set with concrete values.
type Args struct {
	Symbol             string
	Amount             float64
	SliceAmount        float64
	OrderType          types.AlgoOrderType
	LimitPrice         float64
	SliceInterval      time.Duration
	IntervalDistortion float64 // percent
	AmountDistortion   float64 // percent
	SubmitDelay        time.Duration
	CancelDelay        time.Duration
	CatchUp            bool
	AwaitFill          bool
	RelativeOffset     *PriceReference
	RelativeCap        *PriceReference
	Lev                int
	Futures            bool
}

// Args compiles the params; it validates first so callers never see a partial result.
func (p Params) Args() (Args, error) {
	if err := p.Validate(); err != nil {
		return Args{}, err
	}
	a := Args{
		Symbol:             p.Symbol,
		Amount:             *p.Amount,
		SliceAmount:        *p.SliceAmount,
		OrderType:          p.OrderType,
		SliceInterval:      utils.MsToDuration(*p.SliceInterval),
		IntervalDistortion: *p.IntervalDistortion,
		AmountDistortion:   *p.AmountDistortion,
		SubmitDelay:        utils.MsToDuration(*p.SubmitDelay),
		CancelDelay:        utils.MsToDuration(*p.CancelDelay),
		CatchUp:            *p.CatchUp,
		AwaitFill:          *p.AwaitFill,
		RelativeOffset:     p.RelativeOffset,
		RelativeCap:        p.RelativeCap,
		Lev:                1,
		Futures:            p.Futures,
	}
	if p.LimitPrice != nil {
		a.LimitPrice = *p.LimitPrice
	}
	if p.Futures {
		a.Lev = int(*p.Lev)
	}
	return a, nil
}

// ChildOrderType is the venue order type of each slice.
func (a Args) ChildOrderType() types.OrderType {
	if a.OrderType == types.AlgoOrderMarket {
		return types.OrderMarket
	}
	return types.OrderLimit
}

// HasTradeTarget reports whether pricing depends on the last trade, i.e. whether
// trade ticks carry information this order needs.
func (a Args) HasTradeTarget() bool {
	return (a.RelativeOffset != nil && a.RelativeOffset.Type == PriceRefLast) ||
		(a.RelativeCap != nil && a.RelativeCap.Type == PriceRefLast)
}

// CandleFeeds lists the candle time frames and history depth the indicators need.
func (a Args) CandleFeeds() map[types.Interval]int {
	feeds := map[types.Interval]int{}
	for _, ref := range []*PriceReference{a.RelativeOffset, a.RelativeCap} {
		if ref == nil || !ref.Type.IsIndicator() {
			continue
		}
		if n := ref.Period(); n > feeds[ref.CandleTimeFrame] {
			feeds[ref.CandleTimeFrame] = n
		}
	}
	return feeds
}
