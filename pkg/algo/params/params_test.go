package params

import (
	"algoexec/pkg/types"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func validParams() Params {
	return Params{
		Symbol:             "BTCUSDT",
		Amount:             ptr(1000.0),
		SliceAmount:        ptr(100.0),
		OrderType:          types.AlgoOrderMarket,
		SliceInterval:      ptr(1000.0),
		IntervalDistortion: ptr(0.0),
		AmountDistortion:   ptr(0.0),
		SubmitDelay:        ptr(150.0),
		CancelDelay:        ptr(150.0),
		CatchUp:            ptr(false),
		AwaitFill:          ptr(false),
	}
}

func emaRef() *PriceReference {
	return &PriceReference{
		Type:            PriceRefEMA,
		Delta:           ptr(-2.0),
		Args:            []float64{20},
		CandlePrice:     types.CandlePriceClose,
		CandleTimeFrame: types.Interval1h,
	}
}

func TestValidate_ValidParams(t *testing.T) {
	assert.NoError(t, validParams().Validate())

	limit := validParams()
	limit.OrderType = types.AlgoOrderLimit
	limit.LimitPrice = ptr(25000.0)
	assert.NoError(t, limit.Validate())

	relative := validParams()
	relative.OrderType = types.AlgoOrderRelative
	relative.RelativeOffset = emaRef()
	relative.RelativeCap = &PriceReference{Type: PriceRefLast, Delta: ptr(5.0)}
	assert.NoError(t, relative.Validate())

	sell := validParams()
	sell.Amount = ptr(-1000.0)
	sell.SliceAmount = ptr(-100.0)
	sell.IntervalDistortion = ptr(20.0)
	sell.Futures = true
	sell.Lev = ptr(10.0)
	assert.NoError(t, sell.Validate())
}

func TestValidate_SingleFieldMutations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Params)
		want   string
	}{
		{"unknown order type", func(p *Params) { p.OrderType = "STOP" }, "Invalid order type: STOP"},
		{"missing amount", func(p *Params) { p.Amount = nil }, "Invalid amount"},
		{"nan amount", func(p *Params) { p.Amount = ptr(math.NaN()) }, "Invalid amount"},
		{"infinite slice amount", func(p *Params) { p.SliceAmount = ptr(math.Inf(1)) }, "Invalid slice amount"},
		{"negative submit delay", func(p *Params) { p.SubmitDelay = ptr(-1.0) }, "Invalid submit delay"},
		{"missing cancel delay", func(p *Params) { p.CancelDelay = nil }, "Invalid cancel delay"},
		{"missing catch up", func(p *Params) { p.CatchUp = nil }, "Bool catch up flag required"},
		{"missing await fill", func(p *Params) { p.AwaitFill = nil }, "Bool await fill flag required"},
		{"negative slice interval", func(p *Params) { p.SliceInterval = ptr(-1000.0) }, "Invalid slice interval"},
		{"zero slice interval", func(p *Params) { p.SliceInterval = ptr(0.0) }, "Invalid slice interval"},
		{"missing interval distortion", func(p *Params) { p.IntervalDistortion = nil }, "Interval distortion required"},
		{"missing amount distortion", func(p *Params) { p.AmountDistortion = nil }, "Amount distortion required"},
		{"limit without price", func(p *Params) { p.OrderType = types.AlgoOrderLimit }, "Limit price required for LIMIT order type"},
		{"cap without delta", func(p *Params) { p.RelativeCap = &PriceReference{Type: PriceRefBid} }, "Invalid relative cap delta"},
		{"cap unknown type", func(p *Params) { p.RelativeCap = &PriceReference{Type: "vwap", Delta: ptr(0.0)} }, "Invalid relative cap type: vwap"},
		{"cap indicator two args", func(p *Params) {
			p.RelativeCap = emaRef()
			p.RelativeCap.Args = []float64{20, 50}
		}, "Invalid args for relative cap indicator"},
		{"cap indicator no args", func(p *Params) {
			p.RelativeCap = emaRef()
			p.RelativeCap.Args = nil
		}, "Invalid args for relative cap indicator"},
		{"cap indicator no candle price", func(p *Params) {
			p.RelativeCap = emaRef()
			p.RelativeCap.CandlePrice = ""
		}, "Candle price required for relative cap indicator"},
		{"cap indicator no time frame", func(p *Params) {
			p.RelativeCap = emaRef()
			p.RelativeCap.CandleTimeFrame = ""
		}, "Candle time frame required for relative cap indicator"},
		{"cap indicator unknown time frame", func(p *Params) {
			p.RelativeCap = emaRef()
			p.RelativeCap.CandleTimeFrame = "2m"
		}, "Unrecognized relative cap candle time frame: 2m"},
		{"cap indicator nan period", func(p *Params) {
			p.RelativeCap = emaRef()
			p.RelativeCap.Args = []float64{math.NaN()}
		}, "Invalid relative cap indicator period: NaN"},
		{"offset indicator fractional period", func(p *Params) {
			p.RelativeOffset = emaRef()
			p.RelativeOffset.Args = []float64{2.5}
		}, "Invalid relative offset indicator period: 2.5"},
		{"offset without delta", func(p *Params) { p.RelativeOffset = &PriceReference{Type: PriceRefAsk} }, "Invalid relative offset delta"},
		{"offset indicator two args", func(p *Params) {
			p.RelativeOffset = emaRef()
			p.RelativeOffset.Type = PriceRefMA
			p.RelativeOffset.Args = []float64{1, 2}
		}, "Invalid args for relative offset indicator"},
		{"offset indicator unknown time frame", func(p *Params) {
			p.RelativeOffset = emaRef()
			p.RelativeOffset.CandleTimeFrame = "4h"
		}, "Unrecognized relative offset candle time frame: 4h"},
		{"mismatched signs", func(p *Params) { p.SliceAmount = ptr(-100.0) }, "Amount & slice amount must have same sign"},
		{"sell with zero slice", func(p *Params) {
			p.Amount = ptr(-1000.0)
			p.SliceAmount = ptr(0.0)
		}, "Amount & slice amount must have same sign"},
		{"zero amount", func(p *Params) {
			p.Amount = ptr(0.0)
			p.SliceAmount = ptr(0.0)
		}, "Invalid amount: zero"},
		{"relative without offset", func(p *Params) { p.OrderType = types.AlgoOrderRelative }, "Relative offset required for RELATIVE order type"},
		{"missing symbol", func(p *Params) { p.Symbol = "" }, "Symbol required"},
		{"futures without leverage", func(p *Params) { p.Futures = true }, "Invalid leverage"},
		{"futures leverage below 1", func(p *Params) {
			p.Futures = true
			p.Lev = ptr(0.5)
		}, "Leverage less than 1"},
		{"futures leverage above 100", func(p *Params) {
			p.Futures = true
			p.Lev = ptr(101.0)
		}, "Leverage greater than 100"},
		{"futures fractional leverage", func(p *Params) {
			p.Futures = true
			p.Lev = ptr(2.5)
		}, "Leverage must be a whole number: 2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)
			err := p.Validate()
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.want, verr.Reason)
		})
	}
}

func TestValidate_Precedence(t *testing.T) {
	p := validParams()
	p.OrderType = "bogus"
	p.Amount = nil
	p.CatchUp = nil
	assert.EqualError(t, p.Validate(), "Invalid order type: bogus")

	p = validParams()
	p.SliceAmount = ptr(-5.0)
	p.RelativeOffset = &PriceReference{Type: PriceRefMid}
	assert.EqualError(t, p.Validate(), "Invalid relative offset delta")
}

func TestValidate_Deterministic(t *testing.T) {
	p := validParams()
	p.SliceInterval = nil
	assert.Equal(t, p.Validate(), p.Validate())
}

func TestValidate_LeverageIgnoredOutsideFutures(t *testing.T) {
	p := validParams()
	p.Lev = ptr(500.0)
	assert.NoError(t, p.Validate())
}

func TestDecode(t *testing.T) {
	p, err := Decode([]byte(`{
		"symbol": "ETHUSDT",
		"amount": -3,
		"sliceAmount": -0.5,
		"orderType": "RELATIVE",
		"sliceInterval": 2000,
		"intervalDistortion": 10,
		"amountDistortion": 0,
		"submitDelay": 150,
		"cancelDelay": 100,
		"catchUp": true,
		"awaitFill": false,
		"relativeOffset": {"type": "last", "delta": 5},
		"relativeCap": {"type": "ma", "delta": 0, "args": [10], "candlePrice": "close", "candleTimeFrame": "5m"},
		"lev": 3,
		"_futures": true
	}`))
	require.NoError(t, err)
	require.NoError(t, p.Validate())

	a, err := p.Args()
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", a.Symbol)
	assert.Equal(t, -3.0, a.Amount)
	assert.Equal(t, 2*time.Second, a.SliceInterval)
	assert.Equal(t, 150*time.Millisecond, a.SubmitDelay)
	assert.Equal(t, 100*time.Millisecond, a.CancelDelay)
	assert.True(t, a.CatchUp)
	assert.Equal(t, 3, a.Lev)
	assert.True(t, a.HasTradeTarget())
	assert.Equal(t, map[types.Interval]int{types.Interval5m: 10}, a.CandleFeeds())
}

func TestDecode_WrongTypesAreAbsent(t *testing.T) {
	p, err := Decode([]byte(`{
		"symbol": "BTCUSDT", "amount": 10, "sliceAmount": 1, "orderType": "MARKET",
		"sliceInterval": 1000, "intervalDistortion": 0, "amountDistortion": 0,
		"submitDelay": 0, "cancelDelay": 0, "catchUp": "yes", "awaitFill": false
	}`))
	require.NoError(t, err)
	assert.Nil(t, p.CatchUp)
	assert.EqualError(t, p.Validate(), "Bool catch up flag required")

	p, err = Decode([]byte(`{"orderType": "MARKET", "amount": "ten"}`))
	require.NoError(t, err)
	assert.EqualError(t, p.Validate(), "Invalid amount")

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestArgs_RejectsInvalid(t *testing.T) {
	p := validParams()
	p.AwaitFill = nil
	_, err := p.Args()
	assert.EqualError(t, err, "Bool await fill flag required")

	a, err := validParams().Args()
	require.NoError(t, err)
	assert.Equal(t, time.Second, a.SliceInterval)
	assert.Equal(t, 1, a.Lev)
	assert.False(t, a.HasTradeTarget())
	assert.Empty(t, a.CandleFeeds())
}
