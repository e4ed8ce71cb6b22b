package market

import (
	"algoexec/pkg/types"
	"math"

	"github.com/shopspring/decimal"
)

type Market struct {
	Id           int64 // market id (or index), usually for API usage
	ExchangeName types.ExchangeName
	Symbol       string

	TickSize          float64 // min price movement
	MinNotional       float64 // min order value in USD
	LotMinQty         float64 // min limit order quantity (e.g. 0.01 means 0.009 BTC is invalid)
	LotMaxQty         float64 // max limit order quantity (e.g. 5000 means 5001 BTC is invalid)
	LotStepSize       float64 // limit order quantity granularity (e.g. 0.01 means 25.001 BTC is invalid)
	MarketLotMinQty   float64 // minimum market order quantity (e.g. 0.01 means 0.009 BTC is invalid)
	MarketLotMaxQty   float64 // max market order quantity (e.g. 5000 means 5001 BTC is invalid)
	MarketLotStepSize float64 // market order quantity granularity (e.g. 0.01 means 25.001 BTC is invalid)
	MaxLeverage       float64 // max leverage gearing
}

func New(exchangeName types.ExchangeName, id int64, symbol string) *Market {
	return &Market{
		ExchangeName: exchangeName,
		Id:           id,
		Symbol:       symbol,
	}
}

// RoundQty truncates an absolute quantity down to the lot step of the order type.
func (m *Market) RoundQty(qty float64, orderType types.OrderType) float64 {
	step := m.LotStepSize
	if orderType == types.OrderMarket {
		step = m.MarketLotStepSize
	}
	return roundDownToStep(qty, step)
}

// QtyFilter returns the quantity step and minimum that apply to the order type.
// Market orders fall back to the limit filters when the venue reports none.
func (m *Market) QtyFilter(orderType types.OrderType) (step float64, minQty float64) {
	step, minQty = m.LotStepSize, m.LotMinQty
	if orderType == types.OrderMarket {
		if m.MarketLotStepSize > 0 {
			step = m.MarketLotStepSize
		}
		if m.MarketLotMinQty > 0 {
			minQty = m.MarketLotMinQty
		}
	}
	return step, minQty
}

// FitsLot reports whether qty is a whole number of steps and at least the minimum.
func (m *Market) FitsLot(qty float64, orderType types.OrderType) bool {
	step, minQty := m.QtyFilter(orderType)
	d := decimal.NewFromFloat(math.Abs(qty))
	if minQty > 0 && d.LessThan(decimal.NewFromFloat(minQty)) {
		return false
	}
	if step <= 0 {
		return true
	}
	return d.Mod(decimal.NewFromFloat(step)).IsZero()
}

// RoundPrice snaps a price to the nearest tick.
func (m *Market) RoundPrice(price float64) float64 {
	if m.TickSize <= 0 {
		return price
	}
	tick := decimal.NewFromFloat(m.TickSize)
	f, _ := decimal.NewFromFloat(price).Div(tick).Round(0).Mul(tick).Float64()
	return f
}

func roundDownToStep(val float64, step float64) float64 {
	if step <= 0 {
		return val
	}
	d := decimal.NewFromFloat(math.Abs(val))
	s := decimal.NewFromFloat(step)
	f, _ := d.Div(s).Floor().Mul(s).Float64()
	return f
}
