package types

import (
	"time"
)

type TradeEvent struct {
	Event        string
	Time         time.Time
	Symbol       string
	Price        float64
	Quantity     float64
	Side         string
	ReceivedTime time.Time
}

type KLine struct {
	O float64
	H float64
	L float64
	C float64
}

// Price picks one of the OHLC values; unknown selectors fall back to close.
func (k KLine) Price(p CandlePrice) float64 {
	switch p {
	case CandlePriceOpen:
		return k.O
	case CandlePriceHigh:
		return k.H
	case CandlePriceLow:
		return k.L
	default:
		return k.C
	}
}

type KLineEvent struct {
	Event        string
	OpenTime     time.Time
	CloseTime    time.Time
	Symbol       string
	Interval     Interval
	Kline        KLine
	ReceivedTime time.Time
}

type BookDepthEvent struct {
	Event        string
	Time         time.Time
	Symbol       string
	Bids         []Bid
	Asks         []Ask
	ReceivedTime time.Time
}

type OrderEvent struct {
	Event        string
	Time         time.Time
	Symbol       string
	OId          string // order ID
	ClientOId    string // client-specified order ID
	Side         OrderSide
	IsReduceOnly bool
	OrderStatus  OrderStatus
	Price        float64
	OrigQty      float64
	OrderTif     OrderTIF
	OrderType    OrderType
	Reason       string // set by the host when a submission is rejected before reaching the venue

	// fields below valid once order is filled
	AvgPrice  float64
	FilledQty float64
	Fee       float64 // transaction fee
	FeeAsset  string  // asset used for fee e.g. USDT
}

type Bid struct {
	Price float64
	Qty   float64
}

type Ask struct {
	Price float64
	Qty   float64
}

// ChanFilter identifies the market data channel an event batch came from.
type ChanFilter struct {
	Symbol string
}

// EventMeta carries source channel information alongside a market data batch.
type EventMeta struct {
	ChanFilter ChanFilter
}
