package types

type OrderSide string

const (
	OrderSideBuy  = OrderSide("buy")
	OrderSideSell = OrderSide("sell")
)

type OrderTIF string // TimeInForce

const (
	OrderTIFGTC = OrderTIF("GTC") // Good 'Til Canceled
	OrderTIFGTX = OrderTIF("GTX") // Good 'Till Crossing
	OrderTIFIOC = OrderTIF("IOC") // Immediate or Cancel
	OrderTIFFOK = OrderTIF("FOK") // Fill or Kill
)

type OrderType string

const (
	OrderLimit  = OrderType("limit")
	OrderMarket = OrderType("market")
)

type OrderStatus string

const (
	OrderStatusNew           = OrderStatus("new")
	OrderStatusPartialFilled = OrderStatus("partial_filled")
	OrderStatusFilled        = OrderStatus("filled")
	OrderStatusCanceled      = OrderStatus("canceled")
	OrderStatusRejected      = OrderStatus("rejected")
	OrderStatusExpired       = OrderStatus("expired")
)

// IsFinal reports whether no further fills can happen for the status.
func (s OrderStatus) IsFinal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected, OrderStatusExpired:
		return true
	default:
		return false
	}
}

// AlgoOrderType is the parent order type of an algorithmic order; slices inherit it.
type AlgoOrderType string

const (
	AlgoOrderMarket   = AlgoOrderType("MARKET")
	AlgoOrderLimit    = AlgoOrderType("LIMIT")
	AlgoOrderRelative = AlgoOrderType("RELATIVE")
)

// SideOf maps a signed amount to an order side: positive buys, negative sells.
func SideOf(amount float64) OrderSide {
	if amount < 0 {
		return OrderSideSell
	}
	return OrderSideBuy
}
