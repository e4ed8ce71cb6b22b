package order

import (
	"algoexec/pkg/types"
	"time"
)

// Order is a slice child order of an algorithmic order instance.
// Amount is signed: positive buys, negative sells.
type Order struct {
	Id        string // client order id, unique per slice
	Gid       string // group id of the owning instance
	SliceSeq  int
	Symbol    string
	OrderType types.OrderType
	Price     float64 // zero for market orders
	Amount    float64
	Lev       int
	Tif       types.OrderTIF

	Status       types.OrderStatus
	ExchangeOId  string
	FilledAmount float64 // signed like Amount
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func New(id string, gid string, symbol string) *Order {
	return &Order{
		Id:     id,
		Gid:    gid,
		Symbol: symbol,
		Status: types.OrderStatusNew,
		Tif:    types.OrderTIFGTC,
	}
}

func (o *Order) Side() types.OrderSide {
	return types.SideOf(o.Amount)
}

func (o *Order) Clone() *Order {
	c := *o
	return &c
}

// CloneMap copies an order map so it can leave the owning goroutine.
func CloneMap(orders map[string]*Order) map[string]*Order {
	cloned := make(map[string]*Order, len(orders))
	for id, o := range orders {
		cloned[id] = o.Clone()
	}
	return cloned
}
