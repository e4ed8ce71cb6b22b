package strategy

import (
	"algoexec/pkg/algo/params"
	"algoexec/pkg/algo/scheduler"
	"algoexec/pkg/notify"
	"algoexec/pkg/order"
	"algoexec/pkg/types"
	"time"
)

// TimerState describes the armed slice timer.
type TimerState struct {
	Seq   int       `json:"seq" msgpack:"seq"`
	DueAt time.Time `json:"dueAt" msgpack:"dueAt"`
}

// InstanceState is the persisted state of one algorithmic order.
type InstanceState struct {
	Gid        string             `json:"gid" msgpack:"gid"`
	Algo       types.StrategyName `json:"algo" msgpack:"algo"`
	ExchangeId string             `json:"exchangeId" msgpack:"exchangeId"`
	Args       params.Params      `json:"args" msgpack:"args"`
	Connection notify.Connection  `json:"connection" msgpack:"connection"`

	Orders    map[string]*order.Order `json:"orders" msgpack:"orders"` // outstanding slices by client order id
	LastTrade *types.TradeEvent       `json:"lastTrade,omitempty" msgpack:"lastTrade"`
	Interval  *TimerState             `json:"interval" msgpack:"interval"` // nil unless a timer is armed

	Phase     scheduler.Phase `json:"phase" msgpack:"phase"`
	Seq       int             `json:"seq" msgpack:"seq"`
	Submitted float64         `json:"submitted" msgpack:"submitted"`
	Filled    float64         `json:"filled" msgpack:"filled"`
	Stopped   bool            `json:"stopped" msgpack:"stopped"`

	CreatedAt time.Time `json:"createdAt" msgpack:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" msgpack:"updatedAt"`
}

// Clone deep-copies the mutable parts. Args are immutable once validated and are shared.
func (s *InstanceState) Clone() *InstanceState {
	c := *s
	c.Orders = order.CloneMap(s.Orders)
	if s.LastTrade != nil {
		trade := *s.LastTrade
		c.LastTrade = &trade
	}
	if s.Interval != nil {
		interval := *s.Interval
		c.Interval = &interval
	}
	return &c
}
