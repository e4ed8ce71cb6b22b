package strategy

import (
	"algoexec/pkg/order"
	"algoexec/pkg/types"
	"context"
	"time"
)

type Strategy interface {
	Id() string
	Name() types.StrategyName
	Validate() error
	Run(ctx context.Context) error
	Shutdown() error

	// market and order events; safe to call from any goroutine
	OnTrades(trades []types.TradeEvent, meta types.EventMeta)
	OnBookDepth(evt types.BookDepthEvent)
	OnKLine(evt types.KLineEvent)
	OnOrder(evt types.OrderEvent)

	// Snapshot returns a copy of the last committed state.
	Snapshot() *InstanceState
}

// Host is what a running instance needs from its runtime.
type Host interface {
	// SubmitOrders hands slices to the venue after submitDelay; venue failures
	// come back later as rejected order events.
	SubmitOrders(ctx context.Context, gid string, orders []*order.Order, submitDelay time.Duration) error
	// CancelAllOrders cancels every given order after cancelDelay. Submissions of
	// the instance still waiting out their delay are dropped first.
	CancelAllOrders(ctx context.Context, gid string, orders map[string]*order.Order, cancelDelay time.Duration) error
	// UpdateState commits a state snapshot; it returns once the snapshot is stored.
	UpdateState(ctx context.Context, state *InstanceState) error
	Notify(gid string, level types.NotifyLevel, message string)
	Debug(gid string, format string, args ...any)
	Candles(symbol string, interval types.Interval, window int) ([]types.KLineEvent, error)
	// RequestStop asks the host to stop and release the instance. It must not
	// wait for the stop, the caller is the instance itself.
	RequestStop(gid string)
}
