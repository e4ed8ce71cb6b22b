package host

import (
	"algoexec/pkg/exchange"
	"algoexec/pkg/notify"
	"algoexec/pkg/order"
	"algoexec/pkg/strategy"
	"algoexec/pkg/types"
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// binding is the host as seen by a single instance: its venue and its observer.
type binding struct {
	host       *Host
	exchangeId string
	exchange   exchange.Exchange
	conn       notify.Connection

	// ctx ends when the instance asks for cancel-all; delayed submissions stop with it
	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup

	mu     sync.Mutex
	placed map[string]bool // client order ids accepted by the venue
}

func newBinding(h *Host, exchangeId string, exchg exchange.Exchange, conn notify.Connection) *binding {
	ctx, cancel := context.WithCancel(h.ctx)
	return &binding{
		host:       h,
		exchangeId: exchangeId,
		exchange:   exchg,
		conn:       conn,
		ctx:        ctx,
		cancel:     cancel,
		placed:     make(map[string]bool),
	}
}

var _ strategy.Host = (*binding)(nil)

// SubmitOrders places the orders after submitDelay. Venue failures come back to
// the instance as rejected order events. Orders still waiting when the instance
// cancels all are never placed.
func (b *binding) SubmitOrders(ctx context.Context, gid string, orders []*order.Order, submitDelay time.Duration) error {
	h := b.host
	if b.ctx.Err() != nil {
		return fmt.Errorf("instance %s is stopping", gid)
	}
	for _, o := range orders {
		h.track(gid, o.Id)
	}
	logger := h.logger.WithFields(log.Fields{"gid": gid, "event": EventOrderSubmitAll})
	logger.Debugf("%d order(s) after %v", len(orders), submitDelay)

	b.inflight.Add(1)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer b.inflight.Done()
		if !h.wait(b.ctx, submitDelay) {
			logger.Debugf("voided %d delayed order(s)", len(orders))
			return
		}
		for _, o := range orders {
			if b.ctx.Err() != nil {
				return
			}
			if err := b.place(o); err != nil {
				h.logger.WithFields(log.Fields{"gid": gid, "cloId": o.Id}).Errorf("fail to place order: %v", err)
				b.reject(gid, o, err)
				continue
			}
			b.mu.Lock()
			b.placed[o.Id] = true
			b.mu.Unlock()
		}
	}()
	return nil
}

func (b *binding) place(o *order.Order) error {
	qty := math.Abs(o.Amount)
	var err error
	if o.OrderType == types.OrderMarket {
		_, err = b.exchange.OpenMarketOrder(o.Symbol, o.Side(), qty, o.Lev, o.Id)
	} else {
		_, err = b.exchange.OpenLimitOrder(o.Symbol, o.Side(), o.Price, qty, o.Lev, o.Tif, o.Id)
	}
	if err != nil {
		return fmt.Errorf("fail to open %s order: %w", o.OrderType, err)
	}
	return nil
}

func (b *binding) reject(gid string, o *order.Order, err error) {
	inst := b.host.instance(gid)
	if inst == nil {
		return
	}
	inst.strat.OnOrder(types.OrderEvent{
		Time:        b.host.clock.Now(),
		Symbol:      o.Symbol,
		ClientOId:   o.Id,
		Side:        o.Side(),
		OrderStatus: types.OrderStatusRejected,
		Price:       o.Price,
		OrigQty:     math.Abs(o.Amount),
		OrderTif:    o.Tif,
		OrderType:   o.OrderType,
		Reason:      err.Error(),
	})
}

// CancelAllOrders voids submissions still waiting out their delay, then cancels
// the placed orders after cancelDelay. It runs through host shutdown so a
// stopping process still withdraws its slices.
func (b *binding) CancelAllOrders(ctx context.Context, gid string, orders map[string]*order.Order, cancelDelay time.Duration) error {
	b.cancel()
	h := b.host
	logger := h.logger.WithFields(log.Fields{"gid": gid, "event": EventOrderCancelAll})
	logger.Debugf("%d order(s) after %v", len(orders), cancelDelay)
	if len(orders) == 0 {
		return nil
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		b.inflight.Wait()
		h.wait(context.Background(), cancelDelay)
		for _, o := range orders {
			if !b.wasPlaced(o.Id) {
				continue
			}
			if err := b.exchange.CancelOrder(o.Symbol, o.ExchangeOId, o.Id); err != nil {
				logger.Warnf("fail to cancel order %s: %v", o.Id, err)
			}
		}
	}()
	return nil
}

func (b *binding) wasPlaced(cloId string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.placed[cloId]
}

func (b *binding) UpdateState(ctx context.Context, state *strategy.InstanceState) error {
	if err := b.host.store.Save(ctx, state); err != nil {
		return fmt.Errorf("fail to persist state: %w", err)
	}
	return nil
}

func (b *binding) Notify(gid string, level types.NotifyLevel, message string) {
	b.host.notifier.Notify(b.conn, gid, level, message)
}

func (b *binding) Debug(gid string, format string, args ...any) {
	b.host.logger.WithFields(log.Fields{"gid": gid, "exchange": b.exchangeId}).Debugf(format, args...)
}

func (b *binding) Candles(symbol string, interval types.Interval, window int) ([]types.KLineEvent, error) {
	klines, err := b.exchange.GetKLines(symbol, interval, window)
	if err != nil {
		return nil, fmt.Errorf("fail to get %s klines: %w", interval, err)
	}
	return klines, nil
}

func (b *binding) RequestStop(gid string) {
	go func() {
		if _, err := b.host.Stop(context.Background(), gid); err != nil {
			b.host.logger.WithField("gid", gid).Warnf("fail to stop instance: %v", err)
		}
	}()
}
