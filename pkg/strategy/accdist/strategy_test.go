package accdist

import (
	"algoexec/pkg/algo/params"
	"algoexec/pkg/notify"
	"algoexec/pkg/order"
	"algoexec/pkg/strategy"
	"algoexec/pkg/types"
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSymbol   = "BTCUSDT"
	testInterval = time.Second
)

type cancelCall struct {
	gid    string
	orders map[string]*order.Order
	delay  time.Duration
}

type note struct {
	level   types.NotifyLevel
	message string
}

type fakeHost struct {
	mu        sync.Mutex
	submits   []*order.Order
	cancels   []cancelCall
	states    []*strategy.InstanceState
	notes     []note
	stops     []string
	candleReq map[types.Interval]int
	candles   map[types.Interval][]types.KLineEvent
	submitErr error

	onSubmit func(o *order.Order)
	onStop   func(gid string)
}

func newFakeHost() *fakeHost {
	return &fakeHost{candleReq: map[types.Interval]int{}, candles: map[types.Interval][]types.KLineEvent{}}
}

func (h *fakeHost) SubmitOrders(ctx context.Context, gid string, orders []*order.Order, submitDelay time.Duration) error {
	h.mu.Lock()
	if h.submitErr != nil {
		err := h.submitErr
		h.mu.Unlock()
		return err
	}
	h.submits = append(h.submits, orders...)
	onSubmit := h.onSubmit
	h.mu.Unlock()

	if onSubmit != nil {
		for _, o := range orders {
			onSubmit(o)
		}
	}
	return nil
}

func (h *fakeHost) CancelAllOrders(ctx context.Context, gid string, orders map[string]*order.Order, cancelDelay time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cancels = append(h.cancels, cancelCall{gid: gid, orders: orders, delay: cancelDelay})
	return nil
}

func (h *fakeHost) UpdateState(ctx context.Context, state *strategy.InstanceState) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, state)
	return nil
}

func (h *fakeHost) Notify(gid string, level types.NotifyLevel, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notes = append(h.notes, note{level: level, message: message})
}

func (h *fakeHost) Debug(gid string, format string, args ...any) {}

func (h *fakeHost) Candles(symbol string, interval types.Interval, window int) ([]types.KLineEvent, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.candleReq[interval] = window
	return h.candles[interval], nil
}

func (h *fakeHost) RequestStop(gid string) {
	h.mu.Lock()
	h.stops = append(h.stops, gid)
	onStop := h.onStop
	h.mu.Unlock()
	if onStop != nil {
		go onStop(gid)
	}
}

func (h *fakeHost) submitted() []*order.Order {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*order.Order{}, h.submits...)
}

func (h *fakeHost) cancelCalls() []cancelCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]cancelCall{}, h.cancels...)
}

func (h *fakeHost) stateCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.states)
}

func (h *fakeHost) notesAt(level types.NotifyLevel) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, n := range h.notes {
		if n.level == level {
			out = append(out, n.message)
		}
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}

func marketParams() params.Params {
	return params.Params{
		Symbol:             testSymbol,
		Amount:             ptr(10.0),
		SliceAmount:        ptr(1.0),
		OrderType:          types.AlgoOrderMarket,
		SliceInterval:      ptr(float64(testInterval.Milliseconds())),
		IntervalDistortion: ptr(0.0),
		AmountDistortion:   ptr(0.0),
		SubmitDelay:        ptr(0.0),
		CancelDelay:        ptr(250.0),
		CatchUp:            ptr(true),
		AwaitFill:          ptr(false),
	}
}

func relativeParams(offset *params.PriceReference) params.Params {
	p := marketParams()
	p.OrderType = types.AlgoOrderRelative
	p.Amount = ptr(1.0)
	p.RelativeOffset = offset
	return p
}

type harness struct {
	strat *Strategy
	host  *fakeHost
	clock *clock.Mock
	errC  chan error
}

func start(t *testing.T, p params.Params, setup func(h *fakeHost)) *harness {
	t.Helper()
	host := newFakeHost()
	if setup != nil {
		setup(host)
	}
	mock := clock.NewMock()
	strat := New(Config{
		Gid:        "gid-1",
		ExchangeId: "paper",
		Params:     p,
		Connection: notify.Connection{Id: "conn-1"},
		Host:       host,
		Clock:      mock,
		Rand:       rand.New(rand.NewSource(1)),
	})
	require.NoError(t, strat.Validate())

	errC := make(chan error, 1)
	go func() { errC <- strat.Run(context.Background()) }()

	h := &harness{strat: strat, host: host, clock: mock, errC: errC}
	h.waitArmed(t, 0)
	t.Cleanup(func() { _ = strat.Shutdown() })
	return h
}

// waitArmed blocks until the instance has committed an armed timer at slice seq.
func (h *harness) waitArmed(t *testing.T, seq int) {
	t.Helper()
	require.Eventually(t, func() bool {
		s := h.strat.Snapshot()
		return s.Interval != nil && s.Seq == seq
	}, time.Second, time.Millisecond)
}

func TestStrategy_InvalidParams(t *testing.T) {
	p := marketParams()
	p.CatchUp = nil
	strat := New(Config{Params: p, Host: newFakeHost(), Clock: clock.NewMock()})

	var verr *params.ValidationError
	require.ErrorAs(t, strat.Validate(), &verr)
	assert.Equal(t, "Bool catch up flag required", verr.Reason)
	assert.ErrorAs(t, strat.Run(context.Background()), &verr)
	assert.NoError(t, strat.Shutdown())
}

func TestStrategy_GeneratesGid(t *testing.T) {
	a := New(Config{Params: marketParams(), Host: newFakeHost()})
	b := New(Config{Params: marketParams(), Host: newFakeHost()})
	assert.NotEmpty(t, a.Id())
	assert.NotEqual(t, a.Id(), b.Id())
	assert.Equal(t, a.Id(), a.Snapshot().Gid)
}

func TestStrategy_SubmitsAllSlices(t *testing.T) {
	h := start(t, marketParams(), nil)

	for seq := 1; seq <= 10; seq++ {
		h.clock.Add(testInterval)
		if seq < 10 {
			h.waitArmed(t, seq)
		}
	}
	require.Eventually(t, func() bool {
		return len(h.host.submitted()) == 10 && h.strat.Snapshot().Interval == nil
	}, time.Second, time.Millisecond)

	total := 0.0
	for i, o := range h.host.submitted() {
		assert.Equal(t, i+1, o.SliceSeq)
		assert.Equal(t, "gid-1", o.Gid)
		assert.Equal(t, testSymbol, o.Symbol)
		assert.Equal(t, types.OrderMarket, o.OrderType)
		assert.NotEmpty(t, o.Id)
		total += o.Amount
	}
	assert.InDelta(t, 10.0, total, 1e-9)
	assert.Equal(t, 10.0, h.strat.Snapshot().Submitted)
	assert.Len(t, h.strat.Snapshot().Orders, 10)
}

func TestStrategy_StopsItselfWhenFilled(t *testing.T) {
	var strat *Strategy
	h := start(t, marketParams(), func(host *fakeHost) {
		host.onSubmit = func(o *order.Order) {
			go strat.OnOrder(types.OrderEvent{
				Symbol:      o.Symbol,
				ClientOId:   o.Id,
				OId:         "x-" + o.Id,
				OrderStatus: types.OrderStatusFilled,
				AvgPrice:    100,
				FilledQty:   o.Amount,
			})
		}
		host.onStop = func(gid string) { _ = strat.Shutdown() }
	})
	strat = h.strat

	for seq := 1; seq <= 10; seq++ {
		h.clock.Add(testInterval)
		if seq < 10 {
			h.waitArmed(t, seq)
		}
	}

	select {
	case <-h.strat.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("instance did not stop after the last fill")
	}
	require.NoError(t, <-h.errC)

	snap := h.strat.Snapshot()
	assert.Equal(t, 10.0, snap.Filled)
	assert.Empty(t, snap.Orders)
	assert.True(t, snap.Stopped)
	assert.Len(t, h.host.notesAt(types.NotifySuccess), 1)
	require.Len(t, h.host.cancelCalls(), 1)
	assert.Empty(t, h.host.cancelCalls()[0].orders)
}

func TestStrategy_ShutdownMidWait(t *testing.T) {
	p := marketParams()
	p.AwaitFill = ptr(true)
	h := start(t, p, nil)

	h.clock.Add(testInterval)
	h.waitArmed(t, 1)
	require.Len(t, h.host.submitted(), 1)
	cloId := h.host.submitted()[0].Id

	require.NoError(t, h.strat.Shutdown())
	require.NoError(t, h.strat.Shutdown())
	require.NoError(t, <-h.errC)

	cancels := h.host.cancelCalls()
	require.Len(t, cancels, 1)
	assert.Equal(t, "gid-1", cancels[0].gid)
	assert.Equal(t, 250*time.Millisecond, cancels[0].delay)
	require.Contains(t, cancels[0].orders, cloId)
	assert.Equal(t, 1.0, cancels[0].orders[cloId].Amount)

	snap := h.strat.Snapshot()
	assert.Nil(t, snap.Interval)
	assert.True(t, snap.Stopped)

	h.clock.Add(10 * testInterval)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, h.host.submitted(), 1)
}

func TestStrategy_ShutdownIsIdempotent(t *testing.T) {
	h := start(t, marketParams(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.strat.Shutdown()
		}()
	}
	wg.Wait()
	assert.Len(t, h.host.cancelCalls(), 1)

	// events after teardown are dropped
	count := h.host.stateCount()
	h.strat.OnOrder(types.OrderEvent{ClientOId: "unknown", OrderStatus: types.OrderStatusFilled})
	assert.Equal(t, count, h.host.stateCount())
}

func TestStrategy_TradesIgnoredWithoutTradeTarget(t *testing.T) {
	h := start(t, marketParams(), nil)
	count := h.host.stateCount()

	h.strat.OnTrades([]types.TradeEvent{{Symbol: testSymbol, Price: 100}}, types.EventMeta{ChanFilter: types.ChanFilter{Symbol: testSymbol}})
	assert.Nil(t, h.strat.Snapshot().LastTrade)
	assert.Equal(t, count, h.host.stateCount())
}

func TestStrategy_TradesForOtherSymbolIgnored(t *testing.T) {
	h := start(t, relativeParams(&params.PriceReference{Type: params.PriceRefLast, Delta: ptr(5.0)}), nil)
	count := h.host.stateCount()

	h.strat.OnTrades([]types.TradeEvent{{Symbol: "ETHUSDT", Price: 3000}}, types.EventMeta{ChanFilter: types.ChanFilter{Symbol: "ETHUSDT"}})
	assert.Nil(t, h.strat.Snapshot().LastTrade)
	assert.Equal(t, count, h.host.stateCount())
}

func TestStrategy_RelativeToLastTrade(t *testing.T) {
	h := start(t, relativeParams(&params.PriceReference{Type: params.PriceRefLast, Delta: ptr(5.0)}), nil)

	trades := []types.TradeEvent{{Symbol: testSymbol, Price: 100}, {Symbol: testSymbol, Price: 99}}
	h.strat.OnTrades(trades, types.EventMeta{ChanFilter: types.ChanFilter{Symbol: testSymbol}})
	require.Eventually(t, func() bool {
		return h.strat.Snapshot().LastTrade != nil
	}, time.Second, time.Millisecond)
	assert.Equal(t, 100.0, h.strat.Snapshot().LastTrade.Price)

	h.clock.Add(testInterval)
	require.Eventually(t, func() bool { return len(h.host.submitted()) == 1 }, time.Second, time.Millisecond)

	o := h.host.submitted()[0]
	assert.Equal(t, types.OrderLimit, o.OrderType)
	assert.Equal(t, 105.0, o.Price)
	assert.Equal(t, types.OrderSideBuy, o.Side())
}

func TestStrategy_CapClampsBuy(t *testing.T) {
	p := relativeParams(&params.PriceReference{Type: params.PriceRefBid, Delta: ptr(2.0)})
	p.RelativeCap = &params.PriceReference{Type: params.PriceRefAsk, Delta: ptr(0.0)}
	h := start(t, p, nil)

	h.strat.OnBookDepth(types.BookDepthEvent{
		Symbol: testSymbol,
		Bids:   []types.Bid{{Price: 100, Qty: 1}},
		Asks:   []types.Ask{{Price: 101, Qty: 1}},
	})
	// the book update is queued ahead of the timer fire
	h.clock.Add(testInterval)
	require.Eventually(t, func() bool { return len(h.host.submitted()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 101.0, h.host.submitted()[0].Price)
}

func TestStrategy_IndicatorSeededFromHistory(t *testing.T) {
	offset := &params.PriceReference{
		Type:            params.PriceRefMA,
		Delta:           ptr(1.0),
		Args:            []float64{3},
		CandlePrice:     types.CandlePriceClose,
		CandleTimeFrame: types.Interval1m,
	}
	h := start(t, relativeParams(offset), func(host *fakeHost) {
		for i, c := range []float64{5, 10, 20, 30} {
			host.candles[types.Interval1m] = append(host.candles[types.Interval1m], types.KLineEvent{
				Symbol:   testSymbol,
				Interval: types.Interval1m,
				OpenTime: time.Unix(int64(i*60), 0),
				Kline:    types.KLine{C: c},
			})
		}
	})
	assert.Equal(t, 3+candleSlack, h.host.candleReq[types.Interval1m])

	h.clock.Add(testInterval)
	require.Eventually(t, func() bool { return len(h.host.submitted()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 21.0, h.host.submitted()[0].Price)
}

func TestStrategy_PriceUnavailableRetries(t *testing.T) {
	h := start(t, relativeParams(&params.PriceReference{Type: params.PriceRefMid, Delta: ptr(0.0)}), nil)

	h.clock.Add(testInterval)
	h.waitArmed(t, 1)
	assert.Empty(t, h.host.submitted())
	assert.Equal(t, 0.0, h.strat.Snapshot().Submitted)

	h.strat.OnBookDepth(types.BookDepthEvent{
		Symbol: testSymbol,
		Bids:   []types.Bid{{Price: 100, Qty: 1}},
		Asks:   []types.Ask{{Price: 102, Qty: 1}},
	})
	h.clock.Add(testInterval)
	require.Eventually(t, func() bool { return len(h.host.submitted()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 101.0, h.host.submitted()[0].Price)
	assert.Equal(t, 2, h.host.submitted()[0].SliceSeq)
}

func TestStrategy_SubmitFailureRollsBack(t *testing.T) {
	h := start(t, marketParams(), func(host *fakeHost) {
		host.submitErr = errors.New("venue down")
	})

	h.clock.Add(testInterval)
	h.waitArmed(t, 1)
	snap := h.strat.Snapshot()
	assert.Equal(t, 0.0, snap.Submitted)
	assert.Empty(t, snap.Orders)
	assert.NotEmpty(t, h.host.notesAt(types.NotifyError))
}

func TestStrategy_RejectedOrderIsRetried(t *testing.T) {
	p := marketParams()
	p.AwaitFill = ptr(true)
	h := start(t, p, nil)

	h.clock.Add(testInterval)
	h.waitArmed(t, 1)
	o := h.host.submitted()[0]

	h.strat.OnOrder(types.OrderEvent{Symbol: testSymbol, ClientOId: o.Id, OrderStatus: types.OrderStatusRejected, Reason: "insufficient margin"})
	require.Eventually(t, func() bool {
		return h.strat.Snapshot().Submitted == 0
	}, time.Second, time.Millisecond)
	assert.Empty(t, h.strat.Snapshot().Orders)
	assert.Contains(t, h.host.notesAt(types.NotifyError)[0], "insufficient margin")

	h.clock.Add(testInterval)
	require.Eventually(t, func() bool { return len(h.host.submitted()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, 2, h.host.submitted()[1].SliceSeq)
}

func TestStrategy_ShortFillIsRescheduled(t *testing.T) {
	p := marketParams()
	p.Amount = ptr(2.0)
	h := start(t, p, nil)

	h.clock.Add(testInterval)
	h.waitArmed(t, 1)
	h.clock.Add(testInterval)
	require.Eventually(t, func() bool {
		return len(h.host.submitted()) == 2 && h.strat.Snapshot().Interval == nil
	}, time.Second, time.Millisecond)

	first, second := h.host.submitted()[0], h.host.submitted()[1]
	h.strat.OnOrder(types.OrderEvent{Symbol: testSymbol, ClientOId: first.Id, OrderStatus: types.OrderStatusFilled, FilledQty: 1})
	h.strat.OnOrder(types.OrderEvent{Symbol: testSymbol, ClientOId: second.Id, OrderStatus: types.OrderStatusCanceled, FilledQty: 0.4})

	h.waitArmed(t, 2)
	snap := h.strat.Snapshot()
	assert.InDelta(t, 1.4, snap.Filled, 1e-9)
	assert.InDelta(t, 1.4, snap.Submitted, 1e-9)
	assert.Empty(t, snap.Orders)
	assert.Empty(t, h.host.notesAt(types.NotifySuccess))

	h.clock.Add(testInterval)
	require.Eventually(t, func() bool { return len(h.host.submitted()) == 3 }, time.Second, time.Millisecond)
	third := h.host.submitted()[2]
	assert.Equal(t, 3, third.SliceSeq)
	assert.InDelta(t, 0.6, third.Amount, 1e-9)
}

func TestStrategy_ContextCancelTearsDown(t *testing.T) {
	host := newFakeHost()
	strat := New(Config{Gid: "gid-2", Params: marketParams(), Host: host, Clock: clock.NewMock()})
	ctx, cancel := context.WithCancel(context.Background())

	errC := make(chan error, 1)
	go func() { errC <- strat.Run(ctx) }()
	require.Eventually(t, func() bool { return strat.Snapshot().Interval != nil }, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-errC)
	assert.Len(t, host.cancelCalls(), 1)
	assert.Nil(t, strat.Snapshot().Interval)
}
