package accdist

import (
	"algoexec/pkg/algo/params"
	"algoexec/pkg/algo/pricing"
	"algoexec/pkg/algo/scheduler"
	"algoexec/pkg/market"
	"algoexec/pkg/notify"
	"algoexec/pkg/order"
	"algoexec/pkg/strategy"
	"algoexec/pkg/types"
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	mailboxSize = 256
	// candles kept per time frame beyond the longest indicator period
	candleSlack = 50
)

type Config struct {
	Gid        string // generated when empty
	ExchangeId string
	Params     params.Params
	Market     *market.Market // lot filters for slice sizing, none when nil
	Connection notify.Connection
	Host       strategy.Host
	Clock      clock.Clock // wall clock when nil
	Rand       *rand.Rand
}

// Strategy runs one accumulate/distribute order. All state is owned by the
// goroutine in Run; event handlers only enqueue work for it.
type Strategy struct {
	gid      string
	args     params.Args
	validErr error

	host  strategy.Host
	clock clock.Clock
	sched *scheduler.Scheduler

	// actor-owned
	state    *strategy.InstanceState
	mc       pricing.MarketContext
	feeds    map[types.Interval]int
	timer    *clock.Timer
	timerSeq int
	settled  bool

	snap     atomic.Pointer[strategy.InstanceState]
	mailbox  chan func()
	stopC    chan struct{}
	doneC    chan struct{}
	stopOnce sync.Once
	started  atomic.Bool

	logger *log.Entry
}

var _ strategy.Strategy = (*Strategy)(nil)

func New(cfg Config) *Strategy {
	gid := cfg.Gid
	if gid == "" {
		gid = uuid.NewString()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	s := &Strategy{
		gid:     gid,
		host:    cfg.Host,
		clock:   clk,
		mailbox: make(chan func(), mailboxSize),
		stopC:   make(chan struct{}),
		doneC:   make(chan struct{}),
		logger: log.WithFields(log.Fields{
			"gid":    gid,
			"algo":   types.StrategyAccumulateDistribute,
			"symbol": cfg.Params.Symbol,
		}),
	}
	s.args, s.validErr = cfg.Params.Args()
	if s.validErr == nil {
		schedCfg := scheduler.ConfigFromArgs(s.args)
		if cfg.Market != nil {
			schedCfg.LotStep, schedCfg.LotMinQty = cfg.Market.QtyFilter(s.args.ChildOrderType())
		}
		s.sched = scheduler.New(schedCfg, cfg.Rand)
		s.feeds = s.args.CandleFeeds()
	}

	now := clk.Now()
	s.state = &strategy.InstanceState{
		Gid:        gid,
		Algo:       types.StrategyAccumulateDistribute,
		ExchangeId: cfg.ExchangeId,
		Args:       cfg.Params,
		Connection: cfg.Connection,
		Orders:     map[string]*order.Order{},
		Phase:      scheduler.PhaseIdle,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.mc = pricing.MarketContext{Candles: map[types.Interval][]types.KLineEvent{}}
	s.snap.Store(s.state.Clone())
	return s
}

func (s *Strategy) Id() string {
	return s.gid
}

func (s *Strategy) Name() types.StrategyName {
	return types.StrategyAccumulateDistribute
}

func (s *Strategy) Validate() error {
	return s.validErr
}

func (s *Strategy) Snapshot() *strategy.InstanceState {
	return s.snap.Load().Clone()
}

// Done is closed once teardown has finished.
func (s *Strategy) Done() <-chan struct{} {
	return s.doneC
}

// ╔═════════════════╗
//      Lifecycle
// ╚═════════════════╝

// Run drives the instance until ctx is cancelled or Shutdown is called, then tears down.
func (s *Strategy) Run(ctx context.Context) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("instance already running: %s", s.gid)
	}
	defer close(s.doneC)

	s.seedCandles()
	s.commit()
	s.apply(s.sched.Start(s.clock.Now()))
	s.host.Notify(s.gid, types.NotifyInfo, fmt.Sprintf("started %s %v %s", s.Name(), s.args.Amount, s.args.Symbol))

	for {
		// stop wins over anything already queued
		select {
		case <-s.stopC:
			s.teardown()
			return nil
		case <-ctx.Done():
			s.teardown()
			return nil
		default:
		}

		select {
		case <-s.stopC:
			s.teardown()
			return nil
		case <-ctx.Done():
			s.teardown()
			return nil
		case fn := <-s.mailbox:
			fn()
		}
	}
}

// Shutdown stops the instance and waits for teardown. Repeated calls are no-ops.
func (s *Strategy) Shutdown() error {
	s.stopOnce.Do(func() { close(s.stopC) })
	if s.started.Load() {
		<-s.doneC
	}
	return nil
}

// teardown clears the timer before anything else so no slice can fire while
// orders are being cancelled, then issues the cancel-all.
func (s *Strategy) teardown() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerSeq++
	s.state.Interval = nil
	s.sched.Stop()
	s.state.Stopped = true
	s.commit()
	s.host.Debug(s.gid, "cleared interval")

	s.host.Debug(s.gid, "detected accumulate/distribute cancelation, stopping...")
	orders := order.CloneMap(s.state.Orders)
	if err := s.host.CancelAllOrders(context.Background(), s.gid, orders, s.args.CancelDelay); err != nil {
		s.logger.Errorf("fail to cancel orders: %v", err)
		s.host.Notify(s.gid, types.NotifyError, fmt.Sprintf("fail to cancel orders: %v", err))
	}
	s.logger.Info("😴 stopped")
}

// enqueue hands work to the actor; work arriving after teardown is dropped.
func (s *Strategy) enqueue(fn func()) {
	select {
	case <-s.stopC:
		return
	case <-s.doneC:
		return
	default:
	}
	select {
	case s.mailbox <- fn:
	case <-s.stopC:
	case <-s.doneC:
	}
}

// ╔═════════════════╗
//       Events
// ╚═════════════════╝

// OnTrades keeps the last trade when pricing depends on it and the batch is
// for this order's symbol; everything else is ignored.
func (s *Strategy) OnTrades(trades []types.TradeEvent, meta types.EventMeta) {
	if len(trades) == 0 || !s.args.HasTradeTarget() || meta.ChanFilter.Symbol != s.args.Symbol {
		return
	}
	lastTrade := trades[0]
	s.enqueue(func() {
		s.host.Debug(s.gid, "recv last price: %f [%+v]", lastTrade.Price, lastTrade)
		s.state.LastTrade = &lastTrade
		s.mc.LastTrade = &lastTrade
		s.commit()
	})
}

func (s *Strategy) OnBookDepth(evt types.BookDepthEvent) {
	if evt.Symbol != s.args.Symbol {
		return
	}
	s.enqueue(func() {
		s.mc.Book = &evt
	})
}

func (s *Strategy) OnKLine(evt types.KLineEvent) {
	if evt.Symbol != s.args.Symbol {
		return
	}
	if _, ok := s.feeds[evt.Interval]; !ok {
		return
	}
	s.enqueue(func() {
		s.appendCandle(evt)
	})
}

func (s *Strategy) OnOrder(evt types.OrderEvent) {
	s.enqueue(func() {
		s.handleOrder(evt)
	})
}

func (s *Strategy) onFire(seq int) {
	if s.timer == nil || seq != s.timerSeq {
		return // stale fire from a replaced or cleared timer
	}
	s.timer = nil
	s.state.Interval = nil
	s.apply(s.sched.Fire(s.clock.Now()))
}

func (s *Strategy) handleOrder(evt types.OrderEvent) {
	o, ok := s.state.Orders[evt.ClientOId]
	if !ok {
		return
	}
	now := s.clock.Now()
	o.Status = evt.OrderStatus
	o.UpdatedAt = now
	if evt.OId != "" {
		o.ExchangeOId = evt.OId
	}
	if evt.FilledQty > 0 {
		o.FilledAmount = evt.FilledQty
		if o.Amount < 0 {
			o.FilledAmount = -evt.FilledQty
		}
	}

	switch evt.OrderStatus {
	case types.OrderStatusFilled:
		delete(s.state.Orders, o.Id)
		s.host.Debug(s.gid, "slice %d filled %v @ %v", o.SliceSeq, o.FilledAmount, evt.AvgPrice)
		s.apply(s.sched.Filled(o.SliceSeq, math.Abs(o.FilledAmount), now))

	case types.OrderStatusRejected, types.OrderStatusExpired, types.OrderStatusCanceled:
		delete(s.state.Orders, o.Id)
		if evt.OrderStatus == types.OrderStatusCanceled && o.FilledAmount != 0 {
			// partially filled before an external cancel, the rest is rescheduled
			s.apply(s.sched.Filled(o.SliceSeq, math.Abs(o.FilledAmount), now))
			break
		}
		reason := evt.Reason
		if reason == "" {
			reason = string(evt.OrderStatus)
		}
		s.host.Notify(s.gid, types.NotifyError, fmt.Sprintf("slice %d not executed: %s", o.SliceSeq, reason))
		s.apply(s.sched.Rejected(o.SliceSeq, now))

	default:
		s.commit()
	}
	s.checkSettled()
}

// ╔═════════════════╗
//     Scheduling
// ╚═════════════════╝

// apply carries out a scheduler decision and commits the resulting state.
func (s *Strategy) apply(d scheduler.Decision) {
	if d.Complete {
		s.disarm()
		s.host.Notify(s.gid, types.NotifyInfo, "all slices submitted")
	}
	if d.Arm {
		s.arm(d.Delay)
	}
	if d.Slice != nil {
		s.submitSlice(*d.Slice)
		return
	}
	s.commit()
}

func (s *Strategy) arm(delay time.Duration) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timerSeq++
	seq := s.timerSeq
	s.timer = s.clock.AfterFunc(delay, func() {
		s.enqueue(func() { s.onFire(seq) })
	})
	s.state.Interval = &strategy.TimerState{Seq: seq, DueAt: s.clock.Now().Add(delay)}
}

func (s *Strategy) disarm() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerSeq++
	s.state.Interval = nil
}

func (s *Strategy) submitSlice(slice scheduler.Slice) {
	now := s.clock.Now()
	price, err := pricing.SlicePrice(s.args, slice.Amount > 0, s.mc)
	if err != nil {
		if errors.Is(err, pricing.ErrDataUnavailable) {
			s.host.Debug(s.gid, "skip slice %d: %v", slice.Seq, err)
		} else {
			s.logger.Errorf("fail to price slice %d: %v", slice.Seq, err)
		}
		s.apply(s.sched.Rejected(slice.Seq, now))
		return
	}

	o := order.New(uuid.NewString(), s.gid, s.args.Symbol)
	o.SliceSeq = slice.Seq
	o.OrderType = s.args.ChildOrderType()
	o.Price = price
	o.Amount = slice.Amount
	o.Lev = s.args.Lev
	o.CreatedAt = now
	o.UpdatedAt = now
	s.state.Orders[o.Id] = o

	if err := s.host.SubmitOrders(context.Background(), s.gid, []*order.Order{o.Clone()}, s.args.SubmitDelay); err != nil {
		delete(s.state.Orders, o.Id)
		s.logger.Errorf("fail to submit slice %d: %v", slice.Seq, err)
		s.host.Notify(s.gid, types.NotifyError, fmt.Sprintf("fail to submit slice %d: %v", slice.Seq, err))
		s.apply(s.sched.Rejected(slice.Seq, now))
		return
	}
	s.host.Debug(s.gid, "submitted slice %d: %v @ %v", slice.Seq, slice.Amount, price)
	s.apply(s.sched.Submitted(slice.Seq, now))
}

// checkSettled asks the host to stop the instance once everything is filled.
func (s *Strategy) checkSettled() {
	if s.settled || !s.sched.Settled() {
		return
	}
	s.settled = true
	s.host.Notify(s.gid, types.NotifySuccess, fmt.Sprintf("order complete: %v %s", s.args.Amount, s.args.Symbol))
	s.host.RequestStop(s.gid)
}

// commit publishes the current state to readers and the host store.
func (s *Strategy) commit() {
	progress := s.sched.Progress()
	s.state.Phase = progress.Phase
	s.state.Seq = progress.Seq
	s.state.Submitted = progress.Submitted
	s.state.Filled = progress.Filled
	s.state.UpdatedAt = s.clock.Now()

	snapshot := s.state.Clone()
	s.snap.Store(snapshot)
	if err := s.host.UpdateState(context.Background(), snapshot.Clone()); err != nil {
		s.logger.Warnf("fail to update state: %v", err)
	}
}

// ╔═════════════════╗
//       Candles
// ╚═════════════════╝

func (s *Strategy) seedCandles() {
	for interval, period := range s.feeds {
		klines, err := s.host.Candles(s.args.Symbol, interval, period+candleSlack)
		if err != nil {
			s.logger.Warnf("fail to seed %s candles: %v", interval, err)
			continue
		}
		s.mc.Candles[interval] = klines
	}
}

func (s *Strategy) appendCandle(evt types.KLineEvent) {
	series := s.mc.Candles[evt.Interval]
	if n := len(series); n > 0 && series[n-1].OpenTime.Equal(evt.OpenTime) {
		series[n-1] = evt
	} else {
		series = append(series, evt)
	}
	if limit := s.feeds[evt.Interval] + candleSlack; len(series) > limit {
		series = series[len(series)-limit:]
	}
	s.mc.Candles[evt.Interval] = series
}
