package host

import (
	"algoexec/pkg/algo/params"
	"algoexec/pkg/exchange"
	"algoexec/pkg/notify"
	"algoexec/pkg/store"
	"algoexec/pkg/strategy"
	"algoexec/pkg/strategy/accdist"
	"algoexec/pkg/types"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// directive names of the core-to-host surface
const (
	EventOrderSubmitAll = "exec:order:submit:all"
	EventOrderCancelAll = "exec:order:cancel:all"
)

var (
	ErrInstanceNotFound = errors.New("instance not found")
	ErrExchangeNotFound = errors.New("exchange not found")
)

type Host struct {
	exchanges map[string]exchange.Exchange
	store     store.Store
	notifier  *notify.Notifier
	clock     clock.Clock

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.RWMutex
	instances map[string]*instance // by gid
	cloIds    map[string]string    // client order id -> gid
	feeds     map[feedKey]*feed

	logger *log.Entry
}

type instance struct {
	gid        string
	exchangeId string
	symbol     string
	strat      strategy.Strategy
	binding    *binding
	feeds      map[types.Interval]int
	doneC      chan struct{}
}

func New(ctx context.Context, exchanges map[string]exchange.Exchange, st store.Store, notifier *notify.Notifier, clk clock.Clock) *Host {
	if clk == nil {
		clk = clock.New()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Host{
		exchanges: exchanges,
		store:     st,
		notifier:  notifier,
		clock:     clk,
		ctx:       ctx,
		cancel:    cancel,
		instances: make(map[string]*instance),
		cloIds:    make(map[string]string),
		feeds:     make(map[feedKey]*feed),
		logger:    log.WithFields(log.Fields{"component": "host"}),
	}
}

func (h *Host) Exchange(exchangeId string) (exchange.Exchange, bool) {
	exchg, ok := h.exchanges[exchangeId]
	return exchg, ok
}

// ╔═════════════════╗
//     Instances
// ╚═════════════════╝

// Create validates the params, starts a new instance and returns its first snapshot.
func (h *Host) Create(ctx context.Context, exchangeId string, p params.Params, conn notify.Connection) (*strategy.InstanceState, error) {
	exchg, ok := h.exchanges[exchangeId]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExchangeNotFound, exchangeId)
	}
	args, err := p.Args()
	if err != nil {
		return nil, err
	}
	m := exchg.GetMarket(args.Symbol)
	if m == nil {
		return nil, &params.ValidationError{Reason: fmt.Sprintf("Unknown symbol: %s", args.Symbol)}
	}
	if orderType := args.ChildOrderType(); !m.FitsLot(args.Amount, orderType) {
		step, minQty := m.QtyFilter(orderType)
		return nil, &params.ValidationError{Reason: fmt.Sprintf("Amount %v does not fit lot step %v and minimum %v", args.Amount, step, minQty)}
	}
	if !h.notifier.CallbackAllowed(conn.CallbackUrl) {
		return nil, &params.ValidationError{Reason: fmt.Sprintf("Callback URL not allowed: %s", conn.CallbackUrl)}
	}
	if args.Futures {
		if err := exchg.SetLeverage(args.Symbol, args.Lev); err != nil {
			return nil, fmt.Errorf("fail to set leverage: %w", err)
		}
	}

	gid := uuid.NewString()
	b := newBinding(h, exchangeId, exchg, conn)
	strat := accdist.New(accdist.Config{
		Gid:        gid,
		ExchangeId: exchangeId,
		Params:     p,
		Market:     m,
		Connection: conn,
		Host:       b,
		Clock:      h.clock,
	})
	if err := strat.Validate(); err != nil {
		b.cancel()
		return nil, err
	}

	inst := &instance{
		gid:        gid,
		exchangeId: exchangeId,
		symbol:     args.Symbol,
		strat:      strat,
		binding:    b,
		feeds:      args.CandleFeeds(),
		doneC:      make(chan struct{}),
	}
	if err := h.acquireFeed(exchangeId, exchg, args.Symbol, inst.feeds); err != nil {
		b.cancel()
		return nil, err
	}

	h.mu.Lock()
	h.instances[gid] = inst
	h.mu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer close(inst.doneC)
		defer h.release(inst)
		if err := strat.Run(h.ctx); err != nil {
			h.logger.WithField("gid", gid).Errorf("instance exited: %v", err)
		}
	}()

	h.logger.WithFields(log.Fields{"gid": gid, "exchange": exchangeId, "symbol": args.Symbol}).Info("🚀 instance created")
	return strat.Snapshot(), nil
}

// Get returns the live snapshot of a running instance, or the stored one.
func (h *Host) Get(ctx context.Context, gid string) (*strategy.InstanceState, error) {
	if inst := h.instance(gid); inst != nil {
		return inst.strat.Snapshot(), nil
	}
	state, err := h.store.Load(ctx, gid)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, gid)
	}
	return state, err
}

// List returns every known instance, live snapshots taking precedence over stored ones.
func (h *Host) List(ctx context.Context) ([]*strategy.InstanceState, error) {
	stored, err := h.store.List(ctx)
	if err != nil {
		return nil, err
	}

	h.mu.RLock()
	states := make([]*strategy.InstanceState, 0, len(stored)+len(h.instances))
	for _, inst := range h.instances {
		states = append(states, inst.strat.Snapshot())
	}
	for _, state := range stored {
		if _, live := h.instances[state.Gid]; !live {
			states = append(states, state)
		}
	}
	h.mu.RUnlock()

	sort.Slice(states, func(i, j int) bool {
		if !states[i].CreatedAt.Equal(states[j].CreatedAt) {
			return states[i].CreatedAt.Before(states[j].CreatedAt)
		}
		return states[i].Gid < states[j].Gid
	})
	return states, nil
}

// Stop tears an instance down and waits until it is released.
func (h *Host) Stop(ctx context.Context, gid string) (*strategy.InstanceState, error) {
	inst := h.instance(gid)
	if inst == nil {
		return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, gid)
	}
	if err := inst.strat.Shutdown(); err != nil {
		return nil, fmt.Errorf("fail to stop instance %s: %w", gid, err)
	}
	select {
	case <-inst.doneC:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return inst.strat.Snapshot(), nil
}

// Recover closes out instances a previous process left running: their recorded
// orders are cancelled and the stored state is marked stopped.
func (h *Host) Recover(ctx context.Context) error {
	states, err := h.store.List(ctx)
	if err != nil {
		return fmt.Errorf("fail to list stored instances: %w", err)
	}
	for _, state := range states {
		if state.Stopped || h.instance(state.Gid) != nil {
			continue
		}
		logger := h.logger.WithFields(log.Fields{"gid": state.Gid, "exchange": state.ExchangeId})
		if exchg, ok := h.exchanges[state.ExchangeId]; ok {
			for _, o := range state.Orders {
				if err := exchg.CancelOrder(o.Symbol, o.ExchangeOId, o.Id); err != nil {
					logger.Warnf("fail to cancel orphan order %s: %v", o.Id, err)
				}
			}
		} else {
			logger.Warn("exchange no longer configured, orders left untouched")
		}
		state.Stopped = true
		state.Interval = nil
		state.UpdatedAt = h.clock.Now()
		if err := h.store.Save(ctx, state); err != nil {
			return err
		}
		h.notifier.Notify(state.Connection, state.Gid, types.NotifyWarning, "instance interrupted by restart, open slices cancelled")
		logger.Info("recovered interrupted instance")
	}
	return nil
}

// Shutdown stops every instance and waits for pending venue calls.
func (h *Host) Shutdown() {
	h.mu.RLock()
	insts := make([]*instance, 0, len(h.instances))
	for _, inst := range h.instances {
		insts = append(insts, inst)
	}
	h.mu.RUnlock()

	for _, inst := range insts {
		_ = inst.strat.Shutdown()
	}
	h.cancel()
	h.wg.Wait()
	h.logger.Info("💤 host stopped")
}

func (h *Host) instance(gid string) *instance {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.instances[gid]
}

func (h *Host) release(inst *instance) {
	inst.binding.cancel()
	h.mu.Lock()
	delete(h.instances, inst.gid)
	for cloId, gid := range h.cloIds {
		if gid == inst.gid {
			delete(h.cloIds, cloId)
		}
	}
	h.mu.Unlock()
	h.releaseFeed(inst.exchangeId, inst.symbol, inst.feeds)
}

// matching returns the running instances trading symbol on exchangeId.
func (h *Host) matching(exchangeId string, symbol string) []*instance {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []*instance
	for _, inst := range h.instances {
		if inst.exchangeId == exchangeId && inst.symbol == symbol {
			out = append(out, inst)
		}
	}
	return out
}

func (h *Host) owner(cloId string) *instance {
	h.mu.RLock()
	defer h.mu.RUnlock()
	gid, ok := h.cloIds[cloId]
	if !ok {
		return nil
	}
	return h.instances[gid]
}

func (h *Host) track(gid string, cloId string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cloIds[cloId] = gid
}

// wait sleeps for d on the host clock; false when ctx ends first.
func (h *Host) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-h.clock.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
