package dummy

import (
	"algoexec/config"
	"algoexec/pkg/market"
	"algoexec/pkg/stream"
	"algoexec/pkg/types"
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const maxKLines = 1000

// DummyExchange is a paper venue. Limit orders rest until a published trade
// crosses them; market orders fill at the last published trade price.
type DummyExchange struct {
	Markets map[string]*market.Market

	mu        sync.Mutex
	nextOId   int64
	orders    map[string]*restingOrder // by client order id
	lastPrice map[string]float64
	klines    map[string]map[types.Interval][]types.KLineEvent
	leverage  map[string]int

	subs      map[types.Stream]map[string][]*dummyStream // by stream type, then symbol
	dispatchC chan func()

	logger *log.Entry
}

type restingOrder struct {
	event types.OrderEvent
	lev   int
}

func New(exchgConfig *config.ExchangeConfig) (*DummyExchange, error) {
	if exchgConfig.Paper == nil || len(exchgConfig.Paper.Symbols) == 0 {
		return nil, fmt.Errorf("paper exchange requires at least one symbol")
	}
	markets := make(map[string]*market.Market)
	for i, symbol := range exchgConfig.Paper.Symbols {
		m := market.New(types.ExchangeDummy, int64(i), symbol)
		m.TickSize = exchgConfig.Paper.TickSize
		m.LotStepSize = exchgConfig.Paper.StepSize
		m.MarketLotStepSize = exchgConfig.Paper.StepSize
		m.MaxLeverage = 100
		markets[symbol] = m
	}

	e := &DummyExchange{
		Markets:   markets,
		orders:    make(map[string]*restingOrder),
		lastPrice: make(map[string]float64),
		klines:    make(map[string]map[types.Interval][]types.KLineEvent),
		leverage:  make(map[string]int),
		subs:      make(map[types.Stream]map[string][]*dummyStream),
		dispatchC: make(chan func(), 1024),
		logger:    log.WithFields(log.Fields{"exchange": types.ExchangeDummy}),
	}
	go e.dispatch()
	return e, nil
}

func (e *DummyExchange) Name() types.ExchangeName {
	return types.ExchangeDummy
}

// dispatch delivers stream callbacks in publication order, off the caller's goroutine.
func (e *DummyExchange) dispatch() {
	for fn := range e.dispatchC {
		fn()
	}
}

// ╔═════════════╗
//       Info
// ╚═════════════╝

func (e *DummyExchange) GetMarket(symbol string) *market.Market {
	if m, exists := e.Markets[symbol]; exists {
		return m
	}
	return nil
}

func (e *DummyExchange) GetKLines(symbol string, interval types.Interval, window int) ([]types.KLineEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	series := e.klines[symbol][interval]
	if len(series) == 0 {
		return nil, fmt.Errorf("no klines data available")
	}
	if window > 0 && len(series) > window {
		series = series[len(series)-window:]
	}
	out := make([]types.KLineEvent, len(series))
	copy(out, series)
	return out, nil
}

// ╔═════════════╗
//      Order
// ╚═════════════╝

func (e *DummyExchange) SetLeverage(symbol string, lev int) error {
	if e.GetMarket(symbol) == nil {
		return fmt.Errorf("unknown market: %s", symbol)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.leverage[symbol] = lev
	return nil
}

func (e *DummyExchange) OpenMarketOrder(symbol string, side types.OrderSide, qty float64, lev int, cloId string) (string, error) {
	m := e.GetMarket(symbol)
	if m == nil {
		return "", fmt.Errorf("unknown market: %s", symbol)
	}
	qty = m.RoundQty(qty, types.OrderMarket)
	if qty <= 0 {
		return "", fmt.Errorf("quantity below lot step")
	}

	e.mu.Lock()
	price, ok := e.lastPrice[symbol]
	if !ok {
		e.mu.Unlock()
		return "", fmt.Errorf("no price available for %s", symbol)
	}
	evt := e.newOrderEvent(symbol, side, types.OrderMarket, 0, qty, types.OrderTIFIOC, cloId)
	e.mu.Unlock()

	e.emitOrder(evt)
	evt.OrderStatus = types.OrderStatusFilled
	evt.AvgPrice = price
	evt.FilledQty = qty
	e.emitOrder(evt)
	return evt.OId, nil
}

func (e *DummyExchange) OpenLimitOrder(symbol string, side types.OrderSide, price float64, qty float64, lev int, tif types.OrderTIF, cloId string) (string, error) {
	m := e.GetMarket(symbol)
	if m == nil {
		return "", fmt.Errorf("unknown market: %s", symbol)
	}
	qty = m.RoundQty(qty, types.OrderLimit)
	if qty <= 0 {
		return "", fmt.Errorf("quantity below lot step")
	}
	price = m.RoundPrice(price)
	if price <= 0 {
		return "", fmt.Errorf("invalid limit price: %v", price)
	}

	e.mu.Lock()
	if _, exists := e.orders[cloId]; exists {
		e.mu.Unlock()
		return "", fmt.Errorf("duplicate client order id: %s", cloId)
	}
	evt := e.newOrderEvent(symbol, side, types.OrderLimit, price, qty, tif, cloId)
	e.orders[cloId] = &restingOrder{event: evt, lev: lev}
	last, hasLast := e.lastPrice[symbol]
	e.mu.Unlock()

	e.emitOrder(evt)
	if hasLast && crosses(evt, last) {
		e.fill(cloId, last)
	}
	return evt.OId, nil
}

func (e *DummyExchange) CancelOrder(symbol string, orderId string, cloId string) error {
	e.mu.Lock()
	resting, ok := e.orders[cloId]
	if !ok || resting.event.Symbol != symbol {
		e.mu.Unlock()
		return fmt.Errorf("order not found: %s", cloId)
	}
	delete(e.orders, cloId)
	evt := resting.event
	e.mu.Unlock()

	evt.OrderStatus = types.OrderStatusCanceled
	evt.Time = time.Now()
	e.emitOrder(evt)
	return nil
}

func (e *DummyExchange) newOrderEvent(symbol string, side types.OrderSide, orderType types.OrderType, price float64, qty float64, tif types.OrderTIF, cloId string) types.OrderEvent {
	e.nextOId++
	return types.OrderEvent{
		Event:       "ORDER_TRADE_UPDATE",
		Time:        time.Now(),
		Symbol:      symbol,
		OId:         strconv.FormatInt(e.nextOId, 10),
		ClientOId:   cloId,
		Side:        side,
		OrderStatus: types.OrderStatusNew,
		Price:       price,
		OrigQty:     qty,
		OrderTif:    tif,
		OrderType:   orderType,
	}
}

func (e *DummyExchange) fill(cloId string, price float64) {
	e.mu.Lock()
	resting, ok := e.orders[cloId]
	if !ok {
		e.mu.Unlock()
		return
	}
	delete(e.orders, cloId)
	e.mu.Unlock()

	evt := resting.event
	evt.OrderStatus = types.OrderStatusFilled
	evt.AvgPrice = evt.Price
	evt.FilledQty = evt.OrigQty
	evt.Time = time.Now()
	e.logger.Debugf("paper fill %s %s %v @ %v (trade %v)", evt.Symbol, evt.Side, evt.FilledQty, evt.AvgPrice, price)
	e.emitOrder(evt)
}

func crosses(evt types.OrderEvent, tradePrice float64) bool {
	if evt.Side == types.OrderSideBuy {
		return tradePrice <= evt.Price
	}
	return tradePrice >= evt.Price
}

// ╔═════════════╗
//      Feed
// ╚═════════════╝

// PublishTrade feeds a trade print into the venue; resting orders it crosses fill.
func (e *DummyExchange) PublishTrade(evt types.TradeEvent) {
	if evt.Time.IsZero() {
		evt.Time = time.Now()
	}
	evt.ReceivedTime = time.Now()

	e.mu.Lock()
	e.lastPrice[evt.Symbol] = evt.Price
	var crossed []string
	for cloId, resting := range e.orders {
		if resting.event.Symbol == evt.Symbol && crosses(resting.event, evt.Price) {
			crossed = append(crossed, cloId)
		}
	}
	e.mu.Unlock()

	e.publish(types.StreamTrade, evt.Symbol, func(s *dummyStream) {
		if s.onTrade != nil {
			s.onTrade(s, evt)
		}
	})
	for _, cloId := range crossed {
		e.fill(cloId, evt.Price)
	}
}

func (e *DummyExchange) PublishBookDepth(evt types.BookDepthEvent) {
	if evt.Time.IsZero() {
		evt.Time = time.Now()
	}
	e.publish(types.StreamBookDepth, evt.Symbol, func(s *dummyStream) {
		if s.onBook != nil {
			s.onBook(s, evt)
		}
	})
}

// PublishKLine appends a closed candle to the venue history and streams it.
func (e *DummyExchange) PublishKLine(evt types.KLineEvent) {
	e.mu.Lock()
	if e.klines[evt.Symbol] == nil {
		e.klines[evt.Symbol] = make(map[types.Interval][]types.KLineEvent)
	}
	series := append(e.klines[evt.Symbol][evt.Interval], evt)
	if len(series) > maxKLines {
		series = series[len(series)-maxKLines:]
	}
	e.klines[evt.Symbol][evt.Interval] = series
	e.mu.Unlock()

	e.publish(types.StreamKLine, evt.Symbol, func(s *dummyStream) {
		if s.onKLine != nil && s.interval == evt.Interval {
			s.onKLine(s, evt)
		}
	})
}

func (e *DummyExchange) emitOrder(evt types.OrderEvent) {
	e.publish(types.StreamOrder, evt.Symbol, func(s *dummyStream) {
		if s.onOrder != nil {
			s.onOrder(s, evt)
		}
	})
}

func (e *DummyExchange) publish(streamType types.Stream, symbol string, deliver func(s *dummyStream)) {
	e.mu.Lock()
	targets := make([]*dummyStream, 0, len(e.subs[streamType][symbol]))
	for _, s := range e.subs[streamType][symbol] {
		if !s.IsClosed() {
			targets = append(targets, s)
		}
	}
	e.mu.Unlock()

	e.dispatchC <- func() {
		for _, s := range targets {
			deliver(s)
		}
	}
}

// ╔═════════════╗
//     Streams
// ╚═════════════╝

func (e *DummyExchange) SubscribeTradeStream(ctx context.Context, symbol string, onConn func(stream.Stream), onEvent func(stream.Stream, types.TradeEvent), onClose func(stream.Stream), maxDelayMs int64) (stream.Stream, error) {
	s := &dummyStream{onTrade: onEvent}
	return e.subscribe(ctx, types.StreamTrade, symbol, s, onConn, onClose)
}

func (e *DummyExchange) SubscribeKLineStream(ctx context.Context, symbol string, interval types.Interval, onConn func(stream.Stream), onEvent func(stream.Stream, types.KLineEvent), onClose func(stream.Stream), maxDelayMs int64) (stream.Stream, error) {
	s := &dummyStream{onKLine: onEvent, interval: interval}
	return e.subscribe(ctx, types.StreamKLine, symbol, s, onConn, onClose)
}

func (e *DummyExchange) SubscribeBookDepthStream(ctx context.Context, symbol string, onConn func(stream.Stream), onEvent func(stream.Stream, types.BookDepthEvent), onClose func(stream.Stream), maxDelayMs int64) (stream.Stream, error) {
	s := &dummyStream{onBook: onEvent}
	return e.subscribe(ctx, types.StreamBookDepth, symbol, s, onConn, onClose)
}

func (e *DummyExchange) SubscribeOrderStream(ctx context.Context, symbol string, onConn func(stream.Stream), onEvent func(stream.Stream, types.OrderEvent), onClose func(stream.Stream)) (stream.Stream, error) {
	s := &dummyStream{onOrder: onEvent}
	return e.subscribe(ctx, types.StreamOrder, symbol, s, onConn, onClose)
}

func (e *DummyExchange) subscribe(ctx context.Context, streamType types.Stream, symbol string, s *dummyStream, onConn func(stream.Stream), onClose func(stream.Stream)) (stream.Stream, error) {
	if e.GetMarket(symbol) == nil {
		return nil, fmt.Errorf("unknown market: %s", symbol)
	}
	s.onConn = onConn
	s.onClose = onClose

	doneC, stopC, err := s.ConnectAndSubscribe(nil, nil)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.subs[streamType] == nil {
		e.subs[streamType] = make(map[string][]*dummyStream)
	}
	e.subs[streamType][symbol] = append(e.subs[streamType][symbol], s)
	e.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			close(stopC)
			s.Close()
		case <-doneC:
		}
	}()
	return s, nil
}
