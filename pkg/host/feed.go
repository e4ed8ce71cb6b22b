package host

import (
	"algoexec/pkg/exchange"
	"algoexec/pkg/stream"
	"algoexec/pkg/types"
	"fmt"

	log "github.com/sirupsen/logrus"
)

const maxStreamDelayMs = 1000

type feedKey struct {
	exchangeId string
	symbol     string
}

// feed is the set of venue streams shared by every instance on one symbol.
type feed struct {
	refs      int
	streams   []stream.Stream
	klines    map[types.Interval]stream.Stream
	klineRefs map[types.Interval]int
}

// acquireFeed subscribes the symbol streams on first use and the candle
// streams the instance needs. On failure nothing acquired here is kept.
func (h *Host) acquireFeed(exchangeId string, exchg exchange.Exchange, symbol string, intervals map[types.Interval]int) error {
	key := feedKey{exchangeId: exchangeId, symbol: symbol}
	h.mu.Lock()
	defer h.mu.Unlock()

	f, ok := h.feeds[key]
	if !ok {
		f = &feed{klines: map[types.Interval]stream.Stream{}, klineRefs: map[types.Interval]int{}}
		if err := h.subscribeSymbol(f, exchangeId, exchg, symbol); err != nil {
			closeAll(f.streams)
			return err
		}
	}
	added := make([]types.Interval, 0, len(intervals))
	for interval := range intervals {
		if f.klineRefs[interval] == 0 {
			s, err := exchg.SubscribeKLineStream(h.ctx, symbol, interval, nil, h.onKLine(exchangeId), nil, maxStreamDelayMs)
			if err != nil {
				f.dropKLines(added)
				if !ok {
					closeAll(f.streams)
				}
				return fmt.Errorf("fail to subscribe %s kline stream: %w", interval, err)
			}
			f.klines[interval] = s
		}
		f.klineRefs[interval]++
		added = append(added, interval)
	}
	f.refs++
	h.feeds[key] = f
	return nil
}

func (h *Host) subscribeSymbol(f *feed, exchangeId string, exchg exchange.Exchange, symbol string) error {
	tradeS, err := exchg.SubscribeTradeStream(h.ctx, symbol, nil, h.onTrade(exchangeId), nil, maxStreamDelayMs)
	if err != nil {
		return fmt.Errorf("fail to subscribe trade stream: %w", err)
	}
	f.streams = append(f.streams, tradeS)

	bookS, err := exchg.SubscribeBookDepthStream(h.ctx, symbol, nil, h.onBookDepth(exchangeId), nil, maxStreamDelayMs)
	if err != nil {
		return fmt.Errorf("fail to subscribe book depth stream: %w", err)
	}
	f.streams = append(f.streams, bookS)

	orderS, err := exchg.SubscribeOrderStream(h.ctx, symbol, nil, h.onOrder, nil)
	if err != nil {
		return fmt.Errorf("fail to subscribe order stream: %w", err)
	}
	f.streams = append(f.streams, orderS)

	h.logger.WithFields(log.Fields{"exchange": exchangeId, "symbol": symbol}).Info("🔌 subscribed symbol streams")
	return nil
}

func (h *Host) releaseFeed(exchangeId string, symbol string, intervals map[types.Interval]int) {
	key := feedKey{exchangeId: exchangeId, symbol: symbol}
	h.mu.Lock()
	defer h.mu.Unlock()

	f, ok := h.feeds[key]
	if !ok {
		return
	}
	released := make([]types.Interval, 0, len(intervals))
	for interval := range intervals {
		released = append(released, interval)
	}
	f.dropKLines(released)
	f.refs--
	if f.refs > 0 {
		return
	}
	closeAll(f.streams)
	for _, s := range f.klines {
		s.Close()
	}
	delete(h.feeds, key)
	h.logger.WithFields(log.Fields{"exchange": exchangeId, "symbol": symbol}).Info("🔌 closed symbol streams")
}

// dropKLines releases one reference per interval and closes the streams left unused.
func (f *feed) dropKLines(intervals []types.Interval) {
	for _, interval := range intervals {
		f.klineRefs[interval]--
		if f.klineRefs[interval] <= 0 {
			if s := f.klines[interval]; s != nil {
				s.Close()
			}
			delete(f.klines, interval)
			delete(f.klineRefs, interval)
		}
	}
}

func closeAll(streams []stream.Stream) {
	for _, s := range streams {
		s.Close()
	}
}

// ╔═════════════════╗
//      Fan-out
// ╚═════════════════╝

func (h *Host) onTrade(exchangeId string) func(stream.Stream, types.TradeEvent) {
	return func(_ stream.Stream, evt types.TradeEvent) {
		batch := []types.TradeEvent{evt}
		meta := types.EventMeta{ChanFilter: types.ChanFilter{Symbol: evt.Symbol}}
		for _, inst := range h.matching(exchangeId, evt.Symbol) {
			inst.strat.OnTrades(batch, meta)
		}
	}
}

func (h *Host) onBookDepth(exchangeId string) func(stream.Stream, types.BookDepthEvent) {
	return func(_ stream.Stream, evt types.BookDepthEvent) {
		for _, inst := range h.matching(exchangeId, evt.Symbol) {
			inst.strat.OnBookDepth(evt)
		}
	}
}

func (h *Host) onKLine(exchangeId string) func(stream.Stream, types.KLineEvent) {
	return func(_ stream.Stream, evt types.KLineEvent) {
		for _, inst := range h.matching(exchangeId, evt.Symbol) {
			inst.strat.OnKLine(evt)
		}
	}
}

// onOrder routes venue order updates to the instance owning the client order id.
func (h *Host) onOrder(_ stream.Stream, evt types.OrderEvent) {
	if inst := h.owner(evt.ClientOId); inst != nil {
		inst.strat.OnOrder(evt)
	}
}
