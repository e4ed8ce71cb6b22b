package exchange

import (
	"algoexec/config"
	"algoexec/pkg/exchange/bnf"
	"algoexec/pkg/exchange/dummy"
	"algoexec/pkg/market"
	"algoexec/pkg/stream"
	"algoexec/pkg/types"
	"context"
	"errors"
)

type Exchange interface {
	Name() types.ExchangeName
	GetMarket(symbol string) *market.Market

	// cloId is the client order id the venue echoes back on order events
	OpenMarketOrder(symbol string, side types.OrderSide, qty float64, lev int, cloId string) (string, error)
	OpenLimitOrder(symbol string, side types.OrderSide, price float64, qty float64, lev int, tif types.OrderTIF, cloId string) (string, error)
	CancelOrder(symbol string, orderId string, cloId string) error
	SetLeverage(symbol string, lev int) error
	GetKLines(symbol string, interval types.Interval, window int) ([]types.KLineEvent, error)

	// ╔═════ WS callback functions ═════╗
	// - onConn(): invoked when ws connection is established for the 1st time, NOT when reconnecting
	// - onEvent(): invoked when a relevant event is received through the ws
	// - onClose(): invoked when ws connection is closed intentionally, NOT when connection is lost unexpectedly
	// ╚═════════════════════════════════╝
	SubscribeTradeStream(ctx context.Context, symbol string, onConn func(stream.Stream), onEvent func(stream.Stream, types.TradeEvent), onClose func(stream.Stream), maxDelayMs int64) (stream.Stream, error)
	SubscribeKLineStream(ctx context.Context, symbol string, interval types.Interval, onConn func(stream.Stream), onEvent func(stream.Stream, types.KLineEvent), onClose func(stream.Stream), maxDelayMs int64) (stream.Stream, error)
	SubscribeBookDepthStream(ctx context.Context, symbol string, onConn func(stream.Stream), onEvent func(stream.Stream, types.BookDepthEvent), onClose func(stream.Stream), maxDelayMs int64) (stream.Stream, error)
	SubscribeOrderStream(ctx context.Context, symbol string, onConn func(stream.Stream), onEvent func(stream.Stream, types.OrderEvent), onClose func(stream.Stream)) (stream.Stream, error) // maxDelayMs is not valid with order update (as every event is crucial)
}

// creates a new exchange instance based on the provided name and credentials
func NewExchange(exchgId string, exchgConfig *config.ExchangeConfig) (Exchange, error) {
	switch exchgConfig.ExchangeName {
	case types.ExchangeBnf:
		return bnf.New(exchgConfig)
	case types.ExchangeDummy:
		return dummy.New(exchgConfig)
	default:
		return nil, errors.New("unsupported exchange")
	}
}
