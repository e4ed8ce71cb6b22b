package bnf

import (
	"algoexec/config"
	"algoexec/pkg/market"
	"algoexec/pkg/stream"
	"algoexec/pkg/types"
	"algoexec/pkg/utils"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	log "github.com/sirupsen/logrus"
)

type BnfExchange struct {
	BnfConfig *bnfConfig
	isCross   bool

	fClient *futures.Client

	Markets      map[string]*market.Market
	SymbolMapU2L map[string]string

	logger *log.Entry
}

func New(exchgConfig *config.ExchangeConfig) (*BnfExchange, error) {
	// (1) environment
	futures.UseTestnet = config.Env.EnvName != types.EnvProd
	configFile := "bnf.test.json"
	if config.Env.EnvName == types.EnvProd {
		configFile = "bnf.prod.json"
	}

	// (2) load symbol
	symbolMapU2L, _, err := utils.LoadExchangeSymbolMap(string(types.ExchangeBnf))
	if err != nil {
		return nil, err
	}

	// (3) validate config
	key := utils.LoadEnvWithDefault(exchgConfig.EnvPrefix+"_API_KEY", "")
	secret := utils.LoadEnvWithDefault(exchgConfig.EnvPrefix+"_API_SECRET", "")
	if key == "" || secret == "" {
		return nil, fmt.Errorf("API key or secret is not set: prefix %v", exchgConfig.EnvPrefix)
	}
	fClient := futures.NewClient(key, secret)

	rawConfig, err := os.ReadFile(filepath.Join("pkg", "exchange", "bnf", "config", configFile))
	if err != nil {
		return nil, fmt.Errorf("fail to read bnf config: %w", err)
	}
	var bnfConfig bnfConfig
	if err := json.Unmarshal(rawConfig, &bnfConfig); err != nil {
		return nil, fmt.Errorf("fail to decode bnf config: %w", err)
	}

	// (4) load markets
	markets, err := loadMarkets(fClient)
	if err != nil {
		return nil, err
	}

	return &BnfExchange{
		BnfConfig:    &bnfConfig,
		isCross:      exchgConfig.IsCross,
		fClient:      fClient,
		SymbolMapU2L: symbolMapU2L,
		Markets:      markets,
		logger:       log.WithFields(log.Fields{"exchange": types.ExchangeBnf}),
	}, nil
}

func (e *BnfExchange) Name() types.ExchangeName {
	return types.ExchangeBnf
}

// ╔═════════════╗
//       Info
// ╚═════════════╝

func (e *BnfExchange) GetMarket(symbol string) *market.Market {
	if m, exists := e.Markets[e.toLocSymbol(symbol)]; exists {
		return m
	}
	return nil
}

func (e *BnfExchange) GetKLines(symbol string, interval types.Interval, window int) ([]types.KLineEvent, error) {
	bnfInterval, err := convertInterval(interval)
	if err != nil {
		return nil, err
	}
	res, err := e.fClient.NewKlinesService().
		Symbol(e.toLocSymbol(symbol)).
		Interval(bnfInterval).
		Limit(window).
		Do(context.Background())
	if err != nil {
		return nil, fmt.Errorf("fail to get klines: %w", err)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("no klines data available")
	}
	return parseKLines(res, symbol, interval)
}

// ╔═════════════╗
//      Order
// ╚═════════════╝

func (e *BnfExchange) SetLeverage(symbol string, lev int) error {
	locSymbol := e.toLocSymbol(symbol)
	marginType := futures.MarginTypeIsolated
	if e.isCross {
		marginType = futures.MarginTypeCrossed
	}
	// -4046: no need to change margin type
	err := e.fClient.NewChangeMarginTypeService().Symbol(locSymbol).MarginType(marginType).Do(context.Background())
	if err != nil && !strings.Contains(err.Error(), "-4046") {
		return fmt.Errorf("fail to change margin type: %w", err)
	}
	if _, err := e.fClient.NewChangeLeverageService().Symbol(locSymbol).Leverage(lev).Do(context.Background()); err != nil {
		return fmt.Errorf("fail to change leverage: %w", err)
	}
	return nil
}

func (e *BnfExchange) OpenMarketOrder(symbol string, orderSide types.OrderSide, qty float64, lev int, cloId string) (string, error) {
	m := e.GetMarket(symbol)
	if m == nil {
		return "", fmt.Errorf("unknown market: %s", symbol)
	}
	side, err := convertOrderSide(orderSide)
	if err != nil {
		return "", err
	}
	qty = m.RoundQty(qty, types.OrderMarket)
	if qty < m.MarketLotMinQty || qty <= 0 {
		return "", fmt.Errorf("quantity %v below market lot minimum %v", qty, m.MarketLotMinQty)
	}

	res, err := e.fClient.NewCreateOrderService().
		Symbol(m.Symbol).
		Type(futures.OrderTypeMarket).
		Side(side).
		Quantity(utils.FloatToStr(qty)).
		NewClientOrderID(cloId).
		Do(context.Background())
	if err != nil {
		return "", fmt.Errorf("fail to open market order: %w", err)
	}
	return strconv.FormatInt(res.OrderID, 10), nil
}

func (e *BnfExchange) OpenLimitOrder(symbol string, orderSide types.OrderSide, price float64, qty float64, lev int, orderTif types.OrderTIF, cloId string) (string, error) {
	m := e.GetMarket(symbol)
	if m == nil {
		return "", fmt.Errorf("unknown market: %s", symbol)
	}
	side, err := convertOrderSide(orderSide)
	if err != nil {
		return "", err
	}
	tif, err := convertOrderTIF(orderTif)
	if err != nil {
		return "", err
	}
	qty = m.RoundQty(qty, types.OrderLimit)
	price = m.RoundPrice(price)
	if qty < m.LotMinQty || qty <= 0 {
		return "", fmt.Errorf("quantity %v below lot minimum %v", qty, m.LotMinQty)
	}
	if m.MinNotional > 0 && qty*price < m.MinNotional {
		return "", fmt.Errorf("notional %v below minimum %v", qty*price, m.MinNotional)
	}

	res, err := e.fClient.NewCreateOrderService().
		Symbol(m.Symbol).
		Type(futures.OrderTypeLimit).
		Side(side).
		Price(utils.FloatToStr(price)).
		Quantity(utils.FloatToStr(qty)).
		TimeInForce(tif).
		NewClientOrderID(cloId).
		Do(context.Background())
	if err != nil {
		return "", fmt.Errorf("fail to open limit order: %w", err)
	}
	return strconv.FormatInt(res.OrderID, 10), nil
}

// CancelOrder cancels by venue order id when known, else by client order id.
func (e *BnfExchange) CancelOrder(symbol string, orderId string, cloId string) error {
	svc := e.fClient.NewCancelOrderService().Symbol(e.toLocSymbol(symbol))
	if oId, err := strconv.ParseInt(orderId, 10, 64); err == nil && oId > 0 {
		svc = svc.OrderID(oId)
	} else {
		svc = svc.OrigClientOrderID(cloId)
	}
	if _, err := svc.Do(context.Background()); err != nil {
		return fmt.Errorf("fail to cancel order %s: %w", cloId, err)
	}
	return nil
}

// ╔══════════════╗
//     Streams
// ╚══════════════╝

func (e *BnfExchange) SubscribeTradeStream(ctx context.Context, symbol string, onConn func(stream.Stream), onEvent func(stream.Stream, types.TradeEvent), onClose func(stream.Stream), maxDelayMs int64) (stream.Stream, error) {
	endpoint := fmt.Sprintf("%s/%s@aggTrade", e.BnfConfig.WsUrl, strings.ToLower(e.toLocSymbol(symbol)))
	return e.subscribe(ctx, types.StreamTrade, symbol, endpoint, nil, onConn, onClose, func(s *BnfStream, msg []byte) {
		evt, err := parseTradeEvent(msg)
		if err != nil {
			s.logger.Error(err)
			return
		}
		if isStale(evt.Time, maxDelayMs) {
			return
		}
		evt.Symbol = symbol
		onEvent(s, evt)
	})
}

// SubscribeKLineStream forwards closed candles only.
func (e *BnfExchange) SubscribeKLineStream(ctx context.Context, symbol string, interval types.Interval, onConn func(stream.Stream), onEvent func(stream.Stream, types.KLineEvent), onClose func(stream.Stream), maxDelayMs int64) (stream.Stream, error) {
	bnfInterval, err := convertInterval(interval)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/%s@kline_%s", e.BnfConfig.WsUrl, strings.ToLower(e.toLocSymbol(symbol)), bnfInterval)
	return e.subscribe(ctx, types.StreamKLine, symbol, endpoint, nil, onConn, onClose, func(s *BnfStream, msg []byte) {
		evt, final, err := parseKLineEvent(interval, msg)
		if err != nil {
			s.logger.Error(err)
			return
		}
		if !final || isStale(evt.CloseTime, maxDelayMs) {
			return
		}
		evt.Symbol = symbol
		onEvent(s, evt)
	})
}

func (e *BnfExchange) SubscribeBookDepthStream(ctx context.Context, symbol string, onConn func(stream.Stream), onEvent func(stream.Stream, types.BookDepthEvent), onClose func(stream.Stream), maxDelayMs int64) (stream.Stream, error) {
	// @dev: partial book, 5 levels every 100ms; only the top is used for pricing
	endpoint := fmt.Sprintf("%s/%s@depth5@100ms", e.BnfConfig.WsUrl, strings.ToLower(e.toLocSymbol(symbol)))
	return e.subscribe(ctx, types.StreamBookDepth, symbol, endpoint, nil, onConn, onClose, func(s *BnfStream, msg []byte) {
		evt, err := parseBookDepthEvent(msg)
		if err != nil {
			s.logger.Error(err)
			return
		}
		if evt.Event == "" || isStale(evt.Time, maxDelayMs) {
			return
		}
		evt.Symbol = symbol
		onEvent(s, evt)
	})
}

func (e *BnfExchange) SubscribeOrderStream(ctx context.Context, symbol string, onConn func(stream.Stream), onEvent func(stream.Stream, types.OrderEvent), onClose func(stream.Stream)) (stream.Stream, error) {
	locSymbol := e.toLocSymbol(symbol)
	listenKey, err := e.fClient.NewStartUserStreamService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fail to get listen key: %w", err)
	}
	keepalive := func() error {
		return e.fClient.NewKeepaliveUserStreamService().ListenKey(listenKey).Do(context.Background())
	}

	endpoint := fmt.Sprintf("%s/%s", e.BnfConfig.WsUrl, listenKey)
	return e.subscribe(ctx, types.StreamOrder, symbol, endpoint, keepalive, onConn, onClose, func(s *BnfStream, msg []byte) {
		// process only "ORDER_TRADE_UPDATE" event; ignore others
		var header wsEventHeader
		if err := json.Unmarshal(msg, &header); err != nil {
			s.logger.Errorf("fail to unmarshal user data event: %v", err)
			return
		}
		if header.Event != string(futures.UserDataEventTypeOrderTradeUpdate) {
			return
		}
		evt, err := parseOrderEvent(msg)
		if err != nil {
			s.logger.Errorf("fail to parse order event: %v: %v", string(msg), err)
			return
		}
		if evt.Symbol != locSymbol {
			return
		}
		evt.Symbol = symbol
		onEvent(s, evt)
	})
}

func (e *BnfExchange) subscribe(ctx context.Context, streamType types.Stream, symbol string, endpoint string, keepalive func() error, onConn func(stream.Stream), onClose func(stream.Stream), handle func(*BnfStream, []byte)) (stream.Stream, error) {
	s, err := NewStream(streamType, symbol, endpoint)
	if err != nil {
		return nil, err
	}
	if onConn != nil {
		s.onConn = func(bs *BnfStream) { onConn(bs) }
	}
	if onClose != nil {
		s.onClose = func(bs *BnfStream) { onClose(bs) }
	}
	if keepalive != nil {
		s.keepalive = keepalive
		s.keepaliveInterval = time.Duration(e.BnfConfig.ListenKeyKeepaliveS) * time.Second
	}

	doneC, stopC, err := s.ConnectAndSubscribe(nil, func(msg []byte) { handle(s, msg) })
	if err != nil {
		return nil, fmt.Errorf("fail to connect and subscribe: %w", err)
	}
	go func() {
		select {
		case <-ctx.Done():
			close(stopC)
		case <-doneC:
		}
	}()
	return s, nil
}

func isStale(eventTime time.Time, maxDelayMs int64) bool {
	return maxDelayMs > 0 && time.Since(eventTime).Milliseconds() > maxDelayMs
}

// toLocSymbol maps a universal symbol (BTC_USDT) to the venue symbol; venue symbols pass through.
func (e *BnfExchange) toLocSymbol(symbol string) string {
	if locSymbol, ok := e.SymbolMapU2L[symbol]; ok {
		return locSymbol
	}
	return strings.ToUpper(symbol)
}
