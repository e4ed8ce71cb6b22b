package bnf

import (
	"algoexec/pkg/types"
	"algoexec/pkg/utils"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"
)

func parseTradeEvent(e []byte) (types.TradeEvent, error) {
	var evt futures.WsAggTradeEvent
	if err := json.Unmarshal(e, &evt); err != nil {
		return types.TradeEvent{}, fmt.Errorf("fail to unmarshal trade event: %w", err)
	}
	price, err := utils.StrToFloat(evt.Price)
	if err != nil {
		return types.TradeEvent{}, err
	}
	qty, err := utils.StrToFloat(evt.Quantity)
	if err != nil {
		return types.TradeEvent{}, err
	}
	// the buyer being the maker means the aggressor sold
	side := types.OrderSideBuy
	if evt.Maker {
		side = types.OrderSideSell
	}
	return types.TradeEvent{
		Event:        evt.Event,
		Time:         time.UnixMilli(evt.TradeTime),
		Symbol:       evt.Symbol,
		Price:        price,
		Quantity:     qty,
		Side:         string(side),
		ReceivedTime: time.Now(),
	}, nil
}

func parseKLineEvent(interval types.Interval, e []byte) (types.KLineEvent, bool, error) {
	var evt futures.WsKlineEvent
	if err := json.Unmarshal(e, &evt); err != nil {
		return types.KLineEvent{}, false, fmt.Errorf("fail to unmarshal kline event: %w", err)
	}
	kline, err := parseOHLC(evt.Kline.Open, evt.Kline.High, evt.Kline.Low, evt.Kline.Close)
	if err != nil {
		return types.KLineEvent{}, false, err
	}
	return types.KLineEvent{
		Event:        evt.Event,
		OpenTime:     time.UnixMilli(evt.Kline.StartTime),
		CloseTime:    time.UnixMilli(evt.Kline.EndTime),
		Symbol:       evt.Symbol,
		Interval:     interval,
		Kline:        kline,
		ReceivedTime: time.Now(),
	}, evt.Kline.IsFinal, nil
}

func parseKLines(bnfKLines []*futures.Kline, symbol string, interval types.Interval) ([]types.KLineEvent, error) {
	kLines := make([]types.KLineEvent, len(bnfKLines))
	for i, k := range bnfKLines {
		kline, err := parseOHLC(k.Open, k.High, k.Low, k.Close)
		if err != nil {
			return nil, err
		}
		kLines[i] = types.KLineEvent{
			OpenTime:  time.UnixMilli(k.OpenTime),
			CloseTime: time.UnixMilli(k.CloseTime),
			Symbol:    symbol,
			Interval:  interval,
			Kline:     kline,
		}
	}
	return kLines, nil
}

func parseOHLC(o, h, l, c string) (types.KLine, error) {
	var values [4]float64
	for i, raw := range []string{o, h, l, c} {
		v, err := utils.StrToFloat(raw)
		if err != nil {
			return types.KLine{}, fmt.Errorf("fail to parse kline price %q: %w", raw, err)
		}
		values[i] = v
	}
	return types.KLine{O: values[0], H: values[1], L: values[2], C: values[3]}, nil
}

func parseBookDepthEvent(e []byte) (types.BookDepthEvent, error) {
	var evt wsDepthEvent
	if err := json.Unmarshal(e, &evt); err != nil {
		return types.BookDepthEvent{}, fmt.Errorf("fail to unmarshal depth event: %w", err)
	}

	bids := make([]types.Bid, 0, len(evt.Bids))
	for _, level := range evt.Bids {
		price, qty, err := parseLevel(level)
		if err != nil {
			return types.BookDepthEvent{}, err
		}
		bids = append(bids, types.Bid{Price: price, Qty: qty})
	}
	asks := make([]types.Ask, 0, len(evt.Asks))
	for _, level := range evt.Asks {
		price, qty, err := parseLevel(level)
		if err != nil {
			return types.BookDepthEvent{}, err
		}
		asks = append(asks, types.Ask{Price: price, Qty: qty})
	}

	return types.BookDepthEvent{
		Event:        evt.Event,
		Time:         time.UnixMilli(evt.Time),
		Symbol:       evt.Symbol,
		Bids:         bids,
		Asks:         asks,
		ReceivedTime: time.Now(),
	}, nil
}

func parseLevel(level []string) (float64, float64, error) {
	if len(level) < 2 {
		return 0, 0, fmt.Errorf("bad depth level: %v", level)
	}
	price, err := utils.StrToFloat(level[0])
	if err != nil {
		return 0, 0, err
	}
	qty, err := utils.StrToFloat(level[1])
	if err != nil {
		return 0, 0, err
	}
	return price, qty, nil
}

func parseOrderEvent(e []byte) (types.OrderEvent, error) {
	var evt futures.WsUserDataEvent
	if err := json.Unmarshal(e, &evt); err != nil {
		return types.OrderEvent{}, fmt.Errorf("fail to unmarshal user data event: %w", err)
	}
	if evt.Event != futures.UserDataEventTypeOrderTradeUpdate {
		return types.OrderEvent{}, fmt.Errorf("ignore as order type: %v", evt.Event)
	}

	o := evt.OrderTradeUpdate
	status, err := parseOrderStatus(o.Status)
	if err != nil {
		return types.OrderEvent{}, err
	}
	var price, origQty, avgPrice, filledQty, fee float64
	for _, field := range []struct {
		raw string
		dst *float64
	}{
		{o.OriginalPrice, &price},
		{o.OriginalQty, &origQty},
		{o.AveragePrice, &avgPrice},
		{o.AccumulatedFilledQty, &filledQty},
		{o.Commission, &fee},
	} {
		if field.raw == "" {
			continue
		}
		if *field.dst, err = utils.StrToFloat(field.raw); err != nil {
			return types.OrderEvent{}, err
		}
	}

	return types.OrderEvent{
		Event:        string(evt.Event),
		Time:         time.UnixMilli(evt.TransactionTime),
		Symbol:       o.Symbol,
		OId:          strconv.FormatInt(o.ID, 10),
		ClientOId:    o.ClientOrderID,
		Side:         types.SideOf(sideSign(o.Side)),
		IsReduceOnly: o.IsReduceOnly,
		OrderStatus:  status,
		Price:        price,
		OrigQty:      origQty,
		OrderTif:     types.OrderTIF(o.TimeInForce),
		OrderType:    convertOrderType(o.Type),
		AvgPrice:     avgPrice,
		FilledQty:    filledQty,
		Fee:          fee,
		FeeAsset:     o.CommissionAsset,
	}, nil
}

func sideSign(side futures.SideType) float64 {
	if side == futures.SideTypeSell {
		return -1
	}
	return 1
}

func parseOrderStatus(orderStatusType futures.OrderStatusType) (types.OrderStatus, error) {
	switch orderStatusType {
	case futures.OrderStatusTypeNew:
		return types.OrderStatusNew, nil
	case futures.OrderStatusTypePartiallyFilled:
		return types.OrderStatusPartialFilled, nil
	case futures.OrderStatusTypeFilled:
		return types.OrderStatusFilled, nil
	case futures.OrderStatusTypeCanceled:
		return types.OrderStatusCanceled, nil
	case futures.OrderStatusTypeRejected:
		return types.OrderStatusRejected, nil
	case futures.OrderStatusTypeExpired:
		return types.OrderStatusExpired, nil
	default:
		return "", fmt.Errorf("fail to parse unknown orderStatusType: %v", string(orderStatusType))
	}
}
