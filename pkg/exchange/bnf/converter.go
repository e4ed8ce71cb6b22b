package bnf

import (
	"algoexec/pkg/types"
	"fmt"

	"github.com/adshao/go-binance/v2/futures"
)

func convertOrderSide(side types.OrderSide) (futures.SideType, error) {
	switch side {
	case types.OrderSideBuy:
		return futures.SideTypeBuy, nil
	case types.OrderSideSell:
		return futures.SideTypeSell, nil
	default:
		return "", fmt.Errorf("unknown order side: %s", side)
	}
}

func convertOrderTIF(tif types.OrderTIF) (futures.TimeInForceType, error) {
	switch tif {
	case types.OrderTIFGTC, "":
		return futures.TimeInForceTypeGTC, nil
	case types.OrderTIFGTX:
		return futures.TimeInForceTypeGTX, nil
	case types.OrderTIFIOC:
		return futures.TimeInForceTypeIOC, nil
	case types.OrderTIFFOK:
		return futures.TimeInForceTypeFOK, nil
	default:
		return "", fmt.Errorf("unknown tif: %s", tif)
	}
}

// convertInterval maps a candle width to the futures kline interval; 3h and 14D
// have no futures equivalent.
func convertInterval(interval types.Interval) (string, error) {
	switch interval {
	case types.Interval1m, types.Interval5m, types.Interval15m, types.Interval30m,
		types.Interval1h, types.Interval6h, types.Interval12h, types.Interval1M:
		return string(interval), nil
	case types.Interval1D:
		return "1d", nil
	case types.Interval7D:
		return "1w", nil
	default:
		return "", fmt.Errorf("unsupported kline interval: %s", interval)
	}
}

func convertOrderType(orderType futures.OrderType) types.OrderType {
	if orderType == futures.OrderTypeMarket {
		return types.OrderMarket
	}
	return types.OrderLimit
}
