package indicator

import "algoexec/pkg/types"

func CalculateAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// CandlePrices extracts the selected OHLC component of each kline, preserving order.
func CandlePrices(klines []types.KLineEvent, price types.CandlePrice) []float64 {
	values := make([]float64, len(klines))
	for i, kline := range klines {
		values[i] = kline.Kline.Price(price)
	}
	return values
}
