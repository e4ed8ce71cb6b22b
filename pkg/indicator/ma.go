package indicator

// CalculateMovingAverage returns the simple moving average line of values; one point per full window.
func CalculateMovingAverage(values []float64, window int) []float64 {
	if window <= 0 || len(values) < window {
		return []float64{}
	}

	maValues := make([]float64, len(values)-window+1)
	for i := window - 1; i < len(values); i++ {
		maValues[i-window+1] = CalculateAverage(values[i-window+1 : i+1])
	}
	return maValues
}

// CalculateEMA returns the exponential moving average line of values with smoothing 2/(window+1).
// The first point is seeded with the simple average of the first window values.
func CalculateEMA(values []float64, window int) []float64 {
	if window <= 0 || len(values) < window {
		return []float64{}
	}

	alpha := 2 / (float64(window) + 1)
	emaValues := make([]float64, len(values)-window+1)
	emaValues[0] = CalculateAverage(values[:window])
	for i := window; i < len(values); i++ {
		prev := emaValues[i-window]
		emaValues[i-window+1] = alpha*values[i] + (1-alpha)*prev
	}
	return emaValues
}
