package utils

import (
	"algoexec/pkg/types"
	"fmt"
	"strconv"
	"time"
)

func StrToFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	return f, err
}

func FloatToStr(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// MsToDuration converts a millisecond count as carried by order parameters.
func MsToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func IntervalToDuration(interval types.Interval) (time.Duration, error) {
	switch interval {
	case types.Interval1m:
		return time.Minute, nil
	case types.Interval5m:
		return 5 * time.Minute, nil
	case types.Interval15m:
		return 15 * time.Minute, nil
	case types.Interval30m:
		return 30 * time.Minute, nil
	case types.Interval1h:
		return time.Hour, nil
	case types.Interval3h:
		return 3 * time.Hour, nil
	case types.Interval6h:
		return 6 * time.Hour, nil
	case types.Interval12h:
		return 12 * time.Hour, nil
	case types.Interval1D:
		return 24 * time.Hour, nil
	case types.Interval7D:
		return 7 * 24 * time.Hour, nil
	case types.Interval14D:
		return 14 * 24 * time.Hour, nil
	case types.Interval1M:
		return 30 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("invalid interval: %v", interval)
	}
}

func IsValidInterval(interval types.Interval) bool {
	_, err := IntervalToDuration(interval)
	return err == nil
}
