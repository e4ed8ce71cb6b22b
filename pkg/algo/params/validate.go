package params

import (
	"algoexec/pkg/types"
	"algoexec/pkg/utils"
	"fmt"
	"math"
)

// ValidationError carries the first rule a parameter set violates.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func invalid(format string, a ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, a...)}
}

// Validate checks the params against the rules of a legal accumulate/distribute
// order and returns a *ValidationError for the first violation, in rule order.
func (p Params) Validate() error {
	switch p.OrderType {
	case types.AlgoOrderMarket, types.AlgoOrderLimit, types.AlgoOrderRelative:
	default:
		return invalid("Invalid order type: %s", p.OrderType)
	}
	if !isFinite(p.Amount) {
		return invalid("Invalid amount")
	}
	if !isFinite(p.SliceAmount) {
		return invalid("Invalid slice amount")
	}
	if !isFinite(p.SubmitDelay) || *p.SubmitDelay < 0 {
		return invalid("Invalid submit delay")
	}
	if !isFinite(p.CancelDelay) || *p.CancelDelay < 0 {
		return invalid("Invalid cancel delay")
	}
	if p.CatchUp == nil {
		return invalid("Bool catch up flag required")
	}
	if p.AwaitFill == nil {
		return invalid("Bool await fill flag required")
	}
	if !isFinite(p.SliceInterval) || *p.SliceInterval <= 0 {
		return invalid("Invalid slice interval")
	}
	if !isFinite(p.IntervalDistortion) {
		return invalid("Interval distortion required")
	}
	if !isFinite(p.AmountDistortion) {
		return invalid("Amount distortion required")
	}
	if p.OrderType == types.AlgoOrderLimit && !isFinite(p.LimitPrice) {
		return invalid("Limit price required for LIMIT order type")
	}

	if p.RelativeCap != nil {
		if err := validatePriceRef(p.RelativeCap, "cap"); err != nil {
			return err
		}
	}
	if p.RelativeOffset != nil {
		if err := validatePriceRef(p.RelativeOffset, "offset"); err != nil {
			return err
		}
	}

	amount, slice := *p.Amount, *p.SliceAmount
	if (amount < 0 && slice >= 0) || (amount > 0 && slice <= 0) {
		return invalid("Amount & slice amount must have same sign")
	}
	if amount == 0 {
		return invalid("Invalid amount: zero")
	}
	if p.OrderType == types.AlgoOrderRelative && p.RelativeOffset == nil {
		return invalid("Relative offset required for RELATIVE order type")
	}
	if p.Symbol == "" {
		return invalid("Symbol required")
	}

	if p.Futures {
		if !isFinite(p.Lev) {
			return invalid("Invalid leverage")
		}
		if *p.Lev < 1 {
			return invalid("Leverage less than 1")
		}
		if *p.Lev > 100 {
			return invalid("Leverage greater than 100")
		}
		if *p.Lev != math.Trunc(*p.Lev) {
			return invalid("Leverage must be a whole number: %v", *p.Lev)
		}
	}

	return nil
}

func validatePriceRef(ref *PriceReference, name string) error {
	if !isFinite(ref.Delta) {
		return invalid("Invalid relative %s delta", name)
	}
	if !isKnownRefType(ref.Type) {
		return invalid("Invalid relative %s type: %s", name, ref.Type)
	}
	if !ref.Type.IsIndicator() {
		return nil
	}

	if len(ref.Args) != 1 {
		return invalid("Invalid args for relative %s indicator", name)
	}
	if ref.CandlePrice == "" {
		return invalid("Candle price required for relative %s indicator", name)
	}
	if ref.CandleTimeFrame == "" {
		return invalid("Candle time frame required for relative %s indicator", name)
	}
	if !utils.IsValidInterval(ref.CandleTimeFrame) {
		return invalid("Unrecognized relative %s candle time frame: %s", name, ref.CandleTimeFrame)
	}
	if period := ref.Args[0]; math.IsNaN(period) || math.IsInf(period, 0) || period < 1 || period != math.Trunc(period) {
		return invalid("Invalid relative %s indicator period: %v", name, period)
	}
	return nil
}

func isKnownRefType(t PriceRefType) bool {
	for _, known := range PriceRefTypes {
		if t == known {
			return true
		}
	}
	return false
}

func isFinite(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}
