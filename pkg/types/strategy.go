package types

type StrategyName string

const (
	StrategyAccumulateDistribute = StrategyName("accumulate_distribute")
)
