package model

import "context"

// BacktestRunner replays a strategy over a window of market data and returns
// trade-level results. It is supplied by the host application; the validation
// core invokes it once per (parameter-set, window) combination and propagates
// its errors unchanged. Retry, timeout, and backoff policy belong to the
// runner, not to this core.
type BacktestRunner interface {
	Run(ctx context.Context, cfg StrategyConfig, data Dataset, params Params, window TimeRange) (*PerformanceResult, error)
}

// ParameterOptimizer searches for the best parameters on a given data window.
// It is invoked once per training window and must never see holdout data.
type ParameterOptimizer interface {
	Optimize(ctx context.Context, cfg StrategyConfig, data Dataset, window TimeRange) (Params, error)
}
