package perturb

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratval/stratval/internal/model"
)

// paramRunner maps each requested parameter set onto a canned result
type paramRunner struct {
	fn func(params model.Params) (*model.PerformanceResult, error)
}

func (r *paramRunner) Run(_ context.Context, _ model.StrategyConfig, _ model.Dataset, params model.Params, _ model.TimeRange) (*model.PerformanceResult, error) {
	return r.fn(params)
}

func sharpeResult(sharpe float64, trades int) *model.PerformanceResult {
	return &model.PerformanceResult{
		Metrics: model.PerformanceMetrics{Sharpe: sharpe, TotalTrades: trades},
		Trades:  make([]model.TradeRecord, trades),
	}
}

func testWindow() model.TimeRange {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	return model.TimeRange{Start: start, End: start.AddDate(1, 0, 0)}
}

func TestRunSkipsZeroParameters(t *testing.T) {
	runner := &paramRunner{fn: func(model.Params) (*model.PerformanceResult, error) {
		return sharpeResult(2.0, 50), nil
	}}
	tester := NewTester(DefaultConfig(), runner)

	res, err := tester.Run(context.Background(), model.StrategyConfig{StrategyID: "momo"}, nil,
		model.Params{"a": 5, "b": 0}, testWindow())
	require.NoError(t, err)

	require.Len(t, res.Parameters, 1)
	assert.Equal(t, "a", res.Parameters[0].Name)
	assert.Equal(t, 5.0, res.Parameters[0].BaseValue)
	assert.Equal(t, []string{"b"}, res.SkippedParams)
}

func TestRunRobustStrategy(t *testing.T) {
	// Metric is flat in the parameters: zero sensitivity everywhere
	runner := &paramRunner{fn: func(model.Params) (*model.PerformanceResult, error) {
		return sharpeResult(2.0, 50), nil
	}}
	tester := NewTester(DefaultConfig(), runner)

	res, err := tester.Run(context.Background(), model.StrategyConfig{StrategyID: "momo"}, nil,
		model.Params{"lookback": 20, "threshold": 1.5}, testWindow())
	require.NoError(t, err)

	assert.True(t, res.Passed)
	assert.Empty(t, res.FailureReasons)
	assert.Equal(t, 0, res.FragileCount)
	assert.InDelta(t, 1.0, res.RobustnessScore, 1e-12)
	assert.InDelta(t, 2.0, res.BaselineMetric, 1e-12)
	assert.Equal(t, 50, res.BaselineTrades)

	for _, p := range res.Parameters {
		assert.False(t, p.IsFragile)
		assert.False(t, p.RecommendFixToDefault)
		assert.Zero(t, p.AverageSensitivity)
		require.Len(t, p.Levels, 3)
		for _, lv := range p.Levels {
			assert.True(t, lv.Passed)
			assert.Zero(t, lv.Degradation)
		}
	}
}

func TestRunFragileStrategy(t *testing.T) {
	// Any nudge of the parameter drops the Sharpe from 2.0 to 0.5
	runner := &paramRunner{fn: func(p model.Params) (*model.PerformanceResult, error) {
		if p["a"] == 5 {
			return sharpeResult(2.0, 50), nil
		}
		return sharpeResult(0.5, 50), nil
	}}
	tester := NewTester(DefaultConfig(), runner)

	res, err := tester.Run(context.Background(), model.StrategyConfig{StrategyID: "momo"}, nil,
		model.Params{"a": 5}, testWindow())
	require.NoError(t, err)

	require.Len(t, res.Parameters, 1)
	p := res.Parameters[0]
	assert.InDelta(t, 0.75, p.AverageSensitivity, 1e-12)
	assert.True(t, p.IsFragile)
	assert.True(t, p.RecommendFixToDefault)
	for _, lv := range p.Levels {
		assert.False(t, lv.Passed)
		assert.InDelta(t, 0.75, lv.Degradation, 1e-12)
	}

	assert.False(t, res.Passed)
	assert.InDelta(t, 0.25, res.RobustnessScore, 1e-12)
	assert.Equal(t, 1, res.FragileCount)
	// Both the robustness gate and the fragile-majority gate fire
	assert.Len(t, res.FailureReasons, 2)
}

func TestRunBelowMinTradesIsMaximalPenalty(t *testing.T) {
	runner := &paramRunner{fn: func(p model.Params) (*model.PerformanceResult, error) {
		if p["a"] == 5 {
			return sharpeResult(2.0, 50), nil
		}
		// Perturbed runs barely trade at all
		return sharpeResult(3.0, 4), nil
	}}
	tester := NewTester(DefaultConfig(), runner)

	res, err := tester.Run(context.Background(), model.StrategyConfig{StrategyID: "momo"}, nil,
		model.Params{"a": 5}, testWindow())
	require.NoError(t, err)

	require.Len(t, res.Parameters, 1)
	p := res.Parameters[0]
	// Degradation caps instead of leaking -Inf into the aggregate
	assert.InDelta(t, 10.0, p.AverageSensitivity, 1e-12)
	assert.True(t, p.IsFragile)
	assert.Zero(t, res.RobustnessScore)
	assert.False(t, res.Passed)

	for _, lv := range p.Levels {
		assert.True(t, lv.UpBelowMin)
		assert.True(t, lv.DownBelowMin)
		assert.Equal(t, 4, lv.UpTrades)
		assert.Equal(t, 4, lv.DownTrades)
		// The recorded metric stays finite
		assert.Zero(t, lv.UpMetric)
		assert.Zero(t, lv.DownMetric)
	}
}

func TestRunRanksMostSensitiveFirst(t *testing.T) {
	runner := &paramRunner{fn: func(p model.Params) (*model.PerformanceResult, error) {
		switch {
		case p["a"] != 5:
			return sharpeResult(0.5, 50), nil // fragile
		case p["c"] != 10:
			return sharpeResult(1.8, 50), nil // mildly sensitive
		default:
			return sharpeResult(2.0, 50), nil
		}
	}}
	tester := NewTester(DefaultConfig(), runner)

	res, err := tester.Run(context.Background(), model.StrategyConfig{StrategyID: "momo"}, nil,
		model.Params{"a": 5, "c": 10}, testWindow())
	require.NoError(t, err)

	require.Len(t, res.Parameters, 2)
	assert.Equal(t, "a", res.Parameters[0].Name)
	assert.Equal(t, "c", res.Parameters[1].Name)
	assert.Greater(t, res.Parameters[0].AverageSensitivity, res.Parameters[1].AverageSensitivity)
}

func TestRunAbortsOnCollaboratorError(t *testing.T) {
	var calls atomic.Int64
	runner := &paramRunner{fn: func(p model.Params) (*model.PerformanceResult, error) {
		if calls.Add(1) == 1 {
			return sharpeResult(2.0, 50), nil // baseline
		}
		return nil, errors.New("exchange data gap")
	}}
	tester := NewTester(DefaultConfig(), runner)

	_, err := tester.Run(context.Background(), model.StrategyConfig{StrategyID: "momo"}, nil,
		model.Params{"a": 5}, testWindow())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exchange data gap")
	assert.Contains(t, err.Error(), "perturbed backtest")
}

func TestRunBaselineError(t *testing.T) {
	runner := &paramRunner{fn: func(model.Params) (*model.PerformanceResult, error) {
		return nil, errors.New("no data")
	}}
	tester := NewTester(DefaultConfig(), runner)

	_, err := tester.Run(context.Background(), model.StrategyConfig{}, nil, model.Params{"a": 5}, testWindow())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "baseline backtest")
}

func TestLevelDegradation(t *testing.T) {
	tests := []struct {
		name      string
		baseline  float64
		perturbed float64
		want      float64
	}{
		{"halved", 2.0, 1.0, 0.5},
		{"improved", 2.0, 3.0, 0},
		{"non-positive baseline", -0.5, 1.0, 0},
		{"zero baseline", 0, 1.0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, levelDegradation(tt.baseline, tt.perturbed), 1e-12)
		})
	}
}
