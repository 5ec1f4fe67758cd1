package featimp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratval/stratval/internal/model"
)

// permTestTrades builds a deterministic trade set with two signal tags and
// varied outcomes
func permTestTrades(n int) []model.TradeRecord {
	trades := make([]model.TradeRecord, n)
	for i := range trades {
		pnlPct := float64((i*7)%13-6) * 0.003
		tag := "alpha"
		if i%2 == 1 {
			tag = "beta"
		}
		trades[i] = model.TradeRecord{
			PnLPct:  pnlPct,
			PnL:     pnlPct * 10000,
			Signals: []string{tag},
		}
	}
	return trades
}

func TestCalculateInsufficientTrades(t *testing.T) {
	c := NewCalculator(DefaultConfig())
	_, err := c.Calculate(permTestTrades(10))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientTrades))
}

func TestCalculateDeterministicAcrossWorkerCounts(t *testing.T) {
	trades := permTestTrades(40)

	run := func(workers int) *Result {
		cfg := DefaultConfig()
		cfg.Seeded = true
		cfg.Seed = 42
		cfg.MaxConcurrent = workers
		res, err := NewCalculator(cfg).Calculate(trades)
		require.NoError(t, err)
		return res
	}

	first := run(1)
	second := run(4)
	third := run(4)

	// Bit-identical scores regardless of worker count or repetition
	assert.Equal(t, first.Scores, second.Scores)
	assert.Equal(t, second.Scores, third.Scores)
	assert.Equal(t, first.BaselineMetric, second.BaselineMetric)
}

func TestCalculateDoesNotMutateInput(t *testing.T) {
	trades := permTestTrades(40)
	before := model.CloneTrades(trades)

	cfg := DefaultConfig()
	cfg.Seeded = true
	cfg.Seed = 7
	_, err := NewCalculator(cfg).Calculate(trades)
	require.NoError(t, err)

	assert.Equal(t, before, trades)
}

func TestCalculateResultShape(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seeded = true
	cfg.Seed = 1
	cfg.NumPermutations = 50

	res, err := NewCalculator(cfg).Calculate(permTestTrades(40))
	require.NoError(t, err)

	assert.Equal(t, "sharpe", res.Metric)
	assert.Equal(t, 50, res.NumPermutations)
	assert.Equal(t, 40, res.TotalTrades)
	require.Len(t, res.Scores, 2)

	// Descending by importance, name as tiebreak
	assert.GreaterOrEqual(t, res.Scores[0].Importance, res.Scores[1].Importance)
	for _, s := range res.Scores {
		assert.Equal(t, 20, s.TradeCount)
		assert.GreaterOrEqual(t, s.PValue, 0.0)
		assert.LessOrEqual(t, s.PValue, 1.0)
	}

	// Recommended and droppable partition the signal set
	assert.Equal(t, len(res.Scores), len(res.Recommended)+len(res.Droppable))
	want := float64(len(res.Recommended)) / float64(len(res.Scores))
	assert.InDelta(t, want, res.UsefulFraction, 1e-12)
}

func TestScoreSignal(t *testing.T) {
	c := NewCalculator(DefaultConfig())

	score := c.scoreSignal("alpha", 2.0, 15, []float64{1, 1, 1, 3})
	assert.InDelta(t, 1.5, score.MeanPermuted, 1e-12)
	assert.InDelta(t, 1.0, score.StdPermuted, 1e-12)
	// One of four trials at or above the baseline
	assert.InDelta(t, 0.25, score.PValue, 1e-12)
	assert.InDelta(t, 0.25, score.Importance, 1e-12)
	// half-width = 1.96 * (1/sqrt(4)) / 2
	assert.InDelta(t, 0.25-0.49, score.CILower, 1e-12)
	assert.InDelta(t, 0.25+0.49, score.CIUpper, 1e-12)
	// Importance clears the bar but the p-value does not
	assert.False(t, score.IsUseful)
}

func TestScoreSignalUseful(t *testing.T) {
	c := NewCalculator(DefaultConfig())

	score := c.scoreSignal("alpha", 2.0, 15, []float64{1, 1.1, 0.9, 1})
	assert.Zero(t, score.PValue)
	assert.Greater(t, score.Importance, c.config.MinImportance)
	assert.True(t, score.IsUseful)
}

func TestScoreSignalZeroBaseline(t *testing.T) {
	c := NewCalculator(DefaultConfig())

	score := c.scoreSignal("alpha", 0, 15, []float64{-1, 1})
	assert.Zero(t, score.Importance)
	assert.Zero(t, score.CILower)
	assert.Zero(t, score.CIUpper)
	assert.False(t, score.IsUseful)
}

func TestDistinctSignals(t *testing.T) {
	trades := []model.TradeRecord{
		{Signals: []string{"momentum", "volume"}},
		{Signals: []string{"breakout"}},
		{Signals: []string{"momentum"}},
		{Signals: nil},
	}
	assert.Equal(t, []string{"breakout", "momentum", "volume"}, distinctSignals(trades))
	assert.Empty(t, distinctSignals(nil))
}

func TestTrialRandIsStable(t *testing.T) {
	draw := func() []int {
		rng := trialRand(42, "momentum", 7)
		out := make([]int, 8)
		for i := range out {
			out[i] = rng.Intn(1000)
		}
		return out
	}
	assert.Equal(t, draw(), draw())

	// Different trials get different sub-streams
	a := trialRand(42, "momentum", 0).Int63()
	b := trialRand(42, "momentum", 1).Int63()
	assert.NotEqual(t, a, b)

	// Different tags get different sub-streams
	c := trialRand(42, "volume", 0).Int63()
	assert.NotEqual(t, a, c)
}

func TestPermutedMetricPreservesUntaggedTrades(t *testing.T) {
	trades := permTestTrades(40)
	scratch := model.CloneTrades(trades)
	calc := NewCalculator(DefaultConfig())

	calc.permutedMetric(trades, scratch, "alpha", 42, 0)

	// Beta trades keep their original outcomes; alpha outcomes are a
	// permutation of the original alpha outcomes
	var origAlpha, shufAlpha map[float64]int
	origAlpha = make(map[float64]int)
	shufAlpha = make(map[float64]int)
	for i := range trades {
		if trades[i].HasSignal("beta") {
			assert.Equal(t, trades[i].PnLPct, scratch[i].PnLPct)
			assert.Equal(t, trades[i].PnL, scratch[i].PnL)
			continue
		}
		origAlpha[trades[i].PnLPct]++
		shufAlpha[scratch[i].PnLPct]++
	}
	assert.Equal(t, origAlpha, shufAlpha)
}
