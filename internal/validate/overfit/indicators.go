package overfit

import (
	"fmt"
	"math"
	"sort"

	"github.com/stratval/stratval/internal/model"
	"github.com/stratval/stratval/internal/stats"
)

// Fixed thresholds tuned against the composite probability weights; these are
// part of the scoring arithmetic, not host configuration
const (
	maxAvgDegradation   = 0.4  // Average degradation beyond which the indicator is concerning
	unstableCV          = 0.5  // Coefficient of variation marking a parameter unstable
	minDistributionN    = 10   // Below this, distribution analysis returns neutral defaults
	minTimeStabilityN   = 20   // Below this, time-stability analysis returns neutral defaults
	lowDegreesOfFreedom = 20   // Below this, complexity scores an extra penalty
	maxAutocorrelation  = 0.3  // |lag-1 autocorrelation| beyond which returns look non-independent
	minTrendSlope       = -10  // Quarter-return slope (percentage points) marking decay
	minTimeConsistency  = 0.5  // Consistency below this is concerning
	maxRegimeChanges    = 2    // Sign flips between quarters at or beyond this are concerning
)

// DegradationIndicator measures in-sample to out-of-sample performance loss
type DegradationIndicator struct {
	Sharpe       float64 `json:"sharpe"`
	Returns      float64 `json:"returns"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"`
	Average      float64 `json:"average"`
	IsConcerning bool    `json:"is_concerning"`
}

// StabilityIndicator measures how much the optimized parameters wander across
// repeated optimization runs
type StabilityIndicator struct {
	ParamCV        map[string]float64 `json:"param_cv"` // Coefficient of variation per parameter
	UnstableParams []string           `json:"unstable_params,omitempty"`
	StabilityScore float64            `json:"stability_score"` // max(0, 1 - mean CV)
	IsConcerning   bool               `json:"is_concerning"`
}

// ComplexityIndicator relates parameter count to sample size
type ComplexityIndicator struct {
	ParamCount         int     `json:"param_count"`
	SampleSize         int     `json:"sample_size"`
	ParametersPerTrade float64 `json:"parameters_per_trade"`
	DegreesOfFreedom   int     `json:"degrees_of_freedom"`
	Score              float64 `json:"score"` // 0..1 overfit contribution
	IsConcerning       bool    `json:"is_concerning"`
}

// DistributionIndicator inspects the shape of per-trade percent returns
type DistributionIndicator struct {
	Skewness         float64 `json:"skewness"`
	Kurtosis         float64 `json:"kurtosis"`
	JarqueBera       float64 `json:"jarque_bera"`
	NormalityPValue  float64 `json:"normality_p_value"`
	Autocorrelation  float64 `json:"autocorrelation"` // Lag-1
	SuspiciouslyGood bool    `json:"suspiciously_good"`
	IsConcerning     bool    `json:"is_concerning"`
}

// TimeStabilityIndicator checks whether performance holds across the sample's
// quarters rather than clustering in one regime
type TimeStabilityIndicator struct {
	QuarterReturns   []float64 `json:"quarter_returns"` // Summed PnL percentage points per quarter
	TimeConsistency  float64   `json:"time_consistency"`
	PerformanceTrend float64   `json:"performance_trend"` // Regression slope over quarter index
	RegimeChanges    int       `json:"regime_changes"`    // Sign flips between consecutive quarters
	IsConcerning     bool      `json:"is_concerning"`
}

// Indicators bundles the five supporting dimensions behind the composite
// overfit probability
type Indicators struct {
	Degradation   DegradationIndicator   `json:"degradation"`
	Stability     StabilityIndicator     `json:"stability"`
	Complexity    ComplexityIndicator    `json:"complexity"`
	Distribution  DistributionIndicator  `json:"distribution"`
	TimeStability TimeStabilityIndicator `json:"time_stability"`
}

// analyzeDegradation applies the shared degradation ratio across the four
// headline metrics
func (d *Detector) analyzeDegradation(in, out model.PerformanceMetrics) DegradationIndicator {
	ind := DegradationIndicator{
		Sharpe:  stats.DegradationRatio(in.Sharpe, out.Sharpe),
		Returns: stats.DegradationRatio(in.TotalReturn, out.TotalReturn),
		WinRate: stats.DegradationRatio(in.WinRate, out.WinRate),
		ProfitFactor: stats.DegradationRatio(
			stats.CapProfitFactor(in.ProfitFactor),
			stats.CapProfitFactor(out.ProfitFactor)),
	}
	ind.Average = (ind.Sharpe + ind.Returns + ind.WinRate + ind.ProfitFactor) / 4.0
	ind.IsConcerning = ind.Sharpe > d.config.MaxSharpeDegradation ||
		ind.Returns > d.config.MaxReturnDegradation ||
		ind.Average > maxAvgDegradation
	return ind
}

// analyzeStability computes per-parameter coefficients of variation across a
// history of optimization runs. Fewer than 2 history points means there is no
// data to judge instability, which reads as perfectly stable.
func (d *Detector) analyzeStability(history []model.Params) StabilityIndicator {
	ind := StabilityIndicator{
		ParamCV:        make(map[string]float64),
		StabilityScore: 1.0,
	}
	if len(history) < 2 {
		return ind
	}

	names := make(map[string]struct{})
	for _, params := range history {
		for name := range params {
			names[name] = struct{}{}
		}
	}
	ordered := make([]string, 0, len(names))
	for name := range names {
		ordered = append(ordered, name)
	}
	sort.Strings(ordered)

	var cvSum float64
	for _, name := range ordered {
		var values []float64
		for _, params := range history {
			if v, ok := params[name]; ok {
				values = append(values, v)
			}
		}
		cv := stats.CoefVar(values)
		ind.ParamCV[name] = cv
		cvSum += cv
		if cv > unstableCV {
			ind.UnstableParams = append(ind.UnstableParams, name)
		}
	}

	meanCV := cvSum / float64(len(ordered))
	ind.StabilityScore = math.Max(0, 1-meanCV)
	ind.IsConcerning = ind.StabilityScore < d.config.MinStability
	return ind
}

// analyzeComplexity scores how much fitting capacity the strategy had
// relative to the evidence it was fit on
func (d *Detector) analyzeComplexity(paramCount, sampleSize int) ComplexityIndicator {
	ind := ComplexityIndicator{
		ParamCount: paramCount,
		SampleSize: sampleSize,
	}
	if sampleSize > 0 {
		ind.ParametersPerTrade = float64(paramCount) / float64(sampleSize)
	}
	dof := sampleSize - paramCount - 1
	if dof < 0 {
		dof = 0
	}
	ind.DegreesOfFreedom = dof

	score := 0.0
	if sampleSize < d.config.MinSampleSize {
		score += 0.3
	}
	if ind.ParametersPerTrade > d.config.MaxParamsPerTrade {
		score += 0.4
	}
	if dof < lowDegreesOfFreedom {
		score += 0.3
	}
	ind.Score = stats.Clamp01(score)
	ind.IsConcerning = ind.Score > 0.5
	return ind
}

// analyzeDistribution inspects per-trade percent returns for shapes that real
// edges rarely produce. Fewer than 10 trades yields neutral defaults rather
// than a verdict on noise.
func (d *Detector) analyzeDistribution(trades []model.TradeRecord, metrics model.PerformanceMetrics) DistributionIndicator {
	ind := DistributionIndicator{
		Kurtosis:        3,
		NormalityPValue: 1,
	}
	if len(trades) < minDistributionN {
		return ind
	}

	returns := make([]float64, len(trades))
	for i, t := range trades {
		returns[i] = t.PnLPct
	}

	ind.Skewness = stats.Skewness(returns)
	ind.Kurtosis = stats.Kurtosis(returns)
	ind.JarqueBera = stats.JarqueBera(returns)
	ind.NormalityPValue = stats.JarqueBeraPValue(ind.JarqueBera)
	ind.Autocorrelation = stats.Autocorrelation(returns, 1)
	ind.SuspiciouslyGood = metrics.WinRate > 0.7 && metrics.AvgWin > math.Abs(metrics.AvgLoss)

	ind.IsConcerning = ind.SuspiciouslyGood ||
		math.Abs(ind.Autocorrelation) > maxAutocorrelation ||
		ind.NormalityPValue < d.config.SignificanceLevel
	return ind
}

// analyzeTimeStability splits the combined trade sequence into four
// equal-sized quarters and checks that performance is spread across them.
// Quarter returns are summed PnL in percentage points so the trend threshold
// operates on a human scale. Fewer than 20 combined trades yields neutral
// defaults.
func (d *Detector) analyzeTimeStability(inTrades, outTrades []model.TradeRecord) TimeStabilityIndicator {
	ind := TimeStabilityIndicator{TimeConsistency: 1.0}

	combined := make([]model.TradeRecord, 0, len(inTrades)+len(outTrades))
	combined = append(combined, inTrades...)
	combined = append(combined, outTrades...)
	if len(combined) < minTimeStabilityN {
		return ind
	}

	n := len(combined)
	quarters := make([]float64, 4)
	for q := 0; q < 4; q++ {
		start := q * n / 4
		end := (q + 1) * n / 4
		for _, t := range combined[start:end] {
			quarters[q] += t.PnLPct * 100
		}
	}
	ind.QuarterReturns = quarters

	ind.TimeConsistency = math.Max(0, 1-stats.CoefVar(quarters))
	ind.PerformanceTrend = stats.LinearSlope(quarters)
	for q := 1; q < len(quarters); q++ {
		if (quarters[q-1] > 0) != (quarters[q] > 0) {
			ind.RegimeChanges++
		}
	}

	ind.IsConcerning = ind.TimeConsistency < minTimeConsistency ||
		ind.PerformanceTrend < minTrendSlope ||
		ind.RegimeChanges >= maxRegimeChanges
	return ind
}

// likelyCauses translates concerning indicators into human-readable causes.
// Extreme findings are prefixed "critical:" and veto a pass regardless of the
// composite probability.
func likelyCauses(ind Indicators) []string {
	var causes []string

	if ind.Degradation.IsConcerning {
		if ind.Degradation.Average > 0.7 {
			causes = append(causes, fmt.Sprintf(
				"critical: severe out-of-sample degradation (average %.2f)", ind.Degradation.Average))
		} else {
			causes = append(causes, fmt.Sprintf(
				"performance degrades sharply out-of-sample (average %.2f)", ind.Degradation.Average))
		}
	}
	if ind.Stability.IsConcerning {
		causes = append(causes, fmt.Sprintf(
			"optimized parameters unstable across runs (stability %.2f, unstable: %v)",
			ind.Stability.StabilityScore, ind.Stability.UnstableParams))
	}
	if ind.Complexity.IsConcerning {
		if ind.Complexity.DegreesOfFreedom < 5 {
			causes = append(causes, fmt.Sprintf(
				"critical: degrees of freedom nearly exhausted (%d)", ind.Complexity.DegreesOfFreedom))
		} else {
			causes = append(causes, fmt.Sprintf(
				"model complexity high relative to sample (%.3f parameters per trade)",
				ind.Complexity.ParametersPerTrade))
		}
	}
	if ind.Distribution.IsConcerning {
		switch {
		case ind.Distribution.SuspiciouslyGood:
			causes = append(causes, "return distribution suspiciously good (high win rate with larger average wins)")
		case math.Abs(ind.Distribution.Autocorrelation) > maxAutocorrelation:
			causes = append(causes, fmt.Sprintf(
				"trade returns autocorrelated (lag-1 %.2f)", ind.Distribution.Autocorrelation))
		default:
			causes = append(causes, fmt.Sprintf(
				"return distribution strongly non-normal (p=%.3f)", ind.Distribution.NormalityPValue))
		}
	}
	if ind.TimeStability.IsConcerning {
		causes = append(causes, fmt.Sprintf(
			"performance inconsistent across time (consistency %.2f, trend %.1f, %d regime changes)",
			ind.TimeStability.TimeConsistency, ind.TimeStability.PerformanceTrend,
			ind.TimeStability.RegimeChanges))
	}

	return causes
}

// concerningCount counts how many of the five indicators fired
func concerningCount(ind Indicators) int {
	n := 0
	for _, c := range []bool{
		ind.Degradation.IsConcerning,
		ind.Stability.IsConcerning,
		ind.Complexity.IsConcerning,
		ind.Distribution.IsConcerning,
		ind.TimeStability.IsConcerning,
	} {
		if c {
			n++
		}
	}
	return n
}
