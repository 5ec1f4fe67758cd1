// Package overfit estimates the probability that a strategy's backtested
// performance is an artifact of fitting noise rather than a durable edge. It
// combines degradation, parameter-stability, complexity, return-distribution,
// and time-stability indicators into a single composite probability with a
// severity level, plus a fast heuristic quick-check for pre-flight gating.
package overfit

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/stratval/stratval/internal/model"
	"github.com/stratval/stratval/internal/stats"
)

// Severity levels for the composite overfit probability
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Composite probability weights. Tuned together with the indicator
// thresholds; change them in lockstep or not at all.
const (
	weightDegradation  = 0.35
	weightInstability  = 0.20
	weightComplexity   = 0.25
	weightDistribution = 0.10
	weightTimeStab     = 0.10
)

// Config holds the overfit detection thresholds
type Config struct {
	MaxSharpeDegradation float64 `yaml:"max_sharpe_degradation"` // Sharpe degradation marking the indicator concerning (default: 0.4)
	MaxReturnDegradation float64 `yaml:"max_return_degradation"` // Return degradation marking the indicator concerning (default: 0.4)
	MinStability         float64 `yaml:"min_stability"`          // Minimum parameter stability score (default: 0.5)
	MinSampleSize        int     `yaml:"min_sample_size"`        // Minimum trade sample before complexity penalties (default: 100)
	MaxParamsPerTrade    float64 `yaml:"max_params_per_trade"`   // Maximum parameter count per trade (default: 0.1)
	SignificanceLevel    float64 `yaml:"significance_level"`     // Normality test significance level (default: 0.05)
	QuickMaxDegradation  float64 `yaml:"quick_max_degradation"`  // Sharpe degradation flagged by the quick check (default: 0.5)
}

// DefaultConfig returns the default overfit detection thresholds
func DefaultConfig() Config {
	return Config{
		MaxSharpeDegradation: 0.4,
		MaxReturnDegradation: 0.4,
		MinStability:         0.5,
		MinSampleSize:        100,
		MaxParamsPerTrade:    0.1,
		SignificanceLevel:    0.05,
		QuickMaxDegradation:  0.5,
	}
}

// Analysis is the composite overfit finding
type Analysis struct {
	Probability  float64    `json:"probability"` // 0..1 composite overfit probability
	Severity     string     `json:"severity"`    // low|medium|high|critical
	Confidence   float64    `json:"confidence"`  // Rises with the number of concurring indicators
	Indicators   Indicators `json:"indicators"`
	LikelyCauses []string   `json:"likely_causes,omitempty"`
	Passed       bool       `json:"passed"`
}

// Detector combines the five overfit indicators into a composite probability
type Detector struct {
	config Config
}

// NewDetector creates an overfit detector with the given thresholds
func NewDetector(config Config) *Detector {
	return &Detector{config: config}
}

// Detect runs the full analysis. Every indicator is computed even when
// another is degenerate: a too-small distribution sample yields neutral
// defaults for that indicator without blocking complexity or degradation
// analysis, so the caller always receives a fully populated result.
func (d *Detector) Detect(inMetrics, outMetrics model.PerformanceMetrics, inTrades, outTrades []model.TradeRecord, paramHistory []model.Params) *Analysis {
	paramCount := 0
	if len(paramHistory) > 0 {
		paramCount = len(paramHistory[len(paramHistory)-1])
	}

	ind := Indicators{
		Degradation:   d.analyzeDegradation(inMetrics, outMetrics),
		Stability:     d.analyzeStability(paramHistory),
		Complexity:    d.analyzeComplexity(paramCount, len(inTrades)),
		Distribution:  d.analyzeDistribution(inTrades, inMetrics),
		TimeStability: d.analyzeTimeStability(inTrades, outTrades),
	}

	distribution := 0.0
	if ind.Distribution.SuspiciouslyGood {
		distribution = 0.8
	} else if ind.Distribution.IsConcerning {
		distribution = 0.5
	}

	probability := stats.Clamp01(
		weightDegradation*math.Min(1, ind.Degradation.Average*2) +
			weightInstability*(1-ind.Stability.StabilityScore) +
			weightComplexity*ind.Complexity.Score +
			weightDistribution*distribution +
			weightTimeStab*(1-ind.TimeStability.TimeConsistency))

	causes := likelyCauses(ind)
	analysis := &Analysis{
		Probability:  probability,
		Severity:     severityLevel(probability),
		Confidence:   math.Min(1, 0.5+0.1*float64(concerningCount(ind))),
		Indicators:   ind,
		LikelyCauses: causes,
		Passed:       probability < 0.5 && !anyCritical(causes),
	}

	log.Info().
		Float64("probability", probability).
		Str("severity", analysis.Severity).
		Bool("passed", analysis.Passed).
		Int("concerning", concerningCount(ind)).
		Msg("Overfit detection complete")

	return analysis
}

// QuickCheckResult is the fast pre-flight verdict
type QuickCheckResult struct {
	OverfitLikely bool   `json:"overfit_likely"`
	Reason        string `json:"reason,omitempty"`
}

// QuickCheck is a fast heuristic gate that needs no trade-level data. Checks
// run in a fixed order and the first match wins.
func (d *Detector) QuickCheck(inSharpe, outSharpe float64, numParameters, numTrades int) QuickCheckResult {
	if deg := stats.DegradationRatio(inSharpe, outSharpe); deg > d.config.QuickMaxDegradation {
		return QuickCheckResult{OverfitLikely: true,
			Reason: fmt.Sprintf("sharpe degradation %.2f exceeds %.2f", deg, d.config.QuickMaxDegradation)}
	}
	if numTrades > 0 && float64(numParameters)/float64(numTrades) > d.config.MaxParamsPerTrade {
		return QuickCheckResult{OverfitLikely: true,
			Reason: fmt.Sprintf("parameter/trade ratio %.3f exceeds %.3f",
				float64(numParameters)/float64(numTrades), d.config.MaxParamsPerTrade)}
	}
	if numTrades < d.config.MinSampleSize {
		return QuickCheckResult{OverfitLikely: true,
			Reason: fmt.Sprintf("sample size %d below minimum %d", numTrades, d.config.MinSampleSize)}
	}
	if inSharpe > 0.5 && outSharpe < 0 {
		return QuickCheckResult{OverfitLikely: true,
			Reason: fmt.Sprintf("in-sample Sharpe %.2f positive but out-of-sample %.2f negative", inSharpe, outSharpe)}
	}
	return QuickCheckResult{}
}

// severityLevel maps the composite probability onto a qualitative level
func severityLevel(probability float64) string {
	switch {
	case probability < 0.25:
		return SeverityLow
	case probability < 0.5:
		return SeverityMedium
	case probability < 0.75:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

func anyCritical(causes []string) bool {
	for _, c := range causes {
		if strings.Contains(c, "critical") {
			return true
		}
	}
	return false
}
