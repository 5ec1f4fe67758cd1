// Package holdout implements out-of-sample holdout validation: it splits a
// time range into a training/validation window and a never-touched holdout
// window, drives optimization and backtesting on each side, and measures how
// much of the optimized performance survives on unseen data.
package holdout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stratval/stratval/internal/model"
	"github.com/stratval/stratval/internal/stats"
)

// ErrHoldoutTooShort is returned when the configured fraction of the supplied
// range is shorter than the minimum holdout window
var ErrHoldoutTooShort = errors.New("holdout window shorter than configured minimum")

// Config holds the holdout validation thresholds
type Config struct {
	HoldoutFraction   float64 `yaml:"holdout_fraction"`    // Fraction of the range reserved for holdout (default: 0.2)
	MinHoldoutDays    float64 `yaml:"min_holdout_days"`    // Minimum holdout window length in days (default: 30)
	MinTrades         int     `yaml:"min_trades"`          // Minimum holdout trades for a pass (default: 20)
	MinSharpe         float64 `yaml:"min_sharpe"`          // Minimum holdout Sharpe for a pass (default: 0.5)
	MaxAvgDegradation float64 `yaml:"max_avg_degradation"` // Maximum average degradation for a pass (default: 0.4)
}

// DefaultConfig returns the default holdout thresholds
func DefaultConfig() Config {
	return Config{
		HoldoutFraction:   0.2,
		MinHoldoutDays:    30,
		MinTrades:         20,
		MinSharpe:         0.5,
		MaxAvgDegradation: 0.4,
	}
}

// Split is a time range divided into a training/validation window and a
// holdout window. TrainVal.End always equals Holdout.Start.
type Split struct {
	TrainVal     model.TimeRange `json:"train_val"`
	Holdout      model.TimeRange `json:"holdout"`
	TrainValDays float64         `json:"train_val_days"`
	HoldoutDays  float64         `json:"holdout_days"`
}

// Degradation captures the relative performance loss from the training window
// to the holdout window, per metric and averaged. Every ratio is in [0, 1];
// profit factor is capped at 10 on both sides before the ratio is taken.
type Degradation struct {
	Sharpe       float64 `json:"sharpe"`
	Returns      float64 `json:"returns"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"`
	Average      float64 `json:"average"`
}

// Confidence levels for the qualitative assessment
const (
	ConfidenceHigh     = "high"
	ConfidenceModerate = "moderate"
	ConfidenceLow      = "low"
	ConfidenceNone     = "none"
)

// Confidence is a qualitative assessment of the holdout result, built from
// additive capped contributions
type Confidence struct {
	Score   float64  `json:"score"` // 0.0 to 1.0
	Level   string   `json:"level"` // high|moderate|low|none
	Reasons []string `json:"reasons"`
}

// Result is the full outcome of a holdout validation run
type Result struct {
	Split           Split                    `json:"split"`
	OptimizedParams model.Params             `json:"optimized_params"`
	TrainVal        *model.PerformanceResult `json:"train_val"`
	Holdout         *model.PerformanceResult `json:"holdout"`
	Degradation     Degradation              `json:"degradation"`
	Confidence      Confidence               `json:"confidence"`
	FailureReasons  []string                 `json:"failure_reasons,omitempty"`
	Passed          bool                     `json:"passed"`
}

// Validator drives holdout validation against host-supplied collaborators
type Validator struct {
	config    Config
	runner    model.BacktestRunner
	optimizer model.ParameterOptimizer
}

// NewValidator creates a holdout validator with explicit collaborators
func NewValidator(config Config, runner model.BacktestRunner, optimizer model.ParameterOptimizer) *Validator {
	return &Validator{
		config:    config,
		runner:    runner,
		optimizer: optimizer,
	}
}

// CreateSplit divides [start, end) deterministically by the configured
// holdout fraction. Fractional day counts are preserved. Returns
// ErrHoldoutTooShort when the implied holdout window is below the minimum.
func (v *Validator) CreateSplit(start, end time.Time) (Split, error) {
	total := end.Sub(start)
	holdoutDur := time.Duration(float64(total) * v.config.HoldoutFraction)
	holdoutDays := holdoutDur.Hours() / 24.0

	if holdoutDays < v.config.MinHoldoutDays {
		return Split{}, fmt.Errorf("%w: %.1f days < %.1f days (range %s..%s, fraction %.2f)",
			ErrHoldoutTooShort, holdoutDays, v.config.MinHoldoutDays,
			start.Format("2006-01-02"), end.Format("2006-01-02"), v.config.HoldoutFraction)
	}

	boundary := end.Add(-holdoutDur)
	return Split{
		TrainVal:     model.TimeRange{Start: start, End: boundary},
		Holdout:      model.TimeRange{Start: boundary, End: end},
		TrainValDays: boundary.Sub(start).Hours() / 24.0,
		HoldoutDays:  holdoutDays,
	}, nil
}

// Validate optimizes on the training/validation window only, then backtests
// the optimized parameters on both windows. The holdout window is never
// passed to the optimizer; that is the invariant this package exists to
// enforce. Collaborator errors abort the run and propagate unchanged.
func (v *Validator) Validate(ctx context.Context, cfg model.StrategyConfig, data model.Dataset, window model.TimeRange) (*Result, error) {
	split, err := v.CreateSplit(window.Start, window.End)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("strategy", cfg.StrategyID).
		Float64("train_val_days", split.TrainValDays).
		Float64("holdout_days", split.HoldoutDays).
		Msg("Holdout validation started")

	params, err := v.optimizer.Optimize(ctx, cfg, data, split.TrainVal)
	if err != nil {
		return nil, fmt.Errorf("optimize train/val window: %w", err)
	}

	trainRes, err := v.runner.Run(ctx, cfg, data, params, split.TrainVal)
	if err != nil {
		return nil, fmt.Errorf("backtest train/val window: %w", err)
	}

	holdRes, err := v.runner.Run(ctx, cfg, data, params, split.Holdout)
	if err != nil {
		return nil, fmt.Errorf("backtest holdout window: %w", err)
	}

	degradation := computeDegradation(trainRes.Metrics, holdRes.Metrics)
	confidence := assessConfidence(holdRes.Metrics, degradation)
	reasons := v.failureReasons(holdRes.Metrics, degradation)

	result := &Result{
		Split:           split,
		OptimizedParams: params,
		TrainVal:        trainRes,
		Holdout:         holdRes,
		Degradation:     degradation,
		Confidence:      confidence,
		FailureReasons:  reasons,
		Passed:          len(reasons) == 0,
	}

	log.Info().
		Str("strategy", cfg.StrategyID).
		Bool("passed", result.Passed).
		Float64("avg_degradation", degradation.Average).
		Str("confidence", confidence.Level).
		Msg("Holdout validation complete")

	return result, nil
}

// computeDegradation applies the degradation ratio per metric. Profit factor
// is capped on both sides first; the average is the unweighted mean of the
// four ratios.
func computeDegradation(train, holdout model.PerformanceMetrics) Degradation {
	d := Degradation{
		Sharpe:  stats.DegradationRatio(train.Sharpe, holdout.Sharpe),
		Returns: stats.DegradationRatio(train.TotalReturn, holdout.TotalReturn),
		WinRate: stats.DegradationRatio(train.WinRate, holdout.WinRate),
		ProfitFactor: stats.DegradationRatio(
			stats.CapProfitFactor(train.ProfitFactor),
			stats.CapProfitFactor(holdout.ProfitFactor)),
	}
	d.Average = (d.Sharpe + d.Returns + d.WinRate + d.ProfitFactor) / 4.0
	return d
}

// assessConfidence builds the additive confidence score. Contributions within
// a bucket are mutually exclusive and the final score is clamped to 1.
func assessConfidence(holdout model.PerformanceMetrics, deg Degradation) Confidence {
	score := 0.0
	var reasons []string

	if holdout.TotalReturn > 0 {
		score += 0.25
		reasons = append(reasons, "holdout return positive")
	}

	if holdout.Sharpe > 0.5 {
		score += 0.25
		reasons = append(reasons, fmt.Sprintf("holdout Sharpe %.2f above 0.5", holdout.Sharpe))
	} else if holdout.Sharpe > 0 {
		score += 0.15
		reasons = append(reasons, fmt.Sprintf("holdout Sharpe %.2f positive", holdout.Sharpe))
	}

	if deg.Average < 0.20 {
		score += 0.25
		reasons = append(reasons, fmt.Sprintf("average degradation %.2f below 0.20", deg.Average))
	} else if deg.Average < 0.40 {
		score += 0.10
		reasons = append(reasons, fmt.Sprintf("average degradation %.2f below 0.40", deg.Average))
	}

	if holdout.TotalTrades >= 30 {
		score += 0.15
		reasons = append(reasons, fmt.Sprintf("%d holdout trades", holdout.TotalTrades))
	} else if holdout.TotalTrades >= 15 {
		score += 0.05
		reasons = append(reasons, fmt.Sprintf("%d holdout trades (small sample)", holdout.TotalTrades))
	}

	if holdout.WinRate > 0.5 {
		score += 0.10
		reasons = append(reasons, fmt.Sprintf("holdout win rate %.0f%%", holdout.WinRate*100))
	}

	score = stats.Clamp01(score)

	level := ConfidenceNone
	switch {
	case score >= 0.7:
		level = ConfidenceHigh
	case score >= 0.4:
		level = ConfidenceModerate
	case score >= 0.2:
		level = ConfidenceLow
	}

	return Confidence{Score: score, Level: level, Reasons: reasons}
}

// failureReasons accumulates every failed gate independently; the checks are
// not short-circuited so the caller sees the full picture
func (v *Validator) failureReasons(holdout model.PerformanceMetrics, deg Degradation) []string {
	var reasons []string

	if holdout.TotalTrades < v.config.MinTrades {
		reasons = append(reasons, fmt.Sprintf("insufficient holdout trades: %d < %d",
			holdout.TotalTrades, v.config.MinTrades))
	}
	if holdout.Sharpe < v.config.MinSharpe {
		reasons = append(reasons, fmt.Sprintf("holdout Sharpe below minimum: %.2f < %.2f",
			holdout.Sharpe, v.config.MinSharpe))
	}
	if deg.Average > v.config.MaxAvgDegradation {
		reasons = append(reasons, fmt.Sprintf("average degradation above maximum: %.2f > %.2f",
			deg.Average, v.config.MaxAvgDegradation))
	}
	if holdout.TotalReturn < 0 {
		reasons = append(reasons, fmt.Sprintf("negative holdout return: %.2f%%", holdout.TotalReturn*100))
	}

	return reasons
}
