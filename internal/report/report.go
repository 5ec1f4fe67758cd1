// Package report composes the findings of the validation analyzers into one
// deployment report: per-section pass/fail, a weighted overall score, and a
// final GO / NO_GO / CONDITIONAL decision. A report is created once per
// validation run and never updated in place; re-validation produces a new
// report.
package report

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/stratval/stratval/internal/model"
	"github.com/stratval/stratval/internal/validate/featimp"
	"github.com/stratval/stratval/internal/validate/holdout"
	"github.com/stratval/stratval/internal/validate/overfit"
	"github.com/stratval/stratval/internal/validate/perturb"
)

// Deployment verdicts
const (
	VerdictGo          = "GO"
	VerdictNoGo        = "NO_GO"
	VerdictConditional = "CONDITIONAL"
)

// Section weights in the overall score. A section's weight counts only when
// the section is included; the total is renormalized over included weights.
const (
	weightBacktest    = 0.20
	weightWalkForward = 0.30
	weightMonteCarlo  = 0.20
	weightOverfit     = 0.20
	weightCalibration = 0.10
)

// Config holds the report thresholds
type Config struct {
	MinConsistencyRatio  float64 `yaml:"min_consistency_ratio"`  // Walk-forward consistency for a section pass (default: 0.5)
	MinAvgOOSSharpe      float64 `yaml:"min_avg_oos_sharpe"`     // Walk-forward average OOS Sharpe for a pass (default: 0.5)
	MaxWFDegradation     float64 `yaml:"max_wf_degradation"`     // Walk-forward degradation for a pass (default: 0.5)
	MaxRuinProbability   float64 `yaml:"max_ruin_probability"`   // Monte Carlo probability of ruin for a pass (default: 0.05)
	MaxBrierScore        float64 `yaml:"max_brier_score"`        // Calibration Brier score for a pass (default: 0.25)
	MinROCAUC            float64 `yaml:"min_roc_auc"`            // Calibration ROC-AUC for a pass (default: 0.55)
	MinOverallScore      float64 `yaml:"min_overall_score"`      // Overall score required to pass (default: 0.6)
	GoScore              float64 `yaml:"go_score"`               // Overall score required for GO (default: 0.8)
	ConditionalScore     float64 `yaml:"conditional_score"`      // Overall score required for CONDITIONAL (default: 0.5)
	CriticalWFConsistency float64 `yaml:"critical_wf_consistency"` // Walk-forward consistency forcing NO_GO (default: 0.4)
}

// DefaultConfig returns the default report thresholds
func DefaultConfig() Config {
	return Config{
		MinConsistencyRatio:   0.5,
		MinAvgOOSSharpe:       0.5,
		MaxWFDegradation:      0.5,
		MaxRuinProbability:    0.05,
		MaxBrierScore:         0.25,
		MinROCAUC:             0.55,
		MinOverallScore:       0.6,
		GoScore:               0.8,
		ConditionalScore:      0.5,
		CriticalWFConsistency: 0.4,
	}
}

// Section is one check's contribution to the report. A section that was not
// performed is Included=false with a single standard issue and counts as
// failing for weighting; it never silently counts as a pass.
type Section struct {
	Name     string   `json:"name"`
	Included bool     `json:"included"`
	Passed   bool     `json:"passed"`
	Issues   []string `json:"issues,omitempty"`
}

// Decision is the final deployment verdict with its reasoning and, for
// CONDITIONAL, the remediation conditions
type Decision struct {
	Verdict    string   `json:"verdict"` // GO|NO_GO|CONDITIONAL
	Confidence float64  `json:"confidence"`
	Reasoning  []string `json:"reasoning"`
	Conditions []string `json:"conditions,omitempty"`
}

// Inputs carries the optional analyzer findings. Nil fields produce
// not-performed sections; the informational analyzers (holdout,
// perturbation, feature importance) feed warnings and recommendations
// rather than the weighted score.
type Inputs struct {
	WalkForward       *model.WalkForwardResult
	MonteCarlo        *model.MonteCarloResult
	Overfit           *overfit.Analysis
	Calibration       *model.CalibrationResult
	Holdout           *holdout.Result
	Perturbation      *perturb.Result
	FeatureImportance *featimp.Result
}

// Report is the composed, read-only validation snapshot
type Report struct {
	ID          string    `json:"id"`
	StrategyID  string    `json:"strategy_id"`
	GeneratedAt time.Time `json:"generated_at"`

	BacktestMetrics model.PerformanceMetrics `json:"backtest_metrics"`
	TradeCount      int                      `json:"trade_count"`

	WalkForward Section `json:"walk_forward"`
	MonteCarlo  Section `json:"monte_carlo"`
	Overfit     Section `json:"overfit"`
	Calibration Section `json:"calibration"`

	WalkForwardData       *model.WalkForwardResult `json:"walk_forward_data,omitempty"`
	MonteCarloData        *model.MonteCarloResult  `json:"monte_carlo_data,omitempty"`
	OverfitData           *overfit.Analysis        `json:"overfit_data,omitempty"`
	CalibrationData       *model.CalibrationResult `json:"calibration_data,omitempty"`
	HoldoutData           *holdout.Result          `json:"holdout_data,omitempty"`
	PerturbationData      *perturb.Result          `json:"perturbation_data,omitempty"`
	FeatureImportanceData *featimp.Result          `json:"feature_importance_data,omitempty"`

	OverallScore    float64  `json:"overall_score"`
	Passed          bool     `json:"passed"`
	Warnings        []string `json:"warnings,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	Decision        Decision `json:"decision"`
}

// Generator builds validation reports
type Generator struct {
	config Config
}

// NewGenerator creates a report generator with the given thresholds
func NewGenerator(config Config) *Generator {
	return &Generator{config: config}
}

// Generate composes one report from the backtest result and whatever
// analyzer findings are available
func (g *Generator) Generate(strategyID string, backtest *model.PerformanceResult, inputs Inputs) *Report {
	r := &Report{
		ID:              uuid.NewString(),
		StrategyID:      strategyID,
		GeneratedAt:     time.Now().UTC(),
		BacktestMetrics: backtest.Metrics,
		TradeCount:      len(backtest.Trades),

		WalkForwardData:       inputs.WalkForward,
		MonteCarloData:        inputs.MonteCarlo,
		OverfitData:           inputs.Overfit,
		CalibrationData:       inputs.Calibration,
		HoldoutData:           inputs.Holdout,
		PerturbationData:      inputs.Perturbation,
		FeatureImportanceData: inputs.FeatureImportance,
	}

	r.WalkForward = g.walkForwardSection(inputs.WalkForward)
	r.MonteCarlo = g.monteCarloSection(inputs.MonteCarlo)
	r.Overfit = g.overfitSection(inputs.Overfit)
	r.Calibration = g.calibrationSection(inputs.Calibration)

	r.OverallScore = g.overallScore(r)
	r.Passed = g.overallPassed(r)
	g.collectAdvisories(r)
	r.Decision = g.decide(r)

	log.Info().
		Str("strategy", strategyID).
		Str("report_id", r.ID).
		Str("verdict", r.Decision.Verdict).
		Float64("score", r.OverallScore).
		Bool("passed", r.Passed).
		Msg("Validation report generated")

	return r
}

// notPerformed builds the standard section for an absent check
func notPerformed(name string) Section {
	return Section{
		Name:     name,
		Included: false,
		Passed:   false,
		Issues:   []string{fmt.Sprintf("%s analysis not performed", name)},
	}
}

func (g *Generator) walkForwardSection(wf *model.WalkForwardResult) Section {
	if wf == nil {
		return notPerformed("walk-forward")
	}
	s := Section{Name: "walk-forward", Included: true}
	if wf.ConsistencyRatio < g.config.MinConsistencyRatio {
		s.Issues = append(s.Issues, fmt.Sprintf("consistency ratio %.2f below %.2f",
			wf.ConsistencyRatio, g.config.MinConsistencyRatio))
	}
	if wf.AvgOutOfSampleSharpe < g.config.MinAvgOOSSharpe {
		s.Issues = append(s.Issues, fmt.Sprintf("average OOS Sharpe %.2f below %.2f",
			wf.AvgOutOfSampleSharpe, g.config.MinAvgOOSSharpe))
	}
	if wf.SharpeDegradation >= g.config.MaxWFDegradation {
		s.Issues = append(s.Issues, fmt.Sprintf("walk-forward degradation %.0f%% at or above %.0f%%",
			wf.SharpeDegradation*100, g.config.MaxWFDegradation*100))
	}
	s.Passed = len(s.Issues) == 0
	return s
}

func (g *Generator) monteCarloSection(mc *model.MonteCarloResult) Section {
	if mc == nil {
		return notPerformed("monte-carlo")
	}
	s := Section{Name: "monte-carlo", Included: true}
	if !mc.StatisticallySignificant {
		s.Issues = append(s.Issues, fmt.Sprintf("results not statistically significant (p=%.3f)", mc.PValue))
	}
	if mc.ProbabilityOfRuin > g.config.MaxRuinProbability {
		s.Issues = append(s.Issues, fmt.Sprintf("probability of ruin %.1f%% above %.1f%%",
			mc.ProbabilityOfRuin*100, g.config.MaxRuinProbability*100))
	}
	s.Passed = len(s.Issues) == 0
	return s
}

func (g *Generator) overfitSection(of *overfit.Analysis) Section {
	if of == nil {
		return notPerformed("overfit")
	}
	s := Section{Name: "overfit", Included: true, Passed: of.Passed}
	if !of.Passed {
		s.Issues = append(s.Issues, fmt.Sprintf("overfit probability %.2f (severity %s)", of.Probability, of.Severity))
		s.Issues = append(s.Issues, of.LikelyCauses...)
	}
	return s
}

func (g *Generator) calibrationSection(cal *model.CalibrationResult) Section {
	if cal == nil {
		return notPerformed("calibration")
	}
	s := Section{Name: "calibration", Included: true}
	if cal.BrierScore > g.config.MaxBrierScore {
		s.Issues = append(s.Issues, fmt.Sprintf("Brier score %.3f above %.3f", cal.BrierScore, g.config.MaxBrierScore))
	}
	if cal.ROCAUC < g.config.MinROCAUC {
		s.Issues = append(s.Issues, fmt.Sprintf("ROC-AUC %.3f below %.3f", cal.ROCAUC, g.config.MinROCAUC))
	}
	s.Passed = len(s.Issues) == 0
	return s
}

// overallScore computes the weighted average over included sections only
func (g *Generator) overallScore(r *Report) float64 {
	score := math.Min(1, r.BacktestMetrics.Sharpe/2) * weightBacktest
	total := weightBacktest

	add := func(s Section, weight, passValue, failValue float64) {
		if !s.Included {
			return
		}
		v := failValue
		if s.Passed {
			v = passValue
		}
		score += v * weight
		total += weight
	}

	add(r.WalkForward, weightWalkForward, 1.0, 0.3)
	add(r.MonteCarlo, weightMonteCarlo, 1.0, 0.3)
	if r.Overfit.Included {
		v := 1.0
		if !r.Overfit.Passed && r.OverfitData != nil {
			v = 1 - r.OverfitData.Probability
		}
		score += v * weightOverfit
		total += weightOverfit
	}
	add(r.Calibration, weightCalibration, 1.0, 0.5)

	if total == 0 {
		return 0
	}
	return score / total
}

// overallPassed requires at least 3 of the 4 boolean sections to pass (an
// absent section defaults to true here, having already been excluded from
// the score) and the overall score to clear the minimum
func (g *Generator) overallPassed(r *Report) bool {
	passCount := 0
	for _, s := range []Section{r.WalkForward, r.MonteCarlo, r.Overfit, r.Calibration} {
		if !s.Included || s.Passed {
			passCount++
		}
	}
	return passCount >= 3 && r.OverallScore >= g.config.MinOverallScore
}

// collectAdvisories folds the informational analyzers into warnings and
// recommendations
func (g *Generator) collectAdvisories(r *Report) {
	if r.HoldoutData != nil && !r.HoldoutData.Passed {
		r.Warnings = append(r.Warnings, fmt.Sprintf("holdout validation failed: %v", r.HoldoutData.FailureReasons))
	}
	if r.HoldoutData != nil && r.HoldoutData.Confidence.Level == holdout.ConfidenceNone {
		r.Warnings = append(r.Warnings, "holdout result carries no statistical confidence")
	}

	if p := r.PerturbationData; p != nil {
		if !p.Passed {
			r.Warnings = append(r.Warnings, fmt.Sprintf("parameter robustness low (score %.2f)", p.RobustnessScore))
		}
		for _, param := range p.Parameters {
			if param.RecommendFixToDefault {
				r.Recommendations = append(r.Recommendations,
					fmt.Sprintf("fix parameter %q to its default; optimizing it is unreliable (sensitivity %.2f)",
						param.Name, param.AverageSensitivity))
			}
		}
	}

	if fi := r.FeatureImportanceData; fi != nil {
		for _, sig := range fi.Droppable {
			r.Recommendations = append(r.Recommendations,
				fmt.Sprintf("signal %q shows no measurable contribution; consider dropping it", sig))
		}
		if fi.UsefulFraction < 0.5 && len(fi.Scores) > 1 {
			r.Warnings = append(r.Warnings, fmt.Sprintf(
				"only %.0f%% of signals carry measurable edge", fi.UsefulFraction*100))
		}
	}

	if r.TradeCount < 30 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("backtest sample small (%d trades)", r.TradeCount))
	}
}

// decide evaluates the decision state machine in strict order. The two
// front rules pre-empt everything else regardless of score.
func (g *Generator) decide(r *Report) Decision {
	if r.Overfit.Included && r.OverfitData != nil && r.OverfitData.Severity == overfit.SeverityCritical {
		return Decision{
			Verdict:    VerdictNoGo,
			Confidence: 0.9,
			Reasoning: []string{fmt.Sprintf(
				"critical overfit severity (probability %.2f); backtested edge is almost certainly fitted noise",
				r.OverfitData.Probability)},
		}
	}

	if r.WalkForward.Included && r.WalkForwardData != nil &&
		r.WalkForwardData.ConsistencyRatio < g.config.CriticalWFConsistency {
		return Decision{
			Verdict:    VerdictNoGo,
			Confidence: 0.85,
			Reasoning: []string{fmt.Sprintf(
				"walk-forward consistency %.2f below critical threshold %.2f",
				r.WalkForwardData.ConsistencyRatio, g.config.CriticalWFConsistency)},
		}
	}

	if r.Passed && r.OverallScore >= g.config.GoScore {
		return Decision{
			Verdict:    VerdictGo,
			Confidence: r.OverallScore,
			Reasoning: []string{fmt.Sprintf(
				"all checks passed with overall score %.2f", r.OverallScore)},
		}
	}

	if r.OverallScore >= g.config.ConditionalScore {
		d := Decision{
			Verdict:    VerdictConditional,
			Confidence: 0.6,
			Reasoning: []string{fmt.Sprintf(
				"overall score %.2f supports deployment only after remediation", r.OverallScore)},
		}
		for _, s := range []Section{r.WalkForward, r.MonteCarlo, r.Overfit, r.Calibration} {
			if s.Included && !s.Passed {
				d.Conditions = append(d.Conditions, fmt.Sprintf("resolve %s issues: %v", s.Name, s.Issues))
			}
			if !s.Included {
				d.Conditions = append(d.Conditions, fmt.Sprintf("run the %s analysis before deployment", s.Name))
			}
		}
		return d
	}

	return Decision{
		Verdict:    VerdictNoGo,
		Confidence: 0.7,
		Reasoning: []string{fmt.Sprintf(
			"overall score %.2f below conditional threshold %.2f", r.OverallScore, g.config.ConditionalScore)},
	}
}
