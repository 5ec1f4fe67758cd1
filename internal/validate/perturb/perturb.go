// Package perturb implements parameter-perturbation testing: each optimized
// numeric parameter is scaled up and down by configured magnitudes while all
// others stay fixed, and the resulting performance degradation measures how
// fragile the optimum is. A strategy whose edge evaporates under a 5% nudge
// of one knob was fit to noise, not to structure.
package perturb

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	vlog "github.com/stratval/stratval/internal/log"
	"github.com/stratval/stratval/internal/model"
)

// degradationCap bounds a single level's recorded degradation so that a
// below-min-trades run (metric treated as -Inf) stays the maximal penalty
// without leaking non-finite values into aggregates or JSON
const degradationCap = 10.0

// Level pairs a perturbation magnitude with the maximum degradation the
// strategy may show at that magnitude and still pass
type Level struct {
	Magnitude      float64 `yaml:"magnitude"`       // Relative scale applied up and down (e.g. 0.05)
	MaxDegradation float64 `yaml:"max_degradation"` // Maximum tolerated degradation at this magnitude
}

// Config holds the perturbation test thresholds
type Config struct {
	Levels             []Level `yaml:"levels"`               // Perturbation levels (default: ±5%/±10%/±20%)
	Metric             string  `yaml:"metric"`               // Primary metric name (default: sharpe)
	MinTrades          int     `yaml:"min_trades"`           // Below this, a perturbed run counts as total failure (default: 10)
	FragileSensitivity float64 `yaml:"fragile_sensitivity"`  // Average sensitivity marking a parameter fragile (default: 0.3)
	FixSensitivity     float64 `yaml:"fix_sensitivity"`      // Average sensitivity recommending fix-to-default (default: 0.5)
	MinRobustness      float64 `yaml:"min_robustness"`       // Minimum aggregate robustness for a pass (default: 0.5)
	MaxConcurrent      int     `yaml:"max_concurrent"`       // Worker pool size for backtest evaluations (default: 4)
	EvalsPerSecond     float64 `yaml:"evals_per_second"`     // Rate limit on collaborator calls, 0 = unlimited
}

// DefaultConfig returns the default perturbation levels and thresholds
func DefaultConfig() Config {
	return Config{
		Levels: []Level{
			{Magnitude: 0.05, MaxDegradation: 0.15},
			{Magnitude: 0.10, MaxDegradation: 0.25},
			{Magnitude: 0.20, MaxDegradation: 0.40},
		},
		Metric:             "sharpe",
		MinTrades:          10,
		FragileSensitivity: 0.3,
		FixSensitivity:     0.5,
		MinRobustness:      0.5,
		MaxConcurrent:      4,
	}
}

// LevelResult records the outcome of perturbing one parameter at one level
type LevelResult struct {
	Magnitude      float64 `json:"magnitude"`
	UpMetric       float64 `json:"up_metric"`   // Metric with the parameter scaled to (1+magnitude)
	DownMetric     float64 `json:"down_metric"` // Metric with the parameter scaled to (1-magnitude)
	UpTrades       int     `json:"up_trades"`
	DownTrades     int     `json:"down_trades"`
	UpBelowMin     bool    `json:"up_below_min,omitempty"`   // Up run fell below the trade minimum
	DownBelowMin   bool    `json:"down_below_min,omitempty"` // Down run fell below the trade minimum
	Degradation    float64 `json:"degradation"`              // Worse of the two directions, capped
	MaxDegradation float64 `json:"max_degradation"`
	Passed         bool    `json:"passed"`
}

// ParameterResult is the per-parameter fragility finding
type ParameterResult struct {
	Name                  string        `json:"name"`
	BaseValue             float64       `json:"base_value"`
	Levels                []LevelResult `json:"levels"`
	AverageSensitivity    float64       `json:"average_sensitivity"`
	IsFragile             bool          `json:"is_fragile"`
	RecommendFixToDefault bool          `json:"recommend_fix_to_default"`
}

// Result is the full outcome of a perturbation test
type Result struct {
	Metric          string            `json:"metric"`
	BaselineMetric  float64           `json:"baseline_metric"`
	BaselineTrades  int               `json:"baseline_trades"`
	Parameters      []ParameterResult `json:"parameters"` // Sorted descending by sensitivity (fragility ranking)
	SkippedParams   []string          `json:"skipped_params,omitempty"`
	RobustnessScore float64           `json:"robustness_score"`
	FragileCount    int               `json:"fragile_count"`
	FailureReasons  []string          `json:"failure_reasons,omitempty"`
	Passed          bool              `json:"passed"`
}

// Tester runs perturbation sweeps against a host-supplied backtest runner
type Tester struct {
	config  Config
	metric  model.Metric
	runner  model.BacktestRunner
	limiter *rate.Limiter
}

// NewTester creates a perturbation tester. The metric name from the config is
// resolved once here; unknown names fall back to total return.
func NewTester(config Config, runner model.BacktestRunner) *Tester {
	var limiter *rate.Limiter
	if config.EvalsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.EvalsPerSecond), 1)
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 1
	}
	return &Tester{
		config:  config,
		metric:  model.ParseMetric(config.Metric),
		runner:  runner,
		limiter: limiter,
	}
}

// evaluation is one independent perturbed backtest in the sweep
type evaluation struct {
	param     string
	levelIdx  int
	direction int // +1 or -1
	params    model.Params
}

// outcome carries the measured metric for one evaluation. Outcomes are keyed,
// not ordered, so aggregation is independent of completion order.
type outcome struct {
	param     string
	levelIdx  int
	direction int
	metric    float64
	trades    int
	belowMin  bool
	err       error
}

// Run perturbs every non-zero parameter at every configured level and scores
// the aggregate robustness. Zero-valued parameters cannot be scaled
// multiplicatively and are skipped. Evaluations execute concurrently on a
// bounded pool; a collaborator error aborts the whole test.
func (t *Tester) Run(ctx context.Context, cfg model.StrategyConfig, data model.Dataset, params model.Params, window model.TimeRange) (*Result, error) {
	baseline, err := t.runner.Run(ctx, cfg, data, params, window)
	if err != nil {
		return nil, fmt.Errorf("baseline backtest: %w", err)
	}
	baselineMetric := t.metric.Extract(baseline.Metrics)

	// Stable parameter order for the job list; results are keyed so this
	// only affects readability of logs
	names := make([]string, 0, len(params))
	var skipped []string
	for name, value := range params {
		if value == 0 {
			skipped = append(skipped, name)
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	sort.Strings(skipped)

	var evals []evaluation
	for _, name := range names {
		for li, level := range t.config.Levels {
			for _, dir := range []int{+1, -1} {
				scaled := params.Clone()
				scaled[name] = params[name] * (1 + float64(dir)*level.Magnitude)
				evals = append(evals, evaluation{param: name, levelIdx: li, direction: dir, params: scaled})
			}
		}
	}

	log.Info().
		Str("strategy", cfg.StrategyID).
		Int("parameters", len(names)).
		Int("evaluations", len(evals)).
		Float64("baseline", baselineMetric).
		Msg("Perturbation sweep started")

	outcomes, err := t.runAll(ctx, cfg, data, window, evals)
	if err != nil {
		return nil, err
	}

	result := t.aggregate(names, skipped, params, baselineMetric, len(baseline.Trades), outcomes)

	log.Info().
		Str("strategy", cfg.StrategyID).
		Bool("passed", result.Passed).
		Float64("robustness", result.RobustnessScore).
		Int("fragile", result.FragileCount).
		Msg("Perturbation sweep complete")

	return result, nil
}

// runAll executes the evaluations on a bounded worker pool and returns the
// keyed outcomes. The first collaborator error wins; remaining work is
// drained but discarded.
func (t *Tester) runAll(ctx context.Context, cfg model.StrategyConfig, data model.Dataset, window model.TimeRange, evals []evaluation) (map[string]outcome, error) {
	jobs := make(chan evaluation)
	results := make(chan outcome)
	progress := vlog.NewBatchProgress("perturbation", len(evals), 5*time.Second)

	var wg sync.WaitGroup
	for w := 0; w < t.config.MaxConcurrent; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range jobs {
				results <- t.evaluate(ctx, cfg, data, window, ev)
				progress.Increment()
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, ev := range evals {
			select {
			case jobs <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make(map[string]outcome, len(evals))
	var firstErr error
	for out := range results {
		if out.err != nil && firstErr == nil {
			firstErr = out.err
			continue
		}
		outcomes[outcomeKey(out.param, out.levelIdx, out.direction)] = out
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func outcomeKey(param string, levelIdx, direction int) string {
	return fmt.Sprintf("%s|%d|%+d", param, levelIdx, direction)
}

// evaluate runs one perturbed backtest and extracts the metric. A run whose
// trade count falls below the minimum is a maximal penalty, not a skip.
func (t *Tester) evaluate(ctx context.Context, cfg model.StrategyConfig, data model.Dataset, window model.TimeRange, ev evaluation) outcome {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return outcome{param: ev.param, levelIdx: ev.levelIdx, direction: ev.direction, err: err}
		}
	}

	res, err := t.runner.Run(ctx, cfg, data, ev.params, window)
	if err != nil {
		return outcome{param: ev.param, levelIdx: ev.levelIdx, direction: ev.direction,
			err: fmt.Errorf("perturbed backtest %s %+d%%: %w", ev.param,
				ev.direction*int(t.config.Levels[ev.levelIdx].Magnitude*100), err)}
	}

	out := outcome{
		param:     ev.param,
		levelIdx:  ev.levelIdx,
		direction: ev.direction,
		trades:    len(res.Trades),
		metric:    t.metric.Extract(res.Metrics),
	}
	if out.trades < t.config.MinTrades {
		out.metric = math.Inf(-1)
		out.belowMin = true
	}
	return out
}

// aggregate folds the keyed outcomes into per-parameter findings and the
// aggregate robustness score
func (t *Tester) aggregate(names, skipped []string, params model.Params, baselineMetric float64, baselineTrades int, outcomes map[string]outcome) *Result {
	result := &Result{
		Metric:         t.metric.String(),
		BaselineMetric: baselineMetric,
		BaselineTrades: baselineTrades,
		SkippedParams:  skipped,
	}

	var sensitivities []float64
	for _, name := range names {
		pr := ParameterResult{Name: name, BaseValue: params[name]}
		degSum := 0.0
		anyFailed := false

		for li, level := range t.config.Levels {
			up := outcomes[outcomeKey(name, li, +1)]
			down := outcomes[outcomeKey(name, li, -1)]

			deg := math.Max(levelDegradation(baselineMetric, up.metric),
				levelDegradation(baselineMetric, down.metric))
			if deg > degradationCap {
				deg = degradationCap
			}

			lr := LevelResult{
				Magnitude:      level.Magnitude,
				UpTrades:       up.trades,
				DownTrades:     down.trades,
				UpBelowMin:     up.belowMin,
				DownBelowMin:   down.belowMin,
				Degradation:    deg,
				MaxDegradation: level.MaxDegradation,
				Passed:         deg <= level.MaxDegradation,
			}
			// Keep JSON finite: a below-minimum run reports 0 in place of -Inf
			if !up.belowMin {
				lr.UpMetric = up.metric
			}
			if !down.belowMin {
				lr.DownMetric = down.metric
			}

			if !lr.Passed {
				anyFailed = true
			}
			degSum += deg
			pr.Levels = append(pr.Levels, lr)
		}

		if len(t.config.Levels) > 0 {
			pr.AverageSensitivity = degSum / float64(len(t.config.Levels))
		}
		pr.IsFragile = pr.AverageSensitivity > t.config.FragileSensitivity || anyFailed
		pr.RecommendFixToDefault = pr.AverageSensitivity > t.config.FixSensitivity

		if pr.IsFragile {
			result.FragileCount++
		}
		sensitivities = append(sensitivities, pr.AverageSensitivity)
		result.Parameters = append(result.Parameters, pr)
	}

	// Fragility ranking: most sensitive first, name as tiebreak for
	// deterministic output
	sort.SliceStable(result.Parameters, func(i, j int) bool {
		if result.Parameters[i].AverageSensitivity != result.Parameters[j].AverageSensitivity {
			return result.Parameters[i].AverageSensitivity > result.Parameters[j].AverageSensitivity
		}
		return result.Parameters[i].Name < result.Parameters[j].Name
	})

	meanSensitivity := 0.0
	for _, s := range sensitivities {
		meanSensitivity += s
	}
	if len(sensitivities) > 0 {
		meanSensitivity /= float64(len(sensitivities))
	}
	result.RobustnessScore = math.Max(0, 1-meanSensitivity)

	if result.RobustnessScore < t.config.MinRobustness {
		result.FailureReasons = append(result.FailureReasons,
			fmt.Sprintf("robustness score below minimum: %.2f < %.2f", result.RobustnessScore, t.config.MinRobustness))
	}
	if len(result.Parameters) > 0 && result.FragileCount*2 > len(result.Parameters) {
		result.FailureReasons = append(result.FailureReasons,
			fmt.Sprintf("more than half of parameters fragile: %d of %d", result.FragileCount, len(result.Parameters)))
	}
	result.Passed = len(result.FailureReasons) == 0

	return result
}

// levelDegradation applies the perturbation degradation formula. A
// non-positive baseline resolves to the neutral 0; a -Inf perturbed metric
// yields +Inf, which the caller caps.
func levelDegradation(baseline, perturbed float64) float64 {
	if baseline <= 0 {
		return 0
	}
	return math.Max(0, (baseline-perturbed)/baseline)
}
