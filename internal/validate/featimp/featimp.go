// Package featimp implements permutation feature importance over executed
// trades: for each signal tag, the realized outcomes of the trades that tag
// produced are shuffled among themselves and the portfolio metric recomputed.
// If shuffling a signal's outcomes barely moves the metric, that signal's
// apparent contribution is indistinguishable from chance.
package featimp

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	vlog "github.com/stratval/stratval/internal/log"
	"github.com/stratval/stratval/internal/model"
	"github.com/stratval/stratval/internal/stats"
)

// ErrInsufficientTrades is returned when the trade sample is too small for a
// permutation analysis to mean anything
var ErrInsufficientTrades = errors.New("insufficient trades for feature importance analysis")

// Config holds the permutation analysis settings
type Config struct {
	NumPermutations int     `yaml:"num_permutations"` // Permutation trials per signal (default: 100)
	MinTrades       int     `yaml:"min_trades"`       // Hard minimum trade count (default: 30)
	Metric          string  `yaml:"metric"`           // Primary metric name (default: sharpe)
	MinImportance   float64 `yaml:"min_importance"`   // Importance threshold for a useful signal (default: 0.05)
	MaxPValue       float64 `yaml:"max_p_value"`      // p-value threshold for a useful signal (default: 0.1)
	MaxConcurrent   int     `yaml:"max_concurrent"`   // Worker pool size (default: 4)
	Seed            int64   `yaml:"seed"`             // PRNG seed; meaningful only when Seeded
	Seeded          bool    `yaml:"seeded"`           // False = fresh entropy per run (non-deterministic)
}

// DefaultConfig returns the default permutation analysis settings
func DefaultConfig() Config {
	return Config{
		NumPermutations: 100,
		MinTrades:       30,
		Metric:          "sharpe",
		MinImportance:   0.05,
		MaxPValue:       0.1,
		MaxConcurrent:   4,
	}
}

// FeatureScore is the permutation finding for one signal tag
type FeatureScore struct {
	Signal       string  `json:"signal"`
	TradeCount   int     `json:"trade_count"`   // Trades carrying this tag
	Importance   float64 `json:"importance"`    // (baseline - mean permuted) / |baseline|
	PValue       float64 `json:"p_value"`       // Fraction of trials with metric >= baseline
	CILower      float64 `json:"ci_lower"`      // 95% CI lower bound on importance
	CIUpper      float64 `json:"ci_upper"`      // 95% CI upper bound on importance
	MeanPermuted float64 `json:"mean_permuted"` // Mean metric across trials
	StdPermuted  float64 `json:"std_permuted"`  // Sample std of the trial metrics
	IsUseful     bool    `json:"is_useful"`
}

// Result ranks all signals by importance and partitions them into the
// recommended (useful) and droppable sets
type Result struct {
	Metric          string         `json:"metric"`
	BaselineMetric  float64        `json:"baseline_metric"`
	NumPermutations int            `json:"num_permutations"`
	TotalTrades     int            `json:"total_trades"`
	Scores          []FeatureScore `json:"scores"` // Descending by importance
	Recommended     []string       `json:"recommended"`
	Droppable       []string       `json:"droppable"`
	UsefulFraction  float64        `json:"useful_fraction"`
}

// Calculator runs permutation importance analyses
type Calculator struct {
	config Config
	metric model.Metric
}

// NewCalculator creates a calculator. The metric name is resolved once;
// unknown names fall back to total return.
func NewCalculator(config Config) *Calculator {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 1
	}
	if config.NumPermutations <= 0 {
		config.NumPermutations = 1
	}
	return &Calculator{config: config, metric: model.ParseMetric(config.Metric)}
}

// Calculate runs the full permutation analysis. The baseline metric is
// recomputed from the unshuffled trades with the same arithmetic the trials
// use, so importance measures only the effect of shuffling. Fails hard when
// the trade sample is below the configured minimum.
func (c *Calculator) Calculate(trades []model.TradeRecord) (*Result, error) {
	if len(trades) < c.config.MinTrades {
		return nil, fmt.Errorf("%w: %d < %d", ErrInsufficientTrades, len(trades), c.config.MinTrades)
	}

	signals := distinctSignals(trades)
	baseline := stats.MetricFromTrades(trades, c.metric)

	baseSeed := c.config.Seed
	if !c.config.Seeded {
		baseSeed = time.Now().UnixNano()
	}

	log.Info().
		Int("trades", len(trades)).
		Int("signals", len(signals)).
		Int("permutations", c.config.NumPermutations).
		Str("metric", c.metric.String()).
		Bool("seeded", c.config.Seeded).
		Msg("Permutation importance started")

	// permuted[s][k] is the metric of trial k for signal s. Each cell is
	// written by exactly one worker, so the matrix needs no lock, and the
	// aggregation below is independent of completion order.
	permuted := make([][]float64, len(signals))
	for i := range permuted {
		permuted[i] = make([]float64, c.config.NumPermutations)
	}

	type job struct{ signalIdx, trial int }
	jobs := make(chan job)
	progress := vlog.NewBatchProgress("permutation", len(signals)*c.config.NumPermutations, 5*time.Second)

	var wg sync.WaitGroup
	for w := 0; w < c.config.MaxConcurrent; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scratch := model.CloneTrades(trades)
			for j := range jobs {
				tag := signals[j.signalIdx]
				permuted[j.signalIdx][j.trial] = c.permutedMetric(trades, scratch, tag, baseSeed, j.trial)
				progress.Increment()
			}
		}()
	}

	for s := range signals {
		for k := 0; k < c.config.NumPermutations; k++ {
			jobs <- job{signalIdx: s, trial: k}
		}
	}
	close(jobs)
	wg.Wait()

	result := &Result{
		Metric:          c.metric.String(),
		BaselineMetric:  baseline,
		NumPermutations: c.config.NumPermutations,
		TotalTrades:     len(trades),
	}

	for s, tag := range signals {
		score := c.scoreSignal(tag, baseline, countSignal(trades, tag), permuted[s])
		result.Scores = append(result.Scores, score)
	}

	sort.SliceStable(result.Scores, func(i, j int) bool {
		if result.Scores[i].Importance != result.Scores[j].Importance {
			return result.Scores[i].Importance > result.Scores[j].Importance
		}
		return result.Scores[i].Signal < result.Scores[j].Signal
	})

	useful := 0
	for _, s := range result.Scores {
		if s.IsUseful {
			useful++
			result.Recommended = append(result.Recommended, s.Signal)
		} else {
			result.Droppable = append(result.Droppable, s.Signal)
		}
	}
	if len(result.Scores) > 0 {
		result.UsefulFraction = float64(useful) / float64(len(result.Scores))
	}

	log.Info().
		Int("useful", useful).
		Int("total", len(result.Scores)).
		Msg("Permutation importance complete")

	return result, nil
}

// permutedMetric runs one trial: shuffle the pnl/pnlPct outcomes among the
// trades carrying the tag, leave every other trade untouched, and recompute
// the metric over the full set. The scratch slice is reset from the
// originals each call so trials never observe each other.
func (c *Calculator) permutedMetric(original, scratch []model.TradeRecord, tag string, baseSeed int64, trial int) float64 {
	var idx []int
	for i, t := range original {
		scratch[i].PnL = t.PnL
		scratch[i].PnLPct = t.PnLPct
		if t.HasSignal(tag) {
			idx = append(idx, i)
		}
	}

	rng := trialRand(baseSeed, tag, trial)
	// Fisher-Yates over the tagged subset's outcome pairs
	for i := len(idx) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		a, b := idx[i], idx[j]
		scratch[a].PnL, scratch[b].PnL = scratch[b].PnL, scratch[a].PnL
		scratch[a].PnLPct, scratch[b].PnLPct = scratch[b].PnLPct, scratch[a].PnLPct
	}

	return stats.MetricFromTrades(scratch, c.metric)
}

// scoreSignal folds one signal's trial metrics into its finding. A zero
// baseline resolves importance and the CI to the neutral 0.
func (c *Calculator) scoreSignal(tag string, baseline float64, tradeCount int, trials []float64) FeatureScore {
	meanPermuted := stats.Mean(trials)
	stdPermuted := stats.StdDev(trials)

	score := FeatureScore{
		Signal:       tag,
		TradeCount:   tradeCount,
		MeanPermuted: meanPermuted,
		StdPermuted:  stdPermuted,
	}

	atOrAbove := 0
	for _, m := range trials {
		if m >= baseline {
			atOrAbove++
		}
	}
	score.PValue = float64(atOrAbove) / float64(len(trials))

	if baseline != 0 {
		score.Importance = (baseline - meanPermuted) / math.Abs(baseline)
		se := stdPermuted / math.Sqrt(float64(len(trials)))
		half := 1.96 * se / math.Abs(baseline)
		score.CILower = score.Importance - half
		score.CIUpper = score.Importance + half
	}

	score.IsUseful = score.Importance > c.config.MinImportance && score.PValue < c.config.MaxPValue
	return score
}

// distinctSignals extracts the sorted set of signal tags present across all
// trades
func distinctSignals(trades []model.TradeRecord) []string {
	seen := make(map[string]struct{})
	for _, t := range trades {
		for _, s := range t.Signals {
			seen[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func countSignal(trades []model.TradeRecord, tag string) int {
	n := 0
	for _, t := range trades {
		if t.HasSignal(tag) {
			n++
		}
	}
	return n
}
