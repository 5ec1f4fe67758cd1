// Package model defines the read-only data contracts shared by the validation
// analyzers: backtest performance snapshots, realized trades, time windows, and
// the collaborator result shapes the report generator consumes.
package model

import (
	"time"
)

// Trade sides as reported by the backtest engine
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// TimeRange is a half-open [Start, End) window of historical data
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the total span of the range
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Days returns the span of the range in fractional days
func (r TimeRange) Days() float64 {
	return r.End.Sub(r.Start).Hours() / 24.0
}

// PerformanceMetrics is an immutable aggregate snapshot over a set of trades,
// produced by the backtest engine and consumed read-only by every analyzer
type PerformanceMetrics struct {
	TotalReturn      float64       `json:"total_return"`       // Total compounded return
	AnnualizedReturn float64       `json:"annualized_return"`  // Annualized return
	Sharpe           float64       `json:"sharpe"`             // Annualized Sharpe ratio
	Sortino          float64       `json:"sortino"`            // Sortino ratio (downside deviation)
	MaxDrawdown      float64       `json:"max_drawdown"`       // Maximum drawdown
	MaxDrawdownDays  int           `json:"max_drawdown_days"`  // Days spent in max drawdown
	WinRate          float64       `json:"win_rate"`           // Fraction of winning trades
	ProfitFactor     float64       `json:"profit_factor"`      // Gross profit / gross loss
	AvgWin           float64       `json:"avg_win"`            // Average winning trade PnL
	AvgLoss          float64       `json:"avg_loss"`           // Average losing trade PnL (negative)
	TotalTrades      int           `json:"total_trades"`       // Number of realized trades
	AvgHoldingPeriod time.Duration `json:"avg_holding_period"` // Mean time in position
}

// TradeRecord is one realized trade. Records are never mutated by the
// analyzers; permutation trials work on copies with substituted outcomes.
type TradeRecord struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"` // buy/sell
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	Size       float64   `json:"size"`
	PnL        float64   `json:"pnl"`     // Realized PnL in account currency
	PnLPct     float64   `json:"pnl_pct"` // Realized PnL as a fraction of entry notional
	Fees       float64   `json:"fees"`
	Signals    []string  `json:"signals"` // Ordered signal tags that contributed to entry
}

// HoldingPeriod returns the time the trade was open
func (t TradeRecord) HoldingPeriod() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}

// HasSignal reports whether the trade carries the given signal tag
func (t TradeRecord) HasSignal(tag string) bool {
	for _, s := range t.Signals {
		if s == tag {
			return true
		}
	}
	return false
}

// CloneTrades returns a deep copy of the trade slice. Permutation trials
// substitute shuffled outcomes into the copy, never into the originals.
func CloneTrades(trades []TradeRecord) []TradeRecord {
	out := make([]TradeRecord, len(trades))
	copy(out, trades)
	for i := range out {
		if trades[i].Signals != nil {
			out[i].Signals = append([]string(nil), trades[i].Signals...)
		}
	}
	return out
}

// PerformanceResult is what a backtest runner returns for one evaluation:
// the aggregate metrics plus the trade-level detail behind them
type PerformanceResult struct {
	Metrics PerformanceMetrics `json:"metrics"`
	Trades  []TradeRecord      `json:"trades"`
}

// Params holds the named numeric parameters of a strategy configuration
type Params map[string]float64

// Clone returns an independent copy of the parameter set
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// StrategyConfig identifies the strategy under validation. The core forwards
// it to collaborators untouched; only StrategyID is read here.
type StrategyConfig struct {
	StrategyID string `json:"strategy_id"`
	Symbol     string `json:"symbol"`
	Timeframe  string `json:"timeframe"`
}

// Dataset is an opaque handle to the market data a collaborator evaluates
// against. The validation core never inspects it; it forwards the handle
// together with the time window to backtest.
type Dataset interface{}

// WalkForwardResult is the pre-computed summary of an external rolling-window
// analysis. This core reads it, never computes it.
type WalkForwardResult struct {
	NumWindows           int     `json:"num_windows"`
	ConsistencyRatio     float64 `json:"consistency_ratio"`       // Fraction of windows profitable out-of-sample
	AvgInSampleSharpe    float64 `json:"avg_in_sample_sharpe"`    // Mean Sharpe across training windows
	AvgOutOfSampleSharpe float64 `json:"avg_out_of_sample_sharpe"` // Mean Sharpe across test windows
	SharpeDegradation    float64 `json:"sharpe_degradation"`      // Relative IS->OOS Sharpe loss
}

// MonteCarloResult is the pre-computed summary of an external Monte Carlo
// resampling analysis
type MonteCarloResult struct {
	NumSimulations           int     `json:"num_simulations"`
	StatisticallySignificant bool    `json:"statistically_significant"`
	PValue                   float64 `json:"p_value"`
	ConfidenceLower          float64 `json:"confidence_lower"` // 95% CI lower bound on return
	ConfidenceUpper          float64 `json:"confidence_upper"` // 95% CI upper bound on return
	ProbabilityOfRuin        float64 `json:"probability_of_ruin"`
	MedianDrawdown           float64 `json:"median_drawdown"`
}

// CalibrationResult is the pre-computed calibration summary of the signal
// combiner that sized the strategy's entries (Brier score and ROC-AUC over
// its out-of-sample predictions)
type CalibrationResult struct {
	BrierScore       float64 `json:"brier_score"`
	ROCAUC           float64 `json:"roc_auc"`
	CalibrationError float64 `json:"calibration_error"`
	SampleSize       int     `json:"sample_size"`
}
