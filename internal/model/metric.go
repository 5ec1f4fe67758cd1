package model

import "strings"

// Metric selects which performance field an analyzer treats as its primary
// objective. The set is closed; unrecognized names parse to MetricTotalReturn.
type Metric int

const (
	MetricSharpe Metric = iota
	MetricTotalReturn
	MetricWinRate
	MetricProfitFactor
)

// ParseMetric maps a configuration string onto a Metric. Unknown keys fall
// back to total return rather than failing, so a stale config cannot stop a
// validation run.
func ParseMetric(name string) Metric {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sharpe", "sharpe_ratio":
		return MetricSharpe
	case "total_return", "return":
		return MetricTotalReturn
	case "win_rate", "winrate":
		return MetricWinRate
	case "profit_factor", "profitfactor":
		return MetricProfitFactor
	default:
		return MetricTotalReturn
	}
}

// String returns the canonical configuration name for the metric
func (m Metric) String() string {
	switch m {
	case MetricSharpe:
		return "sharpe"
	case MetricWinRate:
		return "win_rate"
	case MetricProfitFactor:
		return "profit_factor"
	default:
		return "total_return"
	}
}

// Extract reads the metric's value out of an aggregate snapshot
func (m Metric) Extract(pm PerformanceMetrics) float64 {
	switch m {
	case MetricSharpe:
		return pm.Sharpe
	case MetricWinRate:
		return pm.WinRate
	case MetricProfitFactor:
		return pm.ProfitFactor
	default:
		return pm.TotalReturn
	}
}
