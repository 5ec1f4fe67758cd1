package stats

import (
	"math"

	"github.com/stratval/stratval/internal/model"
)

// TradingDaysPerYear is the annualization base for per-trade Sharpe
const TradingDaysPerYear = 252

// MetricFromTrades recomputes the selected metric over a full trade set.
// Permutation trials call this once per shuffle, so the implementation stays
// allocation-light and touches only PnLPct/PnL.
func MetricFromTrades(trades []model.TradeRecord, metric model.Metric) float64 {
	switch metric {
	case model.MetricSharpe:
		return SharpeFromTrades(trades)
	case model.MetricWinRate:
		return WinRateFromTrades(trades)
	case model.MetricProfitFactor:
		return ProfitFactorFromTrades(trades)
	default:
		return TotalReturnFromTrades(trades)
	}
}

// SharpeFromTrades computes the annualized Sharpe ratio of per-trade percent
// returns using the sqrt(252) convention. Zero spread yields 0.
func SharpeFromTrades(trades []model.TradeRecord) float64 {
	if len(trades) < 2 {
		return 0
	}
	returns := make([]float64, len(trades))
	for i, t := range trades {
		returns[i] = t.PnLPct
	}
	sd := StdDev(returns)
	if sd == 0 {
		return 0
	}
	return Mean(returns) / sd * math.Sqrt(TradingDaysPerYear)
}

// TotalReturnFromTrades computes the total compounded return of the sequence
func TotalReturnFromTrades(trades []model.TradeRecord) float64 {
	equity := 1.0
	for _, t := range trades {
		equity *= 1.0 + t.PnLPct
	}
	return equity - 1.0
}

// WinRateFromTrades computes the fraction of trades with positive PnL
func WinRateFromTrades(trades []model.TradeRecord) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.PnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades))
}

// ProfitFactorFromTrades computes gross profit over gross loss. No losses
// with some profit yields +Inf; callers that need a bounded value cap it.
func ProfitFactorFromTrades(trades []model.TradeRecord) float64 {
	var grossProfit, grossLoss float64
	for _, t := range trades {
		if t.PnL > 0 {
			grossProfit += t.PnL
		} else {
			grossLoss += -t.PnL
		}
	}
	if grossLoss == 0 {
		if grossProfit == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return grossProfit / grossLoss
}
