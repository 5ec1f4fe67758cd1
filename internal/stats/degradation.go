package stats

import "math"

// MaxProfitFactor bounds profit factor before any degradation ratio is taken,
// so a near-infinite factor on one side cannot swamp the average
const MaxProfitFactor = 10.0

// DegradationRatio computes the relative performance loss between a training
// (in-sample) value and a holdout (out-of-sample) value:
//
//	max(0, (train - holdout) / train)  when train > 0, else 0
//
// clamped to [0, 1]. Improvement on the holdout side reads as 0 degradation,
// and a non-positive training value resolves to the neutral 0 rather than a
// division blow-up.
func DegradationRatio(train, holdout float64) float64 {
	if train <= 0 {
		return 0
	}
	d := (train - holdout) / train
	if d < 0 {
		return 0
	}
	return math.Min(1, d)
}

// CapProfitFactor clamps a profit factor to MaxProfitFactor
func CapProfitFactor(pf float64) float64 {
	if math.IsInf(pf, 1) || pf > MaxProfitFactor {
		return MaxProfitFactor
	}
	return pf
}

// Clamp01 clamps v to the [0, 1] interval
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
