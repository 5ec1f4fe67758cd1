// Package stats provides the shared numerics behind the validation analyzers:
// moment estimators, autocorrelation, coefficient of variation, and the
// trade-level metric computations every permutation trial re-runs.
package stats

import (
	"math"
	"sort"
)

// Mean computes the arithmetic mean of a float64 slice
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// StdDev computes the sample standard deviation (n-1 denominator).
// Fewer than 2 data points yield 0.
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	m := Mean(data)
	sumSq := 0.0
	for _, v := range data {
		diff := v - m
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(data)-1))
}

// Median computes the median of a float64 slice without mutating it
func Median(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// CoefVar computes the coefficient of variation std/|mean|. A zero mean with
// zero spread yields 0; a zero mean with non-zero spread yields 1 (fully
// unstable on the analyzer's 0..1 stability scale) so a degenerate parameter
// cannot crash or dominate the aggregate.
func CoefVar(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	m := Mean(data)
	s := StdDev(data)
	if math.Abs(m) < 1e-12 {
		if s < 1e-12 {
			return 0
		}
		return 1.0
	}
	return s / math.Abs(m)
}

// Skewness computes the population skewness m3/m2^1.5.
// Fewer than 3 points or zero variance yield 0.
func Skewness(data []float64) float64 {
	n := float64(len(data))
	if len(data) < 3 {
		return 0
	}
	m := Mean(data)
	var m2, m3 float64
	for _, v := range data {
		d := v - m
		m2 += d * d
		m3 += d * d * d
	}
	m2 /= n
	m3 /= n
	if m2 == 0 {
		return 0
	}
	return m3 / math.Pow(m2, 1.5)
}

// Kurtosis computes the population kurtosis m4/m2^2 (raw, not excess; a
// normal distribution scores 3). Fewer than 4 points or zero variance
// yield 3 so the excess term drops out of downstream normality checks.
func Kurtosis(data []float64) float64 {
	n := float64(len(data))
	if len(data) < 4 {
		return 3
	}
	m := Mean(data)
	var m2, m4 float64
	for _, v := range data {
		d := v - m
		m2 += d * d
		m4 += d * d * d * d
	}
	m2 /= n
	m4 /= n
	if m2 == 0 {
		return 3
	}
	return m4 / (m2 * m2)
}

// Autocorrelation computes the lag-k autocorrelation of the series.
// Series shorter than k+2 or with zero variance yield 0.
func Autocorrelation(data []float64, lag int) float64 {
	if lag < 1 || len(data) < lag+2 {
		return 0
	}
	m := Mean(data)
	var num, den float64
	for i := 0; i < len(data); i++ {
		d := data[i] - m
		den += d * d
	}
	if den == 0 {
		return 0
	}
	for i := 0; i < len(data)-lag; i++ {
		num += (data[i] - m) * (data[i+lag] - m)
	}
	return num / den
}

// LinearSlope fits y against its index 0..n-1 by least squares and returns
// the slope. Fewer than 2 points yield 0.
func LinearSlope(y []float64) float64 {
	n := float64(len(y))
	if len(y) < 2 {
		return 0
	}
	meanX := (n - 1) / 2
	meanY := Mean(y)
	var num, den float64
	for i, v := range y {
		dx := float64(i) - meanX
		num += dx * (v - meanY)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// JarqueBera computes the simplified Jarque-Bera normality statistic
// JB = (n/6)(skew^2 + (kurtosis-3)^2/4) over the sample
func JarqueBera(data []float64) float64 {
	n := float64(len(data))
	if len(data) < 4 {
		return 0
	}
	skew := Skewness(data)
	kurt := Kurtosis(data)
	return (n / 6.0) * (skew*skew + math.Pow(kurt-3.0, 2)/4.0)
}

// JarqueBeraPValue approximates the p-value of a JB statistic as exp(-JB/2).
// The approximation is heuristic but downstream thresholds are tuned against
// this exact arithmetic; keep the formula as-is.
func JarqueBeraPValue(jb float64) float64 {
	return math.Exp(-jb / 2.0)
}
