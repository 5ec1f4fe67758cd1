package stats

import (
	"math"
	"testing"
)

func TestDegradationRatio(t *testing.T) {
	tests := []struct {
		name    string
		train   float64
		holdout float64
		want    float64
	}{
		{"halved", 2.0, 1.0, 0.5},
		{"unchanged", 1.5, 1.5, 0},
		{"improved reads as zero", 1.0, 1.8, 0},
		{"sign flip clamps to one", 1.0, -3.0, 1.0},
		{"zero train is neutral", 0, -1.0, 0},
		{"negative train is neutral", -0.5, -1.0, 0},
		{"full loss", 1.0, 0, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DegradationRatio(tt.train, tt.holdout)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("DegradationRatio(%v, %v) = %v, want %v", tt.train, tt.holdout, got, tt.want)
			}
		})
	}
}

func TestDegradationRatioRange(t *testing.T) {
	// Whatever the inputs, the ratio stays in [0, 1]
	values := []float64{-5, -1, 0, 0.3, 1, 2, 10, math.Inf(1)}
	for _, train := range values {
		for _, holdout := range values {
			got := DegradationRatio(train, holdout)
			if got < 0 || got > 1 || math.IsNaN(got) {
				t.Errorf("DegradationRatio(%v, %v) = %v, out of [0,1]", train, holdout, got)
			}
		}
	}
}

func TestCapProfitFactor(t *testing.T) {
	if got := CapProfitFactor(math.Inf(1)); got != MaxProfitFactor {
		t.Errorf("CapProfitFactor(+Inf) = %v, want %v", got, MaxProfitFactor)
	}
	if got := CapProfitFactor(25); got != MaxProfitFactor {
		t.Errorf("CapProfitFactor(25) = %v, want %v", got, MaxProfitFactor)
	}
	if got := CapProfitFactor(2.5); got != 2.5 {
		t.Errorf("CapProfitFactor(2.5) = %v, want 2.5", got)
	}
}

func TestClamp01(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{-0.5, 0}, {0, 0}, {0.42, 0.42}, {1, 1}, {1.7, 1},
	}
	for _, tt := range tests {
		if got := Clamp01(tt.in); got != tt.want {
			t.Errorf("Clamp01(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
