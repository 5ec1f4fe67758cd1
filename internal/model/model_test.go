package model

import (
	"testing"
	"time"
)

func TestParseMetric(t *testing.T) {
	tests := []struct {
		in   string
		want Metric
	}{
		{"sharpe", MetricSharpe},
		{"Sharpe_Ratio", MetricSharpe},
		{" win_rate ", MetricWinRate},
		{"winrate", MetricWinRate},
		{"profit_factor", MetricProfitFactor},
		{"total_return", MetricTotalReturn},
		{"return", MetricTotalReturn},
		{"bogus", MetricTotalReturn},
		{"", MetricTotalReturn},
	}
	for _, tt := range tests {
		if got := ParseMetric(tt.in); got != tt.want {
			t.Errorf("ParseMetric(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMetricStringRoundTrip(t *testing.T) {
	for _, m := range []Metric{MetricSharpe, MetricTotalReturn, MetricWinRate, MetricProfitFactor} {
		if got := ParseMetric(m.String()); got != m {
			t.Errorf("ParseMetric(%q) = %v, want %v", m.String(), got, m)
		}
	}
}

func TestMetricExtract(t *testing.T) {
	pm := PerformanceMetrics{Sharpe: 1.2, TotalReturn: 0.45, WinRate: 0.6, ProfitFactor: 2.1}
	tests := []struct {
		metric Metric
		want   float64
	}{
		{MetricSharpe, 1.2},
		{MetricTotalReturn, 0.45},
		{MetricWinRate, 0.6},
		{MetricProfitFactor, 2.1},
	}
	for _, tt := range tests {
		if got := tt.metric.Extract(pm); got != tt.want {
			t.Errorf("%v.Extract = %v, want %v", tt.metric, got, tt.want)
		}
	}
}

func TestTimeRangeDays(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	r := TimeRange{Start: start, End: start.AddDate(0, 0, 10)}
	if got := r.Days(); got != 10 {
		t.Errorf("Days() = %v, want 10", got)
	}
	half := TimeRange{Start: start, End: start.Add(36 * time.Hour)}
	if got := half.Days(); got != 1.5 {
		t.Errorf("Days() = %v, want 1.5", got)
	}
}

func TestTradeRecordHasSignal(t *testing.T) {
	tr := TradeRecord{Signals: []string{"momentum", "breakout"}}
	if !tr.HasSignal("momentum") {
		t.Error("expected momentum tag")
	}
	if tr.HasSignal("reversal") {
		t.Error("unexpected reversal tag")
	}
	if (TradeRecord{}).HasSignal("momentum") {
		t.Error("empty record must carry no tags")
	}
}

func TestCloneTradesIsDeep(t *testing.T) {
	orig := []TradeRecord{
		{ID: "t1", PnL: 100, PnLPct: 0.01, Signals: []string{"momentum"}},
		{ID: "t2", PnL: -50, PnLPct: -0.005, Signals: []string{"breakout", "volume"}},
	}
	cloned := CloneTrades(orig)

	cloned[0].PnL = -999
	cloned[0].PnLPct = -0.99
	cloned[1].Signals[0] = "mutated"

	if orig[0].PnL != 100 || orig[0].PnLPct != 0.01 {
		t.Errorf("outcome mutation leaked into original: %+v", orig[0])
	}
	if orig[1].Signals[0] != "breakout" {
		t.Errorf("signal mutation leaked into original: %v", orig[1].Signals)
	}
}

func TestParamsClone(t *testing.T) {
	p := Params{"lookback": 20, "threshold": 1.5}
	c := p.Clone()
	c["lookback"] = 999
	if p["lookback"] != 20 {
		t.Errorf("Clone shares storage: %v", p)
	}
	if len(c) != 2 || c["threshold"] != 1.5 {
		t.Errorf("Clone incomplete: %v", c)
	}
}

func TestHoldingPeriod(t *testing.T) {
	entry := time.Date(2023, 6, 1, 9, 0, 0, 0, time.UTC)
	tr := TradeRecord{EntryTime: entry, ExitTime: entry.Add(4 * time.Hour)}
	if got := tr.HoldingPeriod(); got != 4*time.Hour {
		t.Errorf("HoldingPeriod = %v, want 4h", got)
	}
}
