package report

import (
	"fmt"
	"strings"
)

// Render produces the human-readable multi-section text form of a report,
// suitable for terminal display or log archival. The structured Report is
// the machine-readable equivalent.
func Render(r *Report) string {
	var b strings.Builder

	b.WriteString("=== STRATEGY VALIDATION REPORT ===\n")
	fmt.Fprintf(&b, "Report:    %s\n", r.ID)
	fmt.Fprintf(&b, "Strategy:  %s\n", r.StrategyID)
	fmt.Fprintf(&b, "Generated: %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))

	fmt.Fprintf(&b, "DECISION: %s (confidence %.0f%%)\n", r.Decision.Verdict, r.Decision.Confidence*100)
	for _, reason := range r.Decision.Reasoning {
		fmt.Fprintf(&b, "  - %s\n", reason)
	}
	if len(r.Decision.Conditions) > 0 {
		b.WriteString("  Conditions:\n")
		for _, c := range r.Decision.Conditions {
			fmt.Fprintf(&b, "    * %s\n", c)
		}
	}

	fmt.Fprintf(&b, "\nOVERALL: score %.2f, %s\n", r.OverallScore, passLabel(r.Passed))

	b.WriteString("\n--- Backtest Summary ---\n")
	m := r.BacktestMetrics
	fmt.Fprintf(&b, "Trades: %d | Return: %+.2f%% (annualized %+.2f%%)\n",
		r.TradeCount, m.TotalReturn*100, m.AnnualizedReturn*100)
	fmt.Fprintf(&b, "Sharpe: %.2f | Sortino: %.2f | Max DD: %.2f%% (%d days)\n",
		m.Sharpe, m.Sortino, m.MaxDrawdown*100, m.MaxDrawdownDays)
	fmt.Fprintf(&b, "Win rate: %.1f%% | Profit factor: %.2f | Avg win/loss: %.2f/%.2f\n",
		m.WinRate*100, m.ProfitFactor, m.AvgWin, m.AvgLoss)

	b.WriteString("\n--- Checks ---\n")
	for _, s := range []Section{r.WalkForward, r.MonteCarlo, r.Overfit, r.Calibration} {
		renderSection(&b, s)
	}

	if r.HoldoutData != nil {
		h := r.HoldoutData
		fmt.Fprintf(&b, "\n--- Holdout ---\n")
		fmt.Fprintf(&b, "%s | confidence %s (%.2f) | avg degradation %.2f\n",
			passLabel(h.Passed), h.Confidence.Level, h.Confidence.Score, h.Degradation.Average)
		for _, reason := range h.FailureReasons {
			fmt.Fprintf(&b, "  ! %s\n", reason)
		}
	}

	if p := r.PerturbationData; p != nil {
		fmt.Fprintf(&b, "\n--- Parameter Robustness ---\n")
		fmt.Fprintf(&b, "%s | robustness %.2f | %d/%d parameters fragile\n",
			passLabel(p.Passed), p.RobustnessScore, p.FragileCount, len(p.Parameters))
		for _, param := range p.Parameters {
			if param.IsFragile {
				fmt.Fprintf(&b, "  ! %s: sensitivity %.2f\n", param.Name, param.AverageSensitivity)
			}
		}
	}

	if fi := r.FeatureImportanceData; fi != nil {
		fmt.Fprintf(&b, "\n--- Signal Importance (%s) ---\n", fi.Metric)
		for _, s := range fi.Scores {
			fmt.Fprintf(&b, "  %-20s importance %+.3f  p=%.3f  %s\n",
				s.Signal, s.Importance, s.PValue, usefulLabel(s.IsUseful))
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n--- Warnings ---\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "  ! %s\n", w)
		}
	}

	if len(r.Recommendations) > 0 {
		b.WriteString("\n--- Recommendations ---\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&b, "  > %s\n", rec)
		}
	}

	return b.String()
}

func renderSection(b *strings.Builder, s Section) {
	status := passLabel(s.Passed)
	if !s.Included {
		status = "NOT PERFORMED"
	}
	fmt.Fprintf(b, "%-14s %s\n", s.Name+":", status)
	for _, issue := range s.Issues {
		fmt.Fprintf(b, "  ! %s\n", issue)
	}
}

func passLabel(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}

func usefulLabel(useful bool) string {
	if useful {
		return "useful"
	}
	return "droppable"
}
