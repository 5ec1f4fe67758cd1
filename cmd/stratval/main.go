package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName = "stratval"
	version = "v1.0.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Validate a trading strategy's backtest before deployment",
		Version: version,
		Long: `stratval judges whether a strategy's backtested performance reflects a real
statistical edge or an overfit to historical data. It consumes backtest
results produced elsewhere and renders a GO / NO_GO / CONDITIONAL decision.`,
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Compose a validation report from result fixtures",
		Long: `Reads a backtest result (and optionally out-of-sample results, parameter
history, walk-forward, Monte Carlo, and calibration summaries) from JSON
files, runs the overfit and feature-importance analyzers, and writes the
composed validation report.`,
		RunE: runValidate,
	}
	validateCmd.Flags().String("strategy", "", "Strategy identifier (required)")
	validateCmd.Flags().String("backtest", "", "Backtest result JSON file (required)")
	validateCmd.Flags().String("out-sample", "", "Out-of-sample backtest result JSON file (enables overfit detection)")
	validateCmd.Flags().String("param-history", "", "JSON file with parameter sets from repeated optimization runs")
	validateCmd.Flags().String("walk-forward", "", "Walk-forward summary JSON file")
	validateCmd.Flags().String("monte-carlo", "", "Monte Carlo summary JSON file")
	validateCmd.Flags().String("calibration", "", "Signal-combiner calibration summary JSON file")
	validateCmd.Flags().Bool("importance", false, "Run permutation feature importance over the backtest trades")
	validateCmd.Flags().Int64("seed", 0, "Seed for the permutation PRNG (omit for non-deterministic)")
	validateCmd.Flags().String("config", "", "Validation thresholds YAML (defaults compiled in)")
	validateCmd.Flags().String("output", "out/validation", "Output directory for report artifacts")
	_ = validateCmd.MarkFlagRequired("strategy")
	_ = validateCmd.MarkFlagRequired("backtest")

	quickCmd := &cobra.Command{
		Use:   "quickcheck",
		Short: "Fast overfit pre-flight check without trade-level data",
		RunE:  runQuickCheck,
	}
	quickCmd.Flags().Float64("in-sharpe", 0, "In-sample Sharpe ratio")
	quickCmd.Flags().Float64("out-sharpe", 0, "Out-of-sample Sharpe ratio")
	quickCmd.Flags().Int("params", 0, "Number of optimized parameters")
	quickCmd.Flags().Int("trades", 0, "Number of trades in the sample")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(quickCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
