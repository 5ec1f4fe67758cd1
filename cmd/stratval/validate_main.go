package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stratval/stratval/internal/config"
	"github.com/stratval/stratval/internal/model"
	"github.com/stratval/stratval/internal/report"
	"github.com/stratval/stratval/internal/validate/featimp"
	"github.com/stratval/stratval/internal/validate/overfit"
)

// runValidate composes a validation report from fixture files. The holdout
// and perturbation analyzers need live backtest/optimizer collaborators and
// are exercised through the library API instead.
func runValidate(cmd *cobra.Command, args []string) error {
	strategyID, _ := cmd.Flags().GetString("strategy")
	backtestPath, _ := cmd.Flags().GetString("backtest")
	outSamplePath, _ := cmd.Flags().GetString("out-sample")
	paramHistoryPath, _ := cmd.Flags().GetString("param-history")
	walkForwardPath, _ := cmd.Flags().GetString("walk-forward")
	monteCarloPath, _ := cmd.Flags().GetString("monte-carlo")
	calibrationPath, _ := cmd.Flags().GetString("calibration")
	runImportance, _ := cmd.Flags().GetBool("importance")
	configPath, _ := cmd.Flags().GetString("config")
	outputDir, _ := cmd.Flags().GetString("output")

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	var backtest model.PerformanceResult
	if err := readJSON(backtestPath, &backtest); err != nil {
		return err
	}

	inputs := report.Inputs{}

	if outSamplePath != "" {
		var outSample model.PerformanceResult
		if err := readJSON(outSamplePath, &outSample); err != nil {
			return err
		}
		var history []model.Params
		if paramHistoryPath != "" {
			if err := readJSON(paramHistoryPath, &history); err != nil {
				return err
			}
		}
		detector := overfit.NewDetector(cfg.Overfit)
		inputs.Overfit = detector.Detect(backtest.Metrics, outSample.Metrics,
			backtest.Trades, outSample.Trades, history)
	}

	if walkForwardPath != "" {
		inputs.WalkForward = &model.WalkForwardResult{}
		if err := readJSON(walkForwardPath, inputs.WalkForward); err != nil {
			return err
		}
	}
	if monteCarloPath != "" {
		inputs.MonteCarlo = &model.MonteCarloResult{}
		if err := readJSON(monteCarloPath, inputs.MonteCarlo); err != nil {
			return err
		}
	}
	if calibrationPath != "" {
		inputs.Calibration = &model.CalibrationResult{}
		if err := readJSON(calibrationPath, inputs.Calibration); err != nil {
			return err
		}
	}

	if runImportance {
		fiCfg := cfg.FeatureImportance
		if cmd.Flags().Changed("seed") {
			fiCfg.Seed, _ = cmd.Flags().GetInt64("seed")
			fiCfg.Seeded = true
		}
		fi, err := featimp.NewCalculator(fiCfg).Calculate(backtest.Trades)
		if err != nil {
			// Insufficient trades should degrade to a warning in the
			// report, not kill the whole run
			log.Warn().Err(err).Msg("Feature importance skipped")
		} else {
			inputs.FeatureImportance = fi
		}
	}

	generator := report.NewGenerator(cfg.Report)
	rep := generator.Generate(strategyID, &backtest, inputs)

	fmt.Print(report.Render(rep))

	writer := NewWriter(outputDir)
	if err := writer.WriteReport(rep); err != nil {
		return err
	}
	log.Info().Str("dir", writer.OutputDir()).Msg("Report artifacts written")
	return nil
}

// runQuickCheck exposes the overfit pre-flight heuristic on the command line
func runQuickCheck(cmd *cobra.Command, args []string) error {
	inSharpe, _ := cmd.Flags().GetFloat64("in-sharpe")
	outSharpe, _ := cmd.Flags().GetFloat64("out-sharpe")
	numParams, _ := cmd.Flags().GetInt("params")
	numTrades, _ := cmd.Flags().GetInt("trades")

	detector := overfit.NewDetector(overfit.DefaultConfig())
	result := detector.QuickCheck(inSharpe, outSharpe, numParams, numTrades)

	if result.OverfitLikely {
		fmt.Printf("OVERFIT LIKELY: %s\n", result.Reason)
	} else {
		fmt.Println("No overfit signal from quick check")
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
