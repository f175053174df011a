package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sawpanic/backtestlab/internal/domain"
	"github.com/sawpanic/backtestlab/internal/engine"
	"github.com/sawpanic/backtestlab/internal/log"
	"github.com/sawpanic/backtestlab/internal/robustness"
	"github.com/sawpanic/backtestlab/internal/sop"
	"github.com/sawpanic/backtestlab/internal/walkforward"
)

var (
	validateBarsPath    string
	validateSpecPath    string
	validateBrokerPath  string
	validateCapital     float64
	validateStart       string
	validateEnd         string
	validateTrainMonths int
	validateTestMonths  int
	validateStepMonths  int
	validateChanged     []string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run a backtest plus walk-forward evaluation and apply the SOP promotion gates",
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateBarsPath, "bars", "", "path to a CSV OHLCV bar series (required)")
	validateCmd.Flags().StringVar(&validateSpecPath, "spec", "", "path to a strategy spec YAML file (required)")
	validateCmd.Flags().StringVar(&validateBrokerPath, "broker", "", "path to a broker config YAML file")
	validateCmd.Flags().Float64Var(&validateCapital, "capital", 1_000_000, "initial capital")
	validateCmd.Flags().StringVar(&validateStart, "start", "", "window start date, YYYY-MM-DD (required)")
	validateCmd.Flags().StringVar(&validateEnd, "end", "", "window end date, YYYY-MM-DD (required)")
	validateCmd.Flags().IntVar(&validateTrainMonths, "train-months", 12, "train window length in months")
	validateCmd.Flags().IntVar(&validateTestMonths, "test-months", 3, "test window length in months")
	validateCmd.Flags().IntVar(&validateStepMonths, "step-months", 3, "step size between folds in months")
	validateCmd.Flags().StringSliceVar(&validateChanged, "changed-layers", nil, "strategy layers changed since the last promoted version (e.g. signal,scoring)")
	_ = validateCmd.MarkFlagRequired("bars")
	_ = validateCmd.MarkFlagRequired("spec")
	_ = validateCmd.MarkFlagRequired("start")
	_ = validateCmd.MarkFlagRequired("end")
}

func runValidate(cmd *cobra.Command, args []string) error {
	logger := log.Console("validate")

	bars, spec, brokerCfg, err := loadRunInputs(validateBarsPath, validateSpecPath, validateBrokerPath)
	if err != nil {
		return err
	}
	start, err := time.Parse("2006-01-02", validateStart)
	if err != nil {
		return fmt.Errorf("parse --start: %w", err)
	}
	end, err := time.Parse("2006-01-02", validateEnd)
	if err != nil {
		return fmt.Errorf("parse --end: %w", err)
	}

	fullResult, err := engine.Run(bars, spec, brokerCfg, validateCapital)
	if err != nil {
		return fmt.Errorf("run full-sample backtest: %w", err)
	}

	driver := walkforward.New(spec, brokerCfg, validateCapital)
	folds, err := driver.Run(bars, walkforward.Config{
		Start: start, End: end,
		TrainMonths: validateTrainMonths, TestMonths: validateTestMonths, StepMonths: validateStepMonths,
	})
	if err != nil {
		return fmt.Errorf("run walk-forward: %w", err)
	}

	var degradations []float64
	var perf []robustness.FoldPerformance
	for _, fold := range folds {
		if fold.Skipped {
			continue
		}
		degradations = append(degradations, fold.Degradation)
		perf = append(perf, robustness.FoldPerformance{TestSharpe: fold.TestMetrics.SharpeRatio, TestReturn: fold.TestMetrics.TotalReturn})
	}

	var overfitReport *domain.OverfittingRiskReport
	if len(degradations) > 0 {
		avgDegradation := 0.0
		for _, d := range degradations {
			avgDegradation += d
		}
		avgDegradation /= float64(len(degradations))

		inputs := robustness.Inputs{Degradation: &avgDegradation}
		if consistency, defined := robustness.Consistency(perf); defined {
			inputs.ConsistencyStd = &consistency
		}
		report := robustness.AssessOverfittingRisk(inputs)
		overfitReport = &report
	}

	report := sop.ValidateBacktestResult(
		fullResult.Metrics.TotalTrades,
		domain.DateRange{Start: start, End: end},
		folds,
		validateChanged,
		len(folds) > 0,
	)

	fmt.Printf("Validation status: %s\n", report.Status)
	for _, m := range report.Messages {
		fmt.Printf("  - %s\n", m)
	}

	canPromote := report.CanPromote
	if overfitReport != nil {
		overfitCheck := sop.CheckOverfittingRisk(overfitReport)
		fmt.Printf("\nOverfitting risk: %s (score %.1f/10)\n", overfitReport.RiskLevel, overfitReport.RiskScore)
		for _, m := range overfitCheck.Messages {
			fmt.Printf("  - %s\n", m)
		}
		canPromote = canPromote && overfitCheck.CanPromote
	}

	fmt.Printf("\nCan promote: %t\n", canPromote)
	logger.Info().Str("status", string(report.Status)).Bool("can_promote", canPromote).Msg("validation complete")
	return nil
}
