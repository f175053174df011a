package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sawpanic/backtestlab/internal/log"
	"github.com/sawpanic/backtestlab/internal/metrics"
	"github.com/sawpanic/backtestlab/internal/robustness"
	"github.com/sawpanic/backtestlab/internal/walkforward"
)

var (
	wfBarsPath    string
	wfSpecPath    string
	wfBrokerPath  string
	wfCapital     float64
	wfStart       string
	wfEnd         string
	wfTrainMonths int
	wfTestMonths  int
	wfStepMonths  int
	wfWarmupDays  int
)

var walkforwardCmd = &cobra.Command{
	Use:   "walkforward",
	Short: "Run a rolling walk-forward evaluation and report fold-level degradation",
	RunE:  runWalkforward,
}

func init() {
	rootCmd.AddCommand(walkforwardCmd)

	walkforwardCmd.Flags().StringVar(&wfBarsPath, "bars", "", "path to a CSV OHLCV bar series (required)")
	walkforwardCmd.Flags().StringVar(&wfSpecPath, "spec", "", "path to a strategy spec YAML file (required)")
	walkforwardCmd.Flags().StringVar(&wfBrokerPath, "broker", "", "path to a broker config YAML file")
	walkforwardCmd.Flags().Float64Var(&wfCapital, "capital", 1_000_000, "initial capital")
	walkforwardCmd.Flags().StringVar(&wfStart, "start", "", "window start date, YYYY-MM-DD (required)")
	walkforwardCmd.Flags().StringVar(&wfEnd, "end", "", "window end date, YYYY-MM-DD (required)")
	walkforwardCmd.Flags().IntVar(&wfTrainMonths, "train-months", 12, "train window length in months")
	walkforwardCmd.Flags().IntVar(&wfTestMonths, "test-months", 3, "test window length in months")
	walkforwardCmd.Flags().IntVar(&wfStepMonths, "step-months", 3, "step size between folds in months")
	walkforwardCmd.Flags().IntVar(&wfWarmupDays, "warmup-days", 0, "warmup days excluded from the train window")
	_ = walkforwardCmd.MarkFlagRequired("bars")
	_ = walkforwardCmd.MarkFlagRequired("spec")
	_ = walkforwardCmd.MarkFlagRequired("start")
	_ = walkforwardCmd.MarkFlagRequired("end")
}

func runWalkforward(cmd *cobra.Command, args []string) error {
	logger := log.Console("walkforward")

	bars, spec, brokerCfg, err := loadRunInputs(wfBarsPath, wfSpecPath, wfBrokerPath)
	if err != nil {
		return err
	}
	start, err := time.Parse("2006-01-02", wfStart)
	if err != nil {
		return fmt.Errorf("parse --start: %w", err)
	}
	end, err := time.Parse("2006-01-02", wfEnd)
	if err != nil {
		return fmt.Errorf("parse --end: %w", err)
	}

	driver := walkforward.New(spec, brokerCfg, wfCapital)
	driver.Metrics = metrics.New()

	folds, err := driver.Run(bars, walkforward.Config{
		Start:       start,
		End:         end,
		TrainMonths: wfTrainMonths,
		TestMonths:  wfTestMonths,
		StepMonths:  wfStepMonths,
		WarmupDays:  wfWarmupDays,
	})
	if err != nil {
		return fmt.Errorf("run walk-forward: %w", err)
	}

	logger.Info().Int("folds", len(folds)).Msg("walk-forward complete")

	var perf []robustness.FoldPerformance
	for i, fold := range folds {
		if fold.Skipped {
			fmt.Printf("Fold %d: skipped (%s)\n", i+1, fold.SkipReason)
			continue
		}
		fmt.Printf("Fold %d: train %s..%s  test %s..%s  degradation=%.3f\n",
			i+1,
			fold.TrainPeriod.Start.Format("2006-01-02"), fold.TrainPeriod.End.Format("2006-01-02"),
			fold.TestPeriod.Start.Format("2006-01-02"), fold.TestPeriod.End.Format("2006-01-02"),
			fold.Degradation)
		perf = append(perf, robustness.FoldPerformance{TestSharpe: fold.TestMetrics.SharpeRatio, TestReturn: fold.TestMetrics.TotalReturn})
	}

	if consistency, defined := robustness.Consistency(perf); defined {
		fmt.Printf("\nFold consistency (std dev of test performance): %.4f\n", consistency)
	}

	return nil
}
