package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sawpanic/backtestlab/internal/log"
	"github.com/sawpanic/backtestlab/internal/metrics"
	"github.com/sawpanic/backtestlab/internal/optimize"
)

var (
	optimizeBarsPath       string
	optimizeSpecPath       string
	optimizeBrokerPath     string
	optimizeRangesPath     string
	optimizeCapital        float64
	optimizeObjective      string
	optimizeTopN           int
	optimizePoolSize       int
	optimizeSummaryCSVPath string
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Grid-search a strategy spec's parameters and rank the results",
	RunE:  runOptimize,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)

	optimizeCmd.Flags().StringVar(&optimizeBarsPath, "bars", "", "path to a CSV OHLCV bar series (required)")
	optimizeCmd.Flags().StringVar(&optimizeSpecPath, "spec", "", "path to the base strategy spec YAML file (required)")
	optimizeCmd.Flags().StringVar(&optimizeBrokerPath, "broker", "", "path to a broker config YAML file")
	optimizeCmd.Flags().StringVar(&optimizeRangesPath, "ranges", "", "path to a parameter ranges YAML file (required)")
	optimizeCmd.Flags().Float64Var(&optimizeCapital, "capital", 1_000_000, "initial capital")
	optimizeCmd.Flags().StringVar(&optimizeObjective, "objective", "sharpe", "objective: sharpe|annual_return|cagr_minus_mdd")
	optimizeCmd.Flags().IntVar(&optimizeTopN, "top", 10, "number of top candidates to report")
	optimizeCmd.Flags().IntVar(&optimizePoolSize, "pool-size", 0, "worker pool size (0 = min(NumCPU, 8))")
	optimizeCmd.Flags().StringVar(&optimizeSummaryCSVPath, "summary-csv", "", "write a flattened CSV summary of the ranked results to this path")
	_ = optimizeCmd.MarkFlagRequired("bars")
	_ = optimizeCmd.MarkFlagRequired("spec")
	_ = optimizeCmd.MarkFlagRequired("ranges")
}

type rangesFile struct {
	Ranges []optimize.ParamRange `yaml:"ranges"`
}

func loadParamRanges(path string) ([]optimize.ParamRange, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read param ranges: %w", err)
	}
	var parsed rangesFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse param ranges: %w", err)
	}
	return parsed.Ranges, nil
}

func runOptimize(cmd *cobra.Command, args []string) error {
	logger := log.Console("optimize")

	bars, spec, brokerCfg, err := loadRunInputs(optimizeBarsPath, optimizeSpecPath, optimizeBrokerPath)
	if err != nil {
		return err
	}
	ranges, err := loadParamRanges(optimizeRangesPath)
	if err != nil {
		return err
	}

	registry := metrics.New()
	opt := optimize.New(brokerCfg, optimizeCapital)
	opt.PoolSize = optimizePoolSize
	opt.Metrics = registry

	progress := func(completed, total int, message string) {
		logger.Info().Int("completed", completed).Int("total", total).Msg(message)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, err := opt.Run(ctx, bars, spec, ranges, optimize.Objective(optimizeObjective), optimizeTopN, progress)
	if err != nil {
		return fmt.Errorf("run grid search: %w", err)
	}

	if len(results) > 0 && results[0].Incomplete {
		fmt.Printf("Interrupted, reporting %d candidates evaluated before cancellation:\n\n", len(results))
	} else {
		fmt.Printf("Top %d candidates (objective=%s):\n\n", len(results), optimizeObjective)
	}
	for _, r := range results {
		fmt.Printf("#%d  score=%.4f  failed=%t  params=%v\n", r.Rank, r.Score, r.Failed, r.Params)
	}

	if optimizeSummaryCSVPath != "" {
		if err := writeSummaryCSVFile(optimizeSummaryCSVPath, results); err != nil {
			return fmt.Errorf("write summary csv: %w", err)
		}
		logger.Info().Str("path", optimizeSummaryCSVPath).Msg("wrote summary csv")
	}
	return nil
}

func writeSummaryCSVFile(path string, results []optimize.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return optimize.WriteCSV(f, optimize.Summary(results))
}
