package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sawpanic/backtestlab/internal/engine"
	"github.com/sawpanic/backtestlab/internal/log"
	"github.com/sawpanic/backtestlab/internal/performance"
)

var (
	backtestBarsPath   string
	backtestSpecPath   string
	backtestBrokerPath string
	backtestCapital    float64
	backtestBaseline   bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a single full-sample backtest over a bar series",
	RunE:  runBacktest,
}

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&backtestBarsPath, "bars", "", "path to a CSV OHLCV bar series (required)")
	backtestCmd.Flags().StringVar(&backtestSpecPath, "spec", "", "path to a strategy spec YAML file (required)")
	backtestCmd.Flags().StringVar(&backtestBrokerPath, "broker", "", "path to a broker config YAML file (defaults to DefaultBrokerConfig)")
	backtestCmd.Flags().Float64Var(&backtestCapital, "capital", 1_000_000, "initial capital")
	backtestCmd.Flags().BoolVar(&backtestBaseline, "baseline", true, "compare against a buy-and-hold baseline")
	_ = backtestCmd.MarkFlagRequired("bars")
	_ = backtestCmd.MarkFlagRequired("spec")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	logger := log.Console("backtest")

	bars, spec, brokerCfg, err := loadRunInputs(backtestBarsPath, backtestSpecPath, backtestBrokerPath)
	if err != nil {
		return err
	}

	result, err := engine.Run(bars, spec, brokerCfg, backtestCapital)
	if err != nil {
		return fmt.Errorf("run backtest: %w", err)
	}

	logger.Info().
		Str("strategy_id", spec.StrategyID).
		Int("bars", len(bars)).
		Int("trades", len(result.Trades)).
		Msg("backtest complete")

	fmt.Printf("Strategy: %s %s\n", spec.StrategyID, spec.StrategyVersion)
	printMetrics(result.Metrics)

	if backtestBaseline {
		baseline := performance.New(0).BuyHoldReturn(bars)
		comparison := performance.New(0).Compare(result.Metrics, baseline)
		fmt.Printf("\nBuy-and-hold baseline:\n")
		printMetrics(baseline)
		fmt.Printf("\nExcess return: %.2f%%  Outperforms: %t\n", comparison.ExcessReturn*100, comparison.Outperforms)
	}

	return nil
}
