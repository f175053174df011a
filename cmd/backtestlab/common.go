package main

import (
	"fmt"

	"github.com/sawpanic/backtestlab/internal/config"
	"github.com/sawpanic/backtestlab/internal/domain"
	"github.com/sawpanic/backtestlab/internal/marketdata"
)

// loadRunInputs resolves the bars series, strategy spec, and broker config
// shared by every evaluation subcommand (backtest/optimize/walkforward).
func loadRunInputs(barsPath, specPath, brokerPath string) ([]domain.Bar, domain.StrategySpec, domain.BrokerConfig, error) {
	bars, err := marketdata.NewCSVLoader().LoadFile(barsPath)
	if err != nil {
		return nil, domain.StrategySpec{}, domain.BrokerConfig{}, fmt.Errorf("load bars: %w", err)
	}

	spec, err := config.LoadStrategySpec(specPath)
	if err != nil {
		return nil, domain.StrategySpec{}, domain.BrokerConfig{}, fmt.Errorf("load strategy spec: %w", err)
	}

	brokerCfg := domain.DefaultBrokerConfig()
	if brokerPath != "" {
		loaded, err := config.LoadBrokerConfig(brokerPath)
		if err != nil {
			return nil, domain.StrategySpec{}, domain.BrokerConfig{}, fmt.Errorf("load broker config: %w", err)
		}
		brokerCfg = *loaded
	}

	return bars, *spec, brokerCfg, nil
}

func printMetrics(m domain.PerformanceMetrics) {
	fmt.Printf("  Total return:     %.2f%%\n", m.TotalReturn*100)
	fmt.Printf("  Annualized return: %.2f%%\n", m.AnnualReturn*100)
	fmt.Printf("  Sharpe ratio:     %.3f\n", m.SharpeRatio)
	fmt.Printf("  Max drawdown:     %.2f%%\n", m.MaxDrawdown*100)
	fmt.Printf("  Win rate:         %.1f%%\n", m.WinRate*100)
	fmt.Printf("  Trades:           %d\n", m.TotalTrades)
	fmt.Printf("  Profit factor:    %.2f\n", m.ProfitFactor)
	fmt.Printf("  Expectancy:       %.2f\n", m.Expectancy)
}
