// Package engine wires the four pipeline stages — indicators, scoring,
// signal, broker — into one call, and derives the PerformanceMetrics for
// the result. The walk-forward driver and the grid-search optimizer both
// run this same core over different date windows/parameter sets, never a
// parallel implementation of the pipeline.
package engine

import (
	"github.com/sawpanic/backtestlab/internal/broker"
	"github.com/sawpanic/backtestlab/internal/domain"
	"github.com/sawpanic/backtestlab/internal/indicators"
	"github.com/sawpanic/backtestlab/internal/metrics"
	"github.com/sawpanic/backtestlab/internal/performance"
	"github.com/sawpanic/backtestlab/internal/regime"
	"github.com/sawpanic/backtestlab/internal/scoring"
	"github.com/sawpanic/backtestlab/internal/signal"
)

// Result is one full core evaluation: the broker's trade ledger and equity
// curve, plus the derived performance metrics.
type Result struct {
	Trades  []domain.Trade
	Equity  []domain.EquityPoint
	Metrics domain.PerformanceMetrics
}

// Run executes indicators -> scoring -> signal -> broker -> metrics over
// bars, under spec and brokerCfg, starting from initialCapital.
func Run(bars []domain.Bar, spec domain.StrategySpec, brokerCfg domain.BrokerConfig, initialCapital float64) (*Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := brokerCfg.Validate(); err != nil {
		return nil, err
	}

	series, err := domain.NewSeries(bars)
	if err != nil {
		return nil, err
	}

	frame := domain.NewIndicatorFrame(series)
	if err := indicators.Compute(frame, spec.Config.Technical, spec.Config.Patterns); err != nil {
		return nil, err
	}
	if err := signal.ValidatePatterns(spec.Config.Patterns.Selected); err != nil {
		return nil, err
	}

	regimes := regime.New(regime.DefaultDetectorConfig()).ClassifyFrame(frame)
	activeRegime := dominantRegime(regimes)

	scored := scoring.New(spec.Config.Signals.Weights).Score(frame, spec.Regime, activeRegime)

	sig := signal.New(spec.Params).Run(scored)

	sim := broker.New(brokerCfg)
	brokerResult, err := sim.Run(sig, initialCapital)
	if err != nil {
		return nil, err
	}

	perfMetrics := performance.New(0).Summarize(brokerResult.Trades, brokerResult.Equity, initialCapital)

	return &Result{
		Trades:  brokerResult.Trades,
		Equity:  brokerResult.Equity,
		Metrics: perfMetrics,
	}, nil
}

// RunWithMetrics runs Run while recording its duration and outcome on
// registry ("ok" or "error"). registry may be nil, in which case this is
// identical to Run.
func RunWithMetrics(bars []domain.Bar, spec domain.StrategySpec, brokerCfg domain.BrokerConfig, initialCapital float64, registry *metrics.Registry) (*Result, error) {
	if registry == nil {
		return Run(bars, spec, brokerCfg, initialCapital)
	}
	timer := registry.StartEvaluation()
	result, err := Run(bars, spec, brokerCfg, initialCapital)
	if err != nil {
		timer.Stop("error")
		return nil, err
	}
	timer.Stop("ok")
	return result, nil
}

// dominantRegime picks the most frequently classified regime across the
// window, the single active-regime tag the Scoring Engine's per-window
// rescaling rule expects (§4.2). Ties resolve to whichever regime reaches
// the max count first in the frame's chronological order.
func dominantRegime(regimes []domain.Regime) domain.Regime {
	if len(regimes) == 0 {
		return domain.RegimeChoppy
	}
	counts := make(map[domain.Regime]int, 5)
	best := regimes[0]
	bestCount := 0
	for _, r := range regimes {
		counts[r]++
		if counts[r] > bestCount {
			bestCount = counts[r]
			best = r
		}
	}
	return best
}
