// Package sop implements the SOP Validator (spec.md §4.9): the promotion
// gate that keeps a strategy from advancing past backtesting on too thin a
// sample, too short a window, or too few walk-forward folds, plus the
// supplemental overfitting-risk, baseline-comparison, and behavior-health
// checks research promotion relies on.
package sop

import (
	"fmt"

	"github.com/sawpanic/backtestlab/internal/domain"
)

// MinTrades, MinWindowDays, and MinWalkForwardFolds are the hard gates a
// backtest result must clear before SOP considers the sample sufficient.
const (
	MinTrades           = 10
	MinWindowDays       = 90
	MinWalkForwardFolds = 3
)

// Report is the outcome of ValidateBacktestResult; its fields map 1:1 onto
// domain.BacktestReport's validation fields.
type Report struct {
	Status                  domain.ValidationStatus
	SampleInsufficientFlags map[string]bool
	Messages                []string
	CanPromote              bool
}

// ValidateBacktestResult runs the three sample-sufficiency gates (trade
// count, window length, walk-forward fold count) plus the two advisory
// warnings (multiple changed layers, walk-forward not executed) and derives
// the overall ValidationStatus and promotion verdict (§4.9).
func ValidateBacktestResult(totalTrades int, window domain.DateRange, walkForwardFolds []domain.WalkForwardFold, changedLayers []string, walkForwardExecuted bool) Report {
	var messages []string
	flags := map[string]bool{}

	if totalTrades < MinTrades {
		flags["trade_count"] = true
		messages = append(messages,
			fmt.Sprintf("insufficient sample: only %d trades, too few to judge strategy validity reliably", totalTrades),
			"consider widening the backtest window, loosening buy_score/sell_score thresholds, or reviewing the universe",
		)
	} else {
		flags["trade_count"] = false
	}

	days := int(window.End.Sub(window.Start).Hours() / 24)
	if days < MinWindowDays {
		flags["period_too_short"] = true
		messages = append(messages,
			fmt.Sprintf("insufficient sample: backtest window is only %d days, too short to validate robustness", days),
			"backtest at least 6 months of data",
		)
	} else {
		flags["period_too_short"] = false
	}

	if walkForwardFolds != nil {
		if len(walkForwardFolds) < MinWalkForwardFolds {
			flags["wf_fold_insufficient"] = true
			messages = append(messages,
				fmt.Sprintf("insufficient sample: walk-forward produced only %d folds, too few to assess robustness reliably", len(walkForwardFolds)),
				"widen the backtest window or adjust train/test lengths to reach at least 3 folds",
			)
		} else {
			flags["wf_fold_insufficient"] = false
		}
	} else {
		flags["wf_fold_insufficient"] = false
	}

	if len(changedLayers) > 1 {
		messages = append(messages,
			fmt.Sprintf("warning: this run changed multiple layers at once (%s)", joinComma(changedLayers)),
			"change one layer at a time so results stay attributable",
		)
	}

	if !walkForwardExecuted {
		messages = append(messages,
			"warning: walk-forward validation was not run, robustness cannot be assessed",
			"run walk-forward validation to confirm the strategy is robust",
		)
	}

	status := determineStatus(flags, changedLayers, walkForwardExecuted)

	return Report{
		Status:                  status,
		SampleInsufficientFlags: flags,
		Messages:                messages,
		CanPromote:              status != domain.ValidationFail,
	}
}

func determineStatus(flags map[string]bool, changedLayers []string, walkForwardExecuted bool) domain.ValidationStatus {
	for _, insufficient := range flags {
		if insufficient {
			return domain.ValidationFail
		}
	}
	if len(changedLayers) > 1 || !walkForwardExecuted {
		return domain.ValidationWarning
	}
	return domain.ValidationPass
}

// OverfittingRiskCheck is the outcome of CheckOverfittingRisk.
type OverfittingRiskCheck struct {
	RiskLevel  domain.RiskLevel
	CanPromote bool
	Messages   []string
}

// CheckOverfittingRisk enforces the SOP's hard gate: high overfitting risk
// blocks promotion outright; medium/low pass with an advisory note. A nil
// report (no overfitting assessment was run) defaults to allowing
// promotion, since the gate can only block on evidence it actually has.
func CheckOverfittingRisk(risk *domain.OverfittingRiskReport) OverfittingRiskCheck {
	if risk == nil {
		return OverfittingRiskCheck{
			RiskLevel:  "unknown",
			CanPromote: true,
			Messages:   []string{"no overfitting risk assessment available"},
		}
	}

	switch risk.RiskLevel {
	case domain.RiskHigh:
		return OverfittingRiskCheck{
			RiskLevel:  domain.RiskHigh,
			CanPromote: false,
			Messages: []string{
				"overfitting risk: high",
				"must be sent back for revision, cannot proceed to promotion",
				"re-run parameter optimization together with walk-forward validation",
			},
		}
	case domain.RiskMedium:
		return OverfittingRiskCheck{
			RiskLevel:  domain.RiskMedium,
			CanPromote: true,
			Messages:   []string{"overfitting risk: medium", "may proceed, but further validation is recommended"},
		}
	case domain.RiskLow:
		return OverfittingRiskCheck{
			RiskLevel:  domain.RiskLow,
			CanPromote: true,
			Messages:   []string{"overfitting risk: low"},
		}
	default:
		return OverfittingRiskCheck{
			RiskLevel:  risk.RiskLevel,
			CanPromote: true,
			Messages:   []string{fmt.Sprintf("overfitting risk: %s", risk.RiskLevel)},
		}
	}
}

// BaselineComparisonCheck is the outcome of CheckBaselineComparison.
type BaselineComparisonCheck struct {
	IsBetterThanBaseline bool
	Messages             []string
}

// CheckBaselineComparison reports whether the strategy beat buy-and-hold. A
// nil comparison (none was computed) defaults to passing, since there is no
// evidence to fail it on.
func CheckBaselineComparison(cmp *domain.BaselineComparison) BaselineComparisonCheck {
	if cmp == nil {
		return BaselineComparisonCheck{IsBetterThanBaseline: true, Messages: []string{"no baseline comparison available"}}
	}
	if cmp.Outperforms {
		return BaselineComparisonCheck{IsBetterThanBaseline: true, Messages: []string{"strategy outperforms buy-and-hold"}}
	}
	return BaselineComparisonCheck{
		IsBetterThanBaseline: false,
		Messages: []string{
			"strategy underperforms buy-and-hold",
			"revisit the scoring or execution layer, or consider a different strategy",
		},
	}
}

// StrategyHorizon classifies the expected holding-period range a strategy
// is designed around, used by BehaviorHealth to judge avgHoldingDays.
type StrategyHorizon string

const (
	HorizonShortTerm  StrategyHorizon = "short_term"
	HorizonMediumTerm StrategyHorizon = "medium_term"
	HorizonLongTerm   StrategyHorizon = "long_term"
)

var horizonRanges = map[StrategyHorizon][2]float64{
	HorizonShortTerm:  {3, 10},
	HorizonMediumTerm: {10, 30},
	HorizonLongTerm:   {30, 1000},
}

// BehaviorHealthCheck is the outcome of BehaviorHealth.
type BehaviorHealthCheck struct {
	TradeCountOK  bool
	HoldingDaysOK bool
	Messages      []string
}

// BehaviorHealth scores whether a strategy's trading cadence looks healthy:
// trade count in [10,100], and average holding days inside the expected
// range for its horizon (§4.9 supplemental check).
func BehaviorHealth(totalTrades int, avgHoldingDays float64, horizon StrategyHorizon) BehaviorHealthCheck {
	var messages []string

	tradeCountOK := totalTrades >= 10 && totalTrades <= 100
	switch {
	case totalTrades < 10:
		messages = append(messages, fmt.Sprintf("too few trades (%d), signal is too sparse", totalTrades))
	case !tradeCountOK:
		messages = append(messages, fmt.Sprintf("too many trades (%d), may be overtrading", totalTrades))
	default:
		messages = append(messages, fmt.Sprintf("trade count is reasonable (%d)", totalTrades))
	}

	bounds, ok := horizonRanges[horizon]
	if !ok {
		bounds = [2]float64{3, 30}
	}
	holdingDaysOK := avgHoldingDays >= bounds[0] && avgHoldingDays <= bounds[1]
	if !holdingDaysOK {
		messages = append(messages, fmt.Sprintf("average holding period (%.1f days) does not fit the %s horizon", avgHoldingDays, horizon))
	} else {
		messages = append(messages, fmt.Sprintf("average holding period is reasonable (%.1f days)", avgHoldingDays))
	}

	return BehaviorHealthCheck{TradeCountOK: tradeCountOK, HoldingDaysOK: holdingDaysOK, Messages: messages}
}

func joinComma(xs []string) string {
	out := ""
	for i, x := range xs {
		if i > 0 {
			out += ", "
		}
		out += x
	}
	return out
}
