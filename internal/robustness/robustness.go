// Package robustness implements the Robustness Analyzer (spec.md §4.6):
// per-fold walk-forward degradation, cross-fold consistency, and the
// composite overfitting-risk score derived from both.
package robustness

import (
	"math"

	"github.com/sawpanic/backtestlab/internal/domain"
)

// FoldDegradation computes one fold's walk-forward degradation (§4.6).
// Sharpe is the preferred signal; if the train Sharpe is exactly zero the
// total return is used for both sides instead, since a zero Sharpe usually
// means "no trades" rather than "neutral performance" and dividing by it
// would be meaningless. When the chosen train metric is itself ~0, the
// fold is treated as unmeasurable (no degradation), not as infinite
// degradation.
func FoldDegradation(trainSharpe, testSharpe, trainReturn, testReturn float64) float64 {
	trainMetric, testMetric := trainSharpe, testSharpe
	if trainSharpe == 0.0 {
		trainMetric, testMetric = trainReturn, testReturn
	}

	if math.Abs(trainMetric) < 1e-10 {
		return 0.0
	}

	degradation := (trainMetric - testMetric) / math.Abs(trainMetric)
	if degradation < 0 {
		degradation = 0.0
	}
	if degradation > 1 {
		degradation = 1.0
	}
	return degradation
}

// FoldPerformance is the pair of metrics needed from one walk-forward fold
// to compute cross-fold consistency.
type FoldPerformance struct {
	TestSharpe float64
	TestReturn float64
}

// Consistency computes the fold-consistency statistic (§4.6): the clamped
// sample standard deviation of test-window Sharpe ratios, falling back to
// total return when every fold's Sharpe is exactly zero. Returns false when
// fewer than two folds are supplied — "not defined" is a distinct state
// from a computed zero.
func Consistency(folds []FoldPerformance) (value float64, defined bool) {
	if len(folds) < 2 {
		return 0, false
	}

	allSharpeZero := true
	values := make([]float64, len(folds))
	for i, f := range folds {
		values[i] = f.TestSharpe
		if f.TestSharpe != 0.0 {
			allSharpeZero = false
		}
	}
	if allSharpeZero {
		for i, f := range folds {
			values[i] = f.TestReturn
		}
	}

	std := sampleStdDev(values)
	normalized := math.Abs(std)
	if normalized > 1.0 {
		normalized = 1.0
	}
	return normalized, true
}

func sampleStdDev(xs []float64) float64 {
	n := float64(len(xs))
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= n

	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / (n - 1))
}

// riskSignal names one of the three overfitting-risk inputs, used to drive
// warning/recommendation text.
type riskSignal string

const (
	signalParameterSensitivity riskSignal = "parameter_sensitivity"
	signalDegradation          riskSignal = "degradation"
	signalConsistency          riskSignal = "consistency_std"
)

type thresholds struct {
	warn float64
	high float64
}

var signalThresholds = map[riskSignal]thresholds{
	signalParameterSensitivity: {warn: 0.15, high: 0.30},
	signalDegradation:          {warn: 0.20, high: 0.40},
	signalConsistency:          {warn: 0.30, high: 0.50},
}

// Inputs bundles the three optional overfitting-risk signals (§4.6). A nil
// pointer means the signal is unavailable for this run, not zero.
type Inputs struct {
	Degradation          *float64
	ConsistencyStd       *float64
	ParameterSensitivity *float64
}

// AssessOverfittingRisk computes the composite risk score (§4.6): each
// available signal contributes 0, 1, or 2 points at its own thresholds,
// summed and capped at 10; the risk level follows from the total. A
// missing signal contributes nothing and is listed in MissingData rather
// than assumed worst-case or best-case.
func AssessOverfittingRisk(in Inputs) domain.OverfittingRiskReport {
	var score float64
	var triggered []riskSignal
	var missing []string

	consider := func(name riskSignal, value *float64, label string) {
		if value == nil {
			missing = append(missing, label)
			return
		}
		t := signalThresholds[name]
		v := math.Abs(*value)
		switch {
		case v >= t.high:
			score += 2
			triggered = append(triggered, name)
		case v >= t.warn:
			score += 1
			triggered = append(triggered, name)
		}
	}

	consider(signalParameterSensitivity, in.ParameterSensitivity, "parameter sensitivity (requires an optimizer pass)")
	consider(signalDegradation, in.Degradation, "walk-forward degradation")
	consider(signalConsistency, in.ConsistencyStd, "fold consistency")

	if score > 10 {
		score = 10
	}

	level := domain.RiskLow
	switch {
	case score >= 4:
		level = domain.RiskHigh
	case score >= 2:
		level = domain.RiskMedium
	}

	return domain.OverfittingRiskReport{
		RiskLevel: level,
		RiskScore: score,
		Metrics: domain.OverfittingRiskMetrics{
			Degradation:          in.Degradation,
			ConsistencyStd:       in.ConsistencyStd,
			ParameterSensitivity: in.ParameterSensitivity,
		},
		Warnings:        warningsFor(triggered, level),
		Recommendations: recommendationsFor(level, missing),
		MissingData:     missing,
	}
}

func warningsFor(triggered []riskSignal, level domain.RiskLevel) []string {
	var out []string
	for _, sig := range triggered {
		switch sig {
		case signalParameterSensitivity:
			out = append(out, "results are sensitive to small parameter changes — the strategy may be curve-fit to this sample")
		case signalDegradation:
			out = append(out, "out-of-sample performance degrades materially versus the training window")
		case signalConsistency:
			out = append(out, "out-of-sample performance is inconsistent across folds")
		}
	}
	if level == domain.RiskHigh && len(out) == 0 {
		out = append(out, "overfitting risk score crossed the high threshold")
	}
	return out
}

func recommendationsFor(level domain.RiskLevel, missing []string) []string {
	var out []string
	switch level {
	case domain.RiskHigh:
		out = append(out,
			"do not promote this strategy on the current evidence",
			"widen the walk-forward window or add more out-of-sample folds before re-evaluating",
			"simplify the parameter set and re-check sensitivity",
		)
	case domain.RiskMedium:
		out = append(out,
			"review the flagged signals before promoting",
			"consider an additional out-of-sample period to confirm stability",
		)
	default:
		out = append(out, "no additional action required based on overfitting risk")
	}
	if len(missing) > 0 {
		out = append(out, "missing inputs limited this assessment: "+joinComma(missing))
	}
	return out
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
