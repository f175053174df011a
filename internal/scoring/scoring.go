// Package scoring implements the Scoring Engine (spec.md §4.2): three
// bounded [0,100] sub-scores composed into TotalScore, optionally rescaled
// into FinalScore when the active regime matches the strategy spec.
package scoring

import (
	"math"

	"github.com/sawpanic/backtestlab/internal/domain"
)

// RegimeScaleFactor is the positive (>1) multiplier applied to TotalScore
// when the evaluation's active regime is one the strategy spec declares it
// applies to (§4.2).
const RegimeScaleFactor = 1.15

// patternDecayHalfLifeBars controls how quickly a fired pattern's
// contribution to PatternScore decays as more recent bars are weighted
// higher than older ones within the lookback window.
const patternDecayHalfLifeBars = 10.0

const patternLookback = 20

// Engine computes per-bar sub-scores and composites them into TotalScore.
type Engine struct {
	weights domain.Weights
}

// New constructs a scoring Engine from a validated Weights triple.
func New(weights domain.Weights) *Engine {
	return &Engine{weights: weights}
}

// Score transforms an IndicatorFrame into a ScoredFrame, optionally scaling
// TotalScore into FinalScore when activeRegime matches one of specRegimes.
func (e *Engine) Score(frame *domain.IndicatorFrame, specRegimes []domain.Regime, activeRegime domain.Regime) *domain.ScoredFrame {
	n := frame.Len()
	out := &domain.ScoredFrame{Rows: make([]domain.ScoredRow, n)}

	matches := regimeMatches(specRegimes, activeRegime)

	for i := 0; i < n; i++ {
		row := frame.Rows[i]
		indicatorScore := e.indicatorScore(row)
		patternScore := e.patternScore(frame.Rows, i)
		volumeScore := e.volumeScore(row)

		total := e.weights.Pattern*patternScore + e.weights.Technical*indicatorScore + e.weights.Volume*volumeScore
		total = clamp(total, 0, 100)

		final := total
		if matches {
			final = clamp(total*RegimeScaleFactor, 0, 100)
		}

		out.Rows[i] = domain.ScoredRow{
			IndicatorRow:   row,
			IndicatorScore: indicatorScore,
			PatternScore:   patternScore,
			VolumeScore:    volumeScore,
			TotalScore:     total,
			FinalScore:     final,
			RegimeMatch:    matches,
		}
	}
	return out
}

func regimeMatches(specRegimes []domain.Regime, active domain.Regime) bool {
	if active == "" {
		return false
	}
	for _, r := range specRegimes {
		if r == active {
			return true
		}
	}
	return false
}

// indicatorScore combines normalized indicator readings into [0,100]. Each
// contributing indicator maps through a monotone bounded function and the
// valid ones are averaged. Missing (invalid) readings are left out of the
// average; no forward/backward fill from neighbouring bars is applied, and a
// row with no valid indicator scores the neutral midpoint 50.
func (e *Engine) indicatorScore(row domain.IndicatorRow) float64 {
	var parts []float64

	if !domain.IsInvalid(row.RSI) {
		// RSI distance from neutral (50): far from neutral in either
		// direction is informative, so score symmetric distance.
		parts = append(parts, clamp(100-math.Abs(row.RSI-50)*2, 0, 100))
	}
	if !domain.IsInvalid(row.MACDHist) {
		// Sign of the MACD histogram: positive momentum scores high.
		if row.MACDHist > 0 {
			parts = append(parts, 70.0)
		} else if row.MACDHist < 0 {
			parts = append(parts, 30.0)
		} else {
			parts = append(parts, 50.0)
		}
	}
	if !domain.IsInvalid(row.ADX) {
		// ADX strength: 0-50+ mapped linearly onto [0,100].
		parts = append(parts, clamp(row.ADX*2, 0, 100))
	}
	if !domain.IsInvalid(row.BBUpper) && !domain.IsInvalid(row.BBLower) && row.BBUpper > row.BBLower {
		// Position within the bands: near the lower band scores high
		// (mean-reversion opportunity), near the upper band scores low.
		pos := (row.Close - row.BBLower) / (row.BBUpper - row.BBLower)
		parts = append(parts, clamp(100-pos*100, 0, 100))
	}
	if !domain.IsInvalid(row.KD_K) {
		parts = append(parts, clamp(100-row.KD_K, 0, 100))
	}

	if len(parts) == 0 {
		return 50.0 // neutral midpoint fill when nothing is valid yet
	}
	sum := 0.0
	for _, p := range parts {
		sum += p
	}
	return sum / float64(len(parts))
}

// patternScore is the decayed proportion (x100) of the trailing lookback
// window where any enabled pattern fired.
func (e *Engine) patternScore(rows []domain.IndicatorRow, i int) float64 {
	start := i - patternLookback + 1
	if start < 0 {
		start = 0
	}
	var weighted, weightSum float64
	for j := start; j <= i; j++ {
		age := float64(i - j)
		weight := math.Pow(0.5, age/patternDecayHalfLifeBars)
		fired := false
		for _, v := range rows[j].Patterns {
			if v {
				fired = true
				break
			}
		}
		if fired {
			weighted += weight
		}
		weightSum += weight
	}
	if weightSum == 0 {
		return 0
	}
	return clamp(weighted/weightSum*100, 0, 100)
}

// volumeScore normalizes the current-volume / trailing-average ratio into
// [0,100]: a ratio of 1.0 (average volume) maps to 50, a ratio of 2.0 or
// higher maps to 100.
func (e *Engine) volumeScore(row domain.IndicatorRow) float64 {
	if domain.IsInvalid(row.VolumeRatio) {
		return 50.0
	}
	return clamp(row.VolumeRatio*50, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
