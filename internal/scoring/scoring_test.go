package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/backtestlab/internal/domain"
)

func neutralRow(close float64) domain.IndicatorRow {
	return domain.IndicatorRow{
		Bar:         domain.Bar{Close: close},
		RSI:         domain.Invalid,
		MACDHist:    domain.Invalid,
		ADX:         domain.Invalid,
		BBUpper:     domain.Invalid,
		BBLower:     domain.Invalid,
		KD_K:        domain.Invalid,
		VolumeRatio: domain.Invalid,
		Patterns:    map[string]bool{},
	}
}

func TestIndicatorScoreAllInvalidReturnsNeutral(t *testing.T) {
	e := New(domain.Weights{Pattern: 0.3, Technical: 0.4, Volume: 0.3})
	got := e.indicatorScore(neutralRow(100))
	assert.Equal(t, 50.0, got)
}

func TestIndicatorScoreRSIExtremes(t *testing.T) {
	e := New(domain.Weights{Pattern: 0.3, Technical: 0.4, Volume: 0.3})

	oversold := neutralRow(100)
	oversold.RSI = 10
	overbought := neutralRow(100)
	overbought.RSI = 90

	assert.InDelta(t, 100-(40*2), e.indicatorScore(oversold), 1e-9)
	assert.InDelta(t, 100-(40*2), e.indicatorScore(overbought), 1e-9)
}

func TestVolumeScoreClamps(t *testing.T) {
	e := New(domain.Weights{Pattern: 0.3, Technical: 0.4, Volume: 0.3})

	row := neutralRow(100)
	row.VolumeRatio = 3.0
	assert.Equal(t, 100.0, e.volumeScore(row))

	row.VolumeRatio = 1.0
	assert.Equal(t, 50.0, e.volumeScore(row))

	row.VolumeRatio = domain.Invalid
	assert.Equal(t, 50.0, e.volumeScore(row))
}

func TestPatternScoreWeightsRecentBarsHigher(t *testing.T) {
	e := New(domain.Weights{Pattern: 0.3, Technical: 0.4, Volume: 0.3})

	rows := make([]domain.IndicatorRow, patternLookback)
	for i := range rows {
		rows[i] = neutralRow(100)
	}
	// Fire the pattern only on the oldest bar in the window.
	rows[0].Patterns["double_bottom"] = true
	oldFire := e.patternScore(rows, patternLookback-1)

	rows2 := make([]domain.IndicatorRow, patternLookback)
	for i := range rows2 {
		rows2[i] = neutralRow(100)
	}
	// Fire the pattern on the most recent bar.
	rows2[patternLookback-1].Patterns["double_bottom"] = true
	recentFire := e.patternScore(rows2, patternLookback-1)

	assert.Greater(t, recentFire, oldFire)
}

func TestScoreAppliesRegimeScalingOnlyOnMatch(t *testing.T) {
	e := New(domain.Weights{Pattern: 0.3, Technical: 0.4, Volume: 0.3})

	row := neutralRow(100)
	row.RSI = 10 // push TotalScore comfortably below 100 so scaling is visible
	frame := &domain.IndicatorFrame{Rows: []domain.IndicatorRow{row}}

	matched := e.Score(frame, []domain.Regime{domain.RegimeTrend}, domain.RegimeTrend)
	unmatched := e.Score(frame, []domain.Regime{domain.RegimeTrend}, domain.RegimeChoppy)

	require.Len(t, matched.Rows, 1)
	require.Len(t, unmatched.Rows, 1)

	assert.True(t, matched.Rows[0].RegimeMatch)
	assert.False(t, unmatched.Rows[0].RegimeMatch)
	assert.Equal(t, unmatched.Rows[0].TotalScore, unmatched.Rows[0].FinalScore)
	assert.InDelta(t, matched.Rows[0].TotalScore*RegimeScaleFactor, matched.Rows[0].FinalScore, 1e-9)
}

func TestScoreTotalScoreBounded(t *testing.T) {
	e := New(domain.Weights{Pattern: 0.3, Technical: 0.4, Volume: 0.3})

	row := neutralRow(100)
	row.RSI = 50
	row.ADX = 100 // deliberately out-of-typical-range to probe clamping
	row.VolumeRatio = 10
	frame := &domain.IndicatorFrame{Rows: []domain.IndicatorRow{row}}

	scored := e.Score(frame, nil, domain.RegimeTrend)
	require.Len(t, scored.Rows, 1)
	assert.LessOrEqual(t, scored.Rows[0].TotalScore, 100.0)
	assert.GreaterOrEqual(t, scored.Rows[0].TotalScore, 0.0)
}
