package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/backtestlab/internal/domain"
)

func baseRow() domain.IndicatorRow {
	return domain.IndicatorRow{
		Bar:     domain.Bar{Close: 100},
		RSI:     50,
		ADX:     domain.Invalid,
		ATR:     domain.Invalid,
		BBUpper: domain.Invalid,
		BBLower: domain.Invalid,
		BBMid:   domain.Invalid,
	}
}

func TestClassifyDefaultsToChoppyWithNoVotes(t *testing.T) {
	d := New(DefaultDetectorConfig())
	assert.Equal(t, domain.RegimeChoppy, d.Classify(baseRow()))
}

func TestClassifyTrendOnHighADX(t *testing.T) {
	d := New(DefaultDetectorConfig())
	row := baseRow()
	row.ADX = 40
	assert.Equal(t, domain.RegimeTrend, d.Classify(row))
}

func TestClassifyHighVolOnWideATR(t *testing.T) {
	d := New(DefaultDetectorConfig())
	row := baseRow()
	row.ATR = 5 // 5/100 = 0.05 >= 0.03 threshold
	assert.Equal(t, domain.RegimeHighVol, d.Classify(row))
}

func TestClassifyReversionOnExtremeRSI(t *testing.T) {
	d := New(DefaultDetectorConfig())
	row := baseRow()
	row.RSI = 20
	assert.Equal(t, domain.RegimeReversion, d.Classify(row))
}

func TestClassifyTrendWinsTiebreakOverHighVol(t *testing.T) {
	d := New(DefaultDetectorConfig())
	row := baseRow()
	row.ADX = 40
	row.ATR = 5
	// Both trend and high_vol have exactly one vote; priority order
	// resolves to trend.
	assert.Equal(t, domain.RegimeTrend, d.Classify(row))
}

func TestClassifyFrameProducesOnePerBar(t *testing.T) {
	d := New(DefaultDetectorConfig())
	frame := &domain.IndicatorFrame{Rows: []domain.IndicatorRow{baseRow(), baseRow()}}
	out := d.ClassifyFrame(frame)
	assert.Len(t, out, 2)
	assert.Equal(t, domain.RegimeChoppy, out[0])
}
