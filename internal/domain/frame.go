package domain

// IndicatorRow is one bar extended with the derived-indicator catalog. Fields
// that have not accumulated enough history hold Invalid (NaN), never a
// silent zero.
type IndicatorRow struct {
	Bar

	RSI         float64
	MACD        float64
	MACDSignal  float64
	MACDHist    float64
	ATR         float64
	ADX         float64
	BBUpper     float64
	BBLower     float64
	BBMid       float64
	KD_K        float64
	KD_D        float64
	MA          map[int]float64 // keyed by window length, e.g. MA[20]
	Patterns    map[string]bool // pattern name -> fired on this bar
	VolumeRatio float64         // current volume / trailing average volume, pre-clamp
}

// IndicatorFrame is the append-only, chronologically ordered output of the
// Indicator & Pattern Layer. A new frame is produced at each stage rather
// than mutating the input in place.
type IndicatorFrame struct {
	Rows []IndicatorRow
}

// NewIndicatorFrame lifts a raw Series into an IndicatorFrame with every
// derived column initialized to Invalid/empty, ready for indicators to fill
// in left-to-right.
func NewIndicatorFrame(series *Series) *IndicatorFrame {
	rows := make([]IndicatorRow, len(series.Bars))
	for i, b := range series.Bars {
		rows[i] = IndicatorRow{
			Bar:         b,
			RSI:         Invalid,
			MACD:        Invalid,
			MACDSignal:  Invalid,
			MACDHist:    Invalid,
			ATR:         Invalid,
			ADX:         Invalid,
			BBUpper:     Invalid,
			BBLower:     Invalid,
			BBMid:       Invalid,
			KD_K:        Invalid,
			KD_D:        Invalid,
			MA:          map[int]float64{},
			Patterns:    map[string]bool{},
			VolumeRatio: Invalid,
		}
	}
	return &IndicatorFrame{Rows: rows}
}

// Len returns the number of rows in the frame.
func (f *IndicatorFrame) Len() int { return len(f.Rows) }

// ScoredRow is one bar extended with the Scoring Engine's sub-scores.
type ScoredRow struct {
	IndicatorRow

	IndicatorScore float64
	PatternScore   float64
	VolumeScore    float64
	TotalScore     float64 // pre-regime composite
	FinalScore     float64 // post-regime-scaling score actually used by the Signal Engine
	RegimeMatch    bool
}

// ScoredFrame is the Scoring Engine's output: an IndicatorFrame with
// TotalScore/FinalScore columns appended.
type ScoredFrame struct {
	Rows []ScoredRow
}

// Len returns the number of rows in the frame.
func (f *ScoredFrame) Len() int { return len(f.Rows) }
