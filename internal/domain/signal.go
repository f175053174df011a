package domain

import "time"

// DailySignal is one bar's trinary decision plus the scores and tags that
// produced it (§3).
type DailySignal struct {
	Date           time.Time
	Signal         int // -1 sell, 0 hold, +1 buy
	TotalScore     float64
	IndicatorScore float64
	PatternScore   float64
	VolumeScore    float64
	ReasonTags     []string
	RegimeMatch    bool

	// Carried through for the broker simulator, which needs the bar's OHLCV.
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
	PrevClose float64
	ATR       float64 // Invalid if not yet defined
}

// DailySignalFrame is the Signal Engine's output, aligned 1:1 with the input
// bars.
type DailySignalFrame struct {
	Rows []DailySignal
}

// Len returns the number of rows in the frame.
func (f *DailySignalFrame) Len() int { return len(f.Rows) }
