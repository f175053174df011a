package domain

import "time"

// TradeKind distinguishes the direction of a Trade.
type TradeKind string

const (
	TradeBuy  TradeKind = "buy"
	TradeSell TradeKind = "sell"
)

// Trade is one realized fill. Fees and taxes are never embedded in Price;
// Shares is always positive.
type Trade struct {
	Date         time.Time
	Kind         TradeKind
	Price        float64
	Shares       int64
	GrossValue   float64
	Fee          float64
	Tax          float64
	SlippageCost float64
	ReasonTags   []string
	Signal       int
}

// EquityPoint is one bar's equity snapshot. Invariant:
// Equity == Cash + PositionShares*Price (holds by construction in the broker
// simulator's markEquity; it is not checked separately).
type EquityPoint struct {
	Date           time.Time
	Equity         float64
	Cash           float64
	PositionShares int64
	PositionValue  float64
	Price          float64
}

// TradeReport is one round trip, pairing a buy with its closing sell FIFO.
type TradeReport struct {
	EntryDate       time.Time
	ExitDate        time.Time
	EntryPrice      float64
	ExitPrice       float64
	Shares          int64
	GrossProfit     float64
	NetProfit       float64
	ReturnPct       float64
	HoldingDays     int
	ReasonTagsEntry []string
	ReasonTagsExit  []string
}
