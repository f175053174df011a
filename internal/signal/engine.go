// Package signal implements the Signal Engine (spec.md §4.3): a per-symbol
// state machine over a ScoredFrame that emits the trinary decision
// (-1/0/+1) the Broker Simulator consumes, with confirmation-day counters
// and a cooldown overlay.
package signal

import (
	"time"

	"github.com/sawpanic/backtestlab/internal/domain"
)

// State is the Signal Engine's base position state. Cooldown is not a
// separate State value — it is a transient overlay tracked alongside state,
// mirroring cryptorun's exits package where HardStop/TimeLimit/etc. are
// precedence-ordered checks layered on top of a simple open/closed position,
// not states of their own.
type State int

const (
	Flat State = iota
	Long
)

func (s State) String() string {
	switch s {
	case Flat:
		return "flat"
	case Long:
		return "long"
	default:
		return "unknown"
	}
}

// Engine runs the confirmation-day + cooldown state machine described in
// spec.md §4.3. It holds no reference to a specific symbol; one Engine
// evaluates one ScoredFrame end to end.
type Engine struct {
	params domain.SignalParams

	state State

	buyStreak  int
	sellStreak int

	inCooldown    bool
	cooldownUntil time.Time
}

// New constructs an Engine parameterized by a StrategySpec's SignalParams.
func New(params domain.SignalParams) *Engine {
	return &Engine{params: params, state: Flat}
}

// Run evaluates every bar of a ScoredFrame in order and returns the aligned
// DailySignalFrame.
func (e *Engine) Run(frame *domain.ScoredFrame) *domain.DailySignalFrame {
	out := &domain.DailySignalFrame{Rows: make([]domain.DailySignal, frame.Len())}
	for i, row := range frame.Rows {
		out.Rows[i] = e.step(row)
	}
	return out
}

// step evaluates one bar against the current state and confirmation
// streaks, in the transition order spec.md §4.3 specifies.
func (e *Engine) step(row domain.ScoredRow) domain.DailySignal {
	if e.inCooldown && !row.Date.Before(e.cooldownUntil) {
		e.inCooldown = false
	}

	e.updateStreaks(row.FinalScore)

	sig := 0
	switch e.state {
	case Flat:
		if e.buyStreak >= e.params.BuyConfirmDays && !e.inCooldown {
			sig = 1
			e.state = Long
			e.startCooldown(row.Date)
		}
	case Long:
		if e.sellStreak >= e.params.SellConfirmDays && !e.inCooldown {
			sig = -1
			e.state = Flat
			e.startCooldown(row.Date)
		}
	}

	return domain.DailySignal{
		Date:           row.Date,
		Signal:         sig,
		TotalScore:     row.TotalScore,
		IndicatorScore: row.IndicatorScore,
		PatternScore:   row.PatternScore,
		VolumeScore:    row.VolumeScore,
		ReasonTags:     reasonTags(row),
		RegimeMatch:    row.RegimeMatch,
		Open:           row.Open,
		High:           row.High,
		Low:            row.Low,
		Close:          row.Close,
		Volume:         row.Volume,
		PrevClose:      row.PrevClose,
		ATR:            row.ATR,
	}
}

// updateStreaks advances the consecutive-bars-above/below-threshold
// counters used for confirmation. A bar that fails the threshold resets its
// counter to zero rather than decaying, matching the "consecutive bars"
// wording of §4.3.
func (e *Engine) updateStreaks(finalScore float64) {
	if finalScore >= e.params.BuyScore {
		e.buyStreak++
	} else {
		e.buyStreak = 0
	}
	if finalScore <= e.params.SellScore {
		e.sellStreak++
	} else {
		e.sellStreak = 0
	}
}

// startCooldown records the cooldown window following a trade. Per §4.3,
// this engine chooses the stricter semantics: both opposite-side and
// same-side signals are blocked until the window elapses, so cooldown is
// tracked as a single boolean rather than per-side.
func (e *Engine) startCooldown(tradeDate time.Time) {
	if e.params.CooldownDays <= 0 {
		e.inCooldown = false
		return
	}
	e.inCooldown = true
	e.cooldownUntil = tradeDate.AddDate(0, 0, e.params.CooldownDays)
	// Reset streaks so the just-fired transition doesn't immediately
	// re-trigger once cooldown lifts.
	e.buyStreak = 0
	e.sellStreak = 0
}

// reasonTags is the union of fired indicator/pattern/volume predicates for
// this bar (§4.3), pass-through to downstream consumers (the broker
// simulator attaches stop/take-profit tags of its own later).
func reasonTags(row domain.ScoredRow) []string {
	var tags []string
	if !domain.IsInvalid(row.RSI) {
		if row.RSI <= 30 {
			tags = append(tags, "rsi_oversold")
		} else if row.RSI >= 70 {
			tags = append(tags, "rsi_overbought")
		}
	}
	if !domain.IsInvalid(row.MACDHist) && row.MACDHist > 0 {
		tags = append(tags, "macd_bullish")
	}
	if !domain.IsInvalid(row.ADX) && row.ADX >= 25 {
		tags = append(tags, "adx_trending")
	}
	if !domain.IsInvalid(row.VolumeRatio) && row.VolumeRatio >= 1.5 {
		tags = append(tags, "volume_surge")
	}
	for name, fired := range row.Patterns {
		if fired {
			tags = append(tags, name)
		}
	}
	return tags
}
