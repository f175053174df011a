// Package broker implements the Broker Simulator (spec.md §4.4): a
// deterministic single-instrument event loop over a DailySignalFrame that
// applies stop policy, execution-price/feasibility rules, position sizing,
// fees/tax/slippage, and final-bar settlement to produce a trade ledger and
// an equity curve.
package broker

import (
	"math"
	"time"

	"github.com/sawpanic/backtestlab/internal/domain"
)

// Result is the Broker Simulator's output (§4.4): a chronologically
// ordered trade list and an equity curve indexed by date.
type Result struct {
	Trades []domain.Trade
	Equity []domain.EquityPoint
}

// Simulator runs one evaluation of a DailySignalFrame against a
// BrokerConfig.
type Simulator struct {
	config domain.BrokerConfig
}

// New constructs a Simulator. Callers should have already called
// config.Validate().
func New(config domain.BrokerConfig) *Simulator {
	return &Simulator{config: config}
}

type positionState struct {
	cash          float64
	inPosition    bool
	shares        int64
	entryPrice    float64
	entryDate     time.Time
	hadRoundTrip  bool
	hasLastExit   bool
	lastExitDate  time.Time
}

// Run executes the event loop described in §4.4 over frame, starting from
// initialCapital. It returns domain.Invariant if the zero-trade /
// equity-unchanged consistency check fails.
func (s *Simulator) Run(frame *domain.DailySignalFrame, initialCapital float64) (*Result, error) {
	n := frame.Len()
	st := &positionState{cash: initialCapital}

	var trades []domain.Trade
	equity := make([]domain.EquityPoint, 0, n)

	for i := 0; i < n; i++ {
		row := frame.Rows[i]

		signal := row.Signal
		tags := append([]string{}, row.ReasonTags...)

		if st.inPosition {
			signal, tags = s.applyStops(row, st.entryPrice, signal, tags)
		}

		execPrice, execDate, tradeable := s.executionTarget(frame, i, row, signal)

		if !tradeable {
			equity = append(equity, s.markEquity(row.Date, row.Close, st))
			continue
		}

		canReenter := true
		if st.hasLastExit && s.config.ReentryCooldownDays > 0 {
			daysSince := int(row.Date.Sub(st.lastExitDate).Hours() / 24)
			if daysSince < s.config.ReentryCooldownDays {
				canReenter = false
			}
		}

		execVolume := s.executionVolume(frame, i, execDate)

		switch {
		case signal == 1 && !st.inPosition:
			if st.hadRoundTrip && !s.config.AllowReentry {
				break
			}
			if !canReenter {
				break
			}
			if trade := s.executeBuy(execDate, execPrice, st.cash, execVolume, row.ATR, tags); trade != nil {
				trades = append(trades, *trade)
				st.cash -= trade.GrossValue + trade.Fee + trade.SlippageCost
				st.shares = trade.Shares
				st.entryPrice = trade.Price
				st.entryDate = execDate
				st.inPosition = true
			}
		case signal == 1 && st.inPosition && s.config.AllowPyramid:
			if trade := s.executeBuy(execDate, execPrice, st.cash, execVolume, row.ATR, tags); trade != nil {
				trades = append(trades, *trade)
				st.cash -= trade.GrossValue + trade.Fee + trade.SlippageCost
				totalShares := st.shares + trade.Shares
				st.entryPrice = (st.entryPrice*float64(st.shares) + trade.Price*float64(trade.Shares)) / float64(totalShares)
				st.shares = totalShares
			}
		case signal == -1 && st.inPosition:
			if trade := s.executeSell(execDate, execPrice, st.shares, tags); trade != nil {
				trades = append(trades, *trade)
				st.cash += trade.GrossValue - trade.Fee - trade.Tax - trade.SlippageCost
				st.shares = 0
				st.inPosition = false
				st.hadRoundTrip = true
				st.hasLastExit = true
				st.lastExitDate = execDate
			}
		}

		equity = append(equity, s.markEquity(row.Date, row.Close, st))
	}

	if st.inPosition && n > 0 {
		last := frame.Rows[n-1]
		trade := s.executeSell(last.Date, last.Close, st.shares, []string{"force_close"})
		if trade != nil {
			trades = append(trades, *trade)
			st.cash += trade.GrossValue - trade.Fee - trade.Tax - trade.SlippageCost
			st.shares = 0
			st.inPosition = false
			if len(equity) > 0 {
				equity[len(equity)-1] = domain.EquityPoint{
					Date:           last.Date,
					Equity:         st.cash,
					Cash:           st.cash,
					PositionShares: 0,
					PositionValue:  0,
					Price:          last.Close,
				}
			}
		}
	}

	if len(trades) == 0 && len(equity) > 0 {
		finalEquity := equity[len(equity)-1].Equity
		if math.Abs(finalEquity-initialCapital) > 0.01 {
			return nil, domain.Invariant("equity changed with zero trades: initial=%.2f final=%.2f", initialCapital, finalEquity)
		}
	}

	return &Result{Trades: trades, Equity: equity}, nil
}

func (s *Simulator) markEquity(date time.Time, price float64, st *positionState) domain.EquityPoint {
	positionValue := 0.0
	shares := int64(0)
	if st.inPosition {
		positionValue = float64(st.shares) * price
		shares = st.shares
	}
	return domain.EquityPoint{
		Date:           date,
		Equity:         st.cash + positionValue,
		Cash:           st.cash,
		PositionShares: shares,
		PositionValue:  positionValue,
		Price:          price,
	}
}

// applyStops forces a sell signal with the appropriate tag when a stop or
// take-profit threshold is breached (§4.4). ATR-multiple mode takes
// priority over percentage mode when set; if it is set but ATR is not yet
// defined, the stop is inactive that bar rather than falling back to
// percentage mode.
func (s *Simulator) applyStops(row domain.DailySignal, entryPrice float64, signal int, tags []string) (int, []string) {
	if entryPrice <= 0 {
		return signal, tags
	}

	atrMode := s.config.StopLossATRMult != nil || s.config.TakeProfitATRMult != nil
	if atrMode {
		if domain.IsInvalid(row.ATR) || row.ATR <= 0 {
			return signal, tags
		}
		diff := row.Close - entryPrice
		if s.config.StopLossATRMult != nil && diff <= -*s.config.StopLossATRMult*row.ATR {
			return -1, append(tags, "stop_loss_atr")
		}
		if s.config.TakeProfitATRMult != nil && diff >= *s.config.TakeProfitATRMult*row.ATR {
			return -1, append(tags, "take_profit_atr")
		}
		return signal, tags
	}

	ret := (row.Close - entryPrice) / entryPrice
	if s.config.StopLossPct != nil && ret <= -*s.config.StopLossPct {
		return -1, append(tags, "stop_loss")
	}
	if s.config.TakeProfitPct != nil && ret >= *s.config.TakeProfitPct {
		return -1, append(tags, "take_profit")
	}
	return signal, tags
}

// executionTarget resolves the execution price/date/feasibility for bar i
// per the execution_price policy and limit-up/down sealing rule (§4.4).
func (s *Simulator) executionTarget(frame *domain.DailySignalFrame, i int, row domain.DailySignal, signal int) (price float64, date time.Time, tradeable bool) {
	n := frame.Len()

	if s.config.ExecutionPrice == domain.ExecutionClose || i >= n-1 {
		return row.Close, row.Date, true
	}

	next := frame.Rows[i+1]
	execPrice := next.Open
	if execPrice <= 0 {
		execPrice = next.Close
	}
	execDate := next.Date

	if s.config.EnableLimitUpDown && row.PrevClose > 0 {
		limitUp := row.PrevClose * (1 + s.config.LimitUpDownPct)
		limitDown := row.PrevClose * (1 - s.config.LimitUpDownPct)

		isLimitUp := execPrice >= limitUp*0.999 && math.Abs(next.High-limitUp)/limitUp < 0.001
		isLimitDown := execPrice <= limitDown*1.001 && math.Abs(next.Low-limitDown)/limitDown < 0.001

		if (signal == 1 && isLimitUp) || (signal == -1 && isLimitDown) {
			return 0, time.Time{}, false
		}
	}

	return execPrice, execDate, true
}

// executionVolume returns the volume of the bar the trade actually fills
// on, used by the volume-participation cap. This corrects an inconsistency
// in the reference implementation, which always consulted the next bar's
// volume even when executing at the current bar's close; here the cap uses
// whichever bar's OHLCV the fill actually happened on (§4.4:
// "execution_bar.volume").
func (s *Simulator) executionVolume(frame *domain.DailySignalFrame, i int, execDate time.Time) int64 {
	if i+1 < frame.Len() && frame.Rows[i+1].Date.Equal(execDate) {
		return frame.Rows[i+1].Volume
	}
	return frame.Rows[i].Volume
}

func (s *Simulator) lot() int64 {
	if s.config.LotSize > 0 {
		return int64(s.config.LotSize)
	}
	return 1
}

// executeBuy sizes and prices a buy fill (§4.4 Position sizing / fees).
func (s *Simulator) executeBuy(date time.Time, price, cash float64, volume int64, atr float64, tags []string) *domain.Trade {
	if cash <= 0 || price <= 0 {
		return nil
	}
	lot := s.lot()
	slippagePct := s.config.SlippageBps / 1e4
	execPrice := price * (1 + slippagePct)

	shares := s.sizeBuy(execPrice, cash, atr, lot)

	if s.config.EnableVolumeConstraint && volume > 0 {
		maxShares := int64(float64(volume) * s.config.MaxParticipationRate)
		if shares > maxShares {
			shares = maxShares
		}
		shares = (shares / lot) * lot
	}
	if shares <= 0 {
		return nil
	}

	value := float64(shares) * execPrice
	fee := math.Max(value*s.config.FeeBps/1e4, s.config.FeeFloor)
	slippageCost := float64(shares) * price * slippagePct
	totalCost := value + fee + slippageCost

	if totalCost > cash {
		shares = int64((cash-fee)/execPrice/float64(lot)) * lot
		if shares <= 0 {
			return nil
		}
		value = float64(shares) * execPrice
		fee = math.Max(value*s.config.FeeBps/1e4, s.config.FeeFloor)
		slippageCost = float64(shares) * price * slippagePct
	}

	return &domain.Trade{
		Date:         date,
		Kind:         domain.TradeBuy,
		Price:        execPrice,
		Shares:       shares,
		GrossValue:   value,
		Fee:          fee,
		SlippageCost: slippageCost,
		ReasonTags:   tags,
		Signal:       1,
	}
}

func (s *Simulator) sizeBuy(execPrice, cash, atr float64, lot int64) int64 {
	switch s.config.SizingMode {
	case domain.SizingFixed:
		if s.config.FixedAmount == nil {
			return 0
		}
		return int64(*s.config.FixedAmount/execPrice/float64(lot)) * lot
	case domain.SizingRiskBased:
		if s.config.RiskPct == nil {
			return 0
		}
		distance := s.stopDistancePerShare(execPrice, atr)
		if distance <= 0 {
			return 0
		}
		totalRisk := cash * *s.config.RiskPct
		return int64(totalRisk/distance/float64(lot)) * lot
	default: // SizingAllIn
		return int64(cash/execPrice/float64(lot)) * lot
	}
}

// stopDistancePerShare is the currency-per-share stop distance risk_based
// sizing divides by: the ATR-multiple distance when an ATR stop is
// configured and ATR is defined, else the percentage-stop distance (§4.4).
func (s *Simulator) stopDistancePerShare(execPrice, atr float64) float64 {
	if s.config.StopLossATRMult != nil && !domain.IsInvalid(atr) && atr > 0 {
		return *s.config.StopLossATRMult * atr
	}
	if s.config.StopLossPct != nil {
		return execPrice * *s.config.StopLossPct
	}
	return 0
}

// executeSell prices a sell fill, deducting fee and transaction tax (§4.4).
func (s *Simulator) executeSell(date time.Time, price float64, shares int64, tags []string) *domain.Trade {
	if shares <= 0 || price <= 0 {
		return nil
	}
	slippagePct := s.config.SlippageBps / 1e4
	execPrice := price * (1 - slippagePct)

	value := float64(shares) * execPrice
	fee := math.Max(value*s.config.FeeBps/1e4, s.config.FeeFloor)
	tax := value * s.config.TaxRate
	slippageCost := float64(shares) * price * slippagePct

	return &domain.Trade{
		Date:         date,
		Kind:         domain.TradeSell,
		Price:        execPrice,
		Shares:       shares,
		GrossValue:   value,
		Fee:          fee,
		Tax:          tax,
		SlippageCost: slippageCost,
		ReasonTags:   tags,
		Signal:       -1,
	}
}
