// Package performance implements the Performance Analyzer (spec.md §4.5):
// return/risk statistics over an equity curve, FIFO trade pairing into
// round trips, and a buy-and-hold baseline comparison.
package performance

import (
	"math"

	"github.com/sawpanic/backtestlab/internal/domain"
)

// Analyzer computes PerformanceMetrics from a trade ledger and equity
// curve. RiskFreeRate defaults to 0 (§4.5).
type Analyzer struct {
	RiskFreeRate float64
}

// New constructs an Analyzer with the given annual risk-free rate.
func New(riskFreeRate float64) *Analyzer {
	return &Analyzer{RiskFreeRate: riskFreeRate}
}

// Summarize computes the full PerformanceMetrics set for one evaluation.
func (a *Analyzer) Summarize(trades []domain.Trade, equity []domain.EquityPoint, initialCapital float64) domain.PerformanceMetrics {
	var m domain.PerformanceMetrics
	if len(equity) == 0 || initialCapital <= 0 {
		return m
	}

	finalEquity := equity[len(equity)-1].Equity
	m.TotalReturn = (finalEquity - initialCapital) / initialCapital

	days := equity[len(equity)-1].Date.Sub(equity[0].Date).Hours() / 24
	years := days / 365.25
	if years > 0 {
		m.AnnualReturn = math.Pow(finalEquity/initialCapital, 1/years) - 1
	}

	returns := dailyReturns(equity)
	m.SharpeRatio = sharpeRatio(returns, a.RiskFreeRate)
	m.MaxDrawdown = maxDrawdownOf(equityValues(equity))

	reports := PairTrades(trades)
	applyTradeStats(&m, reports)

	return m
}

// PairTrades pairs buy/sell trades FIFO into round trips (§4.5). A dangling
// buy with no matching sell (position still open mid-series — should not
// happen once the broker simulator's final-bar settlement has run) is
// simply left unpaired.
func PairTrades(trades []domain.Trade) []domain.TradeReport {
	var reports []domain.TradeReport
	var open *domain.Trade

	for i := range trades {
		t := trades[i]
		switch t.Kind {
		case domain.TradeBuy:
			if open == nil {
				entry := t
				open = &entry
			} else {
				// A pyramided add-on lot joins the open position; the next
				// sell closes the whole aggregate.
				open.Shares += t.Shares
				open.GrossValue += t.GrossValue
				open.Fee += t.Fee
				open.SlippageCost += t.SlippageCost
				if open.Shares > 0 {
					open.Price = open.GrossValue / float64(open.Shares)
				}
			}
		case domain.TradeSell:
			if open == nil {
				continue
			}
			profit := t.GrossValue - open.GrossValue - open.Fee - t.Fee - t.Tax - open.SlippageCost - t.SlippageCost
			returnPct := 0.0
			if open.GrossValue > 0 {
				returnPct = profit / open.GrossValue
			}
			reports = append(reports, domain.TradeReport{
				EntryDate:       open.Date,
				ExitDate:        t.Date,
				EntryPrice:      open.Price,
				ExitPrice:       t.Price,
				Shares:          t.Shares,
				GrossProfit:     t.GrossValue - open.GrossValue,
				NetProfit:       profit,
				ReturnPct:       returnPct,
				HoldingDays:     int(t.Date.Sub(open.Date).Hours() / 24),
				ReasonTagsEntry: open.ReasonTags,
				ReasonTagsExit:  t.ReasonTags,
			})
			open = nil
		}
	}
	return reports
}

func applyTradeStats(m *domain.PerformanceMetrics, reports []domain.TradeReport) {
	if len(reports) == 0 {
		return
	}

	var wins, losses []float64
	var returns []float64
	for _, r := range reports {
		returns = append(returns, r.ReturnPct)
		if r.NetProfit > 0 {
			wins = append(wins, r.NetProfit)
		} else if r.NetProfit < 0 {
			losses = append(losses, r.NetProfit)
		}
	}

	m.TotalTrades = len(reports)
	m.WinRate = float64(len(wins)) / float64(len(reports))
	m.Expectancy = meanOf(returns)

	totalProfit := sumOf(wins)
	totalLoss := math.Abs(sumOf(losses))
	if totalLoss > 0 {
		m.ProfitFactor = totalProfit / totalLoss
	} else if totalProfit > 0 {
		m.ProfitFactor = totalProfit
	}

	if len(wins) > 0 {
		m.AvgWin = meanOf(wins)
		m.LargestWin = maxOf(wins)
	}
	if len(losses) > 0 {
		m.AvgLoss = meanOf(losses)
		m.LargestLoss = minOf(losses)
	}
}

// BuyHoldReturn computes the baseline PerformanceMetrics (§4.5) from the raw
// price series over the same window the strategy was evaluated on — only
// the return/risk fields are populated; trade-level fields stay zero.
func (a *Analyzer) BuyHoldReturn(bars []domain.Bar) domain.PerformanceMetrics {
	var m domain.PerformanceMetrics
	if len(bars) == 0 {
		return m
	}

	startPrice := bars[0].Close
	endPrice := bars[len(bars)-1].Close
	if startPrice <= 0 {
		return m
	}

	m.TotalReturn = (endPrice - startPrice) / startPrice

	days := bars[len(bars)-1].Date.Sub(bars[0].Date).Hours() / 24
	years := days / 365.25
	if years <= 0 {
		years = 1.0
	}
	m.AnnualReturn = math.Pow(1+m.TotalReturn, 1/years) - 1

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	m.MaxDrawdown = maxDrawdownOf(closes)

	returns := pctChange(closes)
	m.SharpeRatio = sharpeRatio(returns, a.RiskFreeRate)

	return m
}

// Compare computes the element-wise baseline comparison (§4.5).
func Compare(strategy, baseline domain.PerformanceMetrics) domain.BaselineComparison {
	return domain.BaselineComparison{
		Baseline:         baseline,
		ExcessReturn:     strategy.TotalReturn - baseline.TotalReturn,
		RelativeSharpe:   strategy.SharpeRatio - baseline.SharpeRatio,
		RelativeDrawdown: strategy.MaxDrawdown - baseline.MaxDrawdown,
		Outperforms:      strategy.TotalReturn > baseline.TotalReturn,
	}
}

func dailyReturns(equity []domain.EquityPoint) []float64 {
	values := equityValues(equity)
	return pctChange(values)
}

func equityValues(equity []domain.EquityPoint) []float64 {
	out := make([]float64, len(equity))
	for i, e := range equity {
		out[i] = e.Equity
	}
	return out
}

func pctChange(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		out = append(out, values[i]/values[i-1]-1)
	}
	return out
}

// sharpeRatio is zero when there are fewer than 2 return observations or
// the return series has zero variance (Open Question resolution #3), never
// a NaN from a zero-denominator division.
func sharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	std := stdDevOf(returns)
	if std == 0 {
		return 0
	}
	dailyRF := riskFreeRate / 252
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - dailyRF
	}
	return math.Sqrt(252) * meanOf(excess) / std
}

func maxDrawdownOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	cummax := values[0]
	worst := 0.0
	for _, v := range values {
		if v > cummax {
			cummax = v
		}
		if cummax == 0 {
			continue
		}
		dd := (v - cummax) / cummax
		if dd < worst {
			worst = dd
		}
	}
	return worst
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return sumOf(xs) / float64(len(xs))
}

func sumOf(xs []float64) float64 {
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s
}

func stdDevOf(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mean := meanOf(xs)
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)-1))
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}
