package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/backtestlab/internal/domain"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func flatConfig() domain.BrokerConfig {
	c := domain.DefaultBrokerConfig()
	c.FeeBps = 0
	c.FeeFloor = 0
	c.TaxRate = 0
	c.SlippageBps = 0
	c.EnableVolumeConstraint = false
	c.EnableLimitUpDown = false
	return c
}

func barSignal(n int, open, high, low, close float64, volume int64, signal int) domain.DailySignal {
	prev := close
	if n > 0 {
		prev = close
	}
	return domain.DailySignal{
		Date:      day(n),
		Signal:    signal,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
		PrevClose: prev,
		ATR:       domain.Invalid,
	}
}

func TestZeroTradesKeepsEquityUnchanged(t *testing.T) {
	config := flatConfig()
	sim := New(config)
	frame := &domain.DailySignalFrame{Rows: []domain.DailySignal{
		barSignal(0, 100, 101, 99, 100, 10000, 0),
		barSignal(1, 100, 101, 99, 100, 10000, 0),
	}}
	result, err := sim.Run(frame, 1_000_000)
	require.NoError(t, err)
	assert.Empty(t, result.Trades)
	assert.InDelta(t, 1_000_000, result.Equity[len(result.Equity)-1].Equity, 0.01)
}

func TestBuySignalExecutesAtNextOpen(t *testing.T) {
	config := flatConfig()
	sim := New(config)
	frame := &domain.DailySignalFrame{Rows: []domain.DailySignal{
		barSignal(0, 100, 101, 99, 100, 1_000_000, 1),
		barSignal(1, 110, 111, 109, 110, 1_000_000, 0),
		barSignal(2, 110, 111, 109, 110, 1_000_000, -1),
	}}
	result, err := sim.Run(frame, 1_000_000)
	require.NoError(t, err)
	require.Len(t, result.Trades, 2)

	buy := result.Trades[0]
	assert.Equal(t, domain.TradeBuy, buy.Kind)
	assert.True(t, buy.Date.Equal(day(1)), "buy should fill on bar t+1 (next_open)")
	assert.InDelta(t, 110, buy.Price, 1e-9)

	sell := result.Trades[1]
	assert.Equal(t, domain.TradeSell, sell.Kind)
}

func TestForceCloseOnFinalBar(t *testing.T) {
	config := flatConfig()
	sim := New(config)
	frame := &domain.DailySignalFrame{Rows: []domain.DailySignal{
		barSignal(0, 100, 101, 99, 100, 1_000_000, 1),
		barSignal(1, 110, 111, 109, 110, 1_000_000, 0),
	}}
	result, err := sim.Run(frame, 1_000_000)
	require.NoError(t, err)
	require.Len(t, result.Trades, 2)
	last := result.Trades[1]
	assert.Equal(t, domain.TradeSell, last.Kind)
	assert.Contains(t, last.ReasonTags, "force_close")
}

func TestLimitUpSealBlocksBuy(t *testing.T) {
	config := flatConfig()
	config.EnableLimitUpDown = true
	config.LimitUpDownPct = 0.10
	sim := New(config)

	// prev_close = 100, limit_up = 110. Next bar opens and seals at 110.
	frame := &domain.DailySignalFrame{Rows: []domain.DailySignal{
		{Date: day(0), Signal: 1, Open: 100, High: 101, Low: 99, Close: 100, Volume: 1_000_000, PrevClose: 100, ATR: domain.Invalid},
		{Date: day(1), Signal: 0, Open: 110, High: 110, Low: 110, Close: 110, Volume: 1_000_000, PrevClose: 100, ATR: domain.Invalid},
	}}
	result, err := sim.Run(frame, 1_000_000)
	require.NoError(t, err)
	assert.Empty(t, result.Trades, "a sealed limit-up bar must not fill the buy")
}

func TestAllInSizingRoundsDownToLot(t *testing.T) {
	config := flatConfig()
	sim := New(config)
	trade := sim.executeBuy(day(1), 33.33, 100_000, 0, domain.Invalid, nil)
	require.NotNil(t, trade)
	assert.Equal(t, int64(0), trade.Shares%1000, "shares must round down to the lot size")
}

func TestRiskBasedSizingUsesATRDistanceWhenSet(t *testing.T) {
	config := flatConfig()
	config.SizingMode = domain.SizingRiskBased
	riskPct := 0.02
	atrMult := 2.0
	config.RiskPct = &riskPct
	config.StopLossATRMult = &atrMult
	sim := New(config)

	trade := sim.executeBuy(day(1), 100, 1_000_000, 0, 2.0, nil)
	require.NotNil(t, trade)
	// total_risk = 1_000_000*0.02 = 20000; distance = 2.0*ATR(2.0) = 4.0
	// shares = floor(20000/4.0/1000)*1000 = 5000
	assert.Equal(t, int64(5000), trade.Shares)
}

func TestReentryBlockedWhenDisallowedAfterRoundTrip(t *testing.T) {
	config := flatConfig()
	config.AllowReentry = false
	sim := New(config)

	frame := &domain.DailySignalFrame{Rows: []domain.DailySignal{
		barSignal(0, 100, 101, 99, 100, 1_000_000, 1),  // buy fills day 1
		barSignal(1, 110, 111, 109, 110, 1_000_000, -1), // sell fills day 2
		barSignal(2, 90, 91, 89, 90, 1_000_000, 1),      // would buy, but reentry disallowed
		barSignal(3, 95, 96, 94, 95, 1_000_000, 0),
	}}
	result, err := sim.Run(frame, 1_000_000)
	require.NoError(t, err)
	// Exactly one round trip (buy+sell); the later buy signal must be ignored.
	assert.Len(t, result.Trades, 2)
}

func TestPercentStopLossForcesSell(t *testing.T) {
	config := flatConfig()
	stopPct := 0.05
	config.StopLossPct = &stopPct
	sim := New(config)

	frame := &domain.DailySignalFrame{Rows: []domain.DailySignal{
		barSignal(0, 100, 101, 99, 100, 1_000_000, 1),
		barSignal(1, 100, 101, 99, 100, 1_000_000, 0), // entry fills here at 100
		barSignal(2, 93, 94, 92, 93, 1_000_000, 0),    // -7% triggers stop_loss
	}}
	result, err := sim.Run(frame, 1_000_000)
	require.NoError(t, err)
	require.Len(t, result.Trades, 2)
	assert.Contains(t, result.Trades[1].ReasonTags, "stop_loss")
}
