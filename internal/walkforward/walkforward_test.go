package walkforward

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/backtestlab/internal/domain"
)

func makeBars(n int, start float64, drift float64) []domain.Bar {
	bars := make([]domain.Bar, n)
	price := start
	date := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		bars[i] = domain.Bar{
			Date:   date,
			Open:   price,
			High:   price * 1.01,
			Low:    price * 0.99,
			Close:  price,
			Volume: 1_000_000,
		}
		price += drift
		date = date.AddDate(0, 0, 1)
	}
	return bars
}

func defaultSpec() domain.StrategySpec {
	return domain.StrategySpec{
		StrategyID:      "wf-strategy",
		StrategyVersion: "v1",
		Params: domain.SignalParams{
			BuyScore: 60, SellScore: 40, BuyConfirmDays: 2, SellConfirmDays: 2, CooldownDays: 1,
		},
		Config: domain.Config{
			Technical: domain.TechnicalConfig{
				RSIPeriod: 14, EnableRSI: true,
				MACDFast: 12, MACDSlow: 26, MACDSignal: 9, EnableMACD: true,
				ATRPeriod: 14, EnableATR: true,
				ADXPeriod: 14, EnableADX: true,
				BBPeriod: 20, BBStdDev: 2, EnableBB: true,
				KDPeriod: 9, EnableKD: true,
				VolumeWindow: 20,
			},
			Signals: domain.SignalsConfig{Weights: domain.Weights{Pattern: 0.2, Technical: 0.6, Volume: 0.2}},
		},
	}
}

func TestRunProducesFoldsOverFullRange(t *testing.T) {
	bars := makeBars(500, 100, 0.2)
	driver := New(defaultSpec(), domain.DefaultBrokerConfig(), 1_000_000)

	cfg := Config{
		Start:       bars[0].Date,
		End:         bars[len(bars)-1].Date,
		TrainMonths: 3,
		TestMonths:  1,
		StepMonths:  1,
		WarmupDays:  0,
	}
	folds, err := driver.Run(bars, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, folds)
	for _, f := range folds {
		if f.Skipped {
			continue
		}
		assert.True(t, f.TrainPeriod.End.Before(f.TestPeriod.Start) || f.TrainPeriod.End.Equal(f.TestPeriod.Start))
		assert.GreaterOrEqual(t, f.Degradation, 0.0)
		assert.LessOrEqual(t, f.Degradation, 1.0)
	}
}

func TestRunStopsWhenTrainWindowExceedsRange(t *testing.T) {
	bars := makeBars(60, 100, 0.1)
	driver := New(defaultSpec(), domain.DefaultBrokerConfig(), 1_000_000)

	cfg := Config{
		Start:       bars[0].Date,
		End:         bars[len(bars)-1].Date,
		TrainMonths: 24,
		TestMonths:  1,
		StepMonths:  1,
	}
	folds, err := driver.Run(bars, cfg)
	require.NoError(t, err)
	assert.Empty(t, folds, "a train window longer than the range must stop before any fold")
}

func TestTrainTestSplitRejectsOutOfRangeRatio(t *testing.T) {
	bars := makeBars(200, 100, 0.1)
	driver := New(defaultSpec(), domain.DefaultBrokerConfig(), 1_000_000)

	_, err := driver.TrainTestSplit(bars, 1.5, 0)
	assert.Error(t, err)
}

func TestTrainTestSplitProducesOneFold(t *testing.T) {
	bars := makeBars(300, 100, 0.3)
	driver := New(defaultSpec(), domain.DefaultBrokerConfig(), 1_000_000)

	fold, err := driver.TrainTestSplit(bars, 0.7, 5)
	require.NoError(t, err)
	require.NotNil(t, fold)
	assert.True(t, fold.TrainPeriod.Start.After(bars[0].Date), "warmup days must be carved out of the front")
	assert.True(t, fold.TestPeriod.Start.After(fold.TrainPeriod.End))
}
