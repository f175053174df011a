// Package walkforward implements the Walk-Forward Driver (spec.md §4.7): a
// rolling train/test cursor over a date range, each fold evaluated with the
// same strategy spec on both windows (no re-optimization between them), plus
// the degenerate single-fold train/test-split mode.
package walkforward

import (
	"time"

	"github.com/sawpanic/backtestlab/internal/domain"
	"github.com/sawpanic/backtestlab/internal/engine"
	"github.com/sawpanic/backtestlab/internal/metrics"
	"github.com/sawpanic/backtestlab/internal/robustness"
)

// Config parameterizes the rolling walk-forward cursor (§4.7). Months are
// expressed in calendar months via time.AddDate, matching the spec's
// train_months/test_months/step_months vocabulary.
type Config struct {
	Start       time.Time
	End         time.Time
	TrainMonths int
	TestMonths  int
	StepMonths  int
	WarmupDays  int
}

// Driver runs the rolling walk-forward evaluation.
type Driver struct {
	Spec           domain.StrategySpec
	BrokerConfig   domain.BrokerConfig
	InitialCapital float64
	// Metrics, if set, counts evaluated and skipped folds.
	Metrics *metrics.Registry
}

// New constructs a Driver for one strategy spec, evaluated identically on
// every fold's train and test windows.
func New(spec domain.StrategySpec, brokerCfg domain.BrokerConfig, initialCapital float64) *Driver {
	return &Driver{Spec: spec, BrokerConfig: brokerCfg, InitialCapital: initialCapital}
}

// Run executes the rolling train/test cursor loop over bars (§4.7 step 1-7).
// A fold whose train or test evaluation fails (e.g. insufficient data) is
// recorded as Skipped rather than aborting the whole run.
func (d *Driver) Run(bars []domain.Bar, cfg Config) ([]domain.WalkForwardFold, error) {
	series, err := domain.NewSeries(bars)
	if err != nil {
		return nil, err
	}
	return d.runCursor(series, cfg), nil
}

func (d *Driver) runCursor(series *domain.Series, cfg Config) []domain.WalkForwardFold {
	start, end := cfg.Start, cfg.End

	var folds []domain.WalkForwardFold
	cursor := start

	for cursor.Before(end) {
		actualTrainStart := cursor.AddDate(0, 0, cfg.WarmupDays)
		if !actualTrainStart.Before(end) {
			break
		}

		trainEnd := actualTrainStart.AddDate(0, cfg.TrainMonths, 0)
		if trainEnd.After(end) {
			break
		}

		testStart := trainEnd.AddDate(0, 0, 1)
		testEnd := testStart.AddDate(0, cfg.TestMonths, 0)
		if testEnd.After(end) {
			testEnd = end
		}
		if !testStart.Before(testEnd) {
			break
		}

		fold := d.evaluateFold(series, domain.DateRange{Start: actualTrainStart, End: trainEnd}, domain.DateRange{Start: testStart, End: testEnd}, cfg.WarmupDays)
		folds = append(folds, fold)

		cursor = cursor.AddDate(0, cfg.StepMonths, 0)
	}

	return folds
}

// TrainTestSplit runs the degenerate single-fold walk-forward mode (§4.7):
// one cut at trainRatio of the window, with an initial warmupDays slice
// belonging to neither train nor test.
func (d *Driver) TrainTestSplit(bars []domain.Bar, trainRatio float64, warmupDays int) (*domain.WalkForwardFold, error) {
	if trainRatio <= 0 || trainRatio >= 1 {
		return nil, domain.InvalidInput("train_ratio must be in (0,1), got %.4f", trainRatio)
	}
	series, err := domain.NewSeries(bars)
	if err != nil {
		return nil, err
	}

	start := series.Bars[0].Date
	end := series.Bars[len(series.Bars)-1].Date
	warmedStart := start.AddDate(0, 0, warmupDays)
	if !warmedStart.Before(end) {
		return nil, domain.InsufficientData("warmup window consumes the entire range")
	}

	totalDays := end.Sub(warmedStart).Hours() / 24
	trainDays := int(totalDays * trainRatio)
	trainEnd := warmedStart.AddDate(0, 0, trainDays)
	testStart := trainEnd.AddDate(0, 0, 1)
	if !testStart.Before(end) {
		return nil, domain.InsufficientData("train_ratio leaves no test window")
	}

	fold := d.evaluateFold(series, domain.DateRange{Start: warmedStart, End: trainEnd}, domain.DateRange{Start: testStart, End: end}, warmupDays)
	return &fold, nil
}

func (d *Driver) evaluateFold(series *domain.Series, train, test domain.DateRange, warmupDays int) domain.WalkForwardFold {
	fold := domain.WalkForwardFold{
		TrainPeriod: train,
		TestPeriod:  test,
		WarmupDays:  warmupDays,
	}

	trainBars := series.Slice(train.Start, train.End)
	testBars := series.Slice(test.Start, test.End)

	trainResult, err := engine.Run(trainBars, d.Spec, d.BrokerConfig, d.InitialCapital)
	if err != nil {
		fold.Skipped = true
		fold.SkipReason = "train window: " + err.Error()
		d.recordFold("skipped")
		return fold
	}
	testResult, err := engine.Run(testBars, d.Spec, d.BrokerConfig, d.InitialCapital)
	if err != nil {
		fold.Skipped = true
		fold.SkipReason = "test window: " + err.Error()
		d.recordFold("skipped")
		return fold
	}

	fold.TrainMetrics = trainResult.Metrics
	fold.TestMetrics = testResult.Metrics
	fold.Degradation = robustness.FoldDegradation(
		trainResult.Metrics.SharpeRatio, testResult.Metrics.SharpeRatio,
		trainResult.Metrics.TotalReturn, testResult.Metrics.TotalReturn,
	)
	d.recordFold("evaluated")
	return fold
}

func (d *Driver) recordFold(outcome string) {
	if d.Metrics != nil {
		d.Metrics.RecordWalkForwardFold(outcome)
	}
}
