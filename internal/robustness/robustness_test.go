package robustness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/backtestlab/internal/domain"
)

func TestFoldDegradationUsesSharpeWhenNonZero(t *testing.T) {
	d := FoldDegradation(2.0, 1.0, 0.5, 0.4)
	assert.InDelta(t, 0.5, d, 1e-9)
}

func TestFoldDegradationFallsBackToReturnWhenTrainSharpeZero(t *testing.T) {
	d := FoldDegradation(0.0, 0.0, 0.20, 0.10)
	assert.InDelta(t, 0.5, d, 1e-9)
}

func TestFoldDegradationUnmeasurableWhenTrainMetricNearZero(t *testing.T) {
	d := FoldDegradation(1e-12, 0.5, 0, 0)
	assert.Equal(t, 0.0, d)
}

func TestFoldDegradationClampsToZeroWhenTestBeatsTrain(t *testing.T) {
	d := FoldDegradation(1.0, 1.5, 0, 0)
	assert.Equal(t, 0.0, d)
}

func TestFoldDegradationClampsToOne(t *testing.T) {
	d := FoldDegradation(1.0, -5.0, 0, 0)
	assert.Equal(t, 1.0, d)
}

func TestConsistencyNotDefinedWithFewerThanTwoFolds(t *testing.T) {
	_, defined := Consistency([]FoldPerformance{{TestSharpe: 1.0}})
	assert.False(t, defined)
}

func TestConsistencyComputesClampedStdDev(t *testing.T) {
	folds := []FoldPerformance{{TestSharpe: 1.0}, {TestSharpe: 1.0}, {TestSharpe: 1.0}}
	v, defined := Consistency(folds)
	require.True(t, defined)
	assert.Equal(t, 0.0, v)
}

func TestConsistencyFallsBackToReturnWhenAllSharpesZero(t *testing.T) {
	folds := []FoldPerformance{
		{TestSharpe: 0, TestReturn: 0.10},
		{TestSharpe: 0, TestReturn: 0.30},
	}
	v, defined := Consistency(folds)
	require.True(t, defined)
	assert.Greater(t, v, 0.0)
}

func TestAssessOverfittingRiskAllAvailableHighBand(t *testing.T) {
	ps, deg, cons := 0.35, 0.45, 0.55
	report := AssessOverfittingRisk(Inputs{
		ParameterSensitivity: &ps,
		Degradation:           &deg,
		ConsistencyStd:        &cons,
	})
	assert.Equal(t, domain.RiskHigh, report.RiskLevel)
	assert.Equal(t, 6.0, report.RiskScore)
	assert.Empty(t, report.MissingData)
	assert.NotEmpty(t, report.Warnings)
}

func TestAssessOverfittingRiskMediumBand(t *testing.T) {
	deg := 0.45
	report := AssessOverfittingRisk(Inputs{Degradation: &deg})
	assert.Equal(t, domain.RiskMedium, report.RiskLevel)
	assert.Equal(t, 2.0, report.RiskScore)
}

func TestAssessOverfittingRiskLowBandWithAllMissing(t *testing.T) {
	report := AssessOverfittingRisk(Inputs{})
	assert.Equal(t, domain.RiskLow, report.RiskLevel)
	assert.Equal(t, 0.0, report.RiskScore)
	assert.Len(t, report.MissingData, 3)
}

func TestAssessOverfittingRiskScoreCapsAtTen(t *testing.T) {
	ps, deg, cons := 0.9, 0.9, 0.9
	report := AssessOverfittingRisk(Inputs{
		ParameterSensitivity: &ps,
		Degradation:           &deg,
		ConsistencyStd:        &cons,
	})
	assert.Equal(t, 6.0, report.RiskScore, "three signals each contribute at most 2")
	assert.LessOrEqual(t, report.RiskScore, 10.0)
}
