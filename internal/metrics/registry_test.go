package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersAllCollectorsWithoutPanicking(t *testing.T) {
	require.NotPanics(t, func() {
		New()
	})
}

func TestEvaluationTimerRecordsDurationAndCount(t *testing.T) {
	r := New()
	timer := r.StartEvaluation()
	time.Sleep(time.Millisecond)
	timer.Stop("ok")

	assert.Equal(t, float64(1), testutil.ToFloat64(r.EvaluationsTotal.WithLabelValues("ok")))
	assert.Equal(t, float64(0), testutil.ToFloat64(r.EvaluationsTotal.WithLabelValues("failed")))
}

func TestRecordCacheHitAndMissIncrementSeparateLabels(t *testing.T) {
	r := New()
	r.RecordCacheHit("series")
	r.RecordCacheHit("series")
	r.RecordCacheMiss("series")

	assert.Equal(t, float64(2), testutil.ToFloat64(r.CacheHits.WithLabelValues("series")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.CacheMisses.WithLabelValues("series")))
}

func TestRecordOptimizerCandidateAndWalkForwardFold(t *testing.T) {
	r := New()
	r.RecordOptimizerCandidate("scored")
	r.RecordOptimizerCandidate("scored")
	r.RecordOptimizerCandidate("failed")
	r.RecordWalkForwardFold("evaluated")
	r.RecordWalkForwardFold("skipped")

	assert.Equal(t, float64(2), testutil.ToFloat64(r.OptimizerCandidates.WithLabelValues("scored")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.OptimizerCandidates.WithLabelValues("failed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.WalkForwardFolds.WithLabelValues("evaluated")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.WalkForwardFolds.WithLabelValues("skipped")))
}

func TestHandlerIsNotNil(t *testing.T) {
	r := New()
	r.RecordCacheHit("series")
	assert.NotNil(t, r.Handler())
}
