package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/backtestlab/internal/domain"
	"github.com/sawpanic/backtestlab/internal/optimize"
)

func TestHandleStartOptimizeAccepted(t *testing.T) {
	s := newTestServer(newFakeRepository())

	req := optimizeRequest{
		Spec: domain.StrategySpec{StrategyID: "trend-follow", StrategyVersion: "v1"},
		Ranges: []optimize.ParamRange{
			{Name: "lookback", Type: optimize.ParamInt, Min: 5, Max: 5, Step: 1},
		},
	}
	payload, err := json.Marshal(req)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	httpReq := httptest.NewRequest(http.MethodPost, "/optimize", bytes.NewReader(payload))
	s.router.ServeHTTP(rec, httpReq)

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestHandleStartOptimizeBadJSONReturns400(t *testing.T) {
	s := newTestServer(newFakeRepository())

	rec := httptest.NewRecorder()
	httpReq := httptest.NewRequest(http.MethodPost, "/optimize", bytes.NewReader([]byte("{bad")))
	s.router.ServeHTTP(rec, httpReq)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
