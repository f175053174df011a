package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/backtestlab/internal/domain"
	"github.com/sawpanic/backtestlab/internal/metrics"
)

func newTestServer(repo *fakeRepository) *Server {
	config := ServerConfig{
		Addr:            ":0",
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: time.Second,
	}
	return NewServer(config, repo, metrics.New(), zerolog.Nop())
}

func TestHandleHealthReturnsOK(t *testing.T) {
	s := newTestServer(newFakeRepository())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleSaveRunThenLoadRunRoundTrips(t *testing.T) {
	s := newTestServer(newFakeRepository())

	report := domain.BacktestReport{StrategyID: "trend-follow"}
	payload, err := json.Marshal(report)
	require.NoError(t, err)

	saveRec := httptest.NewRecorder()
	saveReq := httptest.NewRequest(http.MethodPost, "/runs", bytes.NewReader(payload))
	s.router.ServeHTTP(saveRec, saveReq)
	require.Equal(t, http.StatusCreated, saveRec.Code)

	var saved map[string]string
	require.NoError(t, json.Unmarshal(saveRec.Body.Bytes(), &saved))
	runID := saved["run_id"]
	require.NotEmpty(t, runID)

	loadRec := httptest.NewRecorder()
	loadReq := httptest.NewRequest(http.MethodGet, "/runs/"+runID, nil)
	s.router.ServeHTTP(loadRec, loadReq)
	assert.Equal(t, http.StatusOK, loadRec.Code)

	var loaded domain.BacktestReport
	require.NoError(t, json.Unmarshal(loadRec.Body.Bytes(), &loaded))
	assert.Equal(t, "trend-follow", loaded.StrategyID)
}

func TestHandleLoadRunMissingReturns404(t *testing.T) {
	s := newTestServer(newFakeRepository())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/runs/does-not-exist", nil)

	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSaveRunBadJSONReturns400(t *testing.T) {
	s := newTestServer(newFakeRepository())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/runs", bytes.NewReader([]byte("{not json")))

	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListRunsFiltersByStrategyID(t *testing.T) {
	repo := newFakeRepository()
	repo.runs["a"] = domain.BacktestReport{RunID: "a", StrategyID: "trend-follow"}
	repo.runs["b"] = domain.BacktestReport{RunID: "b", StrategyID: "mean-revert"}
	s := newTestServer(repo)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/runs?strategy_id=trend-follow", nil)
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var reports []domain.BacktestReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "trend-follow", reports[0].StrategyID)
}

func TestHandleDeleteRunMissingReturns404(t *testing.T) {
	s := newTestServer(newFakeRepository())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/runs/does-not-exist", nil)

	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleDeleteRunSucceeds(t *testing.T) {
	repo := newFakeRepository()
	repo.runs["a"] = domain.BacktestReport{RunID: "a", StrategyID: "trend-follow"}
	s := newTestServer(repo)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/runs/a", nil)
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMetricsEndpointServedWhenRegistryProvided(t *testing.T) {
	s := newTestServer(newFakeRepository())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpointAbsentWithoutRegistry(t *testing.T) {
	config := ServerConfig{Addr: ":0", ReadTimeout: time.Second, WriteTimeout: time.Second, ShutdownTimeout: time.Second}
	s := NewServer(config, newFakeRepository(), nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestIDMiddlewareSetsResponseHeader(t *testing.T) {
	s := newTestServer(newFakeRepository())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	s.router.ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAddrReturnsConfiguredAddress(t *testing.T) {
	s := newTestServer(newFakeRepository())
	assert.Equal(t, ":0", s.Addr())
}
