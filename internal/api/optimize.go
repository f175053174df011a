package api

import (
	"encoding/json"
	"net/http"

	"github.com/sawpanic/backtestlab/internal/domain"
	"github.com/sawpanic/backtestlab/internal/optimize"
)

// optimizeRequest is the payload a client posts to /optimize to start a
// grid search; bars are supplied inline rather than by path since this is
// a network API, not the CLI's filesystem-backed equivalent.
type optimizeRequest struct {
	Bars      []domain.Bar          `json:"bars"`
	Spec      domain.StrategySpec   `json:"spec"`
	Broker    *domain.BrokerConfig  `json:"broker"`
	Capital   float64               `json:"capital"`
	Ranges    []optimize.ParamRange `json:"ranges"`
	Objective optimize.Objective    `json:"objective"`
	TopN      int                   `json:"top_n"`
}

// handleStartOptimize runs a grid search in the background and streams its
// progress to every client connected to /ws/optimize, returning immediately
// with 202 Accepted rather than blocking the request for the run's duration.
func (s *Server) handleStartOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	brokerCfg := domain.DefaultBrokerConfig()
	if req.Broker != nil {
		brokerCfg = *req.Broker
	}
	capital := req.Capital
	if capital <= 0 {
		capital = 1_000_000
	}
	objective := req.Objective
	if objective == "" {
		objective = optimize.ObjectiveSharpe
	}
	topN := req.TopN
	if topN <= 0 {
		topN = 10
	}

	opt := optimize.New(brokerCfg, capital)
	opt.Metrics = s.metrics

	go func() {
		var progress optimize.ProgressFunc
		if s.broadcaster != nil {
			progress = s.broadcaster.Publish
		}

		results, err := opt.Run(s.runCtx, req.Bars, req.Spec, req.Ranges, objective, topN, progress)
		if err != nil {
			s.logger.Error().Err(err).Msg("background optimize run failed")
			return
		}
		incomplete := len(results) > 0 && results[0].Incomplete
		s.logger.Info().Int("results", len(results)).Bool("incomplete", incomplete).Msg("background optimize run complete")
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}
