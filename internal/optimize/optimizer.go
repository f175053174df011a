// Package optimize implements the Grid-Search Optimizer (spec.md §4.8):
// a Cartesian product of parameter ranges, dispatched concurrently over a
// bounded worker pool, scored against one of three objectives, and ranked.
package optimize

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/time/rate"

	"github.com/sawpanic/backtestlab/internal/domain"
	"github.com/sawpanic/backtestlab/internal/engine"
	"github.com/sawpanic/backtestlab/internal/log"
	"github.com/sawpanic/backtestlab/internal/metrics"
)

// Objective selects which metric the grid search ranks candidates by (§4.8).
type Objective string

const (
	ObjectiveSharpe        Objective = "sharpe"
	ObjectiveAnnualReturn  Objective = "annual_return"
	ObjectiveCAGRMinusMDD  Objective = "cagr_minus_mdd"
)

func (o Objective) score(m domain.PerformanceMetrics) float64 {
	switch o {
	case ObjectiveAnnualReturn:
		return m.AnnualReturn
	case ObjectiveCAGRMinusMDD:
		return m.AnnualReturn + m.MaxDrawdown // MaxDrawdown <= 0, so this is a subtraction
	default:
		return m.SharpeRatio
	}
}

// ParamRangeType names how one parameter range is expressed (§4.8).
type ParamRangeType string

const (
	ParamInt   ParamRangeType = "int"
	ParamFloat ParamRangeType = "float"
	ParamList  ParamRangeType = "list"
)

// ParamRange is one swept dimension of the grid. For int/float, Min/Max/Step
// generate the value list; for list, Values is used directly.
type ParamRange struct {
	Name   string
	Type   ParamRangeType
	Min    float64
	Max    float64
	Step   float64
	Values []float64
}

// values returns the concrete candidate values this range contributes to
// the Cartesian product.
func (r ParamRange) values() []float64 {
	if r.Type == ParamList {
		return r.Values
	}
	if r.Step <= 0 {
		return []float64{r.Min}
	}
	var out []float64
	for v := r.Min; v <= r.Max+1e-9; v += r.Step {
		out = append(out, v)
	}
	return out
}

// Candidate is one point in parameter space.
type Candidate map[string]float64

// Grid builds the Cartesian product of all ranges (§4.8 step 1).
func Grid(ranges []ParamRange) []Candidate {
	candidates := []Candidate{{}}
	for _, r := range ranges {
		values := r.values()
		next := make([]Candidate, 0, len(candidates)*len(values))
		for _, c := range candidates {
			for _, v := range values {
				merged := make(Candidate, len(c)+1)
				for k, existing := range c {
					merged[k] = existing
				}
				merged[r.Name] = v
				next = append(next, merged)
			}
		}
		candidates = next
	}
	return candidates
}

// Result is one scored candidate, ranked after all evaluations complete.
type Result struct {
	Params  Candidate
	Score   float64
	Metrics domain.PerformanceMetrics
	Rank    int
	Failed  bool
	// Incomplete is true when ctx was cancelled before the full grid
	// finished dispatching; this result is one of the candidates that did
	// complete, but the grid it was ranked within is a partial one (§5
	// "Cancellation").
	Incomplete bool
}

// ProgressFunc receives (completed, total, message) after each evaluation
// (§4.8 step "progress callback"). Aggregation is thread-safe and
// order-independent, so completed only ever increases monotonically from
// the caller's perspective but candidates may finish out of submission
// order.
type ProgressFunc func(completed, total int, message string)

// Optimizer runs the grid search over a shared price series.
type Optimizer struct {
	BrokerConfig   domain.BrokerConfig
	InitialCapital float64
	// PoolSize overrides the default min(NumCPU, 8) worker count; 0 means default.
	PoolSize int
	// Metrics, if set, records per-candidate outcomes and worker occupancy.
	Metrics *metrics.Registry
}

// New constructs an Optimizer sharing one broker config and initial capital
// across every candidate evaluation.
func New(brokerCfg domain.BrokerConfig, initialCapital float64) *Optimizer {
	return &Optimizer{BrokerConfig: brokerCfg, InitialCapital: initialCapital}
}

// applyCandidate merges a candidate's swept values into a copy of the base
// spec's SignalParams — the grid search never mutates the base spec.
func applyCandidate(base domain.StrategySpec, candidate Candidate) domain.StrategySpec {
	out := base
	if v, ok := candidate["buy_score"]; ok {
		out.Params.BuyScore = v
	}
	if v, ok := candidate["sell_score"]; ok {
		out.Params.SellScore = v
	}
	if v, ok := candidate["buy_confirm_days"]; ok {
		out.Params.BuyConfirmDays = int(v)
	}
	if v, ok := candidate["sell_confirm_days"]; ok {
		out.Params.SellConfirmDays = int(v)
	}
	if v, ok := candidate["cooldown_days"]; ok {
		out.Params.CooldownDays = int(v)
	}
	return out
}

// Run evaluates every candidate in the grid against the shared bars series,
// dispatched over a bounded worker pool (§4.8 steps 2-4), and returns the
// top N candidates ranked by objective score (§4.8 step 5). Evaluation
// failures are logged and scored zero rather than propagated.
//
// ctx is checked between dispatches, never mid-evaluation (§5
// "Cancellation" — outstanding workers finish their current evaluation
// before the pool drains). If ctx is cancelled before the grid is
// exhausted, Run returns the candidates dispatched so far, each marked
// Incomplete, instead of an error.
func (o *Optimizer) Run(ctx context.Context, bars []domain.Bar, baseSpec domain.StrategySpec, ranges []ParamRange, objective Objective, topN int, progress ProgressFunc) ([]Result, error) {
	if _, err := domain.NewSeries(bars); err != nil {
		return nil, err
	}

	candidates := Grid(ranges)
	total := len(candidates)
	results := make([]Result, total)

	poolSize := o.PoolSize
	if poolSize <= 0 {
		poolSize = runtime.NumCPU()
		if poolSize > 8 {
			poolSize = 8
		}
		if poolSize < 1 {
			poolSize = 1
		}
	}

	logger := log.New("optimize", nil)
	limiter := rate.NewLimiter(rate.Limit(poolSize*4), poolSize)
	sem := make(chan struct{}, poolSize)

	var wg sync.WaitGroup
	var mu sync.Mutex
	completed := 0

	dispatched := 0
	cancelled := false
	for i, candidate := range candidates {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		dispatched++
		i, candidate := i, candidate
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			_ = limiter.Wait(context.Background())

			if o.Metrics != nil {
				o.Metrics.ActiveOptimizerWorkers.Inc()
				defer o.Metrics.ActiveOptimizerWorkers.Dec()
			}

			spec := applyCandidate(baseSpec, candidate)
			evalResult, err := engine.Run(bars, spec, o.BrokerConfig, o.InitialCapital)

			r := Result{Params: candidate}
			if err != nil {
				r.Failed = true
				logger.Warn().Err(err).Interface("params", candidate).Msg("candidate evaluation failed")
				if o.Metrics != nil {
					o.Metrics.RecordOptimizerCandidate("failed")
				}
			} else {
				r.Metrics = evalResult.Metrics
				r.Score = objective.score(evalResult.Metrics)
				if o.Metrics != nil {
					o.Metrics.RecordOptimizerCandidate("scored")
				}
			}
			results[i] = r

			mu.Lock()
			completed++
			if progress != nil {
				progress(completed, total, "evaluated candidate")
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if cancelled {
		results = results[:dispatched]
	}

	sort.SliceStable(results, func(a, b int) bool { return results[a].Score > results[b].Score })
	for i := range results {
		results[i].Rank = i + 1
		if cancelled {
			results[i].Incomplete = true
		}
	}

	if topN > 0 && topN < len(results) {
		results = results[:topN]
	}
	return results, nil
}
