package api

import (
	"context"
	"sync"

	"github.com/sawpanic/backtestlab/internal/domain"
	"github.com/sawpanic/backtestlab/internal/repository"
)

// fakeRepository is an in-memory repository.Repository double for handler
// tests; internal/repository/postgres already exercises the SQL path with
// sqlmock, so the HTTP layer only needs something that satisfies the
// interface and lets tests control errors.
type fakeRepository struct {
	mu   sync.Mutex
	runs map[string]domain.BacktestReport

	saveErr   error
	loadErr   error
	listErr   error
	deleteErr error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{runs: make(map[string]domain.BacktestReport)}
}

func (f *fakeRepository) SaveRun(ctx context.Context, report domain.BacktestReport) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if report.RunID == "" {
		report.RunID = "generated-run-id"
	}
	f.runs[report.RunID] = report
	return report.RunID, nil
}

func (f *fakeRepository) LoadRun(ctx context.Context, runID string) (*domain.BacktestReport, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	report, ok := f.runs[runID]
	if !ok {
		return nil, &domain.Error{Kind: domain.KindInvalidInput, Message: "run not found"}
	}
	return &report, nil
}

func (f *fakeRepository) ListRuns(ctx context.Context, filter repository.ListFilter) ([]domain.BacktestReport, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.BacktestReport
	for _, report := range f.runs {
		if filter.StrategyID != "" && report.StrategyID != filter.StrategyID {
			continue
		}
		out = append(out, report)
	}
	return out, nil
}

func (f *fakeRepository) DeleteRun(ctx context.Context, runID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.runs[runID]; !ok {
		return &domain.Error{Kind: domain.KindInvalidInput, Message: "run not found"}
	}
	delete(f.runs, runID)
	return nil
}
