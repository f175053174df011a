// Package repository defines the Artifact Repository contract (spec.md
// §4.10): persisting and retrieving BacktestReports, independent of the
// storage backend.
package repository

import (
	"context"

	"github.com/sawpanic/backtestlab/internal/domain"
)

// ListFilter narrows ListRuns to a strategy and/or a bounded window.
type ListFilter struct {
	StrategyID string
	Limit      int
	Offset     int
}

// Repository is the Artifact Repository interface every backend
// implements (Postgres in this repo; a test double or another store
// elsewhere).
type Repository interface {
	SaveRun(ctx context.Context, report domain.BacktestReport) (string, error)
	LoadRun(ctx context.Context, runID string) (*domain.BacktestReport, error)
	ListRuns(ctx context.Context, filter ListFilter) ([]domain.BacktestReport, error)
	DeleteRun(ctx context.Context, runID string) error
}
