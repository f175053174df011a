// Package postgres is the Postgres-backed Artifact Repository (spec.md
// §4.10): BacktestReports are stored as one JSONB payload per run, with a
// handful of columns promoted for indexed lookups. Every write goes through
// a circuit breaker so a struggling database degrades into fast failures
// rather than piling up blocked goroutines.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sony/gobreaker"

	"github.com/sawpanic/backtestlab/internal/domain"
	"github.com/sawpanic/backtestlab/internal/repository"
)

// Repo implements repository.Repository against a *sqlx.DB.
type Repo struct {
	db      *sqlx.DB
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
}

// New constructs a Repo. timeout bounds every individual query; the breaker
// trips after 3 consecutive failures or a >5% failure rate over at least 20
// requests, matching this repo's ambient circuit-breaker posture.
func New(db *sqlx.DB, timeout time.Duration) *Repo {
	settings := gobreaker.Settings{
		Name:     "artifact-repository",
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 3 {
				return true
			}
			if counts.Requests < 20 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
		},
	}
	return &Repo{db: db, timeout: timeout, breaker: gobreaker.NewCircuitBreaker(settings)}
}

type runRow struct {
	ID               string    `db:"id"`
	StrategyID       string    `db:"strategy_id"`
	StartDate        time.Time `db:"start_date"`
	EndDate          time.Time `db:"end_date"`
	ValidationStatus string    `db:"validation_status"`
	CanPromote       bool      `db:"can_promote"`
	Payload          []byte    `db:"payload"`
	CreatedAt        time.Time `db:"created_at"`
}

// SaveRun persists report, assigning a new RunID via google/uuid when the
// caller did not set one.
func (r *Repo) SaveRun(ctx context.Context, report domain.BacktestReport) (string, error) {
	if report.RunID == "" {
		report.RunID = uuid.NewString()
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("marshal backtest report: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err = r.breaker.Execute(func() (any, error) {
		const query = `
			INSERT INTO backtest_runs (id, strategy_id, start_date, end_date, validation_status, can_promote, payload)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				validation_status = EXCLUDED.validation_status,
				can_promote = EXCLUDED.can_promote,
				payload = EXCLUDED.payload`
		_, execErr := r.db.ExecContext(ctx, query,
			report.RunID, report.StrategyID, report.DateRange.Start, report.DateRange.End,
			string(report.ValidationStatus), report.CanPromote, payload)
		return nil, execErr
	})
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			return "", fmt.Errorf("save run %s: %w", report.RunID, pqErr)
		}
		return "", fmt.Errorf("save run %s: %w", report.RunID, err)
	}

	return report.RunID, nil
}

// LoadRun retrieves one run by ID.
func (r *Repo) LoadRun(ctx context.Context, runID string) (*domain.BacktestReport, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.breaker.Execute(func() (any, error) {
		var row runRow
		queryErr := r.db.GetContext(ctx, &row, `SELECT id, strategy_id, start_date, end_date, validation_status, can_promote, payload, created_at FROM backtest_runs WHERE id = $1`, runID)
		return row, queryErr
	})
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.InvalidInput("no run found with id %s", runID)
		}
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	row := result.(runRow)
	var report domain.BacktestReport
	if err := json.Unmarshal(row.Payload, &report); err != nil {
		return nil, fmt.Errorf("unmarshal backtest report %s: %w", runID, err)
	}
	return &report, nil
}

// ListRuns retrieves runs matching filter, most recent first.
func (r *Repo) ListRuns(ctx context.Context, filter repository.ListFilter) ([]domain.BacktestReport, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	result, err := r.breaker.Execute(func() (any, error) {
		var rows []runRow
		var queryErr error
		if filter.StrategyID != "" {
			queryErr = r.db.SelectContext(ctx, &rows,
				`SELECT id, strategy_id, start_date, end_date, validation_status, can_promote, payload, created_at
				 FROM backtest_runs WHERE strategy_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
				filter.StrategyID, limit, filter.Offset)
		} else {
			queryErr = r.db.SelectContext(ctx, &rows,
				`SELECT id, strategy_id, start_date, end_date, validation_status, can_promote, payload, created_at
				 FROM backtest_runs ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
				limit, filter.Offset)
		}
		return rows, queryErr
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	rows := result.([]runRow)
	reports := make([]domain.BacktestReport, 0, len(rows))
	for _, row := range rows {
		var report domain.BacktestReport
		if err := json.Unmarshal(row.Payload, &report); err != nil {
			return nil, fmt.Errorf("unmarshal backtest report %s: %w", row.ID, err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// DeleteRun removes one run by ID.
func (r *Repo) DeleteRun(ctx context.Context, runID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.breaker.Execute(func() (any, error) {
		res, execErr := r.db.ExecContext(ctx, `DELETE FROM backtest_runs WHERE id = $1`, runID)
		if execErr != nil {
			return nil, execErr
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			return nil, sql.ErrNoRows
		}
		return nil, nil
	})
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.InvalidInput("no run found with id %s", runID)
		}
		return fmt.Errorf("delete run %s: %w", runID, err)
	}
	return nil
}

var _ repository.Repository = (*Repo)(nil)
