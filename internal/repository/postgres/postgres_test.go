package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/backtestlab/internal/domain"
	"github.com/sawpanic/backtestlab/internal/repository"
)

func newMockRepo(t *testing.T) (*Repo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "postgres")
	return New(sqlxDB, time.Second), mock
}

func sampleReport() domain.BacktestReport {
	return domain.BacktestReport{
		StrategyID: "trend-follow",
		DateRange:  domain.DateRange{Start: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)},
		ValidationStatus: domain.ValidationPass,
		CanPromote: true,
	}
}

func TestSaveRunAssignsUUIDWhenMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("INSERT INTO backtest_runs").WillReturnResult(sqlmock.NewResult(1, 1))

	runID, err := repo.SaveRun(context.Background(), sampleReport())
	require.NoError(t, err)
	assert.NotEmpty(t, runID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRunKeepsExplicitRunID(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("INSERT INTO backtest_runs").WillReturnResult(sqlmock.NewResult(1, 1))

	report := sampleReport()
	report.RunID = "fixed-id"
	runID, err := repo.SaveRun(context.Background(), report)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", runID)
}

func TestLoadRunReturnsInvalidInputWhenMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT id, strategy_id").WillReturnError(sql.ErrNoRows)

	_, err := repo.LoadRun(context.Background(), "missing-id")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDeleteRunReturnsInvalidInputWhenNoRowsAffected(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("DELETE FROM backtest_runs").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteRun(context.Background(), "missing-id")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListRunsFiltersByStrategy(t *testing.T) {
	repo, mock := newMockRepo(t)
	rows := sqlmock.NewRows([]string{"id", "strategy_id", "start_date", "end_date", "validation_status", "can_promote", "payload", "created_at"})
	mock.ExpectQuery("SELECT id, strategy_id").WithArgs("trend-follow", 50, 0).WillReturnRows(rows)

	reports, err := repo.ListRuns(context.Background(), repository.ListFilter{StrategyID: "trend-follow"})
	require.NoError(t, err)
	assert.Empty(t, reports)
}
