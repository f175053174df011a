package optimize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/backtestlab/internal/domain"
)

func TestSummaryFlattensResultsInRankOrder(t *testing.T) {
	results := []Result{
		{Rank: 1, Params: Candidate{"buy_score": 65}, Score: 1.5, Metrics: domain.PerformanceMetrics{TotalReturn: 0.25, SharpeRatio: 1.5, TotalTrades: 12}},
		{Rank: 2, Params: Candidate{"buy_score": 55}, Score: 1.1, Failed: true},
	}

	rows := Summary(results)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Rank)
	assert.InDelta(t, 25.0, rows[0].TotalReturnPct, 1e-9)
	assert.Equal(t, 12, rows[0].TotalTrades)
	assert.True(t, rows[1].Failed)
}

func TestWriteCSVIncludesAllParamColumnsSorted(t *testing.T) {
	results := []Result{
		{Rank: 1, Params: Candidate{"buy_score": 65, "cooldown_days": 2}, Score: 1.5},
		{Rank: 2, Params: Candidate{"buy_score": 55}},
	}
	rows := Summary(results)

	var buf strings.Builder
	require.NoError(t, WriteCSV(&buf, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "rank,buy_score,cooldown_days,total_return_pct,annual_return_pct,sharpe_ratio,max_drawdown_pct,win_rate_pct,total_trades,expectancy_pct,profit_factor,score,failed,incomplete", lines[0])
	assert.Contains(t, lines[2], "55,") // second row has no cooldown_days value
}

func TestWriteCSVEmptyResultsProducesHeaderOnly(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, WriteCSV(&buf, Summary(nil)))
	assert.Equal(t, "rank,total_return_pct,annual_return_pct,sharpe_ratio,max_drawdown_pct,win_rate_pct,total_trades,expectancy_pct,profit_factor,score,failed,incomplete", strings.TrimSpace(buf.String()))
}
