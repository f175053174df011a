package optimize

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// SummaryRow is one flattened, CSV-serializable view of a ranked
// grid-search Result — percentages already multiplied out of their
// fractional form so a report doesn't need to know the underlying scale.
type SummaryRow struct {
	Rank            int
	Params          Candidate
	TotalReturnPct  float64
	AnnualReturnPct float64
	SharpeRatio     float64
	MaxDrawdownPct  float64
	WinRatePct      float64
	TotalTrades     int
	ExpectancyPct   float64
	ProfitFactor    float64
	Score           float64
	Failed          bool
	Incomplete      bool
}

// Summary flattens ranked Results into report-ready rows, one per
// candidate, in the same rank order Run produced them.
func Summary(results []Result) []SummaryRow {
	rows := make([]SummaryRow, len(results))
	for i, r := range results {
		rows[i] = SummaryRow{
			Rank:            r.Rank,
			Params:          r.Params,
			TotalReturnPct:  r.Metrics.TotalReturn * 100,
			AnnualReturnPct: r.Metrics.AnnualReturn * 100,
			SharpeRatio:     r.Metrics.SharpeRatio,
			MaxDrawdownPct:  r.Metrics.MaxDrawdown * 100,
			WinRatePct:      r.Metrics.WinRate * 100,
			TotalTrades:     r.Metrics.TotalTrades,
			ExpectancyPct:   r.Metrics.Expectancy * 100,
			ProfitFactor:    r.Metrics.ProfitFactor,
			Score:           r.Score,
			Failed:          r.Failed,
			Incomplete:      r.Incomplete,
		}
	}
	return rows
}

// paramNames returns the union of every row's parameter names, sorted, so
// WriteCSV's column order is deterministic regardless of map iteration.
func paramNames(rows []SummaryRow) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for name := range row.Params {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WriteCSV renders rows as a CSV table: rank, one column per swept
// parameter, then the performance columns, matching the column set
// create_optimization_summary built as a pandas DataFrame.
func WriteCSV(w io.Writer, rows []SummaryRow) error {
	names := paramNames(rows)

	writer := csv.NewWriter(w)
	header := append([]string{"rank"}, names...)
	header = append(header,
		"total_return_pct", "annual_return_pct", "sharpe_ratio", "max_drawdown_pct",
		"win_rate_pct", "total_trades", "expectancy_pct", "profit_factor", "score",
		"failed", "incomplete",
	)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}

	for _, row := range rows {
		record := make([]string, 0, len(header))
		record = append(record, strconv.Itoa(row.Rank))
		for _, name := range names {
			v, ok := row.Params[name]
			if !ok {
				record = append(record, "")
				continue
			}
			record = append(record, strconv.FormatFloat(v, 'f', -1, 64))
		}
		record = append(record,
			strconv.FormatFloat(row.TotalReturnPct, 'f', 4, 64),
			strconv.FormatFloat(row.AnnualReturnPct, 'f', 4, 64),
			strconv.FormatFloat(row.SharpeRatio, 'f', 4, 64),
			strconv.FormatFloat(row.MaxDrawdownPct, 'f', 4, 64),
			strconv.FormatFloat(row.WinRatePct, 'f', 4, 64),
			strconv.Itoa(row.TotalTrades),
			strconv.FormatFloat(row.ExpectancyPct, 'f', 4, 64),
			strconv.FormatFloat(row.ProfitFactor, 'f', 4, 64),
			strconv.FormatFloat(row.Score, 'f', 4, 64),
			strconv.FormatBool(row.Failed),
			strconv.FormatBool(row.Incomplete),
		)
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
