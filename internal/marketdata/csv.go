// Package marketdata loads OHLCV bar series from flat files, the only
// source format a standalone backtest run needs — a live market-data feed
// is out of scope for this engine (spec.md Non-goals).
package marketdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/sawpanic/backtestlab/internal/domain"
)

// dateLayouts are tried in order until one parses a row's date column,
// so the same loader accepts both date-only and full-timestamp exports.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// CSVLoader reads daily OHLCV bars from a CSV file. Header names are
// case-sensitive and matched against a small set of known aliases so
// exports from different vendors don't each need their own loader.
type CSVLoader struct{}

// NewCSVLoader constructs a CSVLoader.
func NewCSVLoader() *CSVLoader {
	return &CSVLoader{}
}

// LoadFile reads path and returns its bars in file order. Rows that fail to
// parse are skipped rather than aborting the whole load — a loader is not
// the place to enforce chronological ordering or uniqueness; domain.NewSeries
// does that once the full slice is assembled.
func (l *CSVLoader) LoadFile(path string) ([]domain.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bar series file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	columns := mapColumns(header)
	if err := requireColumns(columns, "date", "open", "high", "low", "close", "volume"); err != nil {
		return nil, err
	}

	var bars []domain.Bar
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row: %w", err)
		}
		bar, ok := parseRow(record, columns)
		if !ok {
			continue
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, domain.InsufficientData("CSV file %s contained no parseable bars", path)
	}
	return bars, nil
}

func mapColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[normalizeColumn(name)] = i
	}
	return columns
}

func normalizeColumn(name string) string {
	switch name {
	case "date", "Date", "timestamp", "Timestamp":
		return "date"
	case "open", "Open":
		return "open"
	case "high", "High":
		return "high"
	case "low", "Low":
		return "low"
	case "close", "Close", "adj_close", "Adj Close":
		return "close"
	case "volume", "Volume":
		return "volume"
	default:
		return name
	}
}

func requireColumns(columns map[string]int, names ...string) error {
	for _, name := range names {
		if _, ok := columns[name]; !ok {
			return domain.InvalidInput("CSV missing required column %q", name)
		}
	}
	return nil
}

func parseRow(record []string, columns map[string]int) (domain.Bar, bool) {
	date, ok := parseDate(record[columns["date"]])
	if !ok {
		return domain.Bar{}, false
	}
	open, ok1 := parseFloat(record[columns["open"]])
	high, ok2 := parseFloat(record[columns["high"]])
	low, ok3 := parseFloat(record[columns["low"]])
	close, ok4 := parseFloat(record[columns["close"]])
	volume, ok5 := parseInt(record[columns["volume"]])
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return domain.Bar{}, false
	}
	return domain.Bar{Date: date, Open: open, High: high, Low: low, Close: close, Volume: volume}, true
}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseFloat(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(raw, 64)
	return v, err == nil
}

func parseInt(raw string) (int64, bool) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err == nil {
		return v, true
	}
	if f, ferr := strconv.ParseFloat(raw, 64); ferr == nil {
		return int64(f), true
	}
	return 0, false
}
