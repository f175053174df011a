package marketdata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadFileParsesStandardHeader(t *testing.T) {
	path := writeCSV(t, "Date,Open,High,Low,Close,Volume\n2023-01-02,100,101,99,100.5,1000000\n2023-01-03,100.5,102,100,101.5,1100000\n")

	loader := NewCSVLoader()
	bars, err := loader.LoadFile(path)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.InDelta(t, 100.5, bars[0].Close, 1e-9)
	assert.Equal(t, int64(1100000), bars[1].Volume)
}

func TestLoadFileSkipsUnparseableRows(t *testing.T) {
	path := writeCSV(t, "date,open,high,low,close,volume\n2023-01-02,100,101,99,100.5,1000000\nnot-a-date,1,2,3,4,5\n")

	loader := NewCSVLoader()
	bars, err := loader.LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, bars, 1)
}

func TestLoadFileRejectsMissingColumns(t *testing.T) {
	path := writeCSV(t, "date,open,high,low\n2023-01-02,100,101,99\n")

	loader := NewCSVLoader()
	_, err := loader.LoadFile(path)
	assert.Error(t, err)
}

func TestLoadFileRejectsAllRowsUnparseable(t *testing.T) {
	path := writeCSV(t, "date,open,high,low,close,volume\nbad,bad,bad,bad,bad,bad\n")

	loader := NewCSVLoader()
	_, err := loader.LoadFile(path)
	assert.Error(t, err)
}
