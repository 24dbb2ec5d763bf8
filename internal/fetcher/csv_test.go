package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectRows(t *testing.T, rowCh <-chan Row, errCh <-chan error) ([]Row, error) {
	t.Helper()
	var rows []Row
	for row := range rowCh {
		rows = append(rows, row)
	}
	for err := range errCh {
		if err != nil {
			return rows, err
		}
	}
	return rows, nil
}

func TestStreamCSV_HeaderIndexed(t *testing.T) {
	t.Parallel()
	input := "N,P,K,temperature,humidity,ph,rainfall,label\n90, 42,43,20.8,82.0,6.5,202.9,rice\n"

	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "42", rows[0].Get("P"))
	assert.Equal(t, "6.5", rows[0].Get("PH"))
	assert.Equal(t, "rice", rows[0].Get("label"))
	assert.Empty(t, rows[0].Get("missing"))
}

func TestStreamCSV_ShortRow(t *testing.T) {
	t.Parallel()
	input := "Date,Market,Crop,Price_per_qtl\n2026-10-01,Pune\n"

	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Pune", rows[0].Get("market"))
	assert.Empty(t, rows[0].Get("crop"))
}

func TestStreamCSV_BOMAndDelimiter(t *testing.T) {
	t.Parallel()
	input := "\ufeffCrop;Price_per_qtl\nwheat;2250\n# skipped\nrice;2100\n"

	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{
		Delimiter: ';',
		Comment:   '#',
	})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "wheat", rows[0].Get("crop"))
	assert.Equal(t, "2100", rows[1].Get("price_per_qtl"))
}

func TestStreamCSV_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		opts  CSVOptions
		want  string
	}{
		{"empty", "", CSVOptions{}, "empty input"},
		{"missing column", "a,b\n1,2\n", CSVOptions{Required: []string{"a", "label"}}, `missing required column "label"`},
		{"bad quote", "a,b\n\"1,2\n", CSVOptions{}, "read line 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(tt.input), tt.opts)
			_, err := collectRows(t, rowCh, errCh)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestStreamCSV_Cancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rowCh, errCh := StreamCSV(ctx, strings.NewReader("a\n1\n2\n"), CSVOptions{})
	_, err := collectRows(t, rowCh, errCh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
}
