package pricebook

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crop-advisor/internal/model"
	"github.com/sells-group/crop-advisor/internal/store"
)

const sample = `Date,Market,Crop,Price_per_qtl,Arrivals
2026-10-01,Pune,Wheat,2200,140
02-10-2026,Indore,wheat,2500,90
2026-10-02,Pune,Wheat,2300,120
2026-10-02,Pune,wheat,2350,130
`

func TestRead(t *testing.T) {
	t.Parallel()

	prices, err := Read(context.Background(), strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, prices, 3, "duplicate key keeps the last row")

	assert.Equal(t, "wheat", prices[0].Crop)
	assert.Equal(t, time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC), prices[1].ObservedOn)
	assert.InDelta(t, 2350.0, prices[2].PricePerQuintal, 1e-9)
}

func TestRead_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, csv, msg string
	}{
		{"missing column", "Date,Market,Crop\n2026-10-01,Pune,Wheat\n", "Price_per_qtl"},
		{"bad date", "Date,Market,Crop,Price_per_qtl\nyesterday,Pune,Wheat,2200\n", "unrecognized date"},
		{"bad price", "Date,Market,Crop,Price_per_qtl\n2026-10-01,Pune,Wheat,free\n", "invalid price"},
		{"zero price", "Date,Market,Crop,Price_per_qtl\n2026-10-01,Pune,Wheat,0\n", "invalid price"},
		{"missing crop", "Date,Market,Crop,Price_per_qtl\n2026-10-01,Pune,,2200\n", "required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Read(context.Background(), strings.NewReader(tt.csv))
			require.Error(t, err)
			assert.Contains(t, strings.ToLower(err.Error()), strings.ToLower(tt.msg))
		})
	}
}

type recordingImporter struct {
	prices  []model.MarketPrice
	replace bool
}

func (r *recordingImporter) ImportPrices(_ context.Context, prices []model.MarketPrice, replace bool) (int64, error) {
	r.prices, r.replace = prices, replace
	return int64(len(prices)), nil
}

func TestImport_LocalFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	imp := &recordingImporter{}
	n, err := Import(context.Background(), imp, nil, path, true)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.True(t, imp.replace)
}

func TestImport_EmptyFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte("Date,Market,Crop,Price_per_qtl\n"), 0o644))

	_, err := Import(context.Background(), &recordingImporter{}, nil, path, false)
	assert.ErrorContains(t, err, "no rows")
}

func TestImport_IntoSQLite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "prices.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(ctx))

	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	_, err = Import(ctx, st, nil, path, false)
	require.NoError(t, err)

	mp, err := st.LatestPrice(ctx, "wheat")
	require.NoError(t, err)
	require.NotNil(t, mp)
	assert.InDelta(t, (2500.0+2350.0)/2, mp.PricePerQuintal, 1e-9)
	assert.Equal(t, "2 markets", mp.Market)
}
