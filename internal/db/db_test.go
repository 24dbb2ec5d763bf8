package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var priceCols = []string{"observed_on", "market", "crop", "price_per_qtl"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestCopyFrom(t *testing.T) {
	t.Parallel()

	t.Run("empty rows skip the pool", func(t *testing.T) {
		t.Parallel()
		n, err := CopyFrom(context.Background(), nil, "market_prices", priceCols, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("plain table", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		mock.ExpectCopyFrom(pgx.Identifier{"market_prices"}, priceCols).WillReturnResult(2)

		n, err := CopyFrom(context.Background(), mock, "market_prices", priceCols, [][]any{
			{"2026-10-01", "Pune", "wheat", 2250.0},
			{"2026-10-01", "Nashik", "grapes", 6100.0},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("schema qualified", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		mock.ExpectCopyFrom(pgx.Identifier{"agri", "market_prices"}, priceCols).WillReturnResult(1)

		n, err := CopyFrom(context.Background(), mock, "agri.market_prices", priceCols, [][]any{{"2026-10-01", "Pune", "wheat", 2250.0}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("error is wrapped", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		mock.ExpectCopyFrom(pgx.Identifier{"market_prices"}, priceCols).WillReturnError(errors.New("disk full"))

		_, err := CopyFrom(context.Background(), mock, "market_prices", priceCols, [][]any{{"2026-10-01", "Pune", "wheat", 1.0}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "copy into market_prices")
	})
}

func TestBulkUpsert_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	n, err := BulkUpsert(ctx, nil, UpsertConfig{Table: "market_prices", Columns: priceCols, ConflictKeys: priceCols[:3]}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = BulkUpsert(ctx, nil, UpsertConfig{Table: "market_prices", ConflictKeys: priceCols[:3]}, [][]any{{1}})
	assert.ErrorContains(t, err, "no columns specified")

	_, err = BulkUpsert(ctx, nil, UpsertConfig{Table: "market_prices", Columns: priceCols}, [][]any{{1}})
	assert.ErrorContains(t, err, "no conflict keys specified")
}

func TestBulkUpsert_Success(t *testing.T) {
	t.Parallel()
	mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_staging_market_prices" \(LIKE "market_prices"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_staging_market_prices"}, priceCols).WillReturnResult(2)
	mock.ExpectExec(`ON CONFLICT \("observed_on", "market", "crop"\) DO UPDATE SET "price_per_qtl" = EXCLUDED."price_per_qtl"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "market_prices",
		Columns:      priceCols,
		ConflictKeys: priceCols[:3],
	}, [][]any{
		{"2026-10-01", "Pune", "wheat", 2250.0},
		{"2026-10-02", "Pune", "wheat", 2275.0},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_AllKeysDoNothing(t *testing.T) {
	t.Parallel()
	mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_staging_tags"}, []string{"name"}).WillReturnResult(1)
	mock.ExpectExec(`ON CONFLICT \("name"\) DO NOTHING`).WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table: "tags", Columns: []string{"name"}, ConflictKeys: []string{"name"},
	}, [][]any{{"rabi"}})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_MergeFailureRollsBack(t *testing.T) {
	t.Parallel()
	mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_staging_market_prices"}, priceCols).WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO "market_prices"`).WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	_, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table: "market_prices", Columns: priceCols, ConflictKeys: priceCols[:3],
	}, [][]any{{"2026-10-01", "Pune", "wheat", 2250.0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merge into market_prices")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentifier(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `"market_prices"`, identifier("market_prices").Sanitize())
	assert.Equal(t, `"agri"."market_prices"`, identifier("agri.market_prices").Sanitize())
	assert.Equal(t, `"observed_on", "crop"`, quoteAndJoin([]string{"observed_on", "crop"}))
}
