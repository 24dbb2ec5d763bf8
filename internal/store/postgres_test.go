package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crop-advisor/internal/model"
)

var fixedNow = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock, now: func() time.Time { return fixedNow }}
	return s, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateUser(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	u := testUser("01")

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), u.Phone, u.Gmail, u.Username, u.Name, u.PasswordHash, fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.CreateUser(context.Background(), u))
	assert.NotEmpty(t, u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateUserConflict(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	u := testUser("01")

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), u.Phone, u.Gmail, u.Username, u.Name, u.PasswordHash, fixedNow).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_phone_key"})

	err := s.CreateUser(context.Background(), u)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "users_phone_key")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetUserByIdentifier(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	login := fixedNow.Add(-time.Hour)

	rows := pgxmock.NewRows([]string{"id", "phone", "gmail", "username", "name", "password_hash", "created_at", "last_login"}).
		AddRow("u1", "9876543201", "a@gmail.com", "asha", "Asha", "hash", fixedNow.Add(-24*time.Hour), &login)
	mock.ExpectQuery(`FROM users\s+WHERE phone = \$1 OR gmail = \$1 OR username = \$1`).
		WithArgs("asha").
		WillReturnRows(rows)

	u, err := s.GetUserByIdentifier(context.Background(), "asha")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	require.NotNil(t, u.LastLogin)
	assert.Equal(t, login, *u.LastLogin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetUser_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetUser(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_TouchLogin_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE users SET last_login`).
		WithArgs(fixedNow, "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.ErrorIs(t, s.TouchLogin(context.Background(), "ghost", fixedNow), ErrNotFound)
}

func TestPostgresStore_Sessions(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs(pgxmock.AnyArg(), "u1", fixedNow, fixedNow.Add(2*time.Hour)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	sess, err := s.CreateSession(ctx, "u1", 2*time.Hour)
	require.NoError(t, err)

	mock.ExpectQuery(`FROM sessions\s+WHERE token = \$1 AND expires_at > \$2`).
		WithArgs(sess.Token, fixedNow).
		WillReturnRows(pgxmock.NewRows([]string{"token", "user_id", "created_at", "expires_at"}).
			AddRow(sess.Token, "u1", fixedNow, fixedNow.Add(2*time.Hour)))
	got, err := s.GetSession(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	mock.ExpectQuery(`FROM sessions`).WithArgs("stale", fixedNow).WillReturnError(pgx.ErrNoRows)
	_, err = s.GetSession(ctx, "stale")
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at <= \$1`).
		WithArgs(fixedNow).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	n, err := s.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WeatherCache(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT observation FROM weather_cache`).
		WithArgs("pune", fixedNow).
		WillReturnError(pgx.ErrNoRows)
	got, err := s.GetCachedWeather(ctx, "pune")
	require.NoError(t, err)
	assert.Nil(t, got)

	mock.ExpectExec(`INSERT INTO weather_cache .* ON CONFLICT \(location_key\) DO UPDATE`).
		WithArgs("pune", pgxmock.AnyArg(), fixedNow, fixedNow.Add(time.Hour)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, s.SetCachedWeather(ctx, "pune", model.WeatherObservation{Temperature: 27}, time.Hour))

	mock.ExpectQuery(`SELECT observation FROM weather_cache`).
		WithArgs("pune", fixedNow).
		WillReturnRows(pgxmock.NewRows([]string{"observation"}).AddRow([]byte(`{"temperature":27,"location":"Pune"}`)))
	got, err = s.GetCachedWeather(ctx, "pune")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Pune", got.Location)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestPrice(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	ctx := context.Background()

	mock.ExpectQuery(`FROM market_prices\s+WHERE crop = \$1 GROUP BY observed_on`).
		WithArgs("wheat").
		WillReturnRows(pgxmock.NewRows([]string{"observed_on", "min", "count", "avg"}).
			AddRow(fixedNow, "Indore", 1, 2350.0))
	mp, err := s.LatestPrice(ctx, "Wheat")
	require.NoError(t, err)
	require.NotNil(t, mp)
	assert.Equal(t, "Indore", mp.Market)
	assert.InDelta(t, 2350.0, mp.PricePerQuintal, 1e-9)

	mock.ExpectQuery(`FROM market_prices`).WithArgs("jute").WillReturnError(pgx.ErrNoRows)
	mp, err = s.LatestPrice(ctx, "jute")
	require.NoError(t, err)
	assert.Nil(t, mp)

	mock.ExpectQuery(`FROM market_prices`).WithArgs("rice").WillReturnError(errors.New("conn lost"))
	_, err = s.LatestPrice(ctx, "rice")
	assert.ErrorContains(t, err, "postgres: latest price")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ImportPrices(t *testing.T) {
	prices := []model.MarketPrice{
		{ObservedOn: day("2026-10-02"), Market: "Pune", Crop: "Wheat", PricePerQuintal: 2300},
		{ObservedOn: day("2026-10-02"), Market: "Indore", Crop: "wheat", PricePerQuintal: 2500},
	}

	t.Run("upsert", func(t *testing.T) {
		s, mock := newMockPostgresStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
		mock.ExpectCopyFrom(pgx.Identifier{"_staging_market_prices"}, priceColumns).WillReturnResult(2)
		mock.ExpectExec(`INSERT INTO "market_prices"`).WillReturnResult(pgxmock.NewResult("INSERT", 2))
		mock.ExpectCommit()

		n, err := s.ImportPrices(context.Background(), prices, false)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("replace", func(t *testing.T) {
		s, mock := newMockPostgresStore(t)
		mock.ExpectExec(`TRUNCATE market_prices`).WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
		mock.ExpectCopyFrom(pgx.Identifier{"market_prices"}, priceColumns).WillReturnResult(2)

		n, err := s.ImportPrices(context.Background(), prices, true)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
