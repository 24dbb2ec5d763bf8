package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/crop-advisor/internal/model"
)

// tsLayout is fixed width so stored timestamps compare correctly as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

func ts(t time.Time) string { return t.UTC().Format(tsLayout) }

func parseTS(s string) (time.Time, error) {
	t, err := time.Parse(tsLayout, s)
	return t, eris.Wrapf(err, "sqlite: parse timestamp %q", s)
}

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	phone         TEXT NOT NULL UNIQUE,
	gmail         TEXT NOT NULL UNIQUE,
	username      TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	last_login    TEXT
);

CREATE TABLE IF NOT EXISTS sessions (
	token      TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at TEXT NOT NULL,
	expires_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS weather_cache (
	location_key TEXT PRIMARY KEY,
	observation  TEXT NOT NULL,
	cached_at    TEXT NOT NULL,
	expires_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS market_prices (
	observed_on   TEXT NOT NULL,
	market        TEXT NOT NULL,
	crop          TEXT NOT NULL,
	price_per_qtl REAL NOT NULL,
	PRIMARY KEY (observed_on, market, crop)
);

CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
CREATE INDEX IF NOT EXISTS idx_weather_cache_expires_at ON weather_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_market_prices_crop ON market_prices(crop, observed_on);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- users ---

func (s *SQLiteStore) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, phone, gmail, username, name, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Phone, u.Gmail, u.Username, u.Name, u.PasswordHash, ts(u.CreatedAt),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return eris.Wrap(ErrConflict, "sqlite: create user")
	}
	return eris.Wrap(err, "sqlite: create user")
}

const sqliteUserColumns = `id, phone, gmail, username, name, password_hash, created_at, last_login`

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteUserColumns+` FROM users WHERE id = ?`, id)
	return scanSQLiteUser(row)
}

func (s *SQLiteStore) GetUserByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteUserColumns+` FROM users
		 WHERE phone = ? OR gmail = ? OR username = ? LIMIT 1`,
		identifier, identifier, identifier,
	)
	return scanSQLiteUser(row)
}

func (s *SQLiteStore) TouchLogin(ctx context.Context, userID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, ts(at), userID)
	if err != nil {
		return eris.Wrap(err, "sqlite: touch login")
	}
	return checkRowsAffected(res, "user", userID)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLiteUser(row scannable) (*model.User, error) {
	var u model.User
	var created string
	var lastLogin sql.NullString
	err := row.Scan(&u.ID, &u.Phone, &u.Gmail, &u.Username, &u.Name, &u.PasswordHash, &created, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "sqlite: user")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan user")
	}
	if u.CreatedAt, err = parseTS(created); err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t, err := parseTS(lastLogin.String)
		if err != nil {
			return nil, err
		}
		u.LastLogin = &t
	}
	return &u, nil
}

// --- sessions ---

func (s *SQLiteStore) CreateSession(ctx context.Context, userID string, ttl time.Duration) (*model.Session, error) {
	now := s.now().UTC()
	sess := &model.Session{
		Token:     uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		sess.Token, sess.UserID, ts(sess.CreatedAt), ts(sess.ExpiresAt),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create session")
	}
	return sess, nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, token string) (*model.Session, error) {
	var sess model.Session
	var created, expires string
	err := s.db.QueryRowContext(ctx,
		`SELECT token, user_id, created_at, expires_at FROM sessions
		 WHERE token = ? AND expires_at > ?`,
		token, ts(s.now()),
	).Scan(&sess.Token, &sess.UserID, &created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "sqlite: session")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get session")
	}
	if sess.CreatedAt, err = parseTS(created); err != nil {
		return nil, err
	}
	if sess.ExpiresAt, err = parseTS(expires); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return eris.Wrap(err, "sqlite: delete session")
}

func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, ts(s.now()))
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired sessions")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// --- weather cache ---

func (s *SQLiteStore) GetCachedWeather(ctx context.Context, key string) (*model.WeatherObservation, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT observation FROM weather_cache WHERE location_key = ? AND expires_at > ?`,
		key, ts(s.now()),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached weather")
	}
	var obs model.WeatherObservation
	if err := json.Unmarshal([]byte(raw), &obs); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached weather")
	}
	return &obs, nil
}

func (s *SQLiteStore) SetCachedWeather(ctx context.Context, key string, obs model.WeatherObservation, ttl time.Duration) error {
	raw, err := json.Marshal(obs)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal weather")
	}
	now := s.now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO weather_cache (location_key, observation, cached_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(location_key) DO UPDATE SET
		   observation = excluded.observation,
		   cached_at = excluded.cached_at,
		   expires_at = excluded.expires_at`,
		key, string(raw), ts(now), ts(now.Add(ttl)),
	)
	return eris.Wrap(err, "sqlite: set cached weather")
}

// --- market prices ---

func (s *SQLiteStore) LatestPrice(ctx context.Context, crop string) (*model.MarketPrice, error) {
	var day, market string
	var n int
	var avg float64
	err := s.db.QueryRowContext(ctx,
		`SELECT observed_on, MIN(market), COUNT(*), AVG(price_per_qtl) FROM market_prices
		 WHERE crop = ? GROUP BY observed_on ORDER BY observed_on DESC LIMIT 1`,
		strings.ToLower(crop),
	).Scan(&day, &market, &n, &avg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest price")
	}
	observed, err := time.Parse(dateLayout, day)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: parse price date %q", day)
	}
	return latestPrice(strings.ToLower(crop), observed, market, n, avg), nil
}

func (s *SQLiteStore) ImportPrices(ctx context.Context, prices []model.MarketPrice, replace bool) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin import")
	}
	defer tx.Rollback() //nolint:errcheck

	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM market_prices`); err != nil {
			return 0, eris.Wrap(err, "sqlite: clear prices")
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO market_prices (observed_on, market, crop, price_per_qtl) VALUES (?, ?, ?, ?)
		 ON CONFLICT(observed_on, market, crop) DO UPDATE SET price_per_qtl = excluded.price_per_qtl`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare price insert")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, p := range prices {
		if _, err := stmt.ExecContext(ctx, p.ObservedOn.Format(dateLayout), p.Market, strings.ToLower(p.Crop), p.PricePerQuintal); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert price %s/%s", p.Market, p.Crop)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit import")
	}
	return n, nil
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}
