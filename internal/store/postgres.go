package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/crop-advisor/internal/db"
	"github.com/sells-group/crop-advisor/internal/model"
)

// uniqueViolation is the SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
	now  func() time.Time
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 1
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			pgxCfg.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			pgxCfg.MinConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, now: time.Now}, nil
}

// Pool returns the underlying pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	phone         TEXT NOT NULL UNIQUE,
	gmail         TEXT NOT NULL UNIQUE,
	username      TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_login    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS sessions (
	token      TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS weather_cache (
	location_key TEXT PRIMARY KEY,
	observation  JSONB NOT NULL,
	cached_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS market_prices (
	observed_on   DATE NOT NULL,
	market        TEXT NOT NULL,
	crop          TEXT NOT NULL,
	price_per_qtl DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (observed_on, market, crop)
);

CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
CREATE INDEX IF NOT EXISTS idx_weather_cache_expires_at ON weather_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_market_prices_crop ON market_prices(crop, observed_on DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// --- users ---

func (s *PostgresStore) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, phone, gmail, username, name, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Phone, u.Gmail, u.Username, u.Name, u.PasswordHash, u.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return eris.Wrapf(ErrConflict, "postgres: create user: %s", pgErr.ConstraintName)
	}
	return eris.Wrap(err, "postgres: create user")
}

const postgresUserColumns = `id, phone, gmail, username, name, password_hash, created_at, last_login`

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+postgresUserColumns+` FROM users WHERE id = $1`, id)
	return scanPostgresUser(row)
}

func (s *PostgresStore) GetUserByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+postgresUserColumns+` FROM users
		 WHERE phone = $1 OR gmail = $1 OR username = $1 LIMIT 1`,
		identifier,
	)
	return scanPostgresUser(row)
}

func (s *PostgresStore) TouchLogin(ctx context.Context, userID string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at, userID)
	if err != nil {
		return eris.Wrap(err, "postgres: touch login")
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "user %s", userID)
	}
	return nil
}

func scanPostgresUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Phone, &u.Gmail, &u.Username, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.LastLogin)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "postgres: user")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan user")
	}
	return &u, nil
}

// --- sessions ---

func (s *PostgresStore) CreateSession(ctx context.Context, userID string, ttl time.Duration) (*model.Session, error) {
	now := s.now().UTC()
	sess := &model.Session{
		Token:     uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`,
		sess.Token, sess.UserID, sess.CreatedAt, sess.ExpiresAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create session")
	}
	return sess, nil
}

func (s *PostgresStore) GetSession(ctx context.Context, token string) (*model.Session, error) {
	var sess model.Session
	err := s.pool.QueryRow(ctx,
		`SELECT token, user_id, created_at, expires_at FROM sessions
		 WHERE token = $1 AND expires_at > $2`,
		token, s.now().UTC(),
	).Scan(&sess.Token, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "postgres: session")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get session")
	}
	return &sess, nil
}

func (s *PostgresStore) DeleteSession(ctx context.Context, token string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return eris.Wrap(err, "postgres: delete session")
}

func (s *PostgresStore) DeleteExpiredSessions(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, s.now().UTC())
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired sessions")
	}
	return int(tag.RowsAffected()), nil
}

// --- weather cache ---

func (s *PostgresStore) GetCachedWeather(ctx context.Context, key string) (*model.WeatherObservation, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT observation FROM weather_cache WHERE location_key = $1 AND expires_at > $2`,
		key, s.now().UTC(),
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cached weather")
	}
	var obs model.WeatherObservation
	if err := json.Unmarshal(raw, &obs); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cached weather")
	}
	return &obs, nil
}

func (s *PostgresStore) SetCachedWeather(ctx context.Context, key string, obs model.WeatherObservation, ttl time.Duration) error {
	raw, err := json.Marshal(obs)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal weather")
	}
	now := s.now().UTC()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO weather_cache (location_key, observation, cached_at, expires_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (location_key) DO UPDATE SET
		   observation = EXCLUDED.observation,
		   cached_at = EXCLUDED.cached_at,
		   expires_at = EXCLUDED.expires_at`,
		key, raw, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached weather")
}

// --- market prices ---

var priceColumns = []string{"observed_on", "market", "crop", "price_per_qtl"}

func (s *PostgresStore) LatestPrice(ctx context.Context, crop string) (*model.MarketPrice, error) {
	var day time.Time
	var market string
	var n int
	var avg float64
	crop = strings.ToLower(crop)
	err := s.pool.QueryRow(ctx,
		`SELECT observed_on, MIN(market), COUNT(*), AVG(price_per_qtl) FROM market_prices
		 WHERE crop = $1 GROUP BY observed_on ORDER BY observed_on DESC LIMIT 1`,
		crop,
	).Scan(&day, &market, &n, &avg)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest price")
	}
	return latestPrice(crop, day, market, n, avg), nil
}

// ImportPrices upserts prices. With replace, the table is truncated and
// reloaded over COPY instead.
func (s *PostgresStore) ImportPrices(ctx context.Context, prices []model.MarketPrice, replace bool) (int64, error) {
	rows := make([][]any, len(prices))
	for i, p := range prices {
		rows[i] = []any{p.ObservedOn, p.Market, strings.ToLower(p.Crop), p.PricePerQuintal}
	}

	if !replace {
		n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
			Table:        "market_prices",
			Columns:      priceColumns,
			ConflictKeys: priceColumns[:3],
		}, rows)
		return n, eris.Wrap(err, "postgres: import prices")
	}

	if _, err := s.pool.Exec(ctx, `TRUNCATE market_prices`); err != nil {
		return 0, eris.Wrap(err, "postgres: truncate prices")
	}
	n, err := db.CopyFrom(ctx, s.pool, "market_prices", priceColumns, rows)
	return n, eris.Wrap(err, "postgres: import prices")
}
