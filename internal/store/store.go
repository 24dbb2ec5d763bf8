// Package store persists users, sessions, cached weather and market prices.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crop-advisor/internal/model"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = eris.New("store: not found")
	// ErrConflict is returned when a unique constraint is violated.
	ErrConflict = eris.New("store: conflict")
)

// Store defines the persistence interface. Cache and price lookups return
// (nil, nil) on a miss; entity lookups return ErrNotFound.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	TouchLogin(ctx context.Context, userID string, at time.Time) error

	// Sessions
	CreateSession(ctx context.Context, userID string, ttl time.Duration) (*model.Session, error)
	GetSession(ctx context.Context, token string) (*model.Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context) (int, error)

	// Weather cache
	GetCachedWeather(ctx context.Context, key string) (*model.WeatherObservation, error)
	SetCachedWeather(ctx context.Context, key string, obs model.WeatherObservation, ttl time.Duration) error

	// Market prices
	LatestPrice(ctx context.Context, crop string) (*model.MarketPrice, error)
	ImportPrices(ctx context.Context, prices []model.MarketPrice, replace bool) (int64, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// dateLayout is the on-disk form of market price dates.
const dateLayout = "2006-01-02"

// latestPrice builds the MarketPrice for the most recent observation day,
// averaging across markets that reported that day.
func latestPrice(crop string, day time.Time, market string, markets int, avg float64) *model.MarketPrice {
	mp := &model.MarketPrice{Crop: crop, Market: market, PricePerQuintal: avg, ObservedOn: day}
	if markets > 1 {
		mp.Market = fmt.Sprintf("%d markets", markets)
	}
	return mp
}
