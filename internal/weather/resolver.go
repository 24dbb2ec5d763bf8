package weather

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/crop-advisor/internal/model"
	"github.com/sells-group/crop-advisor/internal/resilience"
	"github.com/sells-group/crop-advisor/pkg/openweather"
)

// Source says where an observation came from.
type Source string

const (
	SourceLive    Source = "live"
	SourceCache   Source = "cache"
	SourceDefault Source = "default"
)

// Cache stores live observations. A miss is (nil, nil).
type Cache interface {
	GetCachedWeather(ctx context.Context, key string) (*model.WeatherObservation, error)
	SetCachedWeather(ctx context.Context, key string, obs model.WeatherObservation, ttl time.Duration) error
}

// Options configures a Resolver. Zero values are usable.
type Options struct {
	AttemptTimeout time.Duration // per candidate; default 10s
	CacheTTL       time.Duration // zero disables caching
	Cache          Cache
	Breaker        *resilience.CircuitBreaker
	Rand           RandSource
	Now            func() time.Time
	OnLookup       func(Source)
}

// Resolver turns locations into observations. It never fails: when no
// candidate resolves, it returns DefaultObservation.
type Resolver struct {
	client openweather.Client
	opts   Options
}

// NewResolver creates a Resolver. client may be nil, in which case every
// lookup returns the default observation.
func NewResolver(client openweather.Client, opts Options) *Resolver {
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 10 * time.Second
	}
	if opts.Rand == nil {
		opts.Rand = NewRandSource(rand.Uint64())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Breaker == nil {
		opts.Breaker = resilience.NewCircuitBreaker(resilience.BreakerConfig{
			Name:       "openweather",
			ShouldTrip: resilience.IsTransient,
		})
	}
	return &Resolver{client: client, opts: opts}
}

// Resolve returns the weather for a location.
func (r *Resolver) Resolve(ctx context.Context, location string) model.WeatherObservation {
	obs, src := r.resolve(ctx, location)
	if r.opts.OnLookup != nil {
		r.opts.OnLookup(src)
	}
	return obs
}

func (r *Resolver) resolve(ctx context.Context, location string) (model.WeatherObservation, Source) {
	key := CacheKey(location)
	if obs := r.cached(ctx, key); obs != nil {
		return *obs, SourceCache
	}

	now := r.opts.Now()
	if r.client != nil {
		for _, q := range Candidates(location) {
			cur, err := r.attempt(ctx, q)
			if err != nil {
				zap.L().Debug("weather: candidate failed", zap.String("query", q), zap.Error(err))
				if ctx.Err() != nil {
					break
				}
				continue
			}
			obs := r.fromCurrent(cur, q, now)
			r.store(ctx, key, obs)
			return obs, SourceLive
		}
	}

	zap.L().Warn("weather: no live data, using seasonal averages", zap.String("location", location))
	return DefaultObservation(location, now), SourceDefault
}

func (r *Resolver) attempt(ctx context.Context, query string) (*openweather.Current, error) {
	return resilience.ExecuteVal(ctx, r.opts.Breaker, func(ctx context.Context) (*openweather.Current, error) {
		ctx, cancel := context.WithTimeout(ctx, r.opts.AttemptTimeout)
		defer cancel()
		return r.client.Current(ctx, query)
	})
}

func (r *Resolver) fromCurrent(cur *openweather.Current, query string, now time.Time) model.WeatherObservation {
	obs := model.WeatherObservation{
		Temperature:  cur.Main.Temp,
		Humidity:     cur.Main.Humidity,
		Rainfall:     cur.RainLastHour(),
		Description:  cur.Description(),
		Location:     cur.Name,
		Country:      cur.Sys.Country,
		Date:         now,
		MatchedQuery: query,
		Latitude:     cur.Coord.Lat,
		Longitude:    cur.Coord.Lon,
	}
	if obs.Description == "" {
		obs.Description = "clear"
	}
	if obs.Location == "" {
		obs.Location = query
	}
	if obs.Country == "" {
		obs.Country = "Unknown"
	}
	if obs.Rainfall < minLiveRainfall {
		obs.Rainfall = EstimateRainfall(now.Month(), obs.Latitude, obs.Longitude, obs.Humidity, r.opts.Rand)
		obs.RainfallEstimated = true
	}
	return obs
}

func (r *Resolver) cached(ctx context.Context, key string) *model.WeatherObservation {
	if r.opts.Cache == nil || r.opts.CacheTTL <= 0 {
		return nil
	}
	obs, err := r.opts.Cache.GetCachedWeather(ctx, key)
	if err != nil {
		zap.L().Warn("weather: cache read failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	return obs
}

func (r *Resolver) store(ctx context.Context, key string, obs model.WeatherObservation) {
	if r.opts.Cache == nil || r.opts.CacheTTL <= 0 {
		return
	}
	if err := r.opts.Cache.SetCachedWeather(ctx, key, obs, r.opts.CacheTTL); err != nil {
		zap.L().Warn("weather: cache write failed", zap.String("key", key), zap.Error(err))
	}
}
