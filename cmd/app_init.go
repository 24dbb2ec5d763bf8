package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crop-advisor/internal/auth"
	"github.com/sells-group/crop-advisor/internal/classifier"
	"github.com/sells-group/crop-advisor/internal/cost"
	"github.com/sells-group/crop-advisor/internal/crops"
	"github.com/sells-group/crop-advisor/internal/estimate"
	"github.com/sells-group/crop-advisor/internal/fetcher"
	"github.com/sells-group/crop-advisor/internal/metrics"
	"github.com/sells-group/crop-advisor/internal/recommend"
	"github.com/sells-group/crop-advisor/internal/resilience"
	"github.com/sells-group/crop-advisor/internal/store"
	"github.com/sells-group/crop-advisor/internal/weather"
	"github.com/sells-group/crop-advisor/pkg/openweather"
)

// appEnv holds everything the serve and recommend commands need.
type appEnv struct {
	Store      store.Store
	Crops      *crops.KnowledgeBase
	Classifier *classifier.Service
	Weather    *weather.Resolver
	Income     *estimate.IncomeEstimator
	Engine     *recommend.Engine
	Auth       *auth.Service
	Metrics    *metrics.Metrics
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func newFetcher() *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{UserAgent: "crop-advisor/1.0"})
}

func newClassifier(hooks classifier.Hooks) *classifier.Service {
	return classifier.NewService(classifier.Options{
		ModelPath:    cfg.Model.Path,
		TrainingData: cfg.Model.TrainingData,
		TrainTimeout: time.Duration(cfg.Model.TrainTimeoutSecs) * time.Second,
		Fetcher:      newFetcher(),
		Hooks:        hooks,
	})
}

// newWeatherClient returns nil when no API key is configured, which makes
// the resolver fall back to seasonal averages.
func newWeatherClient() openweather.Client {
	if cfg.Weather.APIKey == "" {
		zap.L().Warn("weather.api_key not set, using seasonal averages for all lookups")
		return nil
	}
	return openweather.NewClient(cfg.Weather.APIKey,
		openweather.WithBaseURL(cfg.Weather.BaseURL),
		openweather.WithRateLimit(cfg.Weather.RateLimitRPS),
	)
}

// initApp opens the store and wires the recommendation pipeline. Callers
// should defer env.Close().
func initApp(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	kb, err := crops.Load()
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	svc := newClassifier(m.ClassifierHooks())
	if err := svc.LoadFromDisk(); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "load model")
	}

	bc := resilience.FromCircuitConfig("openweather", cfg.Weather.Circuit.FailureThreshold, cfg.Weather.Circuit.ResetTimeoutSecs)
	bc.ShouldTrip = resilience.IsTransient
	breaker := resilience.NewCircuitBreaker(bc)
	resolver := weather.NewResolver(newWeatherClient(), weather.Options{
		AttemptTimeout: cfg.Weather.Timeout(),
		CacheTTL:       cfg.Weather.CacheTTL(),
		Cache:          st,
		Breaker:        breaker,
		OnLookup:       m.WeatherLookup,
	})

	var prices estimate.PriceSource
	if cfg.Pricing.UseMarketPrices {
		prices = st
	}
	income := estimate.NewIncomeEstimator(kb, cost.NewCalculator(cfg.Cost), prices)

	return &appEnv{
		Store:      st,
		Crops:      kb,
		Classifier: svc,
		Weather:    resolver,
		Income:     income,
		Engine:     recommend.NewEngine(kb, svc, resolver, income),
		Auth:       auth.NewService(st, cfg.Auth.SessionTTL()),
		Metrics:    m,
	}, nil
}
