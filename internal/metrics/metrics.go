// Package metrics exposes Prometheus instruments for the recommendation service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/crop-advisor/internal/classifier"
	"github.com/sells-group/crop-advisor/internal/weather"
)

const namespace = "crop_advisor"

// Recommendation outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeInvalid   = "invalid"
	OutcomeWarmingUp = "warming_up"
	OutcomeError     = "error"
)

// Metrics holds the service's instruments.
type Metrics struct {
	reg prometheus.Gatherer

	recommendations  *prometheus.CounterVec
	weatherLookups   *prometheus.CounterVec
	trainingDuration *prometheus.HistogramVec
	modelReady       prometheus.Gauge
}

// New creates and registers the instruments on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		reg: reg,
		recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendation requests by outcome.",
		}, []string{"outcome"}),
		weatherLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_lookups_total",
			Help:      "Weather resolutions by source (live, cache, default).",
		}, []string{"source"}),
		trainingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "Classifier training wall time.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		}, []string{"result"}),
		modelReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_ready",
			Help:      "1 when a classifier model is installed.",
		}),
	}
	reg.MustRegister(m.recommendations, m.weatherLookups, m.trainingDuration, m.modelReady)
	return m
}

// Recommendation counts one recommendation request.
func (m *Metrics) Recommendation(outcome string) {
	m.recommendations.WithLabelValues(outcome).Inc()
}

// WeatherLookup counts one weather resolution. It matches weather.Options.OnLookup.
func (m *Metrics) WeatherLookup(src weather.Source) {
	m.weatherLookups.WithLabelValues(string(src)).Inc()
}

// ClassifierHooks returns hooks that record training runs and readiness.
func (m *Metrics) ClassifierHooks() classifier.Hooks {
	return classifier.Hooks{
		Trained: func(d time.Duration, err error) {
			result := "ok"
			if err != nil {
				result = "error"
			}
			m.trainingDuration.WithLabelValues(result).Observe(d.Seconds())
		},
		Ready: func(ready bool) {
			if ready {
				m.modelReady.Set(1)
			} else {
				m.modelReady.Set(0)
			}
		},
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
