package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crop-advisor/internal/weather"
)

func TestRecommendationAndWeatherCounters(t *testing.T) {
	t.Parallel()
	m := New(prometheus.NewRegistry())

	m.Recommendation(OutcomeOK)
	m.Recommendation(OutcomeOK)
	m.Recommendation(OutcomeWarmingUp)
	m.WeatherLookup(weather.SourceLive)
	m.WeatherLookup(weather.SourceDefault)

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.recommendations.WithLabelValues(OutcomeOK)), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.recommendations.WithLabelValues(OutcomeWarmingUp)), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.weatherLookups.WithLabelValues("default")), 1e-9)
	assert.InDelta(t, 0.0, testutil.ToFloat64(m.weatherLookups.WithLabelValues("cache")), 1e-9)
}

func TestClassifierHooks(t *testing.T) {
	t.Parallel()
	m := New(prometheus.NewRegistry())
	hooks := m.ClassifierHooks()

	assert.InDelta(t, 0.0, testutil.ToFloat64(m.modelReady), 1e-9)
	hooks.Ready(true)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.modelReady), 1e-9)
	hooks.Ready(false)
	assert.InDelta(t, 0.0, testutil.ToFloat64(m.modelReady), 1e-9)

	hooks.Trained(250*time.Millisecond, nil)
	hooks.Trained(time.Second, errors.New("bad csv"))
	assert.Equal(t, 2, testutil.CollectAndCount(m.trainingDuration))
}

func TestHandler(t *testing.T) {
	t.Parallel()
	m := New(prometheus.NewRegistry())
	m.Recommendation(OutcomeInvalid)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `crop_advisor_recommendations_total{outcome="invalid"} 1`)
	assert.Contains(t, string(body), "crop_advisor_model_ready 0")
}
