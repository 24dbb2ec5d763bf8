package openweather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crop-advisor/internal/resilience"
)

const mumbaiJSON = `{
  "coord": {"lon": 72.85, "lat": 19.01},
  "weather": [{"main": "Rain", "description": "moderate rain"}],
  "main": {"temp": 28.4, "humidity": 88},
  "rain": {"1h": 2.1},
  "sys": {"country": "IN"},
  "name": "Mumbai"
}`

func TestCurrent_Success(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "Mumbai, Maharashtra, India", r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(mumbaiJSON))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	cur, err := client.Current(context.Background(), "Mumbai, Maharashtra, India")

	require.NoError(t, err)
	assert.Equal(t, "Mumbai", cur.Name)
	assert.Equal(t, "IN", cur.Sys.Country)
	assert.InDelta(t, 28.4, cur.Main.Temp, 0.001)
	assert.InDelta(t, 88.0, cur.Main.Humidity, 0.001)
	assert.InDelta(t, 2.1, cur.RainLastHour(), 0.001)
	assert.Equal(t, "moderate rain", cur.Description())
	assert.InDelta(t, 19.01, cur.Coord.Lat, 0.001)
}

func TestCurrent_NoRainOrConditions(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"name":"Jaipur","main":{"temp":35,"humidity":20},"sys":{"country":"IN"}}`))
	}))
	defer srv.Close()

	cur, err := NewClient("k", WithBaseURL(srv.URL)).Current(context.Background(), "Jaipur")
	require.NoError(t, err)
	assert.Zero(t, cur.RainLastHour())
	assert.Empty(t, cur.Description())
}

func TestCurrent_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		body      string
		notFound  bool
		transient bool
	}{
		{"not found", http.StatusNotFound, `{"cod":"404","message":"city not found"}`, true, false},
		{"unauthorized", http.StatusUnauthorized, `{"cod":401}`, false, false},
		{"rate limited", http.StatusTooManyRequests, `{}`, false, true},
		{"server error", http.StatusBadGateway, `bad gateway`, false, true},
		{"bad json", http.StatusOK, `{not json`, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient("k", WithBaseURL(srv.URL)).Current(context.Background(), "Atlantis")
			require.Error(t, err)
			assert.Equal(t, tt.notFound, errors.Is(err, ErrNotFound))
			assert.Equal(t, tt.transient, resilience.IsTransient(err))
		})
	}
}

func TestCurrent_Timeout(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(mumbaiJSON))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL), WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	_, err := client.Current(context.Background(), "Mumbai")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestCurrent_RateLimitHonoursContext(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(mumbaiJSON))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL), WithRateLimit(0.001))
	_, err := client.Current(context.Background(), "Mumbai")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Current(ctx, "Mumbai")
	assert.ErrorContains(t, err, "rate limiter wait")
}
