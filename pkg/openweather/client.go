// Package openweather is a minimal client for the OpenWeatherMap current
// weather API.
package openweather

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/crop-advisor/internal/resilience"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5"

// ErrNotFound is returned when the API does not recognise the query.
var ErrNotFound = eris.New("openweather: location not found")

// Client fetches current conditions.
type Client interface {
	Current(ctx context.Context, query string) (*Current, error)
}

// Current is the subset of the current weather response the module uses.
type Current struct {
	Name    string         `json:"name"`
	Coord   Coord          `json:"coord"`
	Weather []Condition    `json:"weather"`
	Main    Main           `json:"main"`
	Rain    *Precipitation `json:"rain,omitempty"`
	Sys     Sys            `json:"sys"`
}

// Coord is a latitude/longitude pair.
type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Condition is one weather condition entry.
type Condition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

// Main holds temperature and humidity. Temperature is Celsius because
// requests ask for metric units.
type Main struct {
	Temp     float64 `json:"temp"`
	Humidity float64 `json:"humidity"`
}

// Precipitation is rain volume in millimetres.
type Precipitation struct {
	OneHour float64 `json:"1h"`
}

// Sys carries the country code.
type Sys struct {
	Country string `json:"country"`
}

// Description returns the first condition description, or "".
func (c *Current) Description() string {
	if len(c.Weather) == 0 {
		return ""
	}
	return c.Weather[0].Description
}

// RainLastHour returns the 1h rain volume, zero when absent.
func (c *Current) RainLastHour() float64 {
	if c.Rain == nil {
		return 0
	}
	return c.Rain.OneHour
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables the cap.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an OpenWeatherMap client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Current(ctx context.Context, query string) (*Current, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "openweather: rate limiter wait")
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/weather?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "openweather: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "openweather: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "openweather: read response")
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, eris.Wrapf(ErrNotFound, "query %q", query)
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return nil, resilience.NewTransientError(
			eris.Errorf("openweather: unexpected status %d: %s", resp.StatusCode, string(body)),
			resp.StatusCode,
		)
	case resp.StatusCode != http.StatusOK:
		return nil, eris.Errorf("openweather: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result Current
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "openweather: unmarshal response")
	}
	return &result, nil
}
