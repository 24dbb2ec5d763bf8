package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/crop-advisor/internal/cost"
	"github.com/sells-group/crop-advisor/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Weather WeatherConfig `yaml:"weather" mapstructure:"weather"`
	Model   ModelConfig   `yaml:"model" mapstructure:"model"`
	Auth    AuthConfig    `yaml:"auth" mapstructure:"auth"`
	Cost    cost.Rates    `yaml:"cost" mapstructure:"cost"`
	Pricing PricingConfig `yaml:"pricing" mapstructure:"pricing"`
	CORS    CORSConfig    `yaml:"cors" mapstructure:"cors"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port                int `yaml:"port" mapstructure:"port"`
	ReadTimeoutSecs     int `yaml:"read_timeout_secs" mapstructure:"read_timeout_secs"`
	WriteTimeoutSecs    int `yaml:"write_timeout_secs" mapstructure:"write_timeout_secs"`
	ShutdownTimeoutSecs int `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// WeatherConfig configures the OpenWeatherMap client and weather cache.
type WeatherConfig struct {
	APIKey          string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL         string        `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs     int           `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	CacheTTLMinutes int           `yaml:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`
	Circuit         CircuitConfig `yaml:"circuit" mapstructure:"circuit"`
}

// CircuitConfig configures the upstream circuit breaker.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// ModelConfig configures classifier persistence and training.
type ModelConfig struct {
	Path             string `yaml:"path" mapstructure:"path"`
	TrainingData     string `yaml:"training_data" mapstructure:"training_data"`
	TrainOnStartup   bool   `yaml:"train_on_startup" mapstructure:"train_on_startup"`
	TrainTimeoutSecs int    `yaml:"train_timeout_secs" mapstructure:"train_timeout_secs"`
}

// AuthConfig configures sessions.
type AuthConfig struct {
	SessionTTLHours      int `yaml:"session_ttl_hours" mapstructure:"session_ttl_hours"`
	SweepIntervalMinutes int `yaml:"sweep_interval_minutes" mapstructure:"sweep_interval_minutes"`
}

// PricingConfig controls whether observed market prices override the
// reference prices.
type PricingConfig struct {
	UseMarketPrices bool `yaml:"use_market_prices" mapstructure:"use_market_prices"`
}

// CORSConfig configures cross-origin access to the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// Timeout returns the per-attempt weather timeout.
func (w WeatherConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSecs) * time.Second
}

// CacheTTL returns how long live observations are cached.
func (w WeatherConfig) CacheTTL() time.Duration {
	return time.Duration(w.CacheTTLMinutes) * time.Minute
}

// SessionTTL returns the lifetime of a sign-in session.
func (a AuthConfig) SessionTTL() time.Duration {
	return time.Duration(a.SessionTTLHours) * time.Hour
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CROP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	rates := cost.DefaultRates()
	v.SetDefault("server.port", 5001)
	v.SetDefault("server.read_timeout_secs", 15)
	v.SetDefault("server.write_timeout_secs", 60)
	v.SetDefault("server.shutdown_timeout_secs", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "crop-advisor.db")
	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.base_url", "https://api.openweathermap.org/data/2.5")
	v.SetDefault("weather.timeout_secs", 10)
	v.SetDefault("weather.rate_limit_rps", 5)
	v.SetDefault("weather.cache_ttl_minutes", 30)
	v.SetDefault("weather.circuit.failure_threshold", 5)
	v.SetDefault("weather.circuit.reset_timeout_secs", 60)
	v.SetDefault("model.path", "crop_model.json")
	v.SetDefault("model.training_data", "")
	v.SetDefault("model.train_on_startup", true)
	v.SetDefault("model.train_timeout_secs", 600)
	v.SetDefault("auth.session_ttl_hours", 168)
	v.SetDefault("auth.sweep_interval_minutes", 60)
	v.SetDefault("cost.cereal", rates.Cereal)
	v.SetDefault("cost.fruit", rates.Fruit)
	v.SetDefault("cost.fiber", rates.Fiber)
	v.SetDefault("cost.other", rates.Other)
	v.SetDefault("pricing.use_market_prices", false)
	v.SetDefault("cors.allowed_origins", []string{"*"})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the keys a command needs. mode is one of "serve",
// "recommend", "train", "prices" or "migrate".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Auth.SessionTTLHours <= 0 {
			errs = append(errs, "auth.session_ttl_hours must be > 0")
		}
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateModel()...)
		errs = append(errs, c.validateWeather()...)
	case "recommend":
		errs = append(errs, c.validateModel()...)
		errs = append(errs, c.validateWeather()...)
	case "train":
		if c.Model.Path == "" {
			errs = append(errs, "model.path is required")
		}
	case "prices", "migrate":
		errs = append(errs, c.validateStore()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	for _, r := range []struct {
		name string
		v    float64
	}{
		{"cereal", c.Cost.Cereal}, {"fruit", c.Cost.Fruit}, {"fiber", c.Cost.Fiber}, {"other", c.Cost.Other},
	} {
		if r.v < 0 || r.v >= 1 {
			errs = append(errs, fmt.Sprintf("cost.%s must be in [0, 1)", r.name))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return []string{fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver)}
	}
	if c.Store.DatabaseURL == "" {
		return []string{"store.database_url is required"}
	}
	return nil
}

func (c *Config) validateModel() []string {
	if c.Model.Path == "" && !c.Model.TrainOnStartup {
		return []string{"model.path is required unless model.train_on_startup is set"}
	}
	return nil
}

func (c *Config) validateWeather() []string {
	var errs []string
	if c.Weather.TimeoutSecs <= 0 {
		errs = append(errs, "weather.timeout_secs must be > 0")
	}
	if c.Weather.RateLimitRPS < 0 {
		errs = append(errs, "weather.rate_limit_rps must be >= 0")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
