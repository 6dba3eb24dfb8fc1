package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/utafrali/storefront/internal/storage"
	pkgconfig "github.com/utafrali/storefront/pkg/config"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "STOREFRONT_"

// Config holds all configuration for the storefront client.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"warn"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"text"`

	// Storefront API
	APIBaseURL  string        `env:"API_BASE_URL,required"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`

	// Durable client storage
	StorageBackend string        `env:"STORAGE_BACKEND" envDefault:"sqlite"`
	StatePath      string        `env:"STATE_PATH"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"168h"`

	// Redis (STORAGE_BACKEND=redis)
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"storefront:"`

	// Wishlist
	WishlistPageSize int `env:"WISHLIST_PAGE_SIZE" envDefault:"5"`

	// Circuit breaker for API calls
	BreakerEnabled      bool          `env:"BREAKER_ENABLED" envDefault:"true"`
	BreakerMaxRequests  uint32        `env:"CB_MAX_REQUESTS" envDefault:"1"`
	BreakerInterval     time.Duration `env:"CB_INTERVAL" envDefault:"60s"`
	BreakerTimeout      time.Duration `env:"CB_TIMEOUT" envDefault:"30s"`
	BreakerFailureRatio float64       `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	BreakerMinRequests  uint32        `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Client-side rate limit; 0 disables it.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"0"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"1"`

	// Kafka activity events; empty disables publishing.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Prometheus /metrics listener; empty disables it.
	MetricsAddr string `env:"METRICS_ADDR"`
}

// Load reads configuration from STOREFRONT_* environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadWithPrefix(cfg, EnvPrefix); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if cfg.StatePath == "" {
		cfg.StatePath = DefaultStatePath()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	u, err := url.ParseRequestURI(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("invalid API_BASE_URL %q: %w", c.APIBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API_BASE_URL must be http or https, got %q", u.Scheme)
	}
	switch c.Backend() {
	case storage.BackendSQLite, storage.BackendRedis, storage.BackendMemory:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.Backend() == storage.BackendRedis && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required for the redis backend")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.WishlistPageSize < 1 {
		return fmt.Errorf("WISHLIST_PAGE_SIZE must be at least 1, got %d", c.WishlistPageSize)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative, got %f", c.RateLimitRPS)
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1.0 {
		return fmt.Errorf("CB_FAILURE_RATIO must be in (0, 1], got %f", c.BreakerFailureRatio)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	return nil
}

// Backend returns the selected storage backend.
func (c *Config) Backend() storage.Backend {
	return storage.Backend(strings.ToLower(c.StorageBackend))
}

// KafkaEnabled reports whether activity events are published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// SQLitePath returns the database file used by the sqlite backend.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.StatePath, "storefront.db")
}
