package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Env               string        `envconfig:"APP_ENV" default:"development"`
	HTTPPort          int           `envconfig:"HTTP_PORT" default:"8082"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"5s"`
	LogLevel          string        `envconfig:"LOG_LEVEL"`

	DataBackend string `envconfig:"DATA_BACKEND" default:"memory"`

	DatabaseDriver    string        `envconfig:"DATABASE_DRIVER" default:"pgx"`
	DatabaseURL       string        `envconfig:"DATABASE_URL"`
	DBMaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	DBMaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	DBConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"1h"`
	DBConnMaxIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"30m"`
	DBConnectAttempts int           `envconfig:"DB_CONNECT_ATTEMPTS" default:"5"`

	RedisURL     string        `envconfig:"REDIS_URL"`
	UserCacheTTL time.Duration `envconfig:"USER_CACHE_TTL" default:"5m"`

	// HMACSecret is shared with the gateway. When empty every protected
	// route answers 401.
	HMACSecret string        `envconfig:"HMAC_SECRET"`
	HMACSkew   time.Duration `envconfig:"HMAC_SKEW" default:"60s"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	RateLimitPerMinute int      `envconfig:"RATE_LIMIT_PER_MINUTE" default:"30"`
}

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"

	envProduction = "production"
)

// Load reads configuration values from the environment, applying defaults where necessary.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c Config) Validate() error {
	switch c.DataBackend {
	case BackendMemory:
		// no-op
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when DATA_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unknown DATA_BACKEND value: %s", c.DataBackend)
	}

	if c.Env == envProduction && c.HMACSecret == "" {
		return errors.New("HMAC_SECRET is required when APP_ENV=production")
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT out of range: %d", c.HTTPPort)
	}
	if c.HMACSkew <= 0 {
		return errors.New("HMAC_SKEW must be positive")
	}
	if c.DBConnectAttempts < 1 {
		return errors.New("DB_CONNECT_ATTEMPTS must be at least 1")
	}
	if c.RateLimitPerMinute <= 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
