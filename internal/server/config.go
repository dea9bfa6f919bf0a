package server

import (
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/matzehuels/visstudy/pkg/errors"
)

// Config is read from VISSTUDY_* environment variables.
type Config struct {
	Server    ServerConfig
	Cache     CacheConfig
	OutputDir string `env:"VISSTUDY_OUTPUT_DIR" envDefault:"generated"`
	Minify    bool   `env:"VISSTUDY_MINIFY" envDefault:"false"`
}

// ServerConfig controls the HTTP listener and the per-request limits.
type ServerConfig struct {
	Addr            string        `env:"VISSTUDY_ADDR" envDefault:":8080"`
	Timeout         time.Duration `env:"VISSTUDY_TIMEOUT" envDefault:"2m"`
	ShutdownTimeout time.Duration `env:"VISSTUDY_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	ThrottleLimit   int           `env:"VISSTUDY_THROTTLE_LIMIT" envDefault:"16"`
}

// CacheConfig selects the shared Redis cache. When disabled, specs and pages
// are rendered on every request.
type CacheConfig struct {
	Enable        bool          `env:"VISSTUDY_CACHE_ENABLE" envDefault:"false"`
	RedisAddr     string        `env:"VISSTUDY_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"VISSTUDY_REDIS_PASSWORD"`
	RedisDB       int           `env:"VISSTUDY_REDIS_DB" envDefault:"0"`
	TTL           time.Duration `env:"VISSTUDY_REDIS_TTL" envDefault:"24h"`
	KeyPrefix     string        `env:"VISSTUDY_REDIS_PREFIX" envDefault:"visstudy:"`
}

// Load parses the environment and rejects values the server cannot run with.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the limits applied by the middleware stack.
func (c *Config) Validate() error {
	switch {
	case c.Server.ThrottleLimit < 1:
		return errors.New(errors.ErrCodeInvalidInput, "VISSTUDY_THROTTLE_LIMIT must be at least 1, got %d", c.Server.ThrottleLimit)
	case c.Server.Timeout <= 0:
		return errors.New(errors.ErrCodeInvalidInput, "VISSTUDY_TIMEOUT must be positive, got %s", c.Server.Timeout)
	case c.Server.ShutdownTimeout <= 0:
		return errors.New(errors.ErrCodeInvalidInput, "VISSTUDY_SHUTDOWN_TIMEOUT must be positive, got %s", c.Server.ShutdownTimeout)
	}
	return nil
}
