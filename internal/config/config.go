package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port             int           `envconfig:"PORT" default:"8080"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL      string        `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns       int32         `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMaxConnIdle    time.Duration `envconfig:"DB_MAX_CONN_IDLE" default:"5m"`
	RedisURL         string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	AMQPURL          string        `envconfig:"AMQP_URL" default:""`
	AMQPExchange     string        `envconfig:"AMQP_EXCHANGE" default:"account.events"`
	Version          string        `envconfig:"VERSION" default:"dev"`
	Timezone         string        `envconfig:"TIMEZONE" default:"UTC"`
	AdminTier        string        `envconfig:"ADMIN_TIER" default:"administrator"`
	DefaultTier      string        `envconfig:"DEFAULT_TIER" default:"subscriber"`
	DispatchInterval int           `envconfig:"DISPATCH_INTERVAL" default:"10"`
	DispatchBatch    int           `envconfig:"DISPATCH_BATCH" default:"100"`
	StuckAfter       int           `envconfig:"STUCK_AFTER" default:"600"`
	SessionTTL       time.Duration `envconfig:"SESSION_TTL" default:"1h"`
	BcryptCost       int           `envconfig:"BCRYPT_COST" default:"12"`
	MigrateOnStart   bool          `envconfig:"MIGRATE_ON_START" default:"true"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.AdminTier == cfg.DefaultTier {
		return nil, fmt.Errorf("ADMIN_TIER and DEFAULT_TIER must differ (both %q)", cfg.AdminTier)
	}
	if cfg.DispatchInterval <= 0 {
		return nil, fmt.Errorf("DISPATCH_INTERVAL must be positive, got %d", cfg.DispatchInterval)
	}
	if cfg.DispatchBatch <= 0 {
		return nil, fmt.Errorf("DISPATCH_BATCH must be positive, got %d", cfg.DispatchBatch)
	}
	if cfg.StuckAfter <= 0 {
		return nil, fmt.Errorf("STUCK_AFTER must be positive, got %d", cfg.StuckAfter)
	}
	if cfg.DBMaxConns <= 0 {
		return nil, fmt.Errorf("DB_MAX_CONNS must be positive, got %d", cfg.DBMaxConns)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Location resolves the configured site time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// DispatchEvery returns the dispatcher poll interval.
func (c *Config) DispatchEvery() time.Duration {
	return time.Duration(c.DispatchInterval) * time.Second
}

// StuckTimeout returns how long a claimed event may stay unacknowledged.
func (c *Config) StuckTimeout() time.Duration {
	return time.Duration(c.StuckAfter) * time.Second
}
