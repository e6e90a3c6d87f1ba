package config

import (
	"fmt"
	"time"
)

// DBConfig contains PostgreSQL configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"probed"`
	Password string `env:"PASSWORD" envDefault:"probed"`
	Name     string `env:"NAME"     envDefault:"probed"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // 'disable' for local dev, 'require' for production
	// PoolMax bounds the pgx stdlib pool. Sized to cover scheduler ticks plus
	// worker concurrency.
	PoolMax int `env:"POOL_MAX" envDefault:"10"`
	// RunMigrationsOnStart applies embedded migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// Sanitize applies guardrails to database settings.
func (c *DBConfig) Sanitize() {
	if c.PoolMax < 1 {
		c.PoolMax = 1
	}
}

// DSN renders the Postgres connection string.
func (c *DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// RedisConfig contains Redis configuration for the provider-set cache.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:""`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`

	// ProviderCacheTTL bounds staleness of the cached active provider set.
	ProviderCacheTTL time.Duration `env:"PROVIDER_CACHE_TTL" envDefault:"15m"`
}
