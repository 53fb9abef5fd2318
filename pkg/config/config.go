package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App         AppConfig
	Catalog     CatalogConfig
	DB          DBConfig
	Redis       RedisConfig
	Session     SessionConfig
	Idempotency IdempotencyConfig
	RateLimit   RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Session.validate(); err != nil {
		return nil, err
	}
	if err := cfg.RateLimit.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CATALOG_APP_ENV" required:"true"`
	Port         string `envconfig:"CATALOG_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"CATALOG_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"CATALOG_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"CATALOG_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"CATALOG_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type CatalogConfig struct {
	Path string `envconfig:"CATALOG_PRODUCTS_CSV" default:"products.csv"`
}

type DBConfig struct {
	Driver string `envconfig:"CATALOG_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"CATALOG_DB_DSN" default:"file::memory:?cache=shared"`

	MaxOpenConns    int           `envconfig:"CATALOG_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"CATALOG_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"CATALOG_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CATALOG_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"CATALOG_DB_AUTO_MIGRATE" default:"true"`
}

// IsSQLite reports whether the ledger runs on the embedded driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

func (db *DBConfig) validate() error {
	db.Driver = strings.ToLower(strings.TrimSpace(db.Driver))
	switch db.Driver {
	case DBDriverSQLite, DBDriverPostgres:
	default:
		return fmt.Errorf("%s must be one of %s, %s", EnvDBDriver, DBDriverSQLite, DBDriverPostgres)
	}
	if strings.TrimSpace(db.DSN) == "" {
		return fmt.Errorf("%s is required", EnvDBDSN)
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"CATALOG_REDIS_URL"`
	Address      string        `envconfig:"CATALOG_REDIS_ADDR"`
	Password     string        `envconfig:"CATALOG_REDIS_PASSWORD"`
	DB           int           `envconfig:"CATALOG_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CATALOG_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CATALOG_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CATALOG_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CATALOG_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"CATALOG_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Enabled reports whether a Redis endpoint was configured at all.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type SessionConfig struct {
	IdleTTL       time.Duration `envconfig:"CATALOG_SESSION_IDLE_TTL" default:"30m"`
	SweepInterval time.Duration `envconfig:"CATALOG_SESSION_SWEEP_INTERVAL" default:"1m"`
}

func (s SessionConfig) validate() error {
	if s.IdleTTL < 0 {
		return fmt.Errorf("%s must not be negative", EnvSessionIdleTTL)
	}
	if s.IdleTTL > 0 && s.SweepInterval <= 0 {
		return fmt.Errorf("%s must be positive when %s is set", EnvSessionSweepInterval, EnvSessionIdleTTL)
	}
	return nil
}

type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"CATALOG_IDEMPOTENCY_TTL" default:"24h"`
}

// RateLimitConfig bounds mutating cart requests per session. Limit 0 disables the limiter.
type RateLimitConfig struct {
	Window time.Duration `envconfig:"CATALOG_RATE_LIMIT_WINDOW" default:"1m"`
	Limit  int           `envconfig:"CATALOG_RATE_LIMIT_REQUESTS" default:"120"`
}

func (r RateLimitConfig) Enabled() bool {
	return r.Limit > 0 && r.Window > 0
}

func (r RateLimitConfig) validate() error {
	if r.Limit < 0 {
		return fmt.Errorf("%s must not be negative", EnvRateLimitRequests)
	}
	if r.Limit > 0 && r.Window <= 0 {
		return fmt.Errorf("%s must be positive when %s is set", EnvRateLimitWindow, EnvRateLimitRequests)
	}
	return nil
}
