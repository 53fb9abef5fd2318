package config

const EnvPrefix = "catalog"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"
)

// Environment variable names, shared with tests and error messages.
const (
	EnvAppEnv               = "CATALOG_APP_ENV"
	EnvPort                 = "CATALOG_APP_PORT"
	EnvLogLevel             = "CATALOG_LOG_LEVEL"
	EnvLogFormat            = "CATALOG_LOG_FORMAT"
	EnvProductsCSV          = "CATALOG_PRODUCTS_CSV"
	EnvDBDriver             = "CATALOG_DB_DRIVER"
	EnvDBDSN                = "CATALOG_DB_DSN"
	EnvDBAutoMigrate        = "CATALOG_DB_AUTO_MIGRATE"
	EnvRedisURL             = "CATALOG_REDIS_URL"
	EnvRedisAddr            = "CATALOG_REDIS_ADDR"
	EnvIdempotencyTTL       = "CATALOG_IDEMPOTENCY_TTL"
	EnvSessionIdleTTL       = "CATALOG_SESSION_IDLE_TTL"
	EnvSessionSweepInterval = "CATALOG_SESSION_SWEEP_INTERVAL"
	EnvRateLimitWindow      = "CATALOG_RATE_LIMIT_WINDOW"
	EnvRateLimitRequests    = "CATALOG_RATE_LIMIT_REQUESTS"
	EnvCORSOrigins          = "CATALOG_CORS_ORIGINS"
)
