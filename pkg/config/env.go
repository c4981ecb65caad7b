package config

const (
	EnvPrefix = "GUDANG"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "GUDANG_APP_ENV"
	EnvPort     = "GUDANG_APP_PORT"
	EnvLogLevel = "GUDANG_LOG_LEVEL"

	EnvDBDSN  = "GUDANG_DB_DSN"
	EnvDBHost = "GUDANG_DB_HOST"
	EnvDBUser = "GUDANG_DB_USER"
	EnvDBName = "GUDANG_DB_NAME"

	EnvUseSQLite  = "GUDANG_USE_SQLITE"
	EnvSQLitePath = "GUDANG_SQLITE_PATH"

	EnvRedisURL = "GUDANG_REDIS_URL"

	EnvJWTSecret  = "GUDANG_JWT_SECRET"
	EnvJWTIssuer  = "GUDANG_JWT_ISSUER"
	EnvJWTExpMins = "GUDANG_JWT_EXPIRATION_MINUTES"

	EnvReservationMaxAttempts = "GUDANG_RESERVATION_MAX_ATTEMPTS"
	EnvReservationBaseBackoff = "GUDANG_RESERVATION_BASE_BACKOFF"

	EnvGCPProjectID            = "GUDANG_GCP_PROJECT_ID"
	EnvPubSubRequestEventTopic = "GUDANG_PUBSUB_REQUEST_EVENTS_TOPIC"

	EnvOutboxBatchSize = "GUDANG_OUTBOX_PUBLISH_BATCH_SIZE"

	EnvBootstrapAdminEmail    = "GUDANG_BOOTSTRAP_ADMIN_EMAIL"
	EnvBootstrapAdminPassword = "GUDANG_BOOTSTRAP_ADMIN_PASSWORD"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
