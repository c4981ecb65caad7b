package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Reservation   ReservationConfig
	Idempotency   IdempotencyConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
	Bootstrap     BootstrapConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var err error
	if c.Reservation.MaxAttempts < 1 {
		err = multierr.Append(err, fmt.Errorf("%s must be at least 1", EnvReservationMaxAttempts))
	}
	if c.Reservation.BaseBackoff <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvReservationBaseBackoff))
	}
	if c.JWT.ExpirationMinutes <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvJWTExpMins))
	}
	if c.Outbox.BatchSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvOutboxBatchSize))
	}
	if (c.Bootstrap.AdminEmail == "") != (c.Bootstrap.AdminPassword == "") {
		err = multierr.Append(err, fmt.Errorf("%s and %s must be set together", EnvBootstrapAdminEmail, EnvBootstrapAdminPassword))
	}
	return err
}

type AppConfig struct {
	Env          string `envconfig:"GUDANG_APP_ENV" required:"true"`
	Port         string `envconfig:"GUDANG_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GUDANG_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GUDANG_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"GUDANG_CORS_ALLOWED_ORIGINS" default:"*"`
	// TrustProxy lets X-Forwarded-For and X-Real-IP set the client address.
	TrustProxy bool `envconfig:"GUDANG_TRUST_PROXY" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	parts := strings.Split(a.CORSOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

type DBConfig struct {
	DSN    string `envconfig:"GUDANG_DB_DSN"`
	Driver string `envconfig:"GUDANG_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"GUDANG_DB_HOST"`
	Port     int    `envconfig:"GUDANG_DB_PORT" default:"5432"`
	User     string `envconfig:"GUDANG_DB_USER"`
	Password string `envconfig:"GUDANG_DB_PASSWORD"`
	Name     string `envconfig:"GUDANG_DB_NAME"`
	SSLMode  string `envconfig:"GUDANG_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"GUDANG_SQLITE_PATH" default:"gudang.db"`

	MaxOpenConns    int           `envconfig:"GUDANG_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GUDANG_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GUDANG_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GUDANG_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"GUDANG_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GUDANG_REDIS_URL"`
	Address      string        `envconfig:"GUDANG_REDIS_ADDR"`
	Password     string        `envconfig:"GUDANG_REDIS_PASSWORD"`
	DB           int           `envconfig:"GUDANG_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GUDANG_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GUDANG_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GUDANG_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GUDANG_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GUDANG_REDIS_WRITE_TIMEOUT" default:"5s"`
	Namespace    string        `envconfig:"GUDANG_REDIS_NAMESPACE" default:"gm"`
}

type JWTConfig struct {
	Secret            string `envconfig:"GUDANG_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GUDANG_JWT_ISSUER" default:"gudang-mitra"`
	ExpirationMinutes int    `envconfig:"GUDANG_JWT_EXPIRATION_MINUTES" default:"60"`
	SessionTTLMinutes int    `envconfig:"GUDANG_SESSION_TTL_MINUTES" default:"720"`
}

// AccessTTL returns the access token lifetime.
func (j JWTConfig) AccessTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// SessionTTL returns how long a login session stays valid in redis.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return j.AccessTTL()
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GUDANG_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GUDANG_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GUDANG_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GUDANG_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GUDANG_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"GUDANG_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"GUDANG_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"GUDANG_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GUDANG_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GUDANG_AUTO_MIGRATE" default:"false"`
}

// ReservationConfig tunes how request transitions retry after losing a
// race on the same inventory rows.
type ReservationConfig struct {
	MaxAttempts int           `envconfig:"GUDANG_RESERVATION_MAX_ATTEMPTS" default:"4"`
	BaseBackoff time.Duration `envconfig:"GUDANG_RESERVATION_BASE_BACKOFF" default:"25ms"`
	MaxBackoff  time.Duration `envconfig:"GUDANG_RESERVATION_MAX_BACKOFF" default:"500ms"`
}

type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"GUDANG_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"GUDANG_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"GUDANG_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	RequestEventsTopic string `envconfig:"GUDANG_PUBSUB_REQUEST_EVENTS_TOPIC" default:"gudang-request-events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"GUDANG_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"GUDANG_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"GUDANG_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"GUDANG_OUTBOX_RETENTION" default:"720h"`
}

type CronConfig struct {
	Tick                  time.Duration `envconfig:"GUDANG_CRON_TICK" default:"1m"`
	AuditInterval         time.Duration `envconfig:"GUDANG_CRON_AUDIT_INTERVAL" default:"15m"`
	CleanupInterval       time.Duration `envconfig:"GUDANG_CRON_CLEANUP_INTERVAL" default:"24h"`
	LockTTL               time.Duration `envconfig:"GUDANG_CRON_LOCK_TTL" default:"10m"`
	NotificationRetention time.Duration `envconfig:"GUDANG_NOTIFICATION_RETENTION" default:"720h"`
}

// BootstrapConfig seeds the first admin account when the users table has none.
type BootstrapConfig struct {
	AdminEmail    string `envconfig:"GUDANG_BOOTSTRAP_ADMIN_EMAIL"`
	AdminPassword string `envconfig:"GUDANG_BOOTSTRAP_ADMIN_PASSWORD"`
	AdminName     string `envconfig:"GUDANG_BOOTSTRAP_ADMIN_NAME" default:"Administrator"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = db.SQLitePath
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
