package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Coinremitter CoinremitterConfig
	NOWPayments  NOWPaymentsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Webhooks     WebhookConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LUMENCHAT_APP_ENV" required:"true"`
	Port         string `envconfig:"LUMENCHAT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"LUMENCHAT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LUMENCHAT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"LUMENCHAT_DB_DSN"`
	Driver string `envconfig:"LUMENCHAT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LUMENCHAT_DB_HOST"`
	LegacyPort     int    `envconfig:"LUMENCHAT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LUMENCHAT_DB_USER"`
	LegacyPassword string `envconfig:"LUMENCHAT_DB_PASSWORD"`
	LegacyName     string `envconfig:"LUMENCHAT_DB_NAME"`
	LegacySSLMode  string `envconfig:"LUMENCHAT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LUMENCHAT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LUMENCHAT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LUMENCHAT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LUMENCHAT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LUMENCHAT_REDIS_URL" required:"true"`
	Password     string        `envconfig:"LUMENCHAT_REDIS_PASSWORD"`
	DB           int           `envconfig:"LUMENCHAT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LUMENCHAT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LUMENCHAT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LUMENCHAT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LUMENCHAT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LUMENCHAT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// CoinremitterConfig configures the legacy invoice provider integration.
type CoinremitterConfig struct {
	BaseURL        string        `envconfig:"LUMENCHAT_COINREMITTER_BASE_URL" default:"https://coinremitter.com/api/v3"`
	APIKey         string        `envconfig:"LUMENCHAT_COINREMITTER_API_KEY"`
	Password       string        `envconfig:"LUMENCHAT_COINREMITTER_PASSWORD"`
	RequestTimeout time.Duration `envconfig:"LUMENCHAT_COINREMITTER_TIMEOUT" default:"5s"`
}

// NOWPaymentsConfig configures the IPN subscription provider integration.
type NOWPaymentsConfig struct {
	IPNSecret string `envconfig:"LUMENCHAT_NOWPAYMENTS_IPN_SECRET"`
	APIKey    string `envconfig:"LUMENCHAT_NOWPAYMENTS_API_KEY"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"LUMENCHAT_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"LUMENCHAT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"LUMENCHAT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	BillingTopic string `envconfig:"LUMENCHAT_PUBSUB_BILLING_TOPIC" default:"lc-billing-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"LUMENCHAT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"LUMENCHAT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"LUMENCHAT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// WebhookConfig tunes the webhook fast-path idempotency guard.
type WebhookConfig struct {
	GuardTTL time.Duration `envconfig:"LUMENCHAT_WEBHOOK_GUARD_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LUMENCHAT_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
