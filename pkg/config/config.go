package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "HAGGLEPORT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "HAGGLEPORT_DB_DSN"
	EnvDBHost = "HAGGLEPORT_DB_HOST"
	EnvDBUser = "HAGGLEPORT_DB_USER"
	EnvDBName = "HAGGLEPORT_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Stripe       StripeConfig
	Checkout     CheckoutConfig
	FeatureFlags FeatureFlagsConfig
	PubSub       PubSubConfig
	GCP          GCPConfig
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
	Env          string `envconfig:"HAGGLEPORT_APP_ENV" required:"true"`
	Port         string `envconfig:"HAGGLEPORT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"HAGGLEPORT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HAGGLEPORT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"HAGGLEPORT_DB_DSN"`
	Driver string `envconfig:"HAGGLEPORT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HAGGLEPORT_DB_HOST"`
	LegacyPort     int    `envconfig:"HAGGLEPORT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HAGGLEPORT_DB_USER"`
	LegacyPassword string `envconfig:"HAGGLEPORT_DB_PASSWORD"`
	LegacyName     string `envconfig:"HAGGLEPORT_DB_NAME"`
	LegacySSLMode  string `envconfig:"HAGGLEPORT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HAGGLEPORT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HAGGLEPORT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HAGGLEPORT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HAGGLEPORT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HAGGLEPORT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"HAGGLEPORT_REDIS_ADDR"`
	Password     string        `envconfig:"HAGGLEPORT_REDIS_PASSWORD"`
	DB           int           `envconfig:"HAGGLEPORT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HAGGLEPORT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HAGGLEPORT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HAGGLEPORT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HAGGLEPORT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HAGGLEPORT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"HAGGLEPORT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"HAGGLEPORT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"HAGGLEPORT_JWT_EXPIRATION_MINUTES" default:"60"`
}

// StripeConfig holds the payment provider secrets. The API key and the
// webhook signing secret are both required at boot; a missing value is an
// operational failure, not a per-request one.
type StripeConfig struct {
	APIKey string `envconfig:"HAGGLEPORT_STRIPE_API_KEY" required:"true"`
	Secret string `envconfig:"HAGGLEPORT_STRIPE_WEBHOOK_SECRET" required:"true"`
	Env    string `envconfig:"HAGGLEPORT_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CheckoutConfig struct {
	SuccessURL    string        `envconfig:"HAGGLEPORT_CHECKOUT_SUCCESS_URL" required:"true"`
	CancelURL     string        `envconfig:"HAGGLEPORT_CHECKOUT_CANCEL_URL" required:"true"`
	CaptureWindow time.Duration `envconfig:"HAGGLEPORT_CHECKOUT_CAPTURE_WINDOW" default:"144h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"HAGGLEPORT_AUTO_MIGRATE" default:"false"`
}

type PubSubConfig struct {
	OrderEventsTopic string `envconfig:"HAGGLEPORT_PUBSUB_ORDER_EVENTS_TOPIC" default:"hp-order-events"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"HAGGLEPORT_GCP_PROJECT_ID"`
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
