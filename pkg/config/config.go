package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable the backend reads.
	EnvPrefix = "FARMYAPP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "FARMYAPP_DB_DSN"
	EnvDBHost = "FARMYAPP_DB_HOST"
	EnvDBUser = "FARMYAPP_DB_USER"
	EnvDBName = "FARMYAPP_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Paystack     PaystackConfig
	Settlement   SettlementConfig
	Cron         CronConfig
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
	Env          string `envconfig:"FARMYAPP_APP_ENV" required:"true"`
	Port         string `envconfig:"FARMYAPP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FARMYAPP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FARMYAPP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FARMYAPP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FARMYAPP_DB_DSN"`
	Driver string `envconfig:"FARMYAPP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FARMYAPP_DB_HOST"`
	LegacyPort     int    `envconfig:"FARMYAPP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FARMYAPP_DB_USER"`
	LegacyPassword string `envconfig:"FARMYAPP_DB_PASSWORD"`
	LegacyName     string `envconfig:"FARMYAPP_DB_NAME"`
	LegacySSLMode  string `envconfig:"FARMYAPP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FARMYAPP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FARMYAPP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FARMYAPP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FARMYAPP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FARMYAPP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FARMYAPP_REDIS_ADDR"`
	Password     string        `envconfig:"FARMYAPP_REDIS_PASSWORD"`
	DB           int           `envconfig:"FARMYAPP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FARMYAPP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FARMYAPP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FARMYAPP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FARMYAPP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FARMYAPP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FARMYAPP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FARMYAPP_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FARMYAPP_JWT_EXPIRATION_MINUTES" default:"1440"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FARMYAPP_AUTO_MIGRATE" default:"false"`
}

type PaystackConfig struct {
	SecretKey   string        `envconfig:"FARMYAPP_PAYSTACK_SECRET_KEY"`
	BaseURL     string        `envconfig:"FARMYAPP_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	CallbackURL string        `envconfig:"FARMYAPP_PAYSTACK_CALLBACK_URL" default:"https://farmyapp.com"`
	Timeout     time.Duration `envconfig:"FARMYAPP_PAYSTACK_TIMEOUT" default:"15s"`
}

type SettlementConfig struct {
	ReviewReminderDelay time.Duration `envconfig:"FARMYAPP_REVIEW_REMINDER_DELAY" default:"24h"`
	PayoutPendingGrace  time.Duration `envconfig:"FARMYAPP_PAYOUT_PENDING_GRACE" default:"1h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"FARMYAPP_CRON_INTERVAL" default:"1m"`
	LockTTL  time.Duration `envconfig:"FARMYAPP_CRON_LOCK_TTL" default:"5m"`
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
