package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "warehouse"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "WAREHOUSE_DB_DSN"
	EnvDBHost = "WAREHOUSE_DB_HOST"
	EnvDBUser = "WAREHOUSE_DB_USER"
	EnvDBName = "WAREHOUSE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Idempotency  IdempotencyConfig
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
	Env          string `envconfig:"WAREHOUSE_APP_ENV" required:"true"`
	Port         string `envconfig:"WAREHOUSE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"WAREHOUSE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"WAREHOUSE_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"WAREHOUSE_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"WAREHOUSE_DB_DSN"`
	Driver string `envconfig:"WAREHOUSE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"WAREHOUSE_DB_HOST"`
	LegacyPort     int    `envconfig:"WAREHOUSE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"WAREHOUSE_DB_USER"`
	LegacyPassword string `envconfig:"WAREHOUSE_DB_PASSWORD"`
	LegacyName     string `envconfig:"WAREHOUSE_DB_NAME"`
	LegacySSLMode  string `envconfig:"WAREHOUSE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WAREHOUSE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WAREHOUSE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WAREHOUSE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WAREHOUSE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"WAREHOUSE_REDIS_URL"`
	Address      string        `envconfig:"WAREHOUSE_REDIS_ADDR"`
	Password     string        `envconfig:"WAREHOUSE_REDIS_PASSWORD"`
	DB           int           `envconfig:"WAREHOUSE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WAREHOUSE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WAREHOUSE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WAREHOUSE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WAREHOUSE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WAREHOUSE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"WAREHOUSE_IDEMPOTENCY_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"WAREHOUSE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"WAREHOUSE_AUTO_MIGRATE" default:"false"`
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
