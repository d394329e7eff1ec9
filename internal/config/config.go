package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "CYCLECOUNT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	App            AppConfig
	DB             DBConfig
	Redis          RedisConfig
	JWT            JWTConfig
	ProductService ProductServiceConfig
	Seed           SeedConfig
}

// Load reads the process environment into a Config.
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
	Name         string `envconfig:"CYCLECOUNT_APP_NAME" default:"Cycle Count"`
	Env          string `envconfig:"CYCLECOUNT_APP_ENV" default:"dev"`
	Port         string `envconfig:"CYCLECOUNT_APP_PORT" default:"3000"`
	LogLevel     string `envconfig:"CYCLECOUNT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"CYCLECOUNT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"CYCLECOUNT_LOG_WARN_STACK" default:"false"`
	CookieSecure bool   `envconfig:"CYCLECOUNT_COOKIE_SECURE" default:"false"`
	CORSOrigins  string `envconfig:"CYCLECOUNT_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	Driver     string `envconfig:"CYCLECOUNT_DB_DRIVER" default:"postgres"`
	DSN        string `envconfig:"CYCLECOUNT_DB_DSN"`
	SQLitePath string `envconfig:"CYCLECOUNT_DB_SQLITE_PATH" default:"cyclecount.db"`

	Host     string `envconfig:"CYCLECOUNT_DB_HOST"`
	Port     int    `envconfig:"CYCLECOUNT_DB_PORT" default:"5432"`
	User     string `envconfig:"CYCLECOUNT_DB_USER"`
	Password string `envconfig:"CYCLECOUNT_DB_PASSWORD"`
	Name     string `envconfig:"CYCLECOUNT_DB_NAME"`
	SSLMode  string `envconfig:"CYCLECOUNT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CYCLECOUNT_DB_MAX_OPEN_CONNS" default:"100"`
	MaxIdleConns    int           `envconfig:"CYCLECOUNT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CYCLECOUNT_DB_CONN_MAX_LIFETIME" default:"1h"`
	AutoMigrate     bool          `envconfig:"CYCLECOUNT_DB_AUTO_MIGRATE" default:"false"`
	LogSQL          bool          `envconfig:"CYCLECOUNT_DB_LOG_SQL" default:"false"`
}

func (d *DBConfig) ensureDSN() error {
	d.Driver = strings.ToLower(strings.TrimSpace(d.Driver))
	switch d.Driver {
	case DriverSQLite:
		if d.DSN == "" {
			d.DSN = d.SQLitePath
		}
		if d.DSN == "" {
			return fmt.Errorf("sqlite requires CYCLECOUNT_DB_DSN or CYCLECOUNT_DB_SQLITE_PATH")
		}
		return nil
	case DriverPostgres:
		if d.DSN != "" {
			return nil
		}
		if d.Host == "" || d.User == "" || d.Name == "" {
			return fmt.Errorf("postgres requires CYCLECOUNT_DB_DSN or CYCLECOUNT_DB_HOST/USER/NAME")
		}
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(d.User, d.Password),
			Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
			Path:   d.Name,
		}
		q := u.Query()
		q.Set("sslmode", d.SSLMode)
		u.RawQuery = q.Encode()
		d.DSN = u.String()
		return nil
	default:
		return fmt.Errorf("unsupported db driver %q", d.Driver)
	}
}

type RedisConfig struct {
	URL          string        `envconfig:"CYCLECOUNT_REDIS_URL"`
	Address      string        `envconfig:"CYCLECOUNT_REDIS_ADDR"`
	Password     string        `envconfig:"CYCLECOUNT_REDIS_PASSWORD"`
	DB           int           `envconfig:"CYCLECOUNT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CYCLECOUNT_REDIS_POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"CYCLECOUNT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CYCLECOUNT_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"CYCLECOUNT_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type JWTConfig struct {
	Secret     string        `envconfig:"CYCLECOUNT_JWT_SECRET" required:"true"`
	Issuer     string        `envconfig:"CYCLECOUNT_JWT_ISSUER" default:"go-cyclecount-ws"`
	Expiration time.Duration `envconfig:"CYCLECOUNT_JWT_EXPIRATION" default:"24h"`
}

type ProductServiceConfig struct {
	BaseURL     string        `envconfig:"CYCLECOUNT_PRODUCT_SERVICE_BASE_URL"`
	Timeout     time.Duration `envconfig:"CYCLECOUNT_PRODUCT_SERVICE_TIMEOUT" default:"2s"`
	Concurrency int           `envconfig:"CYCLECOUNT_PRODUCT_SERVICE_CONCURRENCY" default:"8"`
	CacheTTL    time.Duration `envconfig:"CYCLECOUNT_PRODUCT_SERVICE_CACHE_TTL" default:"5m"`
}

type SeedConfig struct {
	AdminUsername string `envconfig:"CYCLECOUNT_SEED_ADMIN_USERNAME" default:"supervisor"`
	AdminPassword string `envconfig:"CYCLECOUNT_SEED_ADMIN_PASSWORD"`
}
