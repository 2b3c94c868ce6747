package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	TLS        TLSConfig
	App        AppConfig
	Database   DatabaseConfig
	Metrics    MetricsConfig
	Cache      CacheConfig
	Validation ValidationConfig
	RateLimit  RateLimitConfig
	CORS       CORSConfig
	Pprof      PprofConfig
}

type ServerConfig struct {
	Host           string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port           int    `env:"SERVER_PORT" envDefault:"8000"`
	MaxConnections int    `env:"SERVER_MAX_CONNECTIONS" envDefault:"0"`

	// WriteTimeout should exceed DB_POOL_TIMEOUT so a request waiting on the
	// pool can still be answered with 503.
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"40s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
}

type TLSConfig struct {
	Enabled  bool   `env:"TLS_ENABLED" envDefault:"false"`
	Port     int    `env:"TLS_PORT" envDefault:"8443"`
	CertFile string `env:"TLS_CERT_FILE"`
	KeyFile  string `env:"TLS_KEY_FILE"`
}

type AppConfig struct {
	Name        string `env:"APP_NAME" envDefault:"Observability Backend API"`
	Version     string `env:"APP_VERSION" envDefault:"1.0.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

type DatabaseConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"dbadmin"`
	Password string `env:"DB_PASSWORD" envDefault:"password"`
	Name     string `env:"DB_NAME" envDefault:"appdb"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	PoolBaseSize       int           `env:"DB_POOL_SIZE" envDefault:"5"`
	PoolMaxOverflow    int           `env:"DB_POOL_MAX_OVERFLOW" envDefault:"10"`
	PoolPrePing        bool          `env:"DB_POOL_PRE_PING" envDefault:"true"`
	PoolAcquireTimeout time.Duration `env:"DB_POOL_TIMEOUT" envDefault:"30s"`
	PoolIdleTimeout    time.Duration `env:"DB_POOL_IDLE_TIMEOUT" envDefault:"30m"`
	PoolHealthCheck    time.Duration `env:"DB_POOL_HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

// URL returns the connection string in postgres URL form.
func (c *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}

type MetricsConfig struct {
	MaxSeries int `env:"METRICS_MAX_SERIES" envDefault:"1000"`
}

type CacheConfig struct {
	MaxSizePow2 int `env:"CACHE_MAX_SIZE_POW2" envDefault:"20"`
}

type ValidationConfig struct {
	MaxRequestBodySize   string `env:"VALIDATION_MAX_BODY_SIZE" envDefault:"64K"`
	MaxNameLength        int    `env:"VALIDATION_MAX_NAME_LENGTH" envDefault:"100"`
	MaxDescriptionLength int    `env:"VALIDATION_MAX_DESCRIPTION_LENGTH" envDefault:"500"`
}

type RateLimitConfig struct {
	Enabled       bool    `env:"RATE_LIMIT_ENABLED" envDefault:"false"`
	RPS           float64 `env:"RATE_LIMIT_RPS" envDefault:"100"`
	Burst         int     `env:"RATE_LIMIT_BURST" envDefault:"200"`
	ExpireMinutes int     `env:"RATE_LIMIT_EXPIRE_MINUTES" envDefault:"3"`
	BypassSecret  string  `env:"RATE_LIMIT_BYPASS_SECRET"`
}

type CORSConfig struct {
	AllowOrigins     []string `env:"CORS_ALLOW_ORIGINS" envDefault:"*" envSeparator:","`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
}

type PprofConfig struct {
	Enabled bool   `env:"PPROF_ENABLED" envDefault:"false"`
	Secret  string `env:"PPROF_SECRET"`
}

// Load reads the environment, after applying a .env file from the working
// directory when one exists. Variables already set take precedence.
func Load() (*Config, error) {
	return LoadFiles(".env")
}

func LoadFiles(files ...string) (*Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
