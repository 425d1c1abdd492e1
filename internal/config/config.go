// Package config loads the service configuration from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root configuration document.
type Config struct {
	Env        string     `yaml:"env" env:"ONGON_ENV" env-default:"local"`
	HTTPServer HTTPServer `yaml:"http_server"`
	GRPC       GRPC       `yaml:"grpc"`
	Postgres   Postgres   `yaml:"postgres"`
	Redis      Redis      `yaml:"redis"`
	Auth       Auth       `yaml:"auth"`
	Pagination Pagination `yaml:"pagination"`
	Migrations Migrations `yaml:"migrations"`
}

// HTTPServer configures the REST listener.
type HTTPServer struct {
	Address           string        `yaml:"address" env:"ONGON_HTTP_ADDRESS" env-default:":8080"`
	ReadTimeout       time.Duration `yaml:"read_timeout" env-default:"15s"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env-default:"15s"`
	WriteTimeout      time.Duration `yaml:"write_timeout" env-default:"15s"`
	IdleTimeout       time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" env-default:"1048576"`
	RateLimitBurst    int           `yaml:"rate_limit_burst" env-default:"40"`
	RateLimitPerSec   int           `yaml:"rate_limit_per_second" env-default:"20"`
	CORSOrigins       []string      `yaml:"cors_origins" env:"ONGON_CORS_ORIGINS" env-separator:","`
}

// GRPC configures the health-check listener. An empty address disables it.
type GRPC struct {
	Address string `yaml:"address" env:"ONGON_GRPC_ADDRESS" env-default:":9090"`
}

// Postgres configures the database pool.
type Postgres struct {
	DSN             string        `yaml:"dsn" env:"ONGON_PG_DSN"`
	MaxOpenConns    int           `yaml:"max_open_conns" env-default:"50"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env-default:"25"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env-default:"15m"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" env-default:"5m"`
}

// Redis configures the optional catalog cache.
type Redis struct {
	Enabled  bool          `yaml:"enabled" env:"ONGON_REDIS_ENABLED"`
	Addr     string        `yaml:"addr" env:"ONGON_REDIS_ADDR" env-default:"localhost:6379"`
	Password string        `yaml:"password" env:"ONGON_REDIS_PASSWORD"`
	DB       int           `yaml:"db" env-default:"0"`
	TTL      time.Duration `yaml:"ttl" env-default:"5m"`
}

// Auth configures token issuance.
type Auth struct {
	JWTSecret  string        `yaml:"jwt_secret" env:"ONGON_JWT_SECRET"`
	Issuer     string        `yaml:"issuer" env-default:"ongon"`
	AccessTTL  time.Duration `yaml:"access_ttl" env-default:"1h"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" env-default:"720h"`
}

// Pagination bounds list endpoints.
type Pagination struct {
	DefaultPerPage int `yaml:"default_per_page" env-default:"20"`
	MaxPerPage     int `yaml:"max_per_page" env-default:"100"`
}

// Migrations controls startup schema management.
type Migrations struct {
	AutoMigrate bool `yaml:"auto_migrate" env:"ONGON_AUTO_MIGRATE" env-default:"true"`
	AutoSeed    bool `yaml:"auto_seed" env:"ONGON_AUTO_SEED" env-default:"true"`
}

// Load reads path and applies environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad loads the file named by CONFIG_PATH and exits on failure.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Pagination.DefaultPerPage <= 0 || c.Pagination.MaxPerPage < c.Pagination.DefaultPerPage {
		return fmt.Errorf("invalid pagination bounds %d/%d", c.Pagination.DefaultPerPage, c.Pagination.MaxPerPage)
	}
	return nil
}
