package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EnvProduction is the environment name that selects the hosted database.
const EnvProduction = "production"

// Config represents the overall application configuration.
type Config struct {
	Environment string           `yaml:"environment"`
	Server      ServerConfig     `yaml:"server"`
	Database    DatabaseConfig   `yaml:"database"`
	Parlor      ParlorConfig     `yaml:"parlor"`
	Auth        AuthConfig       `yaml:"auth"`
	Push        PushConfig       `yaml:"push"`
	WorkerPool  WorkerPoolConfig `yaml:"worker_pool"`
	Log         LogConfig        `yaml:"log"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	Enabled    bool   `yaml:"enabled"`
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port                int     `yaml:"port"`
	RequestIPHeader     string  `yaml:"request_ip_header"`
	RateLimitPerSec     float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst      int     `yaml:"rate_limit_burst"`
	AuthRateLimitPerMin float64 `yaml:"auth_rate_limit_per_min"`
	CacheTTLSeconds     int     `yaml:"cache_ttl_seconds"`
}

// CacheTTL returns the public response cache lifetime.
func (s ServerConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

// DatabaseConfig holds the database connection configuration.
// DSN is used in production; EmulatorDSN is the local SQLite target otherwise.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	EmulatorDSN            string `yaml:"emulator_dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// ParlorConfig holds parlor lookup settings.
type ParlorConfig struct {
	DefaultID string `yaml:"default_id"`
}

// AuthConfig holds owner authentication settings.
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
	EnforceOwner  bool   `yaml:"enforce_owner"`
	RedisURL      string `yaml:"redis_url"`
}

// TokenTTL returns the lifetime of issued owner tokens.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLHours) * time.Hour
}

// LogConfig controls the logrus output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// IsProduction reports whether the hosted database must be used.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvProduction) || strings.EqualFold(c.Environment, "prod")
}

// LoadDotEnv loads .env.local and then .env into the process environment.
// Missing files are ignored.
func LoadDotEnv() {
	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil {
			logrus.Debug(".env not found, using environment variables")
		}
	}
}

// Load reads the configuration from the given path, applies environment
// overrides and fills defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		} else {
			logrus.Warnf("ignoring invalid PORT %q", v)
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Auth.RedisURL = v
	}
	if v := os.Getenv("VAPID_PUBLIC_KEY"); v != "" {
		cfg.Push.PublicKey = v
	}
	if v := os.Getenv("VAPID_PRIVATE_KEY"); v != "" {
		cfg.Push.PrivateKey = v
	}
	if v := os.Getenv("DEFAULT_PARLOR_ID"); v != "" {
		cfg.Parlor.DefaultID = v
	}
}

func applyDefaults(cfg *Config) error {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.AuthRateLimitPerMin <= 0 {
		cfg.Server.AuthRateLimitPerMin = 10
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.IsProduction() {
		if cfg.Database.DSN == "" {
			return errors.New("database.dsn or DATABASE_URL is required in production")
		}
		if os.Getenv("DATABASE_URL") == "" {
			logrus.Warn("DATABASE_URL is not set; falling back to database.dsn from the config file")
		}
	} else if cfg.Database.EmulatorDSN == "" {
		cfg.Database.EmulatorDSN = "file:janso.db?cache=shared"
	}
	if cfg.Database.MaxOpenConns <= 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns <= 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetimeMinutes <= 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 30
	}

	if cfg.Parlor.DefaultID == "" {
		cfg.Parlor.DefaultID = "p-001"
	}

	if cfg.Auth.TokenTTLHours <= 0 {
		cfg.Auth.TokenTTLHours = 72
	}
	if cfg.Auth.JWTSecret == "" {
		if cfg.IsProduction() {
			return errors.New("auth.jwt_secret or JWT_SECRET is required in production")
		}
		logrus.Warn("auth.jwt_secret is not set; using an insecure development secret")
		cfg.Auth.JWTSecret = "janso-dev-secret"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		logrus.Info("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	return nil
}
