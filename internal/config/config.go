// Package config loads catalog settings from defaults, an optional config
// file, CATALOG_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Sternrassler/course-catalog/pkg/client"
	"github.com/Sternrassler/course-catalog/pkg/logging"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "CATALOG"

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Config holds all catalog settings.
type Config struct {
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`

	// Store selects the persistent tier: memory, redis or sqlite
	Store       string `mapstructure:"store"`
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisPrefix string `mapstructure:"redis_prefix"`
	SQLitePath  string `mapstructure:"sqlite_path"`

	// SessionTTL of 0 keeps session entries for the process lifetime
	SessionTTL time.Duration `mapstructure:"session_ttl"`

	ClientTimeout  time.Duration `mapstructure:"client_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`

	WarmConcurrency int `mapstructure:"warm_concurrency"`
	// WarmTimeout bounds one chapter of a warm-up, retries included
	WarmTimeout time.Duration `mapstructure:"warm_timeout"`

	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`

	ListenAddr string `mapstructure:"listen_addr"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("base_url", client.DefaultBaseURL)
	v.SetDefault("user_agent", "course-catalog/0.1.0")
	v.SetDefault("store", StoreMemory)
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_prefix", "")
	v.SetDefault("sqlite_path", "catalog.db")
	v.SetDefault("session_ttl", "0s")
	v.SetDefault("client_timeout", "30s")
	v.SetDefault("max_retries", 3)
	v.SetDefault("initial_backoff", "500ms")
	v.SetDefault("warm_concurrency", 4)
	v.SetDefault("warm_timeout", "2m")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
	v.SetDefault("listen_addr", ":8080")
}

// New returns a viper instance with defaults and environment binding in
// place. Callers may bind flags on it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (if not empty) into v and decodes the result.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("base_url must be an absolute http(s) URL, got %q", c.BaseURL))
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		errs = append(errs, errors.New("user_agent is required"))
	}

	switch c.Store {
	case StoreMemory:
	case StoreRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("redis_addr is required for the redis store"))
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite_path is required for the sqlite store"))
		}
	default:
		errs = append(errs, fmt.Errorf("store must be one of memory, redis, sqlite, got %q", c.Store))
	}

	if c.SessionTTL < 0 {
		errs = append(errs, errors.New("session_ttl must not be negative"))
	}
	if c.ClientTimeout <= 0 {
		errs = append(errs, errors.New("client_timeout must be positive"))
	}
	if c.MaxRetries < 1 {
		errs = append(errs, errors.New("max_retries must be at least 1"))
	}
	if c.InitialBackoff < 0 {
		errs = append(errs, errors.New("initial_backoff must not be negative"))
	}
	if c.WarmConcurrency < 1 {
		errs = append(errs, errors.New("warm_concurrency must be at least 1"))
	}
	if c.WarmTimeout <= 0 {
		errs = append(errs, errors.New("warm_timeout must be positive"))
	}
	if !logging.ValidLevel(c.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// ClientConfig derives the network client settings.
func (c *Config) ClientConfig() client.Config {
	cfg := client.DefaultConfig(c.UserAgent)
	cfg.BaseURL = c.BaseURL
	cfg.Timeout = c.ClientTimeout
	cfg.Retry.MaxAttempts = c.MaxRetries
	if c.InitialBackoff > 0 {
		cfg.Retry.InitialBackoff = c.InitialBackoff
	}
	return cfg
}

// LoggingConfig derives the logger settings.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.LogLevel)
	cfg.Pretty = c.LogPretty
	return cfg
}
