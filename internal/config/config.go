// Package config loads the fieldtree runtime configuration from defaults, an
// optional fieldtree.yaml and FIELDTREE_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FIELDTREE_STORE_DSN.
const EnvPrefix = "FIELDTREE"

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Registry RegistryConfig `mapstructure:"registry"`
	Store    StoreConfig    `mapstructure:"store"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Encoder  EncoderConfig  `mapstructure:"encoder"`
	Write    WriteConfig    `mapstructure:"write"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// RegistryConfig locates the field group documents.
type RegistryConfig struct {
	Dir     string `mapstructure:"dir"`
	Pattern string `mapstructure:"pattern"`
	Watch   bool   `mapstructure:"watch"`
}

// StoreConfig selects the value store backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// CacheConfig selects the tree cache backend.
type CacheConfig struct {
	Driver string        `mapstructure:"driver"`
	TTL    time.Duration `mapstructure:"ttl"`
	Redis  RedisConfig   `mapstructure:"redis"`
}

// RedisConfig holds the Redis cache connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// EncoderConfig tunes tree encoding.
type EncoderConfig struct {
	MaxDepth int `mapstructure:"max_depth"`
}

// WriteConfig configures the write gate.
type WriteConfig struct {
	Enabled           bool     `mapstructure:"enabled"`
	Header            string   `mapstructure:"header"`
	TransientStatuses []string `mapstructure:"transient_statuses"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Store and cache drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite3"
	DriverPgx    = "pgx"
	DriverRedis  = "redis"
	DriverNone   = "none"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("registry.dir", "fields")
	v.SetDefault("registry.pattern", "**/*.{yaml,yml,json}")
	v.SetDefault("registry.watch", false)
	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.dsn", "")
	v.SetDefault("cache.driver", DriverMemory)
	v.SetDefault("cache.ttl", "0s")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.prefix", "fieldtree:tree:")
	v.SetDefault("encoder.max_depth", 3)
	v.SetDefault("write.enabled", true)
	v.SetDefault("write.header", "X-Fieldtree-Persist")
	v.SetDefault("write.transient_statuses", []string{"auto-draft", "trash", "inherit"})
	v.SetDefault("log.level", "info")
}

// Load reads the configuration. An empty path looks for fieldtree.yaml in
// the working directory and carries on with defaults when there is none; an
// explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("fieldtree")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPgx:
		if c.Store.DSN == "" {
			return fmt.Errorf("config: store.dsn is required for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}

	switch c.Cache.Driver {
	case DriverMemory, DriverNone:
	case DriverRedis:
		if c.Cache.Redis.Addr == "" {
			return errors.New("config: cache.redis.addr is required for the redis cache")
		}
	default:
		return fmt.Errorf("config: unknown cache.driver %q", c.Cache.Driver)
	}

	if c.Cache.TTL < 0 {
		return fmt.Errorf("config: cache.ttl must not be negative, got %s", c.Cache.TTL)
	}
	if c.Encoder.MaxDepth < -1 {
		return fmt.Errorf("config: encoder.max_depth must be -1 or greater, got %d", c.Encoder.MaxDepth)
	}
	if strings.TrimSpace(c.Write.Header) == "" {
		return errors.New("config: write.header must not be empty")
	}
	if c.Registry.Dir == "" {
		return errors.New("config: registry.dir must not be empty")
	}
	return nil
}
