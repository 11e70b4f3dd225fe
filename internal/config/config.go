package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	requestrules "github.com/always-cache/stalier/pkg/request-rules"
)

var validate = validator.New()

// Config is the configuration of the caching proxy.
type Config struct {
	AppName string `yaml:"appName" validate:"required"`
	// Origin URL to proxy to
	Origin string `yaml:"origin" validate:"required,url"`
	// Hostname of origin, if different from the origin URL
	Host  string             `yaml:"host"`
	Port  int                `yaml:"port" validate:"min=1,max=65535"`
	Store StoreConfig        `yaml:"store"`
	Rules requestrules.Rules `yaml:"rules" validate:"dive"`
	// Include a hash of the body in the keys of POST requests
	KeyBodyHash bool          `yaml:"keyBodyHash"`
	Logger      string        `yaml:"logger" validate:"oneof=zerolog zap"`
	LogFile     string        `yaml:"logFile"`
	Tracing     TracingConfig `yaml:"tracing"`
	// Max size in bytes of request bodies buffered for caching, 10 MiB if zero
	MaxBodySize int64 `yaml:"maxBodySize" validate:"min=0"`
}

type StoreConfig struct {
	Type     string         `yaml:"type" validate:"oneof=memory sqlite bigcache redis tiered"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	BigCache BigCacheConfig `yaml:"bigcache"`
	Redis    RedisConfig    `yaml:"redis"`
}

type SQLiteConfig struct {
	// Use "memory" for an in-memory db
	Path string `yaml:"path"`
}

type BigCacheConfig struct {
	LifeWindow       time.Duration `yaml:"lifeWindow" validate:"min=0"`
	HardMaxCacheSize int           `yaml:"hardMaxCacheSize" validate:"min=0"`
	MaxEntrySize     int           `yaml:"maxEntrySize" validate:"min=0"`
}

type RedisConfig struct {
	URL          string        `yaml:"url" validate:"omitempty,url"`
	Expiration   time.Duration `yaml:"expiration" validate:"min=0"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	PoolSize     int           `yaml:"poolSize" validate:"min=0"`
}

type TracingConfig struct {
	// Print spans to stdout
	Stdout bool `yaml:"stdout"`
}

// Load reads the configuration from the given file.
// The result is neither defaulted nor validated, callers may still override fields
// before calling ApplyDefaults and Validate.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var config Config
	if err := yaml.Unmarshal(b, &config); err != nil {
		return nil, fmt.Errorf("failed to decode YAML config: %w", err)
	}
	return &config, nil
}

// ApplyDefaults sets default values for missing configuration
func (c *Config) ApplyDefaults() {
	if c.AppName == "" {
		c.AppName = "stalier"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.Logger == "" {
		c.Logger = "zerolog"
	}
	if c.Store.Type == "" {
		c.Store.Type = "memory"
	}
	if c.Store.SQLite.Path == "" {
		c.Store.SQLite.Path = "cache.db"
	}
	if c.Store.BigCache.LifeWindow == 0 {
		c.Store.BigCache.LifeWindow = 10 * time.Minute
	}
	if c.Store.Redis.DialTimeout == 0 {
		c.Store.Redis.DialTimeout = 2 * time.Second
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if (c.Store.Type == "redis" || c.Store.Type == "tiered") && c.Store.Redis.URL == "" {
		return errors.New("invalid configuration: store.redis.url is required for store type " + c.Store.Type)
	}
	return nil
}
