package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/tensorlab/opsched/pkg/pipeline"
)

// Cache backend names accepted in configuration and flags.
const (
	cacheBackendFile  = "file"
	cacheBackendRedis = "redis"
	cacheBackendNone  = "none"
)

// Store backend names accepted by the serve command.
const (
	storeBackendMemory = "memory"
	storeBackendMongo  = "mongo"
)

// Config carries CLI defaults, loaded from a TOML file. Flag values
// override whatever the file sets.
type Config struct {
	Order  OrderConfig  `toml:"order"`
	Render RenderConfig `toml:"render"`
	Cache  CacheConfig  `toml:"cache"`
	Serve  ServeConfig  `toml:"serve"`
}

// OrderConfig seeds the order command's flags.
type OrderConfig struct {
	// Kind is the order computed when --kind is not given: "default",
	// "priority", or "both".
	Kind     string `toml:"kind"`
	Training bool   `toml:"training"`
}

// RenderConfig seeds the render command's flags.
type RenderConfig struct {
	// Format is a comma-separated list of output formats.
	Format   string `toml:"format"`
	Detailed bool   `toml:"detailed"`
}

// CacheConfig selects the pipeline cache backend.
type CacheConfig struct {
	Backend string           `toml:"backend"`
	Dir     string           `toml:"dir"`
	Redis   RedisCacheConfig `toml:"redis"`
}

// RedisCacheConfig configures the redis cache backend.
type RedisCacheConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// ServeConfig configures the serve command.
type ServeConfig struct {
	Addr  string `toml:"addr"`
	Store string `toml:"store"`

	// GraphTTL bounds how long submitted graphs live, as a Go duration
	// string. Empty means records never expire.
	GraphTTL string `toml:"graph_ttl"`

	Mongo MongoStoreConfig `toml:"mongo"`
}

// MongoStoreConfig configures the mongo store backend.
type MongoStoreConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// DefaultConfig returns the built-in defaults used when no config file
// exists.
func DefaultConfig() *Config {
	return &Config{
		Order:  OrderConfig{Kind: pipeline.KindDefault},
		Render: RenderConfig{Format: pipeline.FormatSVG},
		Cache:  CacheConfig{Backend: cacheBackendFile},
		Serve: ServeConfig{
			Addr:     ":8080",
			Store:    storeBackendMemory,
			GraphTTL: "24h",
			Mongo: MongoStoreConfig{
				URI:      "mongodb://localhost:27017",
				Database: appName,
			},
		},
	}
}

// LoadConfig reads the TOML file at path and merges it over the defaults.
// An empty path means the standard location, which may be absent; an
// explicitly given path must exist.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		var err error
		path, err = configPath()
		if err != nil {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); err != nil {
		if explicit {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case cacheBackendFile, cacheBackendRedis, cacheBackendNone:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	switch c.Serve.Store {
	case storeBackendMemory, storeBackendMongo:
	default:
		return fmt.Errorf("unknown store backend %q", c.Serve.Store)
	}
	if c.Order.Kind != "" {
		if _, err := parseKinds([]string{c.Order.Kind}); err != nil {
			return err
		}
	}
	if c.Render.Format != "" {
		if err := pipeline.ValidateFormats(parseFormats(c.Render.Format)); err != nil {
			return err
		}
	}
	if _, err := c.graphTTL(); err != nil {
		return err
	}
	return nil
}

// graphTTL parses the serve TTL. Empty means no expiry.
func (c *Config) graphTTL() (time.Duration, error) {
	if c.Serve.GraphTTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Serve.GraphTTL)
	if err != nil {
		return 0, fmt.Errorf("graph_ttl: %w", err)
	}
	return d, nil
}

// configPath returns the config file location using XDG conventions
// (~/.config/opsched/config.toml).
func configPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}
