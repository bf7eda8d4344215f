// Package config provides configuration loading and structs for the kensaku server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverBleve    = "bleve"
)

// Config holds all configuration for the application.
type Config struct {
	Debug        bool               `yaml:"debug"`
	Server       ServerConfig       `yaml:"server"`
	Storage      StorageConfig      `yaml:"storage"`
	Search       SearchConfig       `yaml:"search"`
	Dictionaries DictionariesConfig `yaml:"dictionaries"`
	Catalog      CatalogConfig      `yaml:"catalog"`
	Cache        CacheConfig        `yaml:"cache"`
	Tracing      TracingConfig      `yaml:"tracing"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig selects the data store and where it lives.
type StorageConfig struct {
	Driver         string `yaml:"driver"`
	DatabasePath   string `yaml:"database_path"`
	PostgresDSN    string `yaml:"postgres_dsn"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// SearchConfig holds request limits and the fan-out deadline.
type SearchConfig struct {
	DefaultLimit     int `yaml:"default_limit"`
	MaxLimit         int `yaml:"max_limit"`
	MaxQueryLength   int `yaml:"max_query_length"`
	TimeoutMs        int `yaml:"timeout_ms"`
	FacetCacheTTLSec int `yaml:"facet_cache_ttl_sec"`
}

// Timeout returns the overall search deadline.
func (s SearchConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// FacetCacheTTL returns how long cached facets stay valid.
func (s SearchConfig) FacetCacheTTL() time.Duration {
	return time.Duration(s.FacetCacheTTLSec) * time.Second
}

// DictionariesConfig points at an optional keyword table override.
type DictionariesConfig struct {
	Path string `yaml:"path"`
}

// CatalogConfig holds catalog directory watch settings.
type CatalogConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (c *CatalogConfig) RecursiveOrDefault() bool {
	if c.Recursive != nil {
		return *c.Recursive
	}
	return true
}

// CacheConfig holds the Redis facet cache settings. An empty address disables the cache.
type CacheConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	KeyPrefix     string `yaml:"key_prefix"`
}

// TracingConfig holds OpenTelemetry exporter settings.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// EnabledOrDefault returns whether metrics are served; defaults to true when unset.
func (m *MetricsConfig) EnabledOrDefault() bool {
	if m.Enabled != nil {
		return *m.Enabled
	}
	return true
}

// Load reads and parses the config file at path, substitutes environment
// variables, expands paths, applies defaults, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	if cfg.Dictionaries.Path != "" {
		cfg.Dictionaries.Path = expandPath(cfg.Dictionaries.Path, configDir)
	}
	for i := range cfg.Catalog.Directories {
		cfg.Catalog.Directories[i] = expandPath(cfg.Catalog.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite, DriverBleve:
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver must be one of sqlite, postgres, bleve, got %q", c.Storage.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Search.TimeoutMs < 1000 || c.Search.TimeoutMs > 30000 {
		return fmt.Errorf("search.timeout_ms must be between 1000 and 30000, got %d", c.Search.TimeoutMs)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) exceeds search.max_limit (%d)", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be between 0 and 1, got %v", c.Tracing.SampleRate)
	}
	return nil
}

// Save writes the config to path. Used for persisting catalog directory changes.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) || path == ":memory:" {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		name, fallback, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(name)
		if val == "" && hasDefault {
			val = fallback
		}
		return []byte(val)
	})
}
