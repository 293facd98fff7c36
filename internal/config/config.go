package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported record store drivers.
const (
	DriverValkey = "valkey"
	DriverRedis  = "redis"
	DriverMongo  = "mongo"
)

// Config holds the catalogd configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds bearer token settings. An empty secret disables token checks.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds record store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, mongo (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	MongoURI         string   `yaml:"mongo_uri"`
	MongoDatabase    string   `yaml:"mongo_database"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds key layout settings for the key-value drivers.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// CatalogConfig holds search and facet settings.
type CatalogConfig struct {
	DefaultPageSize    int    `yaml:"default_page_size"`
	MaxPageSize        int    `yaml:"max_page_size"`
	UnknownFacetPolicy string `yaml:"unknown_facet_policy"` // reject | ignore
	FacetCacheSize     int    `yaml:"facet_cache_size"`     // 0 disables the cache
	FacetCacheTTLSec   int    `yaml:"facet_cache_ttl_sec"`
}

// AnalyticsConfig holds reporting settings.
type AnalyticsConfig struct {
	DefaultWindowDays int    `yaml:"default_window_days"`
	MaxWindowDays     int    `yaml:"max_window_days"`
	Timezone          string `yaml:"timezone"`
	RecentSales       int    `yaml:"recent_sales"`
}

// Location resolves the reporting timezone. Call after Validate.
func (a AnalyticsConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// FacetCacheTTL returns the cache entry lifetime.
func (c CatalogConfig) FacetCacheTTL() time.Duration {
	return time.Duration(c.FacetCacheTTLSec) * time.Second
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes raw YAML, substitutes ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverValkey
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.MongoDatabase == "" {
		c.Database.MongoDatabase = "catalogd"
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "catalogd:"
	}
	if c.Catalog.DefaultPageSize <= 0 {
		c.Catalog.DefaultPageSize = 20
	}
	if c.Catalog.MaxPageSize <= 0 {
		c.Catalog.MaxPageSize = 100
	}
	if c.Catalog.UnknownFacetPolicy == "" {
		c.Catalog.UnknownFacetPolicy = "reject"
	}
	if c.Catalog.FacetCacheTTLSec <= 0 {
		c.Catalog.FacetCacheTTLSec = 60
	}
	if c.Analytics.DefaultWindowDays <= 0 {
		c.Analytics.DefaultWindowDays = 30
	}
	if c.Analytics.MaxWindowDays <= 0 {
		c.Analytics.MaxWindowDays = 366
	}
	if c.Analytics.Timezone == "" {
		c.Analytics.Timezone = "UTC"
	}
	if c.Analytics.RecentSales <= 0 {
		c.Analytics.RecentSales = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverValkey, DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case DriverMongo:
		if c.Database.MongoURI == "" {
			return fmt.Errorf("database.mongo_uri is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("database.driver must be valkey, redis or mongo, got %q", c.Database.Driver)
	}
	switch c.Catalog.UnknownFacetPolicy {
	case "reject", "ignore":
	default:
		return fmt.Errorf(
			"catalog.unknown_facet_policy must be \"reject\" or \"ignore\", got %q",
			c.Catalog.UnknownFacetPolicy,
		)
	}
	if c.Catalog.DefaultPageSize > c.Catalog.MaxPageSize {
		return fmt.Errorf("catalog.default_page_size %d exceeds max_page_size %d",
			c.Catalog.DefaultPageSize, c.Catalog.MaxPageSize)
	}
	if c.Catalog.FacetCacheSize < 0 {
		return fmt.Errorf("catalog.facet_cache_size must not be negative")
	}
	if c.Analytics.DefaultWindowDays > c.Analytics.MaxWindowDays {
		return fmt.Errorf("analytics.default_window_days %d exceeds max_window_days %d",
			c.Analytics.DefaultWindowDays, c.Analytics.MaxWindowDays)
	}
	if _, err := time.LoadLocation(c.Analytics.Timezone); err != nil {
		return fmt.Errorf("analytics.timezone: %w", err)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
