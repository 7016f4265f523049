// Package config handles configuration loading for top10.
// It supports YAML config files, an optional .env file and environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "TOP10"

// Config represents the complete application configuration.
type Config struct {
	Backend   BackendConfig   `mapstructure:"backend"   yaml:"backend"   json:"backend"`
	Dashboard DashboardConfig `mapstructure:"dashboard" yaml:"dashboard" json:"dashboard"`
	API       APIConfig       `mapstructure:"api"       yaml:"api"       json:"api"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"   json:"logging"`
	Breaker   BreakerConfig   `mapstructure:"breaker"   yaml:"breaker"   json:"breaker"`
}

// BackendConfig describes where the token statistics backend lives.
type BackendConfig struct {
	DevPort   int           `mapstructure:"dev_port"   yaml:"dev_port"   json:"dev_port"` // used when the page host is localhost
	APIPath   string        `mapstructure:"api_path"   yaml:"api_path"   json:"api_path"` // same-origin relative API path
	Origin    string        `mapstructure:"origin"     yaml:"origin"     json:"origin"`   // origin the relative path resolves against
	Upstream  string        `mapstructure:"upstream"   yaml:"upstream"   json:"upstream"` // optional /api reverse proxy target
	Timeout   time.Duration `mapstructure:"timeout"    yaml:"timeout"    json:"timeout"`
	RateLimit int           `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"` // requests per second
}

// DashboardConfig holds the view refresh and notification timings.
type DashboardConfig struct {
	PageHost           string        `mapstructure:"page_host"            yaml:"page_host"            json:"page_host"`
	RefreshInterval    time.Duration `mapstructure:"refresh_interval"     yaml:"refresh_interval"     json:"refresh_interval"`
	ToastDuration      time.Duration `mapstructure:"toast_duration"       yaml:"toast_duration"       json:"toast_duration"`
	CollectReloadDelay time.Duration `mapstructure:"collect_reload_delay" yaml:"collect_reload_delay" json:"collect_reload_delay"`
	TrendDays          int           `mapstructure:"trend_days"           yaml:"trend_days"           json:"trend_days"`
	Timezone           string        `mapstructure:"timezone"             yaml:"timezone"             json:"timezone"` // "Local" or an IANA name
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"         json:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"         json:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins" json:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"        yaml:"level"        json:"level"`  // "debug", "info", "warn", "error"
	Format     string `mapstructure:"format"       yaml:"format"       json:"format"` // "console" or "json"
	File       string `mapstructure:"file"         yaml:"file"         json:"file"`   // empty disables file output
	MaxSizeMB  int    `mapstructure:"max_size_mb"  yaml:"max_size_mb"  json:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"  yaml:"max_backups"  json:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `mapstructure:"compress"     yaml:"compress"     json:"compress"`
}

// BreakerConfig tunes the circuit breaker in front of the backend.
type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures" yaml:"max_failures" json:"max_failures"` // consecutive failures before opening
	OpenTimeout time.Duration `mapstructure:"open_timeout" yaml:"open_timeout" json:"open_timeout"`
}

// Addr returns the listen address of the HTTP server.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

var (
	pathMu     sync.RWMutex
	activePath string
	fileKeys   map[string]bool // keys set by the active config file
)

// ConfigFilePath returns the file the running configuration was read from,
// or an empty string when only defaults and env vars were used.
func ConfigFilePath() string {
	pathMu.RLock()
	defer pathMu.RUnlock()
	return activePath
}

// inConfigFile reports whether the active config file sets key.
func inConfigFile(key string) bool {
	pathMu.RLock()
	defer pathMu.RUnlock()
	return fileKeys[key]
}

// recordSource remembers which file v read and which keys it set.
func recordSource(v *viper.Viper) {
	keys := make(map[string]bool)
	if v.ConfigFileUsed() != "" {
		for _, key := range v.AllKeys() {
			if v.InConfig(key) {
				keys[key] = true
			}
		}
	}

	pathMu.Lock()
	activePath = v.ConfigFileUsed()
	fileKeys = keys
	pathMu.Unlock()
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.top10/config.yaml (home directory)
//  3. /etc/top10/config.yaml (system)
//
// A .env file in the working directory is loaded first when present.
// Environment variables override config file values.
// Format: TOP10_<SECTION>_<KEY>, e.g., TOP10_BACKEND_ORIGIN
func Load() (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".top10"))
	v.AddConfigPath("/etc/top10")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}
	recordSource(v)
	return cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}
	recordSource(v)
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the dashboard cannot run with.
func (c *Config) Validate() error {
	if c.Dashboard.RefreshInterval <= 0 {
		return fmt.Errorf("dashboard.refresh_interval must be positive, got %s", c.Dashboard.RefreshInterval)
	}
	if c.Dashboard.TrendDays <= 0 {
		return fmt.Errorf("dashboard.trend_days must be positive, got %d", c.Dashboard.TrendDays)
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port out of range: %d", c.API.Port)
	}
	if !strings.HasPrefix(c.Backend.APIPath, "/") {
		return fmt.Errorf("backend.api_path must start with '/', got %q", c.Backend.APIPath)
	}
	return nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Backend defaults
	v.SetDefault("backend.dev_port", 8000)
	v.SetDefault("backend.api_path", "/api")
	v.SetDefault("backend.origin", "http://127.0.0.1:8000")
	v.SetDefault("backend.upstream", "")
	v.SetDefault("backend.timeout", 30*time.Second)
	v.SetDefault("backend.rate_limit", 20)

	// Dashboard defaults
	v.SetDefault("dashboard.page_host", "localhost")
	v.SetDefault("dashboard.refresh_interval", 5*time.Minute)
	v.SetDefault("dashboard.toast_duration", 3*time.Second)
	v.SetDefault("dashboard.collect_reload_delay", 2*time.Second)
	v.SetDefault("dashboard.trend_days", 7)
	v.SetDefault("dashboard.timezone", "Local")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 7)
	v.SetDefault("logging.compress", true)

	// Breaker defaults
	v.SetDefault("breaker.max_failures", 5)
	v.SetDefault("breaker.open_timeout", 30*time.Second)
}

// loadDotEnv loads ./.env into the process environment. A missing file is fine.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
