// Package config loads quantdesk configuration from YAML files, a .env file
// and QUANTDESK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "QUANTDESK"

// Config represents the complete application configuration.
type Config struct {
	Data    DataConfig    `mapstructure:"data"    yaml:"data"`
	Options OptionsConfig `mapstructure:"options" yaml:"options"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"`
	Polygon PolygonConfig `mapstructure:"polygon" yaml:"polygon"`
}

// DataConfig controls market data providers.
type DataConfig struct {
	Provider          string `mapstructure:"provider"            yaml:"provider"` // "yahoo", "polygon", "composite"
	CacheTTL          int    `mapstructure:"cache_ttl"           yaml:"cache_ttl"` // seconds
	ConcurrentFetches int    `mapstructure:"concurrent_fetches"  yaml:"concurrent_fetches"`
	RequestsPerSecond int    `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// CacheDuration returns CacheTTL as a duration.
func (d DataConfig) CacheDuration() time.Duration {
	return time.Duration(d.CacheTTL) * time.Second
}

// OptionsConfig holds the parameters of the options analytics.
type OptionsConfig struct {
	RiskFreeRate      float64 `mapstructure:"risk_free_rate"      yaml:"risk_free_rate"`
	StrikeRangeFactor float64 `mapstructure:"strike_range_factor" yaml:"strike_range_factor"`
	HorizonDays       int     `mapstructure:"horizon_days"        yaml:"horizon_days"`
	SkewWindowDays    int     `mapstructure:"skew_window_days"    yaml:"skew_window_days"`
	SurfaceResolution int     `mapstructure:"surface_resolution"  yaml:"surface_resolution"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"        yaml:"level"`  // "debug", "info", "warn", "error"
	Format     string `mapstructure:"format"       yaml:"format"` // "console" or "json"
	File       string `mapstructure:"file"         yaml:"file"`   // empty disables file output
	MaxSizeMB  int    `mapstructure:"max_size_mb"  yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"  yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// PolygonConfig holds Polygon.io credentials.
type PolygonConfig struct {
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml
//  2. ~/.quantdesk/config.yaml
//  3. /etc/quantdesk/config.yaml
//
// A .env file in the working directory is loaded into the environment
// first. Environment variables override file values, e.g.
// QUANTDESK_OPTIONS_RISK_FREE_RATE.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".quantdesk"))
	v.AddConfigPath("/etc/quantdesk")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv loads path into the environment when it exists. Variables
// already set win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// setDefaults sets the defaults for all config values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("data.provider", "yahoo")
	v.SetDefault("data.cache_ttl", 300)
	v.SetDefault("data.concurrent_fetches", 4)
	v.SetDefault("data.requests_per_second", 5)

	v.SetDefault("options.risk_free_rate", 0.01)
	v.SetDefault("options.strike_range_factor", 0.25)
	v.SetDefault("options.horizon_days", 30)
	v.SetDefault("options.skew_window_days", 21)
	v.SetDefault("options.surface_resolution", 100)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 14)

	v.SetDefault("api.host", "127.0.0.1")
	v.SetDefault("api.port", 8090)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("polygon.api_key", "")
}

// overrideFromEnv explicitly reads secrets from the environment.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv(EnvPrefix + "_POLYGON_API_KEY"); key != "" {
		cfg.Polygon.APIKey = key
	}
}

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
