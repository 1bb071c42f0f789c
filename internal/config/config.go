// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Places  PlacesConfig  `mapstructure:"places"`
	Scan    ScanConfig    `mapstructure:"scan"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles for the admin surface.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// PlacesConfig controls the upstream places API client.
type PlacesConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	PageDelayMs    int    `mapstructure:"page_delay_ms"`
	PhotoMaxPx     int    `mapstructure:"photo_max_px"`
	MaxRetries     int    `mapstructure:"max_retries"`
}

// ScanConfig governs zone scanning behavior.
type ScanConfig struct {
	SearchQuery         string  `mapstructure:"search_query"`
	SubScanRadiusMeters float64 `mapstructure:"sub_scan_radius_meters"`
	EntityDelayMs       int     `mapstructure:"entity_delay_ms"`
	SaturationThreshold int     `mapstructure:"saturation_threshold"`
	HistorySize         int     `mapstructure:"history_size"`
}

// CrawlerConfig governs the menu crawler.
type CrawlerConfig struct {
	UserAgent      string   `mapstructure:"user_agent"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	MaxDepth       int      `mapstructure:"max_depth"`
	Keywords       []string `mapstructure:"keywords"`
	Exclusions     []string `mapstructure:"exclusions"`
}

// StorageConfig sets where state and snapshots live.
type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MENUSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	// Secrets need explicit defaults so env-only values survive Unmarshal.
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("places.api_key", "")
	v.SetDefault("places.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("places.timeout_seconds", 30)
	v.SetDefault("places.page_delay_ms", 1500)
	v.SetDefault("places.photo_max_px", 1600)
	v.SetDefault("places.max_retries", 3)
	v.SetDefault("scan.search_query", "restaurants")
	v.SetDefault("scan.sub_scan_radius_meters", 350)
	v.SetDefault("scan.entity_delay_ms", 250)
	v.SetDefault("scan.saturation_threshold", 2)
	v.SetDefault("scan.history_size", 5)
	v.SetDefault("crawler.user_agent", "menuscout-bot/0.1")
	v.SetDefault("crawler.timeout_seconds", 12)
	v.SetDefault("crawler.max_depth", 2)
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits. The places API
// key is validated separately by commands that reach the network, so a
// key-less config can still run exports.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Places.TimeoutSeconds <= 0 {
		return fmt.Errorf("places.timeout_seconds must be > 0")
	}
	if c.Scan.SubScanRadiusMeters <= 0 {
		return fmt.Errorf("scan.sub_scan_radius_meters must be > 0")
	}
	if c.Scan.SaturationThreshold < 0 {
		return fmt.Errorf("scan.saturation_threshold must be >= 0")
	}
	if c.Scan.HistorySize <= 0 {
		return fmt.Errorf("scan.history_size must be > 0")
	}
	if c.Crawler.MaxDepth < 0 {
		return fmt.Errorf("crawler.max_depth must be >= 0")
	}
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		return fmt.Errorf("storage.data_dir must be set")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// PlacesTimeout converts the configured timeout into a duration.
func (c Config) PlacesTimeout() time.Duration {
	return time.Duration(c.Places.TimeoutSeconds) * time.Second
}

// PageDelay converts the configured inter-page delay into a duration.
func (c Config) PageDelay() time.Duration {
	return time.Duration(c.Places.PageDelayMs) * time.Millisecond
}

// EntityDelay converts the configured inter-entity delay into a duration.
func (c Config) EntityDelay() time.Duration {
	return time.Duration(c.Scan.EntityDelayMs) * time.Millisecond
}

// CrawlTimeout converts the crawler page timeout into a duration.
func (c Config) CrawlTimeout() time.Duration {
	return time.Duration(c.Crawler.TimeoutSeconds) * time.Second
}
