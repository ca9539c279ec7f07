// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tradecrawl/screenerd/internal/screener"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig     `mapstructure:"server"`
	Auth     AuthConfig       `mapstructure:"auth"`
	Logging  LoggingConfig    `mapstructure:"logging"`
	Database DatabaseConfig   `mapstructure:"database"`
	Cache    CacheConfig      `mapstructure:"cache"`
	Browser  BrowserConfig    `mapstructure:"browser"`
	Timings  screener.Timings `mapstructure:"timings"`
	Monitor  MonitorConfig    `mapstructure:"monitor"`
	Scrape   ScrapeConfig     `mapstructure:"scrape"`
	Events   EventsConfig     `mapstructure:"events"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// DatabaseConfig controls access to the screener controls table. An empty
// DSN runs the service without a store, on built-in screener defaults.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
}

// CacheConfig governs configuration cache freshness.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// BrowserConfig configures the Chrome session.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless"`
	WindowWidth       int           `mapstructure:"window_width"`
	WindowHeight      int           `mapstructure:"window_height"`
	InitialURL        string        `mapstructure:"initial_url"`
	CookieFile        string        `mapstructure:"cookie_file"`
	DownloadDirPrefix string        `mapstructure:"download_dir_prefix"`
	ExecPath          string        `mapstructure:"exec_path"`
	UserAgent         string        `mapstructure:"user_agent"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout"`
}

// MonitorConfig controls the session health monitor.
type MonitorConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// ScrapeConfig bounds the DOM scraping fallback.
type ScrapeConfig struct {
	MaxRows int `mapstructure:"max_rows"`
}

// EventsConfig tunes the lifecycle event hub and its sinks.
type EventsConfig struct {
	LogSink        bool          `mapstructure:"log_sink"`
	BufferSize     int           `mapstructure:"buffer_size"`
	MaxBatchEvents int           `mapstructure:"max_batch_events"`
	MaxBatchWait   time.Duration `mapstructure:"max_batch_wait"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCREENERD")
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
	v.SetDefault("server.port", 8765)
	v.SetDefault("server.request_timeout", 2*time.Minute)
	v.SetDefault("logging.development", true)
	v.SetDefault("database.table", "controls")
	v.SetDefault("database.query_timeout", 10*time.Second)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.initial_url", "https://in.tradingview.com/screener/")
	v.SetDefault("browser.download_dir_prefix", "tv_screener_")
	v.SetDefault("browser.action_timeout", 30*time.Second)
	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.interval", time.Minute)
	v.SetDefault("scrape.max_rows", 100)
	v.SetDefault("events.log_sink", true)
	v.SetDefault("events.buffer_size", 1024)
	v.SetDefault("events.max_batch_events", 256)
	v.SetDefault("events.max_batch_wait", 500*time.Millisecond)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be > 0")
	}
	if c.Monitor.Enabled && c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be > 0 when the monitor is enabled")
	}
	return nil
}
