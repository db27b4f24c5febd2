// Package config loads and validates websight configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Output  OutputConfig  `mapstructure:"output"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CrawlConfig governs the crawl engine.
type CrawlConfig struct {
	Seed string `mapstructure:"seed"`
	// Domain restricts the crawl; empty derives it from the seed host.
	Domain         string `mapstructure:"domain"`
	MaxPages       int    `mapstructure:"max_pages"`
	Workers        int    `mapstructure:"workers"`
	DelayMs        int    `mapstructure:"delay_ms"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// HTTPConfig configures the HTTP fetcher.
type HTTPConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	// MaxRetries re-attempts transient fetch failures (timeouts,
	// refused connections, 5xx).
	MaxRetries     int `mapstructure:"max_retries"`
	RetryBackoffMs int `mapstructure:"retry_backoff_ms"`
}

// OutputConfig sets export destinations for the finished graph.
type OutputConfig struct {
	Dir        string `mapstructure:"dir"`
	JSON       bool   `mapstructure:"json"`
	CSV        bool   `mapstructure:"csv"`
	HTML       bool   `mapstructure:"html"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// ServerConfig controls the optional status HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment. path may be empty, in
// which case defaults and WEBSIGHT_* environment variables apply.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WEBSIGHT")
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
	v.SetDefault("crawl.max_pages", 500)
	v.SetDefault("crawl.workers", 10)
	v.SetDefault("crawl.delay_ms", 100)
	v.SetDefault("crawl.timeout_seconds", 0)
	v.SetDefault("http.user_agent", "websight/1.0 (+https://github.com/websightdev/websight)")
	v.SetDefault("http.timeout_seconds", 10)
	v.SetDefault("http.max_retries", 2)
	v.SetDefault("http.retry_backoff_ms", 200)
	v.SetDefault("output.dir", "out")
	v.SetDefault("output.json", true)
	v.SetDefault("output.csv", true)
	v.SetDefault("output.html", true)
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8077)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawl.Workers <= 0 {
		return fmt.Errorf("crawl.workers must be > 0")
	}
	if c.Crawl.MaxPages < 0 {
		return fmt.Errorf("crawl.max_pages must be >= 0")
	}
	if c.Crawl.DelayMs < 0 {
		return fmt.Errorf("crawl.delay_ms must be >= 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the status server is enabled")
	}
	return nil
}

// Delay converts the per-worker politeness delay into a Duration.
func (c CrawlConfig) Delay() time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}

// Timeout converts the wall-clock ceiling into a Duration; zero means
// no ceiling.
func (c CrawlConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Timeout converts the per-request timeout into a Duration.
func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryBackoff converts the base retry delay into a Duration.
func (c HTTPConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMs) * time.Millisecond
}
