// Package config loads process configuration and holds the runtime settings of the job pipeline.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values for the application.
type Config struct {
	// HTTP server port
	HTTPPort int

	// Log level: debug, info, warn or error
	LogLevel string

	// OTLP gRPC collector address; tracing is disabled when empty
	OTELEndpoint string

	// Interval between two dispatcher ticks
	DispatchInterval time.Duration

	// Job submissions allowed per second per client; 0 means unlimited
	SubmitRateLimit float64

	// Burst size for the submission limiter
	SubmitRateBurst int

	// Initial runtime settings; can be changed while running
	Settings Settings
}

// Load reads configuration from an optional YAML file and the environment.
// Environment variables take precedence over the file, which takes precedence over defaults.
// If path is empty, tmplq.yaml in the working directory is used when present.
func Load(path string) (*Config, error) {
	v := viper.New()

	defaults := DefaultSettings()
	v.SetDefault("http_port", 6161)
	v.SetDefault("log_level", "info")
	v.SetDefault("otel_endpoint", "")
	v.SetDefault("dispatch_interval", 100*time.Millisecond)
	v.SetDefault("submit_rate_limit", 0)
	v.SetDefault("submit_rate_burst", 20)
	v.SetDefault("queue_capacity", defaults.QueueCapacity)
	v.SetDefault("history_capacity", defaults.HistoryCapacity)
	v.SetDefault("max_template_bytes", defaults.MaxTemplateBytes)
	v.SetDefault("processing_delay_min", defaults.ProcessingDelay.Min)
	v.SetDefault("processing_delay_max", defaults.ProcessingDelay.Max)

	bindings := map[string]string{
		"http_port":            "PORT",
		"log_level":            "LOG_LEVEL",
		"otel_endpoint":        "OTEL_EXPORTER_OTLP_ENDPOINT",
		"dispatch_interval":    "DISPATCH_INTERVAL",
		"submit_rate_limit":    "SUBMIT_RATE_LIMIT",
		"submit_rate_burst":    "SUBMIT_RATE_BURST",
		"queue_capacity":       "QUEUE_CAPACITY",
		"history_capacity":     "HISTORY_CAPACITY",
		"max_template_bytes":   "MAX_TEMPLATE_BYTES",
		"processing_delay_min": "PROCESSING_DELAY_MIN",
		"processing_delay_max": "PROCESSING_DELAY_MAX",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("tmplq")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	cfg := &Config{
		HTTPPort:         v.GetInt("http_port"),
		LogLevel:         strings.ToLower(v.GetString("log_level")),
		OTELEndpoint:     v.GetString("otel_endpoint"),
		DispatchInterval: v.GetDuration("dispatch_interval"),
		SubmitRateLimit:  v.GetFloat64("submit_rate_limit"),
		SubmitRateBurst:  v.GetInt("submit_rate_burst"),
		Settings: Settings{
			QueueCapacity:    v.GetInt("queue_capacity"),
			HistoryCapacity:  v.GetInt("history_capacity"),
			MaxTemplateBytes: v.GetInt("max_template_bytes"),
			ProcessingDelay: DelayRange{
				Min: v.GetInt("processing_delay_min"),
				Max: v.GetInt("processing_delay_max"),
			},
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.DispatchInterval <= 0 {
		return fmt.Errorf("dispatch_interval must be positive, got %v", c.DispatchInterval)
	}
	if c.SubmitRateLimit < 0 {
		return fmt.Errorf("submit_rate_limit must not be negative, got %v", c.SubmitRateLimit)
	}
	if c.SubmitRateLimit > 0 && c.SubmitRateBurst <= 0 {
		return fmt.Errorf("submit_rate_burst must be positive when a rate limit is set, got %d", c.SubmitRateBurst)
	}
	if err := c.Settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// ParseLevel converts a log level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch name {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log_level: %q", name)
	}
}
