// Package config provides configuration loading for cloneplan.
//
// Configuration is loaded from a YAML file, then overridden by environment
// variables, on top of hardcoded defaults. See Load for the precedence rules.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete cloneplan configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Output   OutputConfig   `koanf:"output"`
	Fetcher  FetcherConfig  `koanf:"fetcher"`
	AI       AIConfig       `koanf:"ai"`
	Cleanup  CleanupConfig  `koanf:"cleanup"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds relational storage configuration.
type DatabaseConfig struct {
	// Path is the SQLite database file. ":memory:" is accepted for tests.
	Path string `koanf:"path"`
}

// OutputConfig controls where generated artifacts are written.
type OutputConfig struct {
	Dir        string   `koanf:"dir"`
	TempMaxAge Duration `koanf:"temp_max_age"`
}

// FetcherConfig holds outbound page-fetch configuration.
type FetcherConfig struct {
	Timeout       Duration `koanf:"timeout"`
	UserAgent     string   `koanf:"user_agent"`
	RatePerSecond float64  `koanf:"rate_per_second"`
	Burst         int      `koanf:"burst"`
}

// AIConfig holds AI backend configuration.
//
// Backend names select the implementation per feature: "openai" uses the
// hosted API, "stub" runs fully offline. Defaults apply to new tasks only;
// per-feature selection can be changed at runtime through the settings API.
type AIConfig struct {
	APIKey       Secret `koanf:"api_key"`
	BaseURL      string `koanf:"base_url"`
	TextModel    string `koanf:"text_model"`
	ImageModel   string `koanf:"image_model"`
	TextBackend  string `koanf:"text_backend"`
	ImageBackend string `koanf:"image_backend"`
	IdeasBackend string `koanf:"ideas_backend"`
}

// CleanupConfig holds background housekeeping configuration.
type CleanupConfig struct {
	// Schedule is a cron expression (robfig/cron format, e.g. "@hourly").
	Schedule string `koanf:"schedule"`
	// TaskRetention is how long terminal tasks are kept before deletion.
	TaskRetention Duration `koanf:"task_retention"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns config with production-ready defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8000,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Database: DatabaseConfig{
			Path: "cloneplan.db",
		},
		Output: OutputConfig{
			Dir:        "outputs",
			TempMaxAge: Duration(7 * 24 * time.Hour),
		},
		Fetcher: FetcherConfig{
			Timeout:       Duration(20 * time.Second),
			UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36",
			RatePerSecond: 2,
			Burst:         4,
		},
		AI: AIConfig{
			BaseURL:      "https://api.openai.com/v1",
			TextModel:    "gpt-4o-mini",
			ImageModel:   "dall-e-3",
			TextBackend:  "stub",
			ImageBackend: "stub",
			IdeasBackend: "stub",
		},
		Cleanup: CleanupConfig{
			Schedule:      "@hourly",
			TaskRetention: Duration(2 * time.Hour),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Output.Dir == "" {
		return errors.New("output dir is required")
	}
	if c.Fetcher.Timeout.Duration() <= 0 {
		return errors.New("fetcher timeout must be positive")
	}
	if c.Fetcher.RatePerSecond <= 0 {
		return errors.New("fetcher rate must be positive")
	}
	for _, backend := range []string{c.AI.TextBackend, c.AI.ImageBackend, c.AI.IdeasBackend} {
		if backend != "openai" && backend != "stub" {
			return fmt.Errorf("unknown ai backend %q (must be 'openai' or 'stub')", backend)
		}
	}
	if (c.AI.TextBackend == "openai" || c.AI.ImageBackend == "openai" || c.AI.IdeasBackend == "openai") && !c.AI.APIKey.IsSet() {
		return errors.New("ai api_key is required when an openai backend is selected")
	}
	if c.Cleanup.Schedule == "" {
		return errors.New("cleanup schedule is required")
	}
	if c.Cleanup.TaskRetention.Duration() <= 0 {
		return errors.New("task retention must be positive")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}
	return nil
}
