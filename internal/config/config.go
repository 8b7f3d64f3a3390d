// Package config provides application configuration management using koanf
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Embedder   EmbedderConfig   `koanf:"embedder"`
	Similarity SimilarityConfig `koanf:"similarity"`
	Credits    CreditsConfig    `koanf:"credits"`
	Auth       AuthConfig       `koanf:"auth"`
	App        AppConfig        `koanf:"app"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `koanf:"host"`
	Port         int    `koanf:"port"`
	ReadTimeout  int    `koanf:"read_timeout"`  // seconds
	WriteTimeout int    `koanf:"write_timeout"` // seconds
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// EmbedderConfig holds embedding provider configuration
type EmbedderConfig struct {
	Kind    string   `koanf:"kind"` // "http" or "subprocess"
	BaseURL string   `koanf:"base_url"`
	Model   string   `koanf:"model"`
	Command string   `koanf:"command"`
	Args    []string `koanf:"args"`
	Timeout int      `koanf:"timeout"` // seconds
	Retries int      `koanf:"retries"` // attempts on transient failure
}

// SimilarityConfig holds matching parameters
type SimilarityConfig struct {
	Threshold float64 `koanf:"threshold"` // matches require similarity strictly above this
}

// CreditsConfig holds the credit lifecycle parameters
type CreditsConfig struct {
	Initial       int    `koanf:"initial"`        // balance granted at registration
	ResetAmount   int    `koanf:"reset_amount"`   // balance restored by the periodic reset
	ResetInterval string `koanf:"reset_interval"` // Go duration, e.g. "24h"
}

// AuthConfig holds token issuance settings
type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
	TokenTTL  int    `koanf:"token_ttl"` // minutes
}

// AppConfig holds general application settings
type AppConfig struct {
	Environment string `koanf:"environment"` // "development", "staging", "production"
	LogLevel    string `koanf:"log_level"`   // "debug", "info", "warn", "error"
	LogFormat   string `koanf:"log_format"`  // "text" or "json"
}

// Load loads configuration from multiple sources with precedence:
// 1. config.yaml (if exists)
// 2. config.json (if exists)
// 3. Environment variables (highest precedence)
func Load() (*Config, error) {
	k := koanf.New(".")

	setDefaults(k)
	loadConfigFiles(k)

	if err := k.Load(env.Provider(".", env.Opt{}), nil); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(k *koanf.Koanf) {
	defaults := map[string]interface{}{
		"server.host":          "localhost",
		"server.port":          8080,
		"server.read_timeout":  30,
		"server.write_timeout": 30,

		"database.path": "docmatch.db",

		"embedder.kind":     "http",
		"embedder.base_url": "http://localhost:11434",
		"embedder.model":    "nomic-embed-text",
		"embedder.timeout":  60,
		"embedder.retries":  3,

		"similarity.threshold": 0.8,

		"credits.initial":        20,
		"credits.reset_amount":   20,
		"credits.reset_interval": "24h",

		"auth.token_ttl": 60,

		"app.environment": "development",
		"app.log_level":   "info",
		"app.log_format":  "text",
	}

	for key, value := range defaults {
		_ = k.Set(key, value) // Ignore error for setting defaults
	}
}

// loadConfigFiles loads configuration from files
func loadConfigFiles(k *koanf.Koanf) {
	if _, err := os.Stat("config.yaml"); err == nil {
		if err := k.Load(file.Provider("config.yaml"), yaml.Parser()); err != nil {
			log.Printf("Warning: failed to load config.yaml: %v", err)
		}
	}

	if _, err := os.Stat("config.json"); err == nil {
		if err := k.Load(file.Provider("config.json"), json.Parser()); err != nil {
			log.Printf("Warning: failed to load config.json: %v", err)
		}
	}
}

// validate validates the configuration
func validate(cfg *Config) error {
	switch cfg.Embedder.Kind {
	case "http":
		if cfg.Embedder.BaseURL == "" {
			return fmt.Errorf("embedder base URL is required for the http provider")
		}
	case "subprocess":
		if cfg.Embedder.Command == "" {
			return fmt.Errorf("embedder command is required for the subprocess provider")
		}
	default:
		return fmt.Errorf("unknown embedder kind: %s", cfg.Embedder.Kind)
	}

	if cfg.Similarity.Threshold < -1 || cfg.Similarity.Threshold > 1 {
		return fmt.Errorf("similarity threshold must be within [-1, 1], got %v", cfg.Similarity.Threshold)
	}

	if cfg.Credits.Initial < 0 || cfg.Credits.ResetAmount < 0 {
		return fmt.Errorf("credit amounts must be non-negative")
	}
	if _, err := time.ParseDuration(cfg.Credits.ResetInterval); err != nil {
		return fmt.Errorf("invalid credit reset interval: %w", err)
	}

	if cfg.Auth.JWTSecret == "" && !cfg.IsDevelopment() {
		return fmt.Errorf("JWT secret is required outside development")
	}

	return nil
}

// ResetInterval returns the parsed credit reset interval.
func (c *Config) ResetInterval() time.Duration {
	d, err := time.ParseDuration(c.Credits.ResetInterval)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// TokenTTL returns the JWT validity duration.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTL) * time.Minute
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
