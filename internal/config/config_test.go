package config

import (
	"testing"
	"time"

	"github.com/knadh/koanf/v2"
)

func defaultConfig(t *testing.T) *Config {
	t.Helper()

	k := koanf.New(".")
	setDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		t.Fatalf("failed to unmarshal defaults: %v", err)
	}
	return &cfg
}

func TestDefaults(t *testing.T) {
	cfg := defaultConfig(t)

	if err := validate(cfg); err != nil {
		t.Fatalf("default configuration invalid: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("unexpected default port %d", cfg.Server.Port)
	}
	if cfg.Similarity.Threshold != 0.8 {
		t.Errorf("unexpected default threshold %v", cfg.Similarity.Threshold)
	}
	if cfg.Credits.Initial != 20 || cfg.Credits.ResetAmount != 20 {
		t.Errorf("unexpected default credits: %+v", cfg.Credits)
	}
	if cfg.ResetInterval() != 24*time.Hour {
		t.Errorf("unexpected default reset interval %v", cfg.ResetInterval())
	}
	if !cfg.IsDevelopment() || cfg.IsProduction() {
		t.Error("default environment must be development")
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown embedder kind", func(c *Config) { c.Embedder.Kind = "carrier-pigeon" }},
		{"http embedder without base url", func(c *Config) { c.Embedder.BaseURL = "" }},
		{"subprocess without command", func(c *Config) { c.Embedder.Kind = "subprocess" }},
		{"threshold out of range", func(c *Config) { c.Similarity.Threshold = 1.5 }},
		{"negative credits", func(c *Config) { c.Credits.Initial = -1 }},
		{"bad reset interval", func(c *Config) { c.Credits.ResetInterval = "fortnightly" }},
		{"production without jwt secret", func(c *Config) { c.App.Environment = "production" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tt.mutate(cfg)
			if err := validate(cfg); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestSubprocessEmbedderValid(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Embedder.Kind = "subprocess"
	cfg.Embedder.Command = "python3"
	cfg.Embedder.Args = []string{"embed.py"}

	if err := validate(cfg); err != nil {
		t.Errorf("subprocess config rejected: %v", err)
	}
}

func TestTokenTTL(t *testing.T) {
	cfg := defaultConfig(t)
	if cfg.TokenTTL() != time.Hour {
		t.Errorf("unexpected default token TTL %v", cfg.TokenTTL())
	}
}
