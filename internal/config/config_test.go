package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.OpenAI.APIKey = "sk-test"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.HTTP.Port != 3000 {
		t.Errorf("Expected default port 3000, got %d", cfg.HTTP.Port)
	}
	if cfg.OpenAI.ChatModel == "" || cfg.OpenAI.TTSModel == "" {
		t.Error("Default models should be set")
	}
	if cfg.Uploads.MaxSize <= 0 {
		t.Error("Default upload limit should be positive")
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("DIALOGLAB_HTTP_PORT", "8080")
	t.Setenv("DIALOGLAB_CHAT_MODEL", "gpt-4o")
	t.Setenv("DIALOGLAB_ALLOWED_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("DIALOGLAB_HTTP_READ_TIMEOUT", "45s")

	cfg := Load()

	if cfg.OpenAI.APIKey != "sk-env" {
		t.Errorf("Expected API key from env, got %q", cfg.OpenAI.APIKey)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.OpenAI.ChatModel != "gpt-4o" {
		t.Errorf("Expected chat model override, got %q", cfg.OpenAI.ChatModel)
	}
	if len(cfg.HTTP.AllowedOrigins) != 2 || cfg.HTTP.AllowedOrigins[1] != "http://b.example" {
		t.Errorf("Expected parsed origins, got %v", cfg.HTTP.AllowedOrigins)
	}
	if cfg.HTTP.ReadTimeout != 45*time.Second {
		t.Errorf("Expected 45s read timeout, got %v", cfg.HTTP.ReadTimeout)
	}
}

func TestLoad_PortPrecedence(t *testing.T) {
	t.Setenv("PORT", "4000")
	t.Setenv("DIALOGLAB_HTTP_PORT", "5000")

	cfg := Load()
	if cfg.HTTP.Port != 5000 {
		t.Errorf("DIALOGLAB_HTTP_PORT should win over PORT, got %d", cfg.HTTP.Port)
	}
}

func TestValidate_MissingAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Error("Missing API key should fail validation")
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Valid configuration should pass: %v", err)
	}
}

func TestValidate_BadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.HTTP.Port = 0 }},
		{"huge port", func(c *Config) { c.HTTP.Port = 70000 }},
		{"negative timeout", func(c *Config) { c.HTTP.ReadTimeout = -time.Second }},
		{"empty teacher password", func(c *Config) { c.Teacher.Password = "" }},
		{"empty database path", func(c *Config) { c.Database.Path = "" }},
		{"empty upload dir", func(c *Config) { c.Uploads.Dir = "" }},
		{"zero upload limit", func(c *Config) { c.Uploads.MaxSize = 0 }},
		{"empty chat model", func(c *Config) { c.OpenAI.ChatModel = "" }},
		{"no origins", func(c *Config) { c.HTTP.AllowedOrigins = nil }},
	}

	for _, c := range cases {
		cfg := validConfig()
		c.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", c.name)
		}
	}
}
