// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, duration parsing, and defaults

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "0.0.0.0:8080"

database:
  path: "./test.db"

ai:
  endpoint: "https://api.example.com/v1"
  api_key: "sk-test"
  model: "gpt-4o-mini"
  max_turns: 10
  timeout: "90s"

cors:
  allowed_origins:
    - "http://localhost:3000"
    - "https://app.example.com"

limits:
  events_per_second: 20
  burst: 40

logging:
  level: "debug"
  format: "json"

metrics:
  enabled: true
  path: "/metrics"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:8080")
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}

	// Verify AI config with duration parsing
	if cfg.AI.Endpoint != "https://api.example.com/v1" {
		t.Errorf("AI.Endpoint = %q, want %q", cfg.AI.Endpoint, "https://api.example.com/v1")
	}
	if cfg.AI.Model != "gpt-4o-mini" {
		t.Errorf("AI.Model = %q, want %q", cfg.AI.Model, "gpt-4o-mini")
	}
	if cfg.AI.MaxTurns != 10 {
		t.Errorf("AI.MaxTurns = %d, want 10", cfg.AI.MaxTurns)
	}
	if cfg.AI.Timeout != 90*time.Second {
		t.Errorf("AI.Timeout = %v, want %v", cfg.AI.Timeout, 90*time.Second)
	}

	if len(cfg.CORS.AllowedOrigins) != 2 {
		t.Errorf("CORS.AllowedOrigins len = %d, want 2", len(cfg.CORS.AllowedOrigins))
	}
	if cfg.Limits.EventsPerSecond != 20 {
		t.Errorf("Limits.EventsPerSecond = %v, want 20", cfg.Limits.EventsPerSecond)
	}
	if cfg.Limits.Burst != 40 {
		t.Errorf("Limits.Burst = %d, want 40", cfg.Limits.Burst)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
}

func TestLoad_Defaults(t *testing.T) {
	configPath := writeConfig(t, `
database:
  path: "./test.db"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != ":8080" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, ":8080")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "text")
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want %q", cfg.Metrics.Path, "/metrics")
	}
	if cfg.Limits.EventsPerSecond != 0 {
		t.Errorf("Limits.EventsPerSecond = %v, want 0", cfg.Limits.EventsPerSecond)
	}
}

func TestLoad_BurstDefaultWhenRateSet(t *testing.T) {
	configPath := writeConfig(t, `
database:
  path: "./test.db"

limits:
  events_per_second: 5
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Limits.Burst != 10 {
		t.Errorf("Limits.Burst = %d, want 10", cfg.Limits.Burst)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("OMNICHAT_TEST_API_KEY", "sk-from-env")
	t.Setenv("OMNICHAT_TEST_DB_PATH", "/var/lib/omnichat/chat.db")

	configPath := writeConfig(t, `
database:
  path: "${OMNICHAT_TEST_DB_PATH}"

ai:
  endpoint: "https://api.example.com/v1"
  api_key: "${OMNICHAT_TEST_API_KEY}"
  model: "gpt-4o-mini"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.AI.APIKey != "sk-from-env" {
		t.Errorf("AI.APIKey = %q, want %q", cfg.AI.APIKey, "sk-from-env")
	}
	if cfg.Database.Path != "/var/lib/omnichat/chat.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/var/lib/omnichat/chat.db")
	}
}

func TestLoad_UnsetEnvVarBecomesEmpty(t *testing.T) {
	configPath := writeConfig(t, `
database:
  path: "./test.db"

ai:
  endpoint: "https://api.example.com/v1"
  api_key: "${OMNICHAT_DEFINITELY_UNSET_VAR}"
  model: "gpt-4o-mini"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.AI.APIKey != "" {
		t.Errorf("AI.APIKey = %q, want empty", cfg.AI.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load() error = nil, want error for missing file")
	}
	if !strings.Contains(err.Error(), "reading config file") {
		t.Errorf("error = %v, want reading config file error", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "database:\n  path: [unclosed")

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() error = nil, want parse error")
	}
	if !strings.Contains(err.Error(), "parsing config file") {
		t.Errorf("error = %v, want parsing config file error", err)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, `
database:
  path: "./test.db"

ai:
  endpoint: "https://api.example.com/v1"
  model: "gpt-4o-mini"
  timeout: "ninety seconds"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() error = nil, want duration parse error")
	}
	if !strings.Contains(err.Error(), "ai.timeout") {
		t.Errorf("error = %v, want ai.timeout parse error", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "ai endpoint without model",
			mutate:  func(c *Config) { c.AI.Endpoint = "https://api.example.com"; c.AI.Model = "" },
			wantErr: "ai.model",
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *Config) { c.Limits.EventsPerSecond = -1 },
			wantErr: "events_per_second",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "logging.level",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Database: DatabaseConfig{Path: "./test.db"},
				Logging:  LoggingConfig{Level: "info", Format: "text"},
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
