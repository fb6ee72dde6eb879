package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Server.Address != ":5000" {
		t.Errorf("Expected default address :5000, got %s", config.Server.Address)
	}

	if !config.Server.ExposeErrorDetails {
		t.Error("Expected error details to be exposed by default")
	}

	if config.Instagram.DocID != "8845758582119845" {
		t.Errorf("Expected default doc id, got %s", config.Instagram.DocID)
	}

	if config.Metadata.MaxBodyBytes != 5*1024*1024 {
		t.Errorf("Expected 5 MiB body cap, got %d", config.Metadata.MaxBodyBytes)
	}

	if config.Download.ConcurrentDownloads != 3 {
		t.Errorf("Expected default concurrent downloads 3, got %d", config.Download.ConcurrentDownloads)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("REELPROXY_SESSION_ID", "test-session-id")
	t.Setenv("REELPROXY_CSRF_TOKEN", "test-csrf-token")
	t.Setenv("REELPROXY_OUTPUT_DIR", "/test/output")
	t.Setenv("REELPROXY_LOG_LEVEL", "debug")
	t.Setenv("REELPROXY_MEDIA_TIMEOUT", "7s")
	t.Setenv("REELPROXY_EXPOSE_ERROR_DETAILS", "false")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from env: %v", err)
	}

	if config.Server.Address != ":8080" {
		t.Errorf("Expected address :8080, got %s", config.Server.Address)
	}

	if config.Instagram.SessionID != "test-session-id" {
		t.Errorf("Expected session ID to be test-session-id, got %s", config.Instagram.SessionID)
	}

	if config.Instagram.CSRFToken != "test-csrf-token" {
		t.Errorf("Expected CSRF token to be test-csrf-token, got %s", config.Instagram.CSRFToken)
	}

	if config.Download.BaseDirectory != "/test/output" {
		t.Errorf("Expected output directory to be /test/output, got %s", config.Download.BaseDirectory)
	}

	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level to be debug, got %s", config.Logging.Level)
	}

	if config.Resolver.MediaTimeout != 7*time.Second {
		t.Errorf("Expected media timeout 7s, got %s", config.Resolver.MediaTimeout)
	}

	if config.Server.ExposeErrorDetails {
		t.Error("Expected error details to be hidden")
	}
}

func TestLoadFromEnvAddrOverridesPort(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("REELPROXY_ADDR", "127.0.0.1:9000")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from env: %v", err)
	}

	if config.Server.Address != "127.0.0.1:9000" {
		t.Errorf("Expected explicit address to win, got %s", config.Server.Address)
	}
}

func TestLoadFromEnvInvalidDuration(t *testing.T) {
	t.Setenv("REELPROXY_METADATA_TIMEOUT", "soon")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err == nil {
		t.Error("Expected error for invalid duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantError bool
	}{
		{
			name:      "valid config",
			mutate:    func(c *Config) {},
			wantError: false,
		},
		{
			name:      "missing address",
			mutate:    func(c *Config) { c.Server.Address = "" },
			wantError: true,
		},
		{
			name:      "invalid concurrent downloads",
			mutate:    func(c *Config) { c.Download.ConcurrentDownloads = 15 },
			wantError: true,
		},
		{
			name:      "invalid log level",
			mutate:    func(c *Config) { c.Logging.Level = "invalid" },
			wantError: true,
		},
		{
			name:      "negative resolver timeout",
			mutate:    func(c *Config) { c.Resolver.MediaTimeout = -time.Second },
			wantError: true,
		},
		{
			name:      "zero resolver timeout is unbounded",
			mutate:    func(c *Config) { c.Resolver.MetadataTimeout = 0 },
			wantError: false,
		},
		{
			name:      "missing doc id",
			mutate:    func(c *Config) { c.Instagram.DocID = "" },
			wantError: true,
		},
		{
			name:      "jitter out of range",
			mutate:    func(c *Config) { c.Retry.JitterFactor = 2 },
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()

	flags := map[string]interface{}{
		"addr":                 ":7000",
		"expose-error-details": false,
		"output":               "/flag/output",
		"concurrent":           7,
		"media-timeout":        3 * time.Second,
		"log-level":            "error",
		"requests-per-minute":  30,
	}

	config.MergeCommandLineFlags(flags)

	if config.Server.Address != ":7000" {
		t.Errorf("Expected address :7000, got %s", config.Server.Address)
	}

	if config.Server.ExposeErrorDetails {
		t.Error("Expected error details to be hidden")
	}

	if config.Download.BaseDirectory != "/flag/output" {
		t.Errorf("Expected output directory to be /flag/output, got %s", config.Download.BaseDirectory)
	}

	if config.Download.ConcurrentDownloads != 7 {
		t.Errorf("Expected concurrent downloads to be 7, got %d", config.Download.ConcurrentDownloads)
	}

	if config.Resolver.MediaTimeout != 3*time.Second {
		t.Errorf("Expected media timeout 3s, got %s", config.Resolver.MediaTimeout)
	}

	if config.Logging.Level != "error" {
		t.Errorf("Expected log level to be error, got %s", config.Logging.Level)
	}

	if config.Server.RequestsPerMinute != 30 {
		t.Errorf("Expected server requests per minute 30, got %d", config.Server.RequestsPerMinute)
	}
}

func TestSaveAndLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	config := DefaultConfig()
	config.Server.Address = ":6000"
	config.Instagram.SessionID = "save-test-session"
	config.Resolver.MetadataTimeout = 4 * time.Second

	if err := config.Save(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loadedConfig := DefaultConfig()
	if err := loadedConfig.LoadFromFile(configPath); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loadedConfig.Server.Address != ":6000" {
		t.Errorf("Expected loaded address :6000, got %s", loadedConfig.Server.Address)
	}

	if loadedConfig.Instagram.SessionID != "save-test-session" {
		t.Errorf("Expected loaded session ID to be save-test-session, got %s", loadedConfig.Instagram.SessionID)
	}

	if loadedConfig.Resolver.MetadataTimeout != 4*time.Second {
		t.Errorf("Expected loaded metadata timeout 4s, got %s", loadedConfig.Resolver.MetadataTimeout)
	}
}

func TestLoadFromFilePartialKeepsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.yaml")
	content := "server:\n  address: \":9999\"\nresolver:\n  media_timeout: 12s\n"
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	config := DefaultConfig()
	if err := config.LoadFromFile(configPath); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Server.Address != ":9999" {
		t.Errorf("Expected address :9999, got %s", config.Server.Address)
	}
	if config.Resolver.MediaTimeout != 12*time.Second {
		t.Errorf("Expected media timeout 12s, got %s", config.Resolver.MediaTimeout)
	}
	if config.Metadata.MaxBodyBytes != 5*1024*1024 {
		t.Errorf("Expected default body cap to survive, got %d", config.Metadata.MaxBodyBytes)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	config := DefaultConfig()
	if err := config.LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected error for missing explicit config file")
	}
}
