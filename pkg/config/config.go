package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv
const EnvPrefix = "REELPROXY_"

// Config holds all configuration options for the reel proxy
type Config struct {
	// HTTP server settings
	Server ServerConfig `yaml:"server" json:"server"`

	// Instagram media resolver settings
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Open Graph metadata extractor settings
	Metadata MetadataConfig `yaml:"metadata" json:"metadata"`

	// Per-collaborator bounds applied by the resolution proxy
	Resolver ResolverConfig `yaml:"resolver" json:"resolver"`

	// Upstream rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Upstream retry configuration
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// CLI download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address            string        `yaml:"address" json:"address"`
	ReadTimeout        time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout        time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	ExposeErrorDetails bool          `yaml:"expose_error_details" json:"expose_error_details"`
	RequestsPerMinute  int           `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// InstagramConfig holds Instagram-specific configuration
type InstagramConfig struct {
	Account   string        `yaml:"account" json:"account"`
	SessionID string        `yaml:"session_id" json:"session_id"`
	CSRFToken string        `yaml:"csrf_token" json:"csrf_token"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	AppID     string        `yaml:"app_id" json:"app_id"`
	DocID     string        `yaml:"doc_id" json:"doc_id"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// MetadataConfig holds Open Graph fetcher configuration
type MetadataConfig struct {
	UserAgent    string        `yaml:"user_agent" json:"user_agent"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
}

// ResolverConfig bounds each collaborator call made during one resolution.
// A zero timeout leaves the call bounded only by the caller's context.
type ResolverConfig struct {
	MetadataTimeout time.Duration `yaml:"metadata_timeout" json:"metadata_timeout"`
	MediaTimeout    time.Duration `yaml:"media_timeout" json:"media_timeout"`
}

// RateLimitConfig holds rate limiting configuration for upstream requests
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// RetryConfig holds retry configuration for upstream requests
type RetryConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay    time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`
	JitterFactor float64       `yaml:"jitter_factor" json:"jitter_factor"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	BaseDirectory       string        `yaml:"base_directory" json:"base_directory"`
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	DownloadTimeout     time.Duration `yaml:"download_timeout" json:"download_timeout"`
	WriteMetadata       bool          `yaml:"write_metadata" json:"write_metadata"`
	OverwriteExisting   bool          `yaml:"overwrite_existing" json:"overwrite_existing"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	File    string `yaml:"file" json:"file"`
	Console bool   `yaml:"console" json:"console"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:            ":5000",
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       60 * time.Second,
			IdleTimeout:        120 * time.Second,
			ShutdownTimeout:    10 * time.Second,
			ExposeErrorDetails: true,
			RequestsPerMinute:  0,
		},
		Instagram: InstagramConfig{
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			AppID:     "936619743392459",
			DocID:     "8845758582119845",
			Timeout:   20 * time.Second,
		},
		Metadata: MetadataConfig{
			UserAgent:    "Mozilla/5.0 (compatible; facebookexternalhit/1.1; +http://www.facebook.com/externalhit_uatext.php)",
			Timeout:      15 * time.Second,
			MaxBodyBytes: 5 * 1024 * 1024,
		},
		Resolver: ResolverConfig{
			MetadataTimeout: 20 * time.Second,
			MediaTimeout:    30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BurstSize:         10,
		},
		Retry: RetryConfig{
			Enabled:      true,
			MaxAttempts:  2,
			BaseDelay:    500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		Download: DownloadConfig{
			BaseDirectory:       "./downloads",
			ConcurrentDownloads: 3,
			DownloadTimeout:     2 * time.Minute,
			WriteMetadata:       true,
			OverwriteExisting:   false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			File:    "",
			Console: true,
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	// PORT is honoured for platforms that inject it
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Address = ":" + port
	}
	if addr := getEnv("ADDR"); addr != "" {
		c.Server.Address = addr
	}
	if v := getEnv("EXPOSE_ERROR_DETAILS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sEXPOSE_ERROR_DETAILS: %w", EnvPrefix, err))
		} else {
			c.Server.ExposeErrorDetails = b
		}
	}
	if v := getEnv("SERVER_REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSERVER_REQUESTS_PER_MINUTE: %w", EnvPrefix, err))
		} else {
			c.Server.RequestsPerMinute = n
		}
	}

	// Instagram credentials
	if account := getEnv("ACCOUNT"); account != "" {
		c.Instagram.Account = account
	}
	if sessionID := getEnv("SESSION_ID"); sessionID != "" {
		c.Instagram.SessionID = sessionID
	}
	if csrfToken := getEnv("CSRF_TOKEN"); csrfToken != "" {
		c.Instagram.CSRFToken = csrfToken
	}
	if userAgent := getEnv("USER_AGENT"); userAgent != "" {
		c.Instagram.UserAgent = userAgent
	}

	// Collaborator bounds
	if v := getEnv("MEDIA_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMEDIA_TIMEOUT: %w", EnvPrefix, err))
		} else {
			c.Resolver.MediaTimeout = d
		}
	}
	if v := getEnv("METADATA_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMETADATA_TIMEOUT: %w", EnvPrefix, err))
		} else {
			c.Resolver.MetadataTimeout = d
		}
	}

	// Rate limiting
	if rpm := getEnv("REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}

	// Downloads
	if outputDir := getEnv("OUTPUT_DIR"); outputDir != "" {
		c.Download.BaseDirectory = outputDir
	}
	if concurrent := getEnv("CONCURRENT_DOWNLOADS"); concurrent != "" {
		var val int
		fmt.Sscanf(concurrent, "%d", &val)
		if val > 0 {
			c.Download.ConcurrentDownloads = val
		}
	}

	// Logging
	if logLevel := getEnv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := getEnv("LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return errors.Join(errs...)
}

func getEnv(name string) string {
	return os.Getenv(EnvPrefix + name)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"reelproxy.yaml",
		".reelproxy.yaml",
		".reelproxy.yml",
		filepath.Join(home, ".config", "reelproxy", "config.yaml"),
		filepath.Join(home, ".config", "reelproxy", "config.yml"),
		filepath.Join(home, ".reelproxy.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Address == "" {
		errs = append(errs, errors.New("server address is required"))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("shutdown timeout cannot be negative"))
	}
	if c.Server.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("server requests per minute cannot be negative"))
	}

	if c.Instagram.Timeout <= 0 {
		errs = append(errs, errors.New("instagram timeout must be positive"))
	}
	if c.Instagram.DocID == "" {
		errs = append(errs, errors.New("instagram doc id is required"))
	}
	if c.Metadata.Timeout <= 0 {
		errs = append(errs, errors.New("metadata timeout must be positive"))
	}
	if c.Metadata.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("metadata max body bytes must be positive"))
	}
	if c.Resolver.MediaTimeout < 0 || c.Resolver.MetadataTimeout < 0 {
		errs = append(errs, errors.New("resolver timeouts cannot be negative"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	if c.Retry.Enabled && c.Retry.Multiplier < 1 {
		errs = append(errs, errors.New("retry multiplier must be at least 1"))
	}
	if c.Retry.JitterFactor < 0 || c.Retry.JitterFactor > 1 {
		errs = append(errs, errors.New("retry jitter factor must be between 0 and 1"))
	}

	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.ConcurrentDownloads > 10 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 10"))
	}
	if c.Download.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only flags explicitly set by the user should be present in the map.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if addr, ok := flags["addr"].(string); ok && addr != "" {
		c.Server.Address = addr
	}
	if expose, ok := flags["expose-error-details"].(bool); ok {
		c.Server.ExposeErrorDetails = expose
	}
	if rpm, ok := flags["requests-per-minute"].(int); ok && rpm >= 0 {
		c.Server.RequestsPerMinute = rpm
	}
	if account, ok := flags["account"].(string); ok && account != "" {
		c.Instagram.Account = account
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Download.BaseDirectory = outputDir
	}
	if concurrent, ok := flags["concurrent"].(int); ok && concurrent > 0 {
		c.Download.ConcurrentDownloads = concurrent
	}
	if rpm, ok := flags["rate-limit"].(int); ok && rpm > 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if attempts, ok := flags["max-retries"].(int); ok && attempts >= 0 {
		c.Retry.MaxAttempts = attempts
	}
	if timeout, ok := flags["media-timeout"].(time.Duration); ok && timeout >= 0 {
		c.Resolver.MediaTimeout = timeout
	}
	if timeout, ok := flags["metadata-timeout"].(time.Duration); ok && timeout >= 0 {
		c.Resolver.MetadataTimeout = timeout
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".reelproxy.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
