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

// SaveFormat selects which output files a job produces.
type SaveFormat string

const (
	FormatCSV  SaveFormat = "csv"
	FormatJSON SaveFormat = "json"
	FormatHTML SaveFormat = "html"
	FormatBoth SaveFormat = "both" // csv + json
	FormatAll  SaveFormat = "all"
)

// IncludesCSV reports whether the format selector enables the CSV sink.
func (f SaveFormat) IncludesCSV() bool {
	return f == FormatCSV || f == FormatBoth || f == FormatAll
}

// IncludesJSON reports whether the format selector enables the JSON sink.
func (f SaveFormat) IncludesJSON() bool {
	return f == FormatJSON || f == FormatBoth || f == FormatAll
}

// IncludesHTML reports whether the format selector enables the HTML sink.
func (f SaveFormat) IncludesHTML() bool {
	return f == FormatHTML || f == FormatAll
}

// Valid reports whether the selector is one of the recognized values.
func (f SaveFormat) Valid() bool {
	switch f {
	case FormatCSV, FormatJSON, FormatHTML, FormatBoth, FormatAll:
		return true
	}
	return false
}

// Config holds all configuration options for the archiver
type Config struct {
	// Telegram gateway connection
	Telegram TelegramConfig `yaml:"telegram" json:"telegram"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// TelegramConfig holds gateway-specific configuration
type TelegramConfig struct {
	APIToken string `yaml:"api_token" json:"api_token"`
	BaseURL  string `yaml:"base_url" json:"base_url"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	BatchDelay        time.Duration `yaml:"batch_delay" json:"batch_delay"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	Directory string `yaml:"directory" json:"directory"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	Format             SaveFormat    `yaml:"format" json:"format"`
	BatchSize          int           `yaml:"batch_size" json:"batch_size"`
	MaxMessages        int           `yaml:"max_messages" json:"max_messages"` // 0 means unbounded
	MediaImmediately   bool          `yaml:"media_immediately" json:"media_immediately"`
	DownloadTimeout    time.Duration `yaml:"download_timeout" json:"download_timeout"`
	MediaRetryAttempts int           `yaml:"media_retry_attempts" json:"media_retry_attempts"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			BaseURL: "https://gateway.telegram.example",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BatchDelay:        time.Second,
			MaxRetries:        3,
		},
		Output: OutputConfig{
			Directory: "./downloads",
		},
		Download: DownloadConfig{
			Format:             FormatAll,
			BatchSize:          100,
			MaxMessages:        0,
			MediaImmediately:   false,
			DownloadTimeout:    30 * time.Second,
			MediaRetryAttempts: 3,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if token := os.Getenv("TGARCHIVE_API_TOKEN"); token != "" {
		c.Telegram.APIToken = token
	}
	if baseURL := os.Getenv("TGARCHIVE_BASE_URL"); baseURL != "" {
		c.Telegram.BaseURL = baseURL
	}
	if outputDir := os.Getenv("TGARCHIVE_OUTPUT_DIR"); outputDir != "" {
		c.Output.Directory = outputDir
	}
	if format := os.Getenv("TGARCHIVE_FORMAT"); format != "" {
		c.Download.Format = SaveFormat(strings.ToLower(format))
	}
	if batch := os.Getenv("TGARCHIVE_BATCH_SIZE"); batch != "" {
		if val, err := strconv.Atoi(batch); err == nil && val > 0 {
			c.Download.BatchSize = val
		}
	}
	if max := os.Getenv("TGARCHIVE_MAX_MESSAGES"); max != "" {
		if val, err := strconv.Atoi(max); err == nil && val >= 0 {
			c.Download.MaxMessages = val
		}
	}
	if rpm := os.Getenv("TGARCHIVE_REQUESTS_PER_MINUTE"); rpm != "" {
		if val, err := strconv.Atoi(rpm); err == nil && val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}
	if logLevel := os.Getenv("TGARCHIVE_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
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
	locations := []string{
		".tgarchive.yaml",
		".tgarchive.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "tgarchive", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "tgarchive", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".tgarchive.yaml"),
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

	if c.Telegram.BaseURL == "" {
		errs = append(errs, errors.New("gateway base URL is required"))
	}

	if !c.Download.Format.Valid() {
		errs = append(errs, fmt.Errorf("unknown save format %q (valid: csv, json, html, both, all)", c.Download.Format))
	}
	if c.Download.BatchSize <= 0 {
		errs = append(errs, errors.New("batch size must be positive"))
	}
	if c.Download.MaxMessages < 0 {
		errs = append(errs, errors.New("max messages cannot be negative"))
	}
	if c.Download.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.MediaRetryAttempts < 0 {
		errs = append(errs, errors.New("media retry attempts cannot be negative"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
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

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if token, ok := flags["api-token"].(string); ok && token != "" {
		c.Telegram.APIToken = token
	}
	if baseURL, ok := flags["base-url"].(string); ok && baseURL != "" {
		c.Telegram.BaseURL = baseURL
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.Directory = outputDir
	}
	if format, ok := flags["format"].(string); ok && format != "" {
		c.Download.Format = SaveFormat(strings.ToLower(format))
	}
	if batch, ok := flags["batch-size"].(int); ok && batch > 0 {
		c.Download.BatchSize = batch
	}
	if max, ok := flags["max-messages"].(int); ok && max > 0 {
		c.Download.MaxMessages = max
	}
	if immediate, ok := flags["media-immediately"].(bool); ok {
		c.Download.MediaImmediately = immediate
	}
	if rpm, ok := flags["rate-limit"].(int); ok && rpm > 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".tgarchive.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
