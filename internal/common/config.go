package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// DefaultConfigPath is read when neither --config nor CERNGITLAB_CONFIG is set
const DefaultConfigPath = "cerngitlab.toml"

// Config represents the application configuration
type Config struct {
	GitLab     GitLabConfig     `toml:"gitlab"`
	Retry      RetryConfig      `toml:"retry"`
	RateLimit  RateLimitConfig  `toml:"rate_limit"`
	Pagination PaginationConfig `toml:"pagination"`
	Search     SearchConfig     `toml:"search"`
	Inspect    InspectConfig    `toml:"inspect"`
	Logging    LoggingConfig    `toml:"logging"`
}

type GitLabConfig struct {
	URL                string `toml:"url" validate:"required,url"` // Instance base URL, without /api/v4
	Token              string `toml:"token"`                       // Personal access token (optional, read_api scope)
	Timeout            string `toml:"timeout" validate:"required"` // Per-request HTTP timeout, e.g. "30s"
	CallTimeout        string `toml:"call_timeout"`                // Deadline for one tool invocation, e.g. "120s"
	UserAgent          string `toml:"user_agent" validate:"required"`
	SearchRequiresAuth bool   `toml:"search_requires_auth"` // Skip native code search when no token is configured
}

// RetryConfig controls retries of transient upstream failures
type RetryConfig struct {
	MaxAttempts int     `toml:"max_attempts" validate:"min=1,max=10"` // Total attempts including the first
	BaseDelay   string  `toml:"base_delay" validate:"required"`       // Delay before the second attempt
	Multiplier  float64 `toml:"multiplier" validate:"gte=1"`
	Jitter      float64 `toml:"jitter" validate:"gte=0,lt=1"` // Fraction of the delay randomised either way
	MaxDelay    string  `toml:"max_delay" validate:"required"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `toml:"requests_per_minute" validate:"min=1"` // Shared by every call in the process
}

type PaginationConfig struct {
	DefaultPerPage int `toml:"default_per_page" validate:"min=1,ltefield=MaxPerPage"`
	MaxPerPage     int `toml:"max_per_page" validate:"min=1,max=100"` // GitLab rejects more than 100
}

// SearchConfig sizes the content scan used when native code search is unavailable
type SearchConfig struct {
	FallbackWorkers int `toml:"fallback_workers" validate:"min=1"` // Concurrent file fetches
	ShardSize       int `toml:"shard_size" validate:"min=1"`       // Files per worker task
	MaxFiles        int `toml:"max_files" validate:"min=1"`        // Tree entries considered per scan
}

type InspectConfig struct {
	MaxSubdirs   int `toml:"max_subdirs" validate:"min=0"`   // Second-level directories listed
	MaxManifests int `toml:"max_manifests" validate:"min=1"` // Manifests fetched per inspection
	FetchWorkers int `toml:"fetch_workers" validate:"min=1"`
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=trace debug info warn error"`
	Output     []string `toml:"output" validate:"dive,oneof=file stdout console"` // "file" keeps stdout free for MCP traffic
	TimeFormat string   `toml:"time_format"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		GitLab: GitLabConfig{
			URL:                "https://gitlab.cern.ch",
			Timeout:            "30s",
			CallTimeout:        "120s",
			UserAgent:          "cerngitlab-mcp",
			SearchRequiresAuth: true,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   "1s",
			Multiplier:  2,
			Jitter:      0.2,
			MaxDelay:    "30s",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 300,
		},
		Pagination: PaginationConfig{
			DefaultPerPage: 20,
			MaxPerPage:     100,
		},
		Search: SearchConfig{
			FallbackWorkers: 8,
			ShardSize:       25,
			MaxFiles:        2000,
		},
		Inspect: InspectConfig{
			MaxSubdirs:   50,
			MaxManifests: 40,
			FetchWorkers: 4,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"file"},
			TimeFormat: "15:04:05",
		},
	}
}

// LoadFromFile loads configuration from a single file
func LoadFromFile(path string) (*Config, error) {
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> files in order -> environment variables.
// A missing file is skipped so the server runs on defaults alone.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadDotEnv exports variables from .env style files into the process
// environment. Variables already set win, and missing files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

func applyEnvOverrides(config *Config) {
	// GitLab connection
	if url := os.Getenv("CERNGITLAB_GITLAB_URL"); url != "" {
		config.GitLab.URL = url
	}
	if token := os.Getenv("CERNGITLAB_TOKEN"); token != "" {
		config.GitLab.Token = token
	}
	if timeout := os.Getenv("CERNGITLAB_TIMEOUT"); timeout != "" {
		config.GitLab.Timeout = secondsOrDuration(timeout)
	}
	if callTimeout := os.Getenv("CERNGITLAB_CALL_TIMEOUT"); callTimeout != "" {
		config.GitLab.CallTimeout = secondsOrDuration(callTimeout)
	}

	// Retry and rate limiting
	if retries := os.Getenv("CERNGITLAB_MAX_RETRIES"); retries != "" {
		if r, err := strconv.Atoi(retries); err == nil {
			config.Retry.MaxAttempts = r
		}
	}
	if rpm := os.Getenv("CERNGITLAB_RATE_LIMIT_PER_MINUTE"); rpm != "" {
		if r, err := strconv.Atoi(rpm); err == nil {
			config.RateLimit.RequestsPerMinute = r
		}
	}

	// Pagination
	if perPage := os.Getenv("CERNGITLAB_DEFAULT_PER_PAGE"); perPage != "" {
		if p, err := strconv.Atoi(perPage); err == nil {
			config.Pagination.DefaultPerPage = p
		}
	}
	if maxPerPage := os.Getenv("CERNGITLAB_MAX_PER_PAGE"); maxPerPage != "" {
		if p, err := strconv.Atoi(maxPerPage); err == nil {
			config.Pagination.MaxPerPage = p
		}
	}

	// Logging
	if level := os.Getenv("CERNGITLAB_LOG_LEVEL"); level != "" {
		config.Logging.Level = strings.ToLower(level)
	}
	if output := os.Getenv("CERNGITLAB_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if o = strings.TrimSpace(o); o != "" {
				outputs = append(outputs, o)
			}
		}
		config.Logging.Output = outputs
	}
}

// secondsOrDuration accepts "30" (seconds) as well as "30s"
func secondsOrDuration(value string) string {
	if _, err := strconv.Atoi(value); err == nil {
		return value + "s"
	}
	return value
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, gitlabURL, logLevel string) {
	// Command-line flags have highest priority
	if gitlabURL != "" {
		config.GitLab.URL = gitlabURL
	}
	if logLevel != "" {
		config.Logging.Level = strings.ToLower(logLevel)
	}
}

// Validate checks the configuration before anything is built from it
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"gitlab.timeout":   c.GitLab.Timeout,
		"retry.base_delay": c.Retry.BaseDelay,
		"retry.max_delay":  c.Retry.MaxDelay,
	}
	if c.GitLab.CallTimeout != "" {
		durations["gitlab.call_timeout"] = c.GitLab.CallTimeout
	}
	for name, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid configuration: %s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid configuration: %s must be positive, got %s", name, value)
		}
	}
	return nil
}

// RequestTimeout returns gitlab.timeout; call Validate first
func (c *Config) RequestTimeout() time.Duration {
	return mustDuration(c.GitLab.Timeout)
}

// CallTimeout returns gitlab.call_timeout, zero when set to ""
func (c *Config) CallTimeout() time.Duration {
	if c.GitLab.CallTimeout == "" {
		return 0
	}
	return mustDuration(c.GitLab.CallTimeout)
}

func (c *Config) RetryDelays() (baseDelay, maxDelay time.Duration) {
	return mustDuration(c.Retry.BaseDelay), mustDuration(c.Retry.MaxDelay)
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}
