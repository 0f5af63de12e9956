package common

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every CERNGITLAB_ variable for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "CERNGITLAB_") {
			t.Setenv(name, "")
		}
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "https://gitlab.cern.ch", config.GitLab.URL)
	assert.Equal(t, 300, config.RateLimit.RequestsPerMinute)
	assert.Equal(t, 3, config.Retry.MaxAttempts)
	assert.Equal(t, 20, config.Pagination.DefaultPerPage)
	assert.Equal(t, 100, config.Pagination.MaxPerPage)
	assert.Equal(t, []string{"file"}, config.Logging.Output)
	require.NoError(t, config.Validate())

	assert.Equal(t, 30*time.Second, config.RequestTimeout())
	assert.Equal(t, 120*time.Second, config.CallTimeout())
	baseDelay, maxDelay := config.RetryDelays()
	assert.Equal(t, time.Second, baseDelay)
	assert.Equal(t, 30*time.Second, maxDelay)
}

func TestLoadFromFiles_LaterFilesOverride(t *testing.T) {
	clearEnv(t)
	base := writeFile(t, "base.toml", `
[gitlab]
url = "https://gitlab.example.org"
timeout = "10s"

[rate_limit]
requests_per_minute = 60
`)
	local := writeFile(t, "local.toml", `
[rate_limit]
requests_per_minute = 120

[logging]
output = ["stdout"]
`)

	config, err := LoadFromFiles(base, local)
	require.NoError(t, err)
	assert.Equal(t, "https://gitlab.example.org", config.GitLab.URL)
	assert.Equal(t, "10s", config.GitLab.Timeout)
	assert.Equal(t, 120, config.RateLimit.RequestsPerMinute)
	assert.Equal(t, []string{"stdout"}, config.Logging.Output)
	assert.Equal(t, 3, config.Retry.MaxAttempts, "untouched sections keep defaults")
}

func TestLoadFromFiles_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	config, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, NewDefaultConfig(), config)
}

func TestLoadFromFiles_ParseError(t *testing.T) {
	clearEnv(t)
	bad := writeFile(t, "bad.toml", "[gitlab\nurl = ")

	_, err := LoadFromFiles(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file 1 of 1")
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.toml", "[gitlab]\nurl = \"https://from-file.example\"\n")

	t.Setenv("CERNGITLAB_GITLAB_URL", "https://from-env.example")
	t.Setenv("CERNGITLAB_TOKEN", "glpat-test")
	t.Setenv("CERNGITLAB_TIMEOUT", "45")
	t.Setenv("CERNGITLAB_CALL_TIMEOUT", "3m")
	t.Setenv("CERNGITLAB_MAX_RETRIES", "5")
	t.Setenv("CERNGITLAB_RATE_LIMIT_PER_MINUTE", "90")
	t.Setenv("CERNGITLAB_DEFAULT_PER_PAGE", "50")
	t.Setenv("CERNGITLAB_MAX_PER_PAGE", "80")
	t.Setenv("CERNGITLAB_LOG_LEVEL", "DEBUG")
	t.Setenv("CERNGITLAB_LOG_OUTPUT", "file, console")

	config, err := LoadFromFile(path)
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	assert.Equal(t, "https://from-env.example", config.GitLab.URL)
	assert.Equal(t, "glpat-test", config.GitLab.Token)
	assert.Equal(t, 45*time.Second, config.RequestTimeout())
	assert.Equal(t, 3*time.Minute, config.CallTimeout())
	assert.Equal(t, 5, config.Retry.MaxAttempts)
	assert.Equal(t, 90, config.RateLimit.RequestsPerMinute)
	assert.Equal(t, 50, config.Pagination.DefaultPerPage)
	assert.Equal(t, 80, config.Pagination.MaxPerPage)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, []string{"file", "console"}, config.Logging.Output)
}

func TestEnvOverrides_IgnoresNonNumeric(t *testing.T) {
	clearEnv(t)
	t.Setenv("CERNGITLAB_RATE_LIMIT_PER_MINUTE", "lots")

	config, err := LoadFromFiles()
	require.NoError(t, err)
	assert.Equal(t, 300, config.RateLimit.RequestsPerMinute)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CERNGITLAB_LOG_LEVEL", "warn")
	envFile := writeFile(t, ".env", "CERNGITLAB_TOKEN=from-dotenv\nCERNGITLAB_LOG_LEVEL=debug\n")
	t.Cleanup(func() { os.Unsetenv("CERNGITLAB_TOKEN") })

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(t.TempDir(), "missing.env")))

	config, err := LoadFromFiles()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", config.GitLab.Token)
	assert.Equal(t, "warn", config.Logging.Level, "the process environment wins over .env")
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()
	ApplyFlagOverrides(config, "", "")
	assert.Equal(t, NewDefaultConfig(), config)

	ApplyFlagOverrides(config, "https://gitlab.example.org", "ERROR")
	assert.Equal(t, "https://gitlab.example.org", config.GitLab.URL)
	assert.Equal(t, "error", config.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"bad url", func(c *Config) { c.GitLab.URL = "not a url" }, "URL"},
		{"zero rate", func(c *Config) { c.RateLimit.RequestsPerMinute = 0 }, "RequestsPerMinute"},
		{"per page above max", func(c *Config) { c.Pagination.DefaultPerPage = 150 }, "DefaultPerPage"},
		{"max per page above forge limit", func(c *Config) { c.Pagination.MaxPerPage = 500 }, "MaxPerPage"},
		{"unknown level", func(c *Config) { c.Logging.Level = "verbose" }, "Level"},
		{"unknown output", func(c *Config) { c.Logging.Output = []string{"syslog"} }, "Output"},
		{"bad duration", func(c *Config) { c.GitLab.Timeout = "soon" }, "gitlab.timeout"},
		{"negative duration", func(c *Config) { c.Retry.MaxDelay = "-1s" }, "retry.max_delay"},
		{"bad call timeout", func(c *Config) { c.GitLab.CallTimeout = "1 minute" }, "gitlab.call_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewDefaultConfig()
			tt.modify(config)
			err := config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNewCorrelationID(t *testing.T) {
	a, b := NewCorrelationID(), NewCorrelationID()
	assert.True(t, strings.HasPrefix(a, "call_"))
	assert.NotEqual(t, a, b)
}

func TestWriteCrashFile(t *testing.T) {
	previous := CrashLogDir
	t.Cleanup(func() { CrashLogDir = previous })
	InstallCrashHandler(t.TempDir())

	path := WriteCrashFile("boom", GetStackTrace())
	require.NotEmpty(t, path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "cerngitlab-mcp CRASH REPORT")
	assert.Contains(t, string(data), "boom")
}
