package common

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

// LogFileName is created under <executable dir>/logs
const LogFileName = "cerngitlab-mcp.log"

// InitLogger initializes the arbor logger with configuration.
// The console writer shares stdout with the MCP stdio transport, so serve
// keeps the default file output.
func InitLogger(config *Config) arbor.ILogger {
	logger := arbor.NewLogger()

	// Logs live next to the executable, or under the working directory
	logsDir := "logs"
	if execPath, err := os.Executable(); err == nil {
		logsDir = filepath.Join(filepath.Dir(execPath), "logs")
	} else {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get executable path: %v\n", err)
	}

	// Check if file output is enabled
	hasFileOutput := false
	hasStdoutOutput := false
	for _, output := range config.Logging.Output {
		if output == "file" {
			hasFileOutput = true
		}
		if output == "stdout" || output == "console" {
			hasStdoutOutput = true
		}
	}

	// Configure file logging if enabled
	if hasFileOutput {
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to create logs directory: %v\n", err)
		} else {
			logFile := filepath.Join(logsDir, LogFileName)
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:             models.LogWriterTypeFile,
				FileName:         logFile,
				TimeFormat:       timeFormat(config),
				MaxSize:          100 * 1024 * 1024, // 100 MB
				MaxBackups:       3,
				DisableTimestamp: false,
			})
		}
	}

	// Configure console logging if enabled
	if hasStdoutOutput {
		logger = logger.WithConsoleWriter(consoleWriter(config))
	}

	// Set log level
	return logger.WithLevelFromString(config.Logging.Level)
}

// GetLogFilePath returns the configured log file path from the logger
func GetLogFilePath(logger arbor.ILogger) string {
	if logger != nil {
		if logFilePath := logger.GetLogFilePath(); logFilePath != "" {
			return logFilePath
		}
	}
	return ""
}

func consoleWriter(config *Config) models.WriterConfiguration {
	return models.WriterConfiguration{
		Type:             models.LogWriterTypeConsole,
		TimeFormat:       timeFormat(config),
		DisableTimestamp: false,
	}
}

func timeFormat(config *Config) string {
	if config.Logging.TimeFormat != "" {
		return config.Logging.TimeFormat
	}
	return "15:04:05"
}

type loggerContextKey struct{}

// WithLogger returns a copy of ctx carrying logger, usually one correlated to
// a single tool call
func WithLogger(ctx context.Context, logger arbor.ILogger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// LoggerFromContext returns the logger stored by WithLogger, or fallback
func LoggerFromContext(ctx context.Context, fallback arbor.ILogger) arbor.ILogger {
	if ctx == nil {
		return fallback
	}
	if logger, ok := ctx.Value(loggerContextKey{}).(arbor.ILogger); ok && logger != nil {
		return logger
	}
	return fallback
}
