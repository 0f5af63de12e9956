package common

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestLoggerFromContext(t *testing.T) {
	fallback := arbor.NewLogger()
	correlated := fallback.WithCorrelationId(NewCorrelationID())

	assert.Same(t, fallback, LoggerFromContext(context.Background(), fallback))
	assert.Same(t, correlated, LoggerFromContext(WithLogger(context.Background(), correlated), fallback))
	assert.Same(t, fallback, LoggerFromContext(WithLogger(context.Background(), nil), fallback))
}

func TestInitLogger_FileAndConsole(t *testing.T) {
	config := NewDefaultConfig()
	config.Logging.Output = []string{"file", "console"}
	config.Logging.Level = "debug"

	logger := InitLogger(config)
	require.NotNil(t, logger)
	assert.NotEmpty(t, GetLogFilePath(logger))
	logger.Debug().Str("test", t.Name()).Msg("Logger initialised")
}
