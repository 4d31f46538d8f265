package internal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelError, ParseLogLevel("error"))
	assert.Equal(t, LogLevelWarn, ParseLogLevel("WARN"))
	assert.Equal(t, LogLevelDebug, ParseLogLevel(" debug "))
	assert.Equal(t, LogLevelTrace, ParseLogLevel("TRACE"))
	assert.Equal(t, LogLevelInfo, ParseLogLevel(""))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("verbose"))
}

func TestLoggerLevelsAndPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(LogLevelWarn, &buf).Named("loader")

	logger.Info("hidden %d", 1)
	logger.Warn("contact failed: %s", "timeout")
	logger.Error("all failed")

	assert.Equal(t, "[WARN] loader: contact failed: timeout\n[ERROR] loader: all failed\n", buf.String())
}

func TestNilLoggerIsSilent(t *testing.T) {
	var logger *Logger
	assert.NotPanics(t, func() {
		logger.Named("x").Info("nothing")
		logger.Error("nothing")
	})
}
