package logging

import (
	"os"
	"path/filepath"
	"testing"

	"benritz/giltcalc/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warning")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, level)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNewLoggerOverride(t *testing.T) {
	logger, err := NewLogger(config.LoggingConfig{Level: "error", Format: "console"}, "debug")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	_, err = NewLogger(config.LoggingConfig{Format: "xml"}, "")
	assert.Error(t, err)
}

func TestNewLoggerOutputFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "logs", "gilts.log")

	logger, err := NewLogger(config.LoggingConfig{Level: "info", OutputFile: out}, "")
	require.NoError(t, err)

	logger.Info("valuation complete")
	_ = logger.Sync()

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "valuation complete")
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}
