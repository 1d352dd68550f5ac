package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInit(t *testing.T) {
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	require.NoError(t, Init("production", ""))
	assert.Equal(t, zapcore.InfoLevel, Level())
	assert.False(t, zap.L().Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, Init("development", ""))
	assert.Equal(t, zapcore.DebugLevel, Level())

	require.NoError(t, Init("development", "warn"))
	assert.Equal(t, zapcore.WarnLevel, Level())

	assert.Error(t, Init("production", "loud"))
}

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })
	require.NoError(t, Init("production", ""))

	require.NoError(t, SetLevel("debug"))
	assert.True(t, zap.L().Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, SetLevel(""))
	assert.Equal(t, zapcore.DebugLevel, Level())

	require.Error(t, SetLevel("loud"))
	assert.Equal(t, zapcore.DebugLevel, Level())

	require.NoError(t, SetLevel("error"))
	assert.False(t, zap.L().Core().Enabled(zapcore.WarnLevel))
}
