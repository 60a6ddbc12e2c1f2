package setup

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/lucax88x/deskwatch/cmd/cli/console"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogLevel(t *testing.T) {
	t.Cleanup(func() { LogLevel.Set(slog.LevelInfo) })

	require.NoError(t, SetLogLevel("warn"))
	assert.Equal(t, slog.LevelWarn, LogLevel.Level())

	var out bytes.Buffer
	logger := NewLogger(&out)
	logger.Info("setup: hidden")
	logger.Warn("setup: shown")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "shown")

	require.Error(t, SetLogLevel("chatty"))
	assert.Equal(t, slog.LevelWarn, LogLevel.Level())
}

func TestRun_ExitCodes(t *testing.T) {
	ok := Run(func(*viper.Viper, *console.Console) ProgramExecutor {
		return func(context.Context, *slog.Logger) error { return nil }
	})
	failed := Run(func(*viper.Viper, *console.Console) ProgramExecutor {
		return func(context.Context, *slog.Logger) error { return errors.New("boom") }
	})

	assert.Equal(t, Ok, ok)
	assert.Equal(t, NotOk, failed)
}
