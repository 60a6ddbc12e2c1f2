package setup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/lucax88x/deskwatch/cmd/cli/config"
	"github.com/lucax88x/deskwatch/cmd/cli/console"
	"github.com/spf13/viper"
)

type ExecutionResult = int

const (
	Ok    ExecutionResult = 0
	NotOk ExecutionResult = 1
)

// LogLevel drives the level of the logger built by Run; commands adjust it
// once the configuration is loaded.
//
//nolint:gochecknoglobals // ok
var LogLevel = new(slog.LevelVar)

func initViper() (*viper.Viper, error) {
	viperInstance := viper.New()
	config.ConfigureViper(viperInstance)

	return viperInstance, nil
}

func NewLogger(w io.Writer) *slog.Logger {
	return slog.New(tint.NewHandler(
		w,
		&tint.Options{Level: LogLevel, TimeFormat: time.TimeOnly},
	))
}

// SetLogLevel parses level ("debug", "info", "warn", "error") and applies it.
func SetLogLevel(level string) error {
	var parsed slog.Level
	if err := parsed.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("setup: invalid log level %q: %w", level, err)
	}

	LogLevel.Set(parsed)
	return nil
}

type ProgramExecutor func(ctx context.Context, logger *slog.Logger) error

type ExecutorBuilder func(
	viper *viper.Viper,
	console *console.Console,
) ProgramExecutor

func Run(buildExecutor ExecutorBuilder) ExecutionResult {
	start := time.Now()

	logger := NewLogger(os.Stderr)

	defer func() {
		elapsed := time.Since(start)
		logger.Debug("cli: took", slog.Duration("elapsed", elapsed))
	}()

	viper, err := initViper()

	if err != nil {
		logger.Error("main: could not setup configuration", slog.Any("error", err))
		return NotOk
	}

	console := &console.Console{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = buildExecutor(viper, console)(ctx, logger)

	if err != nil {
		logger.Error("main: failed to execute program", slog.Any("error", err))
		return NotOk
	}

	logger.Debug("main: completed", slog.Int("status_code", Ok))

	return Ok
}
