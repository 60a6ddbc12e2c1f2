package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lucax88x/deskwatch/cmd/cli/config"
	"github.com/lucax88x/deskwatch/cmd/cli/console"
	"github.com/lucax88x/deskwatch/internal/deskwatch"
	"github.com/lucax88x/deskwatch/internal/setup"
	"github.com/lucax88x/deskwatch/internal/shell"
	"github.com/spf13/viper"
)

type RunE func(
	ctx context.Context,
	console *console.Console,
	args []string,
	di *deskwatch.Deskwatch,
) error

// OpenPlatform connects to the operating system shell.
//
//nolint:gochecknoglobals // swapped in tests
var OpenPlatform = func(logger *slog.Logger) (deskwatch.Platform, error) {
	s, err := shell.Open(logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func RunCmdE(
	ctx context.Context,
	logger *slog.Logger,
	viper *viper.Viper,
	console *console.Console,
	args []string,
	runE RunE,
) error {
	cfg, err := config.Load(logger, viper)

	if err != nil {
		return err
	}

	if err := setup.SetLogLevel(cfg.LogLevel); err != nil {
		return err
	}

	platform, err := OpenPlatform(logger)

	if err != nil {
		return fmt.Errorf("runner: could not open shell: %w", err)
	}

	di := deskwatch.NewDeskwatch(logger, cfg, platform)

	defer func() {
		if err := di.Close(); err != nil {
			logger.ErrorContext(ctx, "runner: close failed", slog.Any("error", err))
		}
	}()

	return runE(ctx, console, args, di)
}
