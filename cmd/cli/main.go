package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/lucax88x/deskwatch/cmd/cli/commands"
	"github.com/lucax88x/deskwatch/cmd/cli/console"
	"github.com/lucax88x/deskwatch/internal/setup"
	"github.com/spf13/viper"
)

func cli(viper *viper.Viper, console *console.Console) setup.ProgramExecutor {
	return func(ctx context.Context, logger *slog.Logger) error {
		return commands.NewRootCmd(ctx, logger, viper, console).ExecuteContext(ctx)
	}
}

func main() {
	result := setup.Run(cli)

	if result == setup.NotOk {
		os.Exit(1)
	}
}
