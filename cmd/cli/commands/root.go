package commands

import (
	"context"
	"log/slog"

	"github.com/lucax88x/deskwatch/cmd/cli/config"
	"github.com/lucax88x/deskwatch/cmd/cli/console"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func NewRootCmd(
	ctx context.Context,
	logger *slog.Logger,
	viper *viper.Viper,
	console *console.Console,
) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "deskwatch",
		Short:         "watch windows virtual desktops",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default <user config dir>/deskwatch/config.yaml)")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.Int("buffer", 0, "events buffered per receiver")

	_ = viper.BindPFlag(config.KeyConfig, flags.Lookup("config"))
	_ = viper.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = viper.BindPFlag(config.KeyBuffer, flags.Lookup("buffer"))

	rootCmd.AddCommand(
		NewWatchCmd(ctx, logger, viper, console),
		NewServeCmd(ctx, logger, viper, console),
		NewDesktopsCmd(ctx, logger, viper, console),
	)

	rootCmd.SetOut(console.Stdout)
	rootCmd.SetErr(console.Stderr)

	return rootCmd
}
