package commands

import (
	"context"
	"log/slog"

	"github.com/lucax88x/deskwatch/cmd/cli/config"
	"github.com/lucax88x/deskwatch/cmd/cli/console"
	"github.com/lucax88x/deskwatch/cmd/cli/runner"
	"github.com/lucax88x/deskwatch/internal/deskwatch"
	"github.com/lucax88x/deskwatch/internal/server"
	"github.com/lucax88x/deskwatch/internal/vdesktop"
	"golang.org/x/sync/errgroup"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func NewServeCmd(
	ctx context.Context,
	logger *slog.Logger,
	viper *viper.Viper,
	console *console.Console,
) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "stream virtual desktop events to websocket clients on /ws",
		RunE: func(_ *cobra.Command, args []string) error {
			return runner.RunCmdE(ctx, logger, viper, console, args, runServeCmd())
		},
	}

	serveCmd.Flags().String("addr", "", "listen address")
	_ = viper.BindPFlag(config.KeyServeAddr, serveCmd.Flags().Lookup("addr"))

	serveCmd.SetOut(console.Stdout)
	serveCmd.SetErr(console.Stderr)

	return serveCmd
}

func runServeCmd() runner.RunE {
	return func(
		ctx context.Context,
		_ *console.Console,
		_ []string,
		di *deskwatch.Deskwatch,
	) error {
		reg, err := di.Register()
		if err != nil {
			return err
		}

		defer closeRegistration(ctx, di.Logger, reg)

		srv := di.NewServer(reg)

		group, groupCtx := errgroup.WithContext(ctx)

		group.Go(func() error {
			return srv.Start(groupCtx)
		})

		if !di.Hooks.Empty() {
			runHooks(groupCtx, group, di, reg)
		}

		err = group.Wait()

		di.Logger.InfoContext(ctx, "serve: shutdown complete")

		return err
	}
}

// runHooks feeds the hooks from their own receiver.
func runHooks(ctx context.Context, group *errgroup.Group, di *deskwatch.Deskwatch, source server.Source) {
	rx := source.Receiver()

	group.Go(func() error {
		defer rx.Close()

		return consume(ctx, di.Logger, "hooks", rx, func(e vdesktop.Event) error {
			di.Hooks.Handle(ctx, di.Records.Build(e))
			return nil
		})
	})
}
