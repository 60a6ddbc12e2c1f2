package commands

import (
	"context"
	"io"
	"log/slog"

	"github.com/lucax88x/deskwatch/cmd/cli/config"
	"github.com/lucax88x/deskwatch/cmd/cli/console"
	"github.com/lucax88x/deskwatch/cmd/cli/runner"
	"github.com/lucax88x/deskwatch/internal/deskwatch"
	"github.com/lucax88x/deskwatch/internal/record"
	"github.com/lucax88x/deskwatch/internal/server"
	"github.com/lucax88x/deskwatch/internal/vdesktop"
	"golang.org/x/sync/errgroup"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func NewWatchCmd(
	ctx context.Context,
	logger *slog.Logger,
	viper *viper.Viper,
	console *console.Console,
) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "print virtual desktop events until interrupted",
		RunE: func(_ *cobra.Command, args []string) error {
			return runner.RunCmdE(ctx, logger, viper, console, args, runWatchCmd())
		},
	}

	watchCmd.Flags().String("format", "", "output format: text or json")
	watchCmd.Flags().String("pid-file", "", "pid file guarding against a second watcher")
	_ = viper.BindPFlag(config.KeyFormat, watchCmd.Flags().Lookup("format"))
	_ = viper.BindPFlag(config.KeyPidFile, watchCmd.Flags().Lookup("pid-file"))

	watchCmd.SetOut(console.Stdout)
	watchCmd.SetErr(console.Stderr)

	return watchCmd
}

func runWatchCmd() runner.RunE {
	return func(
		ctx context.Context,
		console *console.Console,
		_ []string,
		di *deskwatch.Deskwatch,
	) error {
		if err := runner.CreatePidFile(di.Config.PidFile); err != nil {
			return err
		}

		defer func() {
			if err := runner.RemovePidFile(di.Config.PidFile); err != nil {
				di.Logger.ErrorContext(ctx, "watch: could not remove pid file", slog.Any("error", err))
			}
		}()

		reg, err := di.Register()
		if err != nil {
			return err
		}

		defer closeRegistration(ctx, di.Logger, reg)

		return Watch(ctx, di, reg, console.Stdout)
	}
}

// Watch prints every event of source to out in the configured format until
// ctx is done or the channel closes. Each event becomes one record, which is
// also handed to the hooks.
func Watch(ctx context.Context, di *deskwatch.Deskwatch, source server.Source, out io.Writer) error {
	group, groupCtx := errgroup.WithContext(ctx)

	var toHooks chan record.Record
	if !di.Hooks.Empty() {
		toHooks = make(chan record.Record, di.Config.Buffer)
		group.Go(func() error {
			return handleHooks(groupCtx, di, toHooks)
		})
	}

	printer := source.Receiver()
	group.Go(func() error {
		defer printer.Close()
		if toHooks != nil {
			defer close(toHooks)
		}

		return consume(groupCtx, di.Logger, "watch", printer, func(e vdesktop.Event) error {
			rec := di.Records.Build(e)

			if toHooks != nil {
				select {
				case toHooks <- rec:
				default:
					di.Logger.WarnContext(groupCtx, "hooks: busy, dropping event", slog.String("event", rec.Type))
				}
			}

			return record.Write(out, di.Config.Format, rec)
		})
	})

	return group.Wait()
}

// handleHooks runs the hooks of every record until records is closed.
func handleHooks(ctx context.Context, di *deskwatch.Deskwatch, records <-chan record.Record) error {
	for rec := range records {
		if ctx.Err() != nil {
			continue
		}
		di.Hooks.Handle(ctx, rec)
	}
	return nil
}

func closeRegistration(ctx context.Context, logger *slog.Logger, reg *vdesktop.Registration) {
	if err := reg.Close(); err != nil {
		logger.ErrorContext(ctx, "registration: close failed", slog.Any("error", err))
	}

	if dropped := reg.Dropped(); dropped > 0 {
		logger.WarnContext(ctx, "registration: events were dropped", slog.Uint64("dropped", dropped))
	}
}
