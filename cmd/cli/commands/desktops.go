package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lucax88x/deskwatch/cmd/cli/console"
	"github.com/lucax88x/deskwatch/cmd/cli/runner"
	"github.com/lucax88x/deskwatch/internal/deskwatch"
	"github.com/lucax88x/deskwatch/internal/record"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type desktopLine struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
}

func NewDesktopsCmd(
	ctx context.Context,
	logger *slog.Logger,
	viper *viper.Viper,
	console *console.Console,
) *cobra.Command {
	desktopsCmd := &cobra.Command{
		Use:   "desktops",
		Short: "list the current virtual desktops",
		RunE: func(_ *cobra.Command, args []string) error {
			return runner.RunCmdE(ctx, logger, viper, console, args, runDesktopsCmd())
		},
	}

	desktopsCmd.SetOut(console.Stdout)
	desktopsCmd.SetErr(console.Stderr)

	return desktopsCmd
}

func runDesktopsCmd() runner.RunE {
	return func(
		_ context.Context,
		console *console.Console,
		_ []string,
		di *deskwatch.Deskwatch,
	) error {
		ids, err := di.Platform.Desktops()
		if err != nil {
			return fmt.Errorf("desktops: %w", err)
		}

		for i, id := range ids {
			if di.Config.Format == record.FormatJSON {
				data, err := json.Marshal(desktopLine{Index: i, ID: id.String()})
				if err != nil {
					return err
				}
				fmt.Fprintf(console.Stdout, "%s\n", data)
				continue
			}

			fmt.Fprintf(console.Stdout, "%d %s\n", i, id)
		}

		return nil
	}
}
