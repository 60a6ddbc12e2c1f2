package command

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/lucax88x/deskwatch/internal/encoding"
)

type Command struct {
	logger *slog.Logger
}

func NewCommand(logger *slog.Logger) *Command {
	return &Command{
		logger,
	}
}

// Run executes name with the current environment plus env and returns its
// decoded standard output.
func (c Command) Run(ctx context.Context, env []string, name string, arg ...string) (string, error) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		c.logger.DebugContext(ctx, "command: took", slog.String("name", name), slog.Duration("elapsed", elapsed))
	}()

	cmd := exec.CommandContext(ctx, name, arg...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	out, err := cmd.Output()

	if err != nil {
		//nolint:errorlint // no wrap
		return "", fmt.Errorf("could not run command '%s'. %v", name, err)
	}

	return encoding.DecodeCommandOutput(out)
}
