// Package hooks runs user configured commands when desktop events occur.
package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/lucax88x/deskwatch/internal/record"
	"github.com/lucax88x/deskwatch/internal/vdesktop/events"
)

const DefaultTimeout = 10 * time.Second

type Executor interface {
	Run(ctx context.Context, env []string, name string, arg ...string) (string, error)
}

type Runner struct {
	logger   *slog.Logger
	executor Executor
	hooks    map[events.Event][][]string
	timeout  time.Duration
}

// NewRunner keeps only hooks bound to a known event. Each command is an argv
// list: the program followed by its arguments.
func NewRunner(logger *slog.Logger, executor Executor, hooks map[string][][]string) *Runner {
	filtered := make(map[events.Event][][]string, len(hooks))

	for name, commands := range hooks {
		if !events.Valid(name) {
			logger.Warn("hooks: ignoring unknown event", slog.String("event", name))
			continue
		}

		for _, argv := range commands {
			if len(argv) == 0 {
				continue
			}
			filtered[name] = append(filtered[name], argv)
		}
	}

	return &Runner{
		logger,
		executor,
		filtered,
		DefaultTimeout,
	}
}

func (r *Runner) Empty() bool {
	return len(r.hooks) == 0
}

// Handle runs every hook of the record's event in order. A failing hook is
// logged and does not stop the next one.
func (r *Runner) Handle(ctx context.Context, rec record.Record) {
	commands := r.hooks[rec.Type]
	if len(commands) == 0 {
		return
	}

	env, err := Env(rec)
	if err != nil {
		r.logger.ErrorContext(ctx, "hooks: could not build env", slog.Any("error", err))
		return
	}

	for _, argv := range commands {
		r.run(ctx, rec.Type, env, argv)
	}
}

func (r *Runner) run(ctx context.Context, event events.Event, env []string, argv []string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "hooks: recovered from panic", slog.Any("panic", rec))
		}
	}()

	hookCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out, err := r.executor.Run(hookCtx, env, argv[0], argv[1:]...)
	if err != nil {
		r.logger.ErrorContext(
			ctx,
			"hooks: command failed",
			slog.String("event", event),
			slog.String("command", argv[0]),
			slog.Any("error", err),
		)
		return
	}

	r.logger.DebugContext(
		ctx,
		"hooks: command done",
		slog.String("event", event),
		slog.String("command", argv[0]),
		slog.String("output", out),
	)
}

// Env describes rec as DESKWATCH_* environment variables.
func Env(rec record.Record) ([]string, error) {
	data, err := rec.JSON()
	if err != nil {
		return nil, err
	}

	env := []string{
		"DESKWATCH_EVENT=" + rec.Type,
		"DESKWATCH_INFO=" + string(data),
	}

	switch info := rec.Info.(type) {
	case events.DesktopEventInfo:
		env = append(env, "DESKWATCH_INDEX="+strconv.FormatUint(uint64(info.Index), 10))
	case events.DesktopChangeEventInfo:
		env = append(env,
			"DESKWATCH_OLD_INDEX="+strconv.FormatUint(uint64(info.Old), 10),
			"DESKWATCH_NEW_INDEX="+strconv.FormatUint(uint64(info.New), 10),
		)
	case events.WindowChangeEventInfo:
		env = append(env, fmt.Sprintf("DESKWATCH_WINDOW=0x%X", info.Window))
		if info.Pid != 0 {
			env = append(env, "DESKWATCH_PID="+strconv.FormatUint(uint64(info.Pid), 10))
		}
		if info.Process != "" {
			env = append(env, "DESKWATCH_PROCESS="+info.Process)
		}
	}

	return env, nil
}
