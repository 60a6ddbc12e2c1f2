package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lucax88x/deskwatch/internal/vdesktop"
)

// consume hands every event of rx to handle. It returns nil once ctx is done
// or the channel is closed.
func consume(
	ctx context.Context,
	logger *slog.Logger,
	name string,
	rx *vdesktop.Receiver,
	handle func(vdesktop.Event) error,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, name+": recovered from panic", slog.Any("panic", r))
			err = fmt.Errorf("%s: panic: %v", name, r)
		}
	}()

	for {
		e, err := rx.Recv(ctx)

		switch {
		case errors.Is(err, vdesktop.ErrClosed):
			logger.InfoContext(ctx, name+": channel closed")
			return nil
		case ctx.Err() != nil:
			return nil
		case err != nil:
			return fmt.Errorf("%s: receive: %w", name, err)
		}

		if err := handle(e); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
}
