package deskwatch

import (
	"fmt"
	"log/slog"

	"github.com/lucax88x/deskwatch/cmd/cli/config"
	"github.com/lucax88x/deskwatch/internal/clock"
	"github.com/lucax88x/deskwatch/internal/command"
	"github.com/lucax88x/deskwatch/internal/hooks"
	"github.com/lucax88x/deskwatch/internal/record"
	"github.com/lucax88x/deskwatch/internal/server"
	"github.com/lucax88x/deskwatch/internal/shell"
	"github.com/lucax88x/deskwatch/internal/vdesktop"
)

// Platform is what deskwatch needs from the operating system. *shell.Shell
// implements it on Windows.
type Platform interface {
	NotificationService() vdesktop.NotificationService
	Lookup() vdesktop.DesktopLookup
	Desktops() ([]vdesktop.DesktopID, error)
	WindowProcess(hwnd vdesktop.HWND) (shell.Process, error)
	Close() error
}

type Deskwatch struct {
	Logger   *slog.Logger
	Config   *config.Cfg
	Platform Platform
	Clock    clock.Clock
	Command  *command.Command
	Records  *record.Builder
	Hooks    *hooks.Runner
}

func NewDeskwatch(
	logger *slog.Logger,
	cfg *config.Cfg,
	platform Platform,
) *Deskwatch {
	systemClock := clock.NewSystemClock()
	cmd := command.NewCommand(logger)

	return &Deskwatch{
		Logger:   logger,
		Config:   cfg,
		Platform: platform,
		Clock:    systemClock,
		Command:  cmd,
		Records:  record.NewBuilder(logger, systemClock, platform),
		Hooks:    hooks.NewRunner(logger, cmd, cfg.Hooks),
	}
}

// Register subscribes to virtual desktop notifications with the configured
// buffer.
func (d *Deskwatch) Register() (*vdesktop.Registration, error) {
	reg, err := vdesktop.Register(
		d.Platform.NotificationService(),
		d.Platform.Lookup(),
		vdesktop.WithLogger(d.Logger),
		vdesktop.WithBuffer(d.Config.Buffer),
	)
	if err != nil {
		return nil, fmt.Errorf("deskwatch: register: %w", err)
	}

	d.Logger.Info("deskwatch: registered", slog.Uint64("cookie", uint64(reg.Cookie())))
	return reg, nil
}

func (d *Deskwatch) NewServer(source server.Source) *server.EventServer {
	return server.NewEventServer(d.Logger, d.Config.Serve.Addr, source, d.Records)
}

func (d *Deskwatch) Close() error {
	if err := d.Platform.Close(); err != nil {
		return fmt.Errorf("deskwatch: close platform: %w", err)
	}
	return nil
}
