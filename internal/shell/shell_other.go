//go:build !windows

package shell

import (
	"log/slog"

	"github.com/lucax88x/deskwatch/internal/vdesktop"
)

type Shell struct{}

func Open(_ *slog.Logger) (*Shell, error) {
	return nil, ErrNotSupported
}

func (s *Shell) NotificationService() vdesktop.NotificationService { return nil }

func (s *Shell) Lookup() vdesktop.DesktopLookup { return nil }

func (s *Shell) Desktops() ([]vdesktop.DesktopID, error) { return nil, ErrNotSupported }

func (s *Shell) WindowProcess(_ vdesktop.HWND) (Process, error) {
	return Process{}, ErrNotSupported
}

func (s *Shell) Close() error { return nil }
