//go:build windows

package shell

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	"github.com/go-ole/go-ole"
	"github.com/lucax88x/deskwatch/internal/vdesktop"
)

const sFalse = 1

// Shell holds the shell services for the life of the process. COM is
// initialized for the multithreaded apartment so any goroutine may call in
// and notifications arrive on RPC threads.
type Shell struct {
	logger  *slog.Logger
	service *notificationService
	manager uintptr
	lookup  *desktopLookup

	closeOnce sync.Once
}

func Open(logger *slog.Logger) (*Shell, error) {
	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		var oleErr *ole.OleError
		if !errors.As(err, &oleErr) || oleErr.Code() != sFalse {
			return nil, fmt.Errorf("shell: could not initialize com: %w", err)
		}
	}

	// S_FALSE (already initialized) also needs a matching uninitialize
	s := &Shell{logger: logger}

	provider, err := ole.CreateInstance(clsidImmersiveShell, iidServiceProvider)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("shell: could not create immersive shell: %w", err)
	}
	providerPtr := uintptr(unsafe.Pointer(provider))
	defer release(providerPtr)

	servicePtr, err := queryService(providerPtr, clsidVirtualNotificationService, iidVirtualDesktopNotificationService)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.service = &notificationService{logger: logger, ptr: servicePtr}

	managerPtr, err := queryService(providerPtr, clsidVirtualDesktopManagerInternal, iidVirtualDesktopManagerInternal)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.manager = managerPtr
	s.lookup = newDesktopLookup(func() ([]vdesktop.DesktopID, error) {
		return enumerateDesktops(managerPtr)
	})

	logger.Debug("shell: opened")
	return s, nil
}

func (s *Shell) NotificationService() vdesktop.NotificationService { return s.service }

func (s *Shell) Lookup() vdesktop.DesktopLookup { return s.lookup }

// Desktops lists the current desktops for callers outside notification
// callbacks.
func (s *Shell) Desktops() ([]vdesktop.DesktopID, error) { return s.lookup.Snapshot() }

// Close releases the shell services. Registrations made through this shell
// must be closed first.
func (s *Shell) Close() error {
	s.closeOnce.Do(func() {
		if s.manager != 0 {
			release(s.manager)
		}
		if s.service != nil {
			release(s.service.ptr)
		}
		ole.CoUninitialize()
		s.logger.Debug("shell: closed")
	})
	return nil
}
