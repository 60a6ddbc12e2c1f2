package vdesktop

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// DesktopID is the GUID the shell assigns to a virtual desktop. It is stable
// for the lifetime of the desktop and meaningless after it is destroyed.
type DesktopID uuid.UUID

func ParseDesktopID(s string) (DesktopID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return DesktopID{}, fmt.Errorf("vdesktop: invalid desktop id %q: %w", s, err)
	}
	return DesktopID(u), nil
}

func (id DesktopID) String() string { return uuid.UUID(id).String() }

func (id DesktopID) IsZero() bool { return id == DesktopID{} }

// HWND is an opaque window handle.
type HWND uintptr

func (h HWND) String() string { return fmt.Sprintf("0x%x", uintptr(h)) }

// HRESULT is a COM status code.
type HRESULT int32

const (
	SOK          HRESULT = 0
	EFail        HRESULT = -0x7fffbffb // 0x80004005
	ENoInterface HRESULT = -0x7fffbffe // 0x80004002
	EPointer     HRESULT = -0x7fffbffd // 0x80004003
)

func (hr HRESULT) Failed() bool { return hr < 0 }

func (hr HRESULT) String() string { return fmt.Sprintf("0x%08X", uint32(hr)) }

var (
	ErrNotFound      = errors.New("vdesktop: desktop not found")
	ErrAlreadyClosed = errors.New("vdesktop: registration already closed")
)

// Desktop is the view of a shell desktop object handed to a callback. It is
// only valid for the duration of that callback.
type Desktop interface {
	ID() (DesktopID, error)
}

// ApplicationView is the view of a shell application view handed to a
// callback. It is only valid for the duration of that callback.
type ApplicationView interface {
	ThumbnailWindow() (HWND, error)
}

// DesktopLookup resolves desktop identifiers to their current position.
// Implementations are called from notification threads and must not block
// for long nor register listeners themselves.
type DesktopLookup interface {
	Desktops() ([]DesktopID, error)
	IndexOf(id DesktopID) (uint, error)
}

// NotificationService is the shell service listeners are registered with.
// AddRef and Release follow COM semantics and are the only way the service
// reference count changes.
type NotificationService interface {
	Register(listener *Listener) (cookie uint32, err error)
	Unregister(cookie uint32) error
	AddRef() uint32
	Release() uint32
}

// IndexIn returns the position of id in desktops.
func IndexIn(desktops []DesktopID, id DesktopID) (uint, error) {
	for i, d := range desktops {
		if d == id {
			return uint(i), nil
		}
	}
	return 0, ErrNotFound
}
