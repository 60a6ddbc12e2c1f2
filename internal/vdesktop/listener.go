package vdesktop

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/lucax88x/deskwatch/internal/vdesktop/events"
)

// Listener receives virtual desktop notifications from the shell and turns
// them into events.
//
// The shell calls it from its own threads. Every callback resolves what it
// needs synchronously, offers the event without blocking and reports SOK no
// matter what happened: a failure status may abort the desktop operation
// that triggered the notification.
type Listener struct {
	logger *slog.Logger
	sender *Sender
	lookup DesktopLookup

	refs      atomic.Int32
	dropped   atomic.Uint64
	onRelease []func()
}

func newListener(logger *slog.Logger, sender *Sender, lookup DesktopLookup) *Listener {
	l := &Listener{
		logger: logger,
		sender: sender,
		lookup: lookup,
	}
	// the registration's own hold, taken before the shell ever sees l
	l.AddRef()
	return l
}

// OnFinalRelease registers fn to run when the reference count drops to
// zero. It must be called before the listener is handed to the shell.
func (l *Listener) OnFinalRelease(fn func()) {
	l.onRelease = append(l.onRelease, fn)
}

func (l *Listener) AddRef() uint32 {
	return uint32(l.refs.Add(1))
}

func (l *Listener) Release() uint32 {
	n := l.refs.Add(-1)
	switch {
	case n == 0:
		l.destroy()
	case n < 0:
		l.refs.Store(0)
		l.logger.Error("listener: released more often than referenced", slog.Int("refs", int(n)))
		return 0
	}
	return uint32(n)
}

func (l *Listener) Refs() uint32 {
	return uint32(l.refs.Load())
}

// Dropped counts events that were resolved or attempted but never delivered.
func (l *Listener) Dropped() uint64 {
	return l.dropped.Load()
}

func (l *Listener) destroy() {
	l.logger.Debug("listener: final release")
	l.sender.Close()

	for _, fn := range l.onRelease {
		func() {
			defer func() {
				if r := recover(); r != nil {
					l.logger.Error("listener: recovered from panic in release hook", slog.Any("panic", r))
				}
			}()
			fn()
		}()
	}
}

func (l *Listener) VirtualDesktopCreated(desktop Desktop) (hr HRESULT) {
	defer l.recoverCallback(events.DesktopCreated, &hr)

	index, err := l.indexOf(desktop)
	if err != nil {
		l.drop(events.DesktopCreated, err)
		return SOK
	}

	l.send(DesktopCreated{Index: index})
	return SOK
}

func (l *Listener) VirtualDesktopDestroyBegin(_, _ Desktop) HRESULT {
	return SOK
}

func (l *Listener) VirtualDesktopDestroyFailed(_, _ Desktop) HRESULT {
	return SOK
}

// VirtualDesktopDestroyed resolves the destroyed desktop while the shell
// still lists it. If the shell already dropped it the event is lost; moving
// this to VirtualDesktopDestroyBegin would avoid that but fires for
// destructions that later fail.
func (l *Listener) VirtualDesktopDestroyed(destroyed, _ Desktop) (hr HRESULT) {
	defer l.recoverCallback(events.DesktopDestroyed, &hr)

	index, err := l.indexOf(destroyed)
	if err != nil {
		l.drop(events.DesktopDestroyed, err)
		return SOK
	}

	l.send(DesktopDestroyed{Index: index})
	return SOK
}

func (l *Listener) ViewVirtualDesktopChanged(view ApplicationView) (hr HRESULT) {
	defer l.recoverCallback(events.WindowChanged, &hr)

	if view == nil {
		l.drop(events.WindowChanged, errors.New("nil view"))
		return SOK
	}

	hwnd, err := view.ThumbnailWindow()
	if err != nil {
		l.drop(events.WindowChanged, fmt.Errorf("thumbnail window: %w", err))
		return SOK
	}

	l.send(WindowChanged{Window: hwnd})
	return SOK
}

// CurrentVirtualDesktopChanged emits only when both desktops differ and
// resolve in the same enumeration.
func (l *Listener) CurrentVirtualDesktopChanged(oldDesktop, newDesktop Desktop) (hr HRESULT) {
	defer l.recoverCallback(events.DesktopChanged, &hr)

	oldID, err := desktopID(oldDesktop)
	if err != nil {
		l.drop(events.DesktopChanged, err)
		return SOK
	}
	newID, err := desktopID(newDesktop)
	if err != nil {
		l.drop(events.DesktopChanged, err)
		return SOK
	}

	if oldID == newID {
		l.drop(events.DesktopChanged, fmt.Errorf("desktop %s did not change", oldID))
		return SOK
	}

	desktops, err := l.lookup.Desktops()
	if err != nil {
		l.drop(events.DesktopChanged, fmt.Errorf("enumerate desktops: %w", err))
		return SOK
	}

	oldIndex, err := IndexIn(desktops, oldID)
	if err != nil {
		l.drop(events.DesktopChanged, fmt.Errorf("old desktop %s: %w", oldID, err))
		return SOK
	}
	newIndex, err := IndexIn(desktops, newID)
	if err != nil {
		l.drop(events.DesktopChanged, fmt.Errorf("new desktop %s: %w", newID, err))
		return SOK
	}

	l.send(DesktopChanged{OldIndex: oldIndex, NewIndex: newIndex})
	return SOK
}

func (l *Listener) indexOf(desktop Desktop) (uint, error) {
	id, err := desktopID(desktop)
	if err != nil {
		return 0, err
	}

	index, err := l.lookup.IndexOf(id)
	if err != nil {
		return 0, fmt.Errorf("desktop %s: %w", id, err)
	}
	return index, nil
}

func desktopID(desktop Desktop) (DesktopID, error) {
	if desktop == nil {
		return DesktopID{}, errors.New("nil desktop")
	}

	id, err := desktop.ID()
	if err != nil {
		return DesktopID{}, fmt.Errorf("desktop id: %w", err)
	}
	return id, nil
}

func (l *Listener) send(e Event) {
	if err := l.sender.TrySend(e); err != nil {
		l.drop(e.Name(), err)
		return
	}

	l.logger.Debug("listener: forwarded", slog.String("event", e.Name()), slog.Any("info", e.Info()))
}

func (l *Listener) drop(event events.Event, err error) {
	l.dropped.Add(1)
	l.logger.Debug("listener: dropped", slog.String("event", event), slog.Any("error", err))
}

func (l *Listener) recoverCallback(event events.Event, hr *HRESULT) {
	if r := recover(); r != nil {
		l.dropped.Add(1)
		l.logger.Error("listener: recovered from panic in callback",
			slog.String("event", event),
			slog.Any("panic", r))
	}
	*hr = SOK
}
