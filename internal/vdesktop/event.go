package vdesktop

import (
	"fmt"

	"github.com/lucax88x/deskwatch/internal/vdesktop/events"
)

// Event is one observable virtual desktop transition. The set of
// implementations is closed: DesktopCreated, DesktopDestroyed,
// DesktopChanged and WindowChanged.
type Event interface {
	Name() events.Event
	Info() any
	isEvent()
}

type DesktopCreated struct {
	Index uint
}

type DesktopDestroyed struct {
	Index uint
}

type DesktopChanged struct {
	OldIndex uint
	NewIndex uint
}

// WindowChanged reports the thumbnail window of a view that moved between
// desktops.
type WindowChanged struct {
	Window HWND
}

func (DesktopCreated) Name() events.Event   { return events.DesktopCreated }
func (DesktopDestroyed) Name() events.Event { return events.DesktopDestroyed }
func (DesktopChanged) Name() events.Event   { return events.DesktopChanged }
func (WindowChanged) Name() events.Event    { return events.WindowChanged }

func (e DesktopCreated) Info() any {
	return events.DesktopEventInfo{Index: e.Index}
}

func (e DesktopDestroyed) Info() any {
	return events.DesktopEventInfo{Index: e.Index}
}

func (e DesktopChanged) Info() any {
	return events.DesktopChangeEventInfo{Old: e.OldIndex, New: e.NewIndex}
}

func (e WindowChanged) Info() any {
	return events.WindowChangeEventInfo{Window: uint64(e.Window)}
}

func (e DesktopCreated) String() string   { return fmt.Sprintf("desktop created %d", e.Index) }
func (e DesktopDestroyed) String() string { return fmt.Sprintf("desktop destroyed %d", e.Index) }
func (e DesktopChanged) String() string {
	return fmt.Sprintf("desktop changed %d -> %d", e.OldIndex, e.NewIndex)
}
func (e WindowChanged) String() string { return fmt.Sprintf("window changed %s", e.Window) }

func (DesktopCreated) isEvent()   {}
func (DesktopDestroyed) isEvent() {}
func (DesktopChanged) isEvent()   {}
func (WindowChanged) isEvent()    {}
