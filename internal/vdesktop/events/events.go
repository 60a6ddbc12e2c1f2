package events

type Event = string

const (
	DesktopCreated   Event = "vd_desktop_created"
	DesktopDestroyed Event = "vd_desktop_destroyed"
	DesktopChanged   Event = "vd_desktop_changed"
	WindowChanged    Event = "vd_window_changed"
)

// All lists every event name in a stable order.
//
//nolint:gochecknoglobals // ok
var All = []Event{
	DesktopCreated,
	DesktopDestroyed,
	DesktopChanged,
	WindowChanged,
}

func Valid(name string) bool {
	for _, e := range All {
		if e == name {
			return true
		}
	}
	return false
}

type DesktopEventInfo struct {
	Index uint `json:"index"`
}

type DesktopChangeEventInfo struct {
	Old uint `json:"old"`
	New uint `json:"new"`
}

type WindowChangeEventInfo struct {
	Window  uint64 `json:"window"`
	Pid     uint32 `json:"pid,omitempty"`
	Process string `json:"process,omitempty"`
}
