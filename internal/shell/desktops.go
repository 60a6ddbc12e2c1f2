package shell

import (
	"github.com/lucax88x/deskwatch/internal/vdesktop"
	"golang.org/x/sync/singleflight"
)

// desktopLookup resolves desktops for the listener. Desktops and IndexOf
// enumerate on every call so a callback always sees the list as of the
// notification. Snapshot is for everything else: concurrent snapshots share
// one round trip to the shell.
type desktopLookup struct {
	enumerate func() ([]vdesktop.DesktopID, error)
	group     singleflight.Group
}

func newDesktopLookup(enumerate func() ([]vdesktop.DesktopID, error)) *desktopLookup {
	return &desktopLookup{enumerate: enumerate}
}

func (d *desktopLookup) Desktops() ([]vdesktop.DesktopID, error) {
	return d.enumerate()
}

func (d *desktopLookup) IndexOf(id vdesktop.DesktopID) (uint, error) {
	desktops, err := d.enumerate()
	if err != nil {
		return 0, err
	}
	return vdesktop.IndexIn(desktops, id)
}

func (d *desktopLookup) Snapshot() ([]vdesktop.DesktopID, error) {
	v, err, _ := d.group.Do("desktops", func() (any, error) {
		return d.enumerate()
	})
	if err != nil {
		return nil, err
	}

	shared := v.([]vdesktop.DesktopID)
	return append([]vdesktop.DesktopID(nil), shared...), nil
}

var _ vdesktop.DesktopLookup = (*desktopLookup)(nil)
