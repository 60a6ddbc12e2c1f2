package shell

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lucax88x/deskwatch/internal/vdesktop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newID() vdesktop.DesktopID { return vdesktop.DesktopID(uuid.New()) }

func TestDesktopLookup_IndexOfDoesNotJoinAnEarlierSnapshot(t *testing.T) {
	d0, d1, d2 := newID(), newID(), newID()
	gate := make(chan struct{})
	var calls atomic.Int32

	lookup := newDesktopLookup(func() ([]vdesktop.DesktopID, error) {
		if calls.Add(1) == 1 {
			<-gate
			return []vdesktop.DesktopID{d0, d1}, nil
		}
		return []vdesktop.DesktopID{d0, d1, d2}, nil
	})

	snapshot := make(chan []vdesktop.DesktopID, 1)
	go func() {
		desktops, _ := lookup.Snapshot()
		snapshot <- desktops
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	index, err := lookup.IndexOf(d2)
	require.NoError(t, err)
	assert.Equal(t, uint(2), index)

	desktops, err := lookup.Desktops()
	require.NoError(t, err)
	assert.Len(t, desktops, 3)

	close(gate)
	assert.Equal(t, []vdesktop.DesktopID{d0, d1}, <-snapshot)
}

func TestDesktopLookup_SnapshotIsACopy(t *testing.T) {
	d0 := newID()
	shared := []vdesktop.DesktopID{d0}
	lookup := newDesktopLookup(func() ([]vdesktop.DesktopID, error) { return shared, nil })

	got, err := lookup.Snapshot()
	require.NoError(t, err)
	got[0] = newID()

	assert.Equal(t, d0, shared[0])
}
