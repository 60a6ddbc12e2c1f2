package vdesktop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestListener(t *testing.T, lookup DesktopLookup) (*Listener, *Receiver) {
	t.Helper()
	h := newHub(8)
	rx := h.subscribe()
	l := newListener(newDiscardLogger(), &Sender{h: h}, lookup)
	return l, rx
}

func requireNoEvent(t *testing.T, rx *Receiver) {
	t.Helper()
	e, err := rx.TryRecv()
	require.ErrorIs(t, err, ErrEmpty, "unexpected event %v", e)
}

func requireEvent(t *testing.T, rx *Receiver, want Event) {
	t.Helper()
	got, err := rx.TryRecv()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestListener_StartsWithOneReference(t *testing.T) {
	l, _ := newTestListener(t, &fakeLookup{})
	assert.Equal(t, uint32(1), l.Refs())
}

func TestListener_DesktopCreated(t *testing.T) {
	a, b, c := newID(), newID(), newID()
	lookup := &fakeLookup{}
	lookup.set(a, b, c)
	l, rx := newTestListener(t, lookup)

	hr := l.VirtualDesktopCreated(fakeDesktop{id: c})

	assert.Equal(t, SOK, hr)
	requireEvent(t, rx, DesktopCreated{Index: 2})
}

func TestListener_DesktopCreatedUnresolved(t *testing.T) {
	tests := []struct {
		name    string
		desktop Desktop
		lookup  *fakeLookup
	}{
		{name: "unknown id", desktop: fakeDesktop{id: newID()}, lookup: &fakeLookup{desktops: []DesktopID{newID()}}},
		{name: "id error", desktop: fakeDesktop{err: errors.New("gone")}, lookup: &fakeLookup{}},
		{name: "lookup error", desktop: fakeDesktop{id: newID()}, lookup: &fakeLookup{err: errors.New("rpc")}},
		{name: "nil desktop", desktop: nil, lookup: &fakeLookup{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, rx := newTestListener(t, tt.lookup)

			assert.Equal(t, SOK, l.VirtualDesktopCreated(tt.desktop))
			requireNoEvent(t, rx)
			assert.Equal(t, uint64(1), l.Dropped())
		})
	}
}

func TestListener_DesktopDestroyed(t *testing.T) {
	a, b := newID(), newID()
	lookup := &fakeLookup{}
	lookup.set(a, b)
	l, rx := newTestListener(t, lookup)

	assert.Equal(t, SOK, l.VirtualDesktopDestroyed(fakeDesktop{id: b}, fakeDesktop{id: a}))
	requireEvent(t, rx, DesktopDestroyed{Index: 1})

	// already removed from the list by the time the callback ran
	lookup.set(a)
	assert.Equal(t, SOK, l.VirtualDesktopDestroyed(fakeDesktop{id: b}, fakeDesktop{id: a}))
	requireNoEvent(t, rx)
}

func TestListener_DestroyBeginAndFailedAreNoops(t *testing.T) {
	a := newID()
	lookup := &fakeLookup{}
	lookup.set(a)
	l, rx := newTestListener(t, lookup)

	assert.Equal(t, SOK, l.VirtualDesktopDestroyBegin(fakeDesktop{id: a}, fakeDesktop{id: a}))
	assert.Equal(t, SOK, l.VirtualDesktopDestroyFailed(fakeDesktop{id: a}, nil))
	requireNoEvent(t, rx)
	assert.Zero(t, l.Dropped())
}

func TestListener_ViewChanged(t *testing.T) {
	l, rx := newTestListener(t, &fakeLookup{})

	assert.Equal(t, SOK, l.ViewVirtualDesktopChanged(fakeView{hwnd: 0x1234}))
	requireEvent(t, rx, WindowChanged{Window: 0x1234})

	assert.Equal(t, SOK, l.ViewVirtualDesktopChanged(fakeView{err: errors.New("no window")}))
	assert.Equal(t, SOK, l.ViewVirtualDesktopChanged(nil))
	requireNoEvent(t, rx)
}

func TestListener_CurrentDesktopChanged(t *testing.T) {
	a, b, c, d := newID(), newID(), newID(), newID()
	lookup := &fakeLookup{}
	lookup.set(a, b, c, d)
	l, rx := newTestListener(t, lookup)

	assert.Equal(t, SOK, l.CurrentVirtualDesktopChanged(fakeDesktop{id: a}, fakeDesktop{id: d}))
	requireEvent(t, rx, DesktopChanged{OldIndex: 0, NewIndex: 3})

	assert.Equal(t, SOK, l.CurrentVirtualDesktopChanged(fakeDesktop{id: c}, fakeDesktop{id: b}))
	requireEvent(t, rx, DesktopChanged{OldIndex: 2, NewIndex: 1})
}

func TestListener_CurrentDesktopChangedNeverPartial(t *testing.T) {
	a, b := newID(), newID()
	gone := newID()

	tests := []struct {
		name     string
		old, new Desktop
		lookup   *fakeLookup
	}{
		{name: "old unknown", old: fakeDesktop{id: gone}, new: fakeDesktop{id: b}, lookup: &fakeLookup{desktops: []DesktopID{a, b}}},
		{name: "new unknown", old: fakeDesktop{id: a}, new: fakeDesktop{id: gone}, lookup: &fakeLookup{desktops: []DesktopID{a, b}}},
		{name: "both unknown", old: fakeDesktop{id: gone}, new: fakeDesktop{id: newID()}, lookup: &fakeLookup{desktops: []DesktopID{a, b}}},
		{name: "enumeration fails", old: fakeDesktop{id: a}, new: fakeDesktop{id: b}, lookup: &fakeLookup{err: errors.New("rpc")}},
		{name: "same desktop", old: fakeDesktop{id: b}, new: fakeDesktop{id: b}, lookup: &fakeLookup{desktops: []DesktopID{a, b}}},
		{name: "new id fails", old: fakeDesktop{id: a}, new: fakeDesktop{err: errors.New("gone")}, lookup: &fakeLookup{desktops: []DesktopID{a, b}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, rx := newTestListener(t, tt.lookup)

			assert.Equal(t, SOK, l.CurrentVirtualDesktopChanged(tt.old, tt.new))
			requireNoEvent(t, rx)
		})
	}
}

func TestListener_PanicInLookupReportsSuccess(t *testing.T) {
	l, rx := newTestListener(t, &fakeLookup{panics: true})

	assert.NotPanics(t, func() {
		assert.Equal(t, SOK, l.VirtualDesktopCreated(fakeDesktop{id: newID()}))
		assert.Equal(t, SOK, l.CurrentVirtualDesktopChanged(fakeDesktop{id: newID()}, fakeDesktop{id: newID()}))
	})
	requireNoEvent(t, rx)
	assert.Equal(t, uint64(2), l.Dropped())
}

func TestListener_FullReceiverDrops(t *testing.T) {
	a := newID()
	lookup := &fakeLookup{}
	lookup.set(a)

	h := newHub(1)
	rx := h.subscribe()
	l := newListener(newDiscardLogger(), &Sender{h: h}, lookup)

	assert.Equal(t, SOK, l.VirtualDesktopCreated(fakeDesktop{id: a}))
	assert.Equal(t, SOK, l.VirtualDesktopCreated(fakeDesktop{id: a}))

	assert.Equal(t, 1, rx.Len())
	assert.Equal(t, uint64(1), l.Dropped())
}

func TestListener_FinalReleaseClosesChannelAndRunsHooks(t *testing.T) {
	l, rx := newTestListener(t, &fakeLookup{})

	var released int
	l.OnFinalRelease(func() { released++ })
	l.OnFinalRelease(func() { panic("hook exploded") })
	l.OnFinalRelease(func() { released++ })

	assert.Equal(t, uint32(2), l.AddRef())
	assert.Equal(t, uint32(1), l.Release())
	assert.Zero(t, released)

	assert.Equal(t, uint32(0), l.Release())
	assert.Equal(t, 2, released)

	_, err := rx.TryRecv()
	require.ErrorIs(t, err, ErrClosed)

	// a callback arriving after the final release still succeeds
	assert.Equal(t, SOK, l.ViewVirtualDesktopChanged(fakeView{hwnd: 1}))
}

func TestListener_OverReleaseIsClamped(t *testing.T) {
	l, _ := newTestListener(t, &fakeLookup{})

	assert.Equal(t, uint32(0), l.Release())
	assert.Equal(t, uint32(0), l.Release())
	assert.Equal(t, uint32(0), l.Refs())
}
