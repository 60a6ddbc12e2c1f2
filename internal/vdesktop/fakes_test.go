package vdesktop

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newID() DesktopID { return DesktopID(uuid.New()) }

type fakeDesktop struct {
	id  DesktopID
	err error
}

func (d fakeDesktop) ID() (DesktopID, error) { return d.id, d.err }

type fakeView struct {
	hwnd HWND
	err  error
}

func (v fakeView) ThumbnailWindow() (HWND, error) { return v.hwnd, v.err }

type fakeLookup struct {
	mu       sync.Mutex
	desktops []DesktopID
	err      error
	panics   bool
}

func (l *fakeLookup) set(desktops ...DesktopID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.desktops = desktops
}

func (l *fakeLookup) Desktops() ([]DesktopID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.panics {
		panic("lookup exploded")
	}
	if l.err != nil {
		return nil, l.err
	}
	return append([]DesktopID(nil), l.desktops...), nil
}

func (l *fakeLookup) IndexOf(id DesktopID) (uint, error) {
	desktops, err := l.Desktops()
	if err != nil {
		return 0, err
	}
	return IndexIn(desktops, id)
}

// fakeService behaves like the shell: it holds a reference on every
// registered listener until it is unregistered.
type fakeService struct {
	mu          sync.Mutex
	refs        atomic.Int32
	next        uint32
	listeners   map[uint32]*Listener
	registerErr error
	unregErr    error
	unregisters []uint32
}

func newFakeService() *fakeService {
	s := &fakeService{next: 41, listeners: map[uint32]*Listener{}}
	s.refs.Store(1)
	return s
}

func (s *fakeService) Register(l *Listener) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registerErr != nil {
		return 0, s.registerErr
	}
	l.AddRef()
	s.next++
	s.listeners[s.next] = l
	return s.next, nil
}

func (s *fakeService) Unregister(cookie uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unregisters = append(s.unregisters, cookie)
	if s.unregErr != nil {
		return s.unregErr
	}
	l, ok := s.listeners[cookie]
	if !ok {
		return errors.New("unknown cookie")
	}
	delete(s.listeners, cookie)
	l.Release()
	return nil
}

func (s *fakeService) AddRef() uint32  { return uint32(s.refs.Add(1)) }
func (s *fakeService) Release() uint32 { return uint32(s.refs.Add(-1)) }

func (s *fakeService) unregisterCalls() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint32(nil), s.unregisters...)
}

func (s *fakeService) listener(cookie uint32) *Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listeners[cookie]
}
