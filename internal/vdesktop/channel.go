package vdesktop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the per-receiver capacity used when none is configured.
const DefaultBuffer = 64

var (
	ErrClosed = errors.New("vdesktop: channel closed")
	ErrFull   = errors.New("vdesktop: receiver buffer full")
	ErrEmpty  = errors.New("vdesktop: no event pending")
)

// hub fans events out to every open receiver.
//
// Contract:
//   - sends never block nor wait on a lock; slow receivers drop events.
//   - subscribe, unsubscribe and close are serialized by mu and publish a new
//     receiver snapshot, so senders only ever read an immutable slice.
//   - a receiver is closed under its write lock while sends only try its read
//     lock, so a send racing with a close is dropped instead of waiting.
type hub struct {
	buffer int

	mu     sync.Mutex
	subs   atomic.Pointer[[]*Receiver]
	closed atomic.Bool
}

func newHub(buffer int) *hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	h := &hub{buffer: buffer}
	h.subs.Store(&[]*Receiver{})
	return h
}

func (h *hub) subscribe() *Receiver {
	r := &Receiver{h: h, ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed.Load() {
		r.shut()
		return r
	}

	old := *h.subs.Load()
	next := make([]*Receiver, 0, len(old)+1)
	next = append(next, old...)
	next = append(next, r)
	h.subs.Store(&next)

	return r
}

func (h *hub) unsubscribe(r *Receiver) {
	h.mu.Lock()
	defer h.mu.Unlock()

	old := *h.subs.Load()
	next := make([]*Receiver, 0, len(old))
	for _, s := range old {
		if s != r {
			next = append(next, s)
		}
	}
	h.subs.Store(&next)
	r.shut()
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed.Swap(true) {
		return
	}
	for _, r := range *h.subs.Load() {
		r.shut()
	}
	h.subs.Store(&[]*Receiver{})
}

func (h *hub) receivers() int {
	return len(*h.subs.Load())
}

// NewChannel creates an open event channel with one receiver. Further
// receivers are obtained with Clone.
func NewChannel(buffer int) (*Sender, *Receiver) {
	h := newHub(buffer)
	return &Sender{h: h}, h.subscribe()
}

// Sender is the write end of an event channel.
type Sender struct {
	h *hub
}

// TrySend offers e to every open receiver without waiting. It returns
// ErrClosed when the channel is closed or no receiver is left, and ErrFull
// when at least one receiver had no room (the others still got the event).
func (s *Sender) TrySend(e Event) error {
	if s.h.closed.Load() {
		return ErrClosed
	}

	subs := *s.h.subs.Load()
	if len(subs) == 0 {
		return ErrClosed
	}

	var err error
	for _, r := range subs {
		if !r.offer(e) {
			err = ErrFull
		}
	}
	return err
}

// Close closes the channel; every receiver drains what it buffered and then
// observes ErrClosed.
func (s *Sender) Close() {
	s.h.close()
}

func (s *Sender) Closed() bool {
	return s.h.closed.Load()
}

// Receiver is one independent read end of an event channel. Each receiver
// has its own buffer and sees every event sent after it was created.
type Receiver struct {
	h  *hub
	ch chan Event

	mu     sync.RWMutex
	closed bool
}

// offer reports false only when the receiver is open and its buffer is full.
// A receiver being closed concurrently counts as delivered to nobody.
func (r *Receiver) offer(e Event) bool {
	if !r.mu.TryRLock() {
		return true
	}
	defer r.mu.RUnlock()

	if r.closed {
		return true
	}

	select {
	case r.ch <- e:
		return true
	default:
		return false
	}
}

func (r *Receiver) shut() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	close(r.ch)
}

// C exposes the underlying channel for use in select statements. It is
// closed once the receiver or the whole channel is closed.
func (r *Receiver) C() <-chan Event {
	return r.ch
}

// Recv waits for the next event.
func (r *Receiver) Recv(ctx context.Context) (Event, error) {
	select {
	case e, ok := <-r.ch:
		if !ok {
			return nil, ErrClosed
		}
		return e, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryRecv returns the next buffered event, ErrEmpty when none is pending or
// ErrClosed once the channel is closed and drained.
func (r *Receiver) TryRecv() (Event, error) {
	select {
	case e, ok := <-r.ch:
		if !ok {
			return nil, ErrClosed
		}
		return e, nil
	default:
		return nil, ErrEmpty
	}
}

// Clone returns a new independent receiver on the same channel.
func (r *Receiver) Clone() *Receiver {
	return r.h.subscribe()
}

// Close detaches this receiver. Other receivers are not affected.
func (r *Receiver) Close() {
	r.h.unsubscribe(r)
}

func (r *Receiver) Len() int {
	return len(r.ch)
}

func (r *Receiver) Cap() int {
	return cap(r.ch)
}
