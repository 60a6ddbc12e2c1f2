package vdesktop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSender_NoReceiversIsClosed(t *testing.T) {
	h := newHub(4)
	s := &Sender{h: h}

	require.ErrorIs(t, s.TrySend(DesktopCreated{Index: 1}), ErrClosed)

	rx := h.subscribe()
	require.NoError(t, s.TrySend(DesktopCreated{Index: 1}))
	rx.Close()
	require.ErrorIs(t, s.TrySend(DesktopCreated{Index: 2}), ErrClosed)
}

func TestSender_FullReceiverDoesNotStarveOthers(t *testing.T) {
	h := newHub(1)
	s := &Sender{h: h}
	slow := h.subscribe()
	fast := h.subscribe()

	require.NoError(t, s.TrySend(DesktopCreated{Index: 0}))
	_, err := fast.TryRecv()
	require.NoError(t, err)

	require.ErrorIs(t, s.TrySend(DesktopCreated{Index: 1}), ErrFull)

	e, err := fast.TryRecv()
	require.NoError(t, err)
	assert.Equal(t, DesktopCreated{Index: 1}, e)
	assert.Equal(t, 1, slow.Len())
}

func TestSender_CloseIsIdempotent(t *testing.T) {
	h := newHub(2)
	s := &Sender{h: h}
	rx := h.subscribe()

	s.Close()
	s.Close()

	assert.True(t, s.Closed())
	require.ErrorIs(t, s.TrySend(WindowChanged{Window: 1}), ErrClosed)
	_, err := rx.Recv(context.Background())
	require.ErrorIs(t, err, ErrClosed)

	late := rx.Clone()
	_, err = late.TryRecv()
	require.ErrorIs(t, err, ErrClosed)
	late.Close()
}

func TestReceiver_RecvHonoursContext(t *testing.T) {
	h := newHub(2)
	rx := h.subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := rx.Recv(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSender_ConcurrentSendersNeverBlock(t *testing.T) {
	h := newHub(DefaultBuffer)
	s := &Sender{h: h}
	rx := h.subscribe()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.TrySend(DesktopCreated{Index: uint(i)})
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, DefaultBuffer, rx.Len())
	assert.Equal(t, 1, h.receivers())
}

func TestNewChannel(t *testing.T) {
	tx, rx := NewChannel(0)
	clone := rx.Clone()

	assert.Equal(t, DefaultBuffer, rx.Cap())
	require.NoError(t, tx.TrySend(DesktopDestroyed{Index: 4}))

	for _, r := range []*Receiver{rx, clone} {
		e, err := r.TryRecv()
		require.NoError(t, err)
		assert.Equal(t, DesktopDestroyed{Index: 4}, e)
	}

	tx.Close()
	assert.True(t, tx.Closed())
	_, err := clone.Recv(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}

func TestSender_SendRacingWithClose(t *testing.T) {
	for round := 0; round < 200; round++ {
		tx, rx := NewChannel(4)
		clone := rx.Clone()

		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = tx.TrySend(DesktopCreated{Index: uint(i)})
			}
		}()
		go func() {
			defer wg.Done()
			rx.Close()
		}()
		go func() {
			defer wg.Done()
			tx.Close()
		}()
		wg.Wait()

		require.ErrorIs(t, tx.TrySend(DesktopCreated{}), ErrClosed)
		for {
			if _, err := clone.TryRecv(); err != nil {
				require.ErrorIs(t, err, ErrClosed)
				break
			}
		}
	}
}
