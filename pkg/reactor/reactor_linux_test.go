//go:build linux

package reactor

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestAddAndWaitReadable(t *testing.T) {
	q, err := New()
	require.NoError(t, err)
	defer q.Close()

	fds := make([]int, 2)
	require.NoError(t, unix.Pipe2(fds, unix.O_CLOEXEC))
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	require.NoError(t, q.Add(fds[0], Interest{Readable: true}))

	_, err = unix.Write(fds[1], []byte("x"))
	require.NoError(t, err)

	events, err := q.Wait(nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, fds[0], events[0].Fd)
	require.True(t, events[0].Readable)
}

func TestOneShotRequiresRearm(t *testing.T) {
	q, err := New()
	require.NoError(t, err)
	defer q.Close()

	fds := make([]int, 2)
	require.NoError(t, unix.Pipe2(fds, unix.O_CLOEXEC))
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	require.NoError(t, q.Add(fds[0], Interest{Readable: true}))
	_, err = unix.Write(fds[1], []byte("x"))
	require.NoError(t, err)

	events, err := q.Wait(nil)
	require.NoError(t, err)
	require.Len(t, events, 1)

	require.NoError(t, q.Modify(fds[0], Interest{Readable: true}))
	_, err = unix.Write(fds[1], []byte("y"))
	require.NoError(t, err)

	events, err = q.Wait(nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestCloseWakesWaiters(t *testing.T) {
	q, err := New()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := q.Wait(nil)
		done <- err
	}()

	require.NoError(t, q.Close())
	require.ErrorIs(t, <-done, ErrClosed)
}
