//go:build linux

package reactor

import (
	"sync"

	"golang.org/x/sys/unix"
)

// epollQueue is the Linux epoll-backed Queue, registering every fd
// EPOLLONESHOT so a descriptor only fires once per arming — the worker
// handling it must call Modify to re-arm before another event for it is
// delivered, which is what keeps two workers from ever touching the same
// connection concurrently.
type epollQueue struct {
	epfd int

	mu     sync.Mutex
	closed bool
	// wakeR/wakeW is a pipe used the same way the original's term_pipe is:
	// Close writes to it so a thread blocked in the kernel wait call wakes
	// up and notices the queue is shutting down.
	wakeR, wakeW int
}

// New constructs a Queue backed by epoll.
func New() (Queue, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	fds := make([]int, 2)
	if err := unix.Pipe2(fds, unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		unix.Close(epfd)
		return nil, err
	}
	q := &epollQueue{epfd: epfd, wakeR: fds[0], wakeW: fds[1]}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, q.wakeR, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(q.wakeR),
	}); err != nil {
		q.Close()
		return nil, err
	}
	return q, nil
}

func toEpollEvents(i Interest) uint32 {
	var ev uint32 = unix.EPOLLONESHOT | unix.EPOLLET
	if i.Readable {
		ev |= unix.EPOLLIN
	}
	if i.Writable {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (q *epollQueue) Add(fd int, interest Interest) error {
	return unix.EpollCtl(q.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: toEpollEvents(interest),
		Fd:     int32(fd),
	})
}

func (q *epollQueue) Modify(fd int, interest Interest) error {
	return unix.EpollCtl(q.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{
		Events: toEpollEvents(interest),
		Fd:     int32(fd),
	})
}

func (q *epollQueue) Remove(fd int) error {
	err := unix.EpollCtl(q.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT {
		return nil
	}
	return err
}

func (q *epollQueue) Wait(events []Event) ([]Event, error) {
	raw := make([]unix.EpollEvent, 64)
	for {
		n, err := unix.EpollWait(q.epfd, raw, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return events, err
		}

		out := events[:0]
		for _, e := range raw[:n] {
			fd := int(e.Fd)
			if fd == q.wakeR {
				q.mu.Lock()
				closed := q.closed
				q.mu.Unlock()
				if closed {
					return out, ErrClosed
				}
				continue
			}
			out = append(out, Event{
				Fd:       fd,
				Readable: e.Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0,
				Writable: e.Events&unix.EPOLLOUT != 0,
				Hangup:   e.Events&(unix.EPOLLHUP|unix.EPOLLERR) != 0,
			})
		}
		return out, nil
	}
}

func (q *epollQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	var b [1]byte
	unix.Write(q.wakeW, b[:])

	unix.Close(q.wakeW)
	unix.Close(q.wakeR)
	return unix.Close(q.epfd)
}
