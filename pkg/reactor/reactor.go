// Package reactor wraps the kernel's readiness-notification facility
// (epoll on Linux) behind a small interface, the Go analogue of the
// original project's qfd (the "asynchronous polling mechanism ... either
// epolling (linux) or kqueue (macos)" described in server.h): one file
// descriptor registered with edge-triggered, one-shot interest, woken
// once per readiness event rather than polled.
package reactor

import "errors"

// Event is a readiness notification for one registered file descriptor.
type Event struct {
	Fd       int
	Readable bool
	Writable bool
	// Hangup reports the peer closed or an error condition was posted
	// against this descriptor (EPOLLHUP/EPOLLERR).
	Hangup bool
}

// Interest is the set of readiness conditions to watch for.
type Interest struct {
	Readable bool
	Writable bool
}

// ErrClosed is returned by Queue methods after Close.
var ErrClosed = errors.New("reactor: queue is closed")

// Queue is a readiness-notification multiplexer: file descriptors are
// registered with one-shot, edge-triggered interest, and each Wait call
// returns the descriptors that became ready since they were last
// re-armed. A descriptor must be re-armed (Modify) after each event it
// produces, or it will not fire again.
type Queue interface {
	// Add registers fd for the given interest.
	Add(fd int, interest Interest) error
	// Modify re-arms fd (after handling its previous event) with a
	// possibly different interest.
	Modify(fd int, interest Interest) error
	// Remove deregisters fd; it is not an error if fd was never added.
	Remove(fd int) error
	// Wait blocks until at least one registered descriptor is ready, or
	// the queue is closed, and appends ready events to events[:0].
	Wait(events []Event) ([]Event, error)
	// Close releases the underlying kernel resources. Any blocked Wait
	// call returns ErrClosed.
	Close() error
}
