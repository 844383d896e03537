//go:build !linux

package reactor

import "errors"

// ErrUnsupported is returned by New on platforms other than Linux; the
// production target for this server is Linux (epoll), matching the
// original project's choice of epoll over kqueue when both were
// available in cross-platform builds.
var ErrUnsupported = errors.New("reactor: no readiness-queue backend for this platform")

// New is unavailable outside Linux.
func New() (Queue, error) {
	return nil, ErrUnsupported
}
