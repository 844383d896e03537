//go:build !linux

package server

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by New on platforms other than Linux, same
// as pkg/reactor's own backend restriction.
var ErrUnsupported = errors.New("server: no reactor backend for this platform")

// Server is an unusable placeholder outside Linux.
type Server struct{}

// New is unavailable outside Linux.
func New(cfg Config) (*Server, error) {
	return nil, ErrUnsupported
}

// Run is unavailable outside Linux.
func (s *Server) Run(ctx context.Context) error {
	return ErrUnsupported
}
