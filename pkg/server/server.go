// Package server runs the accept loop, worker pool, and LRU idle-timeout
// sweep around pkg/reactor, pkg/client, and pkg/docroot: the Go
// reimagining of the original project's run_server/run_server2 (spawn
// worker threads, wait on the readiness queue, dispatch ready
// connections) plus its timerfd-driven connection sweep.
package server

import (
	"time"

	"github.com/ClaytonKnittel/fileserverd/pkg/docroot"
	"github.com/ClaytonKnittel/fileserverd/pkg/logging"
	"github.com/ClaytonKnittel/fileserverd/pkg/metrics"
)

// Config configures a Server.
type Config struct {
	Port        int
	Backlog     int
	Workers     int
	IdleTimeout time.Duration
	SweepPeriod time.Duration
	Root        *docroot.Root
	Log         logging.Logger
	Metrics     *metrics.Registry
}

// withDefaults fills in zero-valued fields with sane defaults, mirroring
// the original's init_server falling back to DEFAULT_BACKLOG when the
// caller didn't specify one. Port is left as given: 0 binds an ephemeral
// port.
func (c Config) withDefaults() Config {
	if c.Backlog == 0 {
		c.Backlog = 50
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.SweepPeriod == 0 {
		c.SweepPeriod = c.IdleTimeout / 4
	}
	return c
}
