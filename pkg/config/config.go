// Package config builds the fileserverd root command, binding pflag
// flags to an AppConfig the way the teacher's cmd/cli commands bind
// flags onto a cobra.Command before running.
package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

// AppConfig holds every runtime-configurable setting the server reads at
// startup, the Go equivalent of the original's argv-parsed globals (port,
// backlog, root directory) plus the settings this port adds (worker
// count, idle timeout, metrics port).
type AppConfig struct {
	Port        int
	Backlog     int
	DocRoot     string
	IndexNames  []string
	Workers     int
	IdleTimeout time.Duration
	MetricsAddr string
	LogLevel    string
	LogFile     string
}

// defaultIndexNames mirrors a conventional static file server's default
// directory index search order.
var defaultIndexNames = []string{"index.html", "index.htm"}

// NewRootCommand builds the "fileserverd" cobra.Command, binding its
// flags into cfg. run is invoked with the populated cfg once flags have
// been parsed.
func NewRootCommand(cfg *AppConfig, run func(*AppConfig) error) *cobra.Command {
	// quiet/verbose/veryVerbose mirror the original's -q/-v/-V tri-state
	// verbosity switch (vlevel V0/V1/V2); -v is the original's default,
	// so LogLevel starts at "info" and these three flags only ever
	// narrow or widen it in RunE. Local to this call so two independent
	// commands (as in tests) never share verbosity state.
	var quiet, verbose, veryVerbose bool

	cmd := &cobra.Command{
		Use:   "fileserverd",
		Short: "A reactor-based HTTP/1.x static file server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.DocRoot == "" {
				return fmt.Errorf("config: --root is required")
			}

			switch {
			case veryVerbose:
				cfg.LogLevel = "trace"
			case quiet:
				cfg.LogLevel = "error"
			case verbose:
				cfg.LogLevel = "info"
			}

			if cfg.LogFile != "" {
				if err := redirectOutput(cfg.LogFile); err != nil {
					return fmt.Errorf("config: -l %s: %w", cfg.LogFile, err)
				}
			}

			return run(cfg)
		},
	}
	cmd.Flags().SortFlags = false

	flags := cmd.Flags()
	flags.IntVarP(&cfg.Port, "port", "p", 80, "TCP port to listen on")
	flags.IntVarP(&cfg.Backlog, "backlog", "b", 50, "listen() backlog size")
	flags.StringVar(&cfg.DocRoot, "root", "", "directory to serve files from")
	flags.StringSliceVar(&cfg.IndexNames, "index", defaultIndexNames, "directory index file names, tried in order")
	flags.IntVarP(&cfg.Workers, "workers", "t", runtime.NumCPU(), "number of reactor worker goroutines (default: number of logical CPUs)")
	flags.DurationVar(&cfg.IdleTimeout, "idle-timeout", 60*time.Second, "drop a connection after this long without activity")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", ":9090", "address to serve Prometheus metrics on, empty to disable")
	flags.StringVarP(&cfg.LogFile, "log-file", "l", "", "redirect stdout and stderr to this file (truncating, created 0644)")
	flags.BoolVarP(&quiet, "quiet", "q", false, "run in quiet mode, only printing errors")
	flags.BoolVarP(&verbose, "verbose", "v", false, "run with verbose level 1 (the default)")
	flags.BoolVarP(&veryVerbose, "very-verbose", "V", false, "run with verbose level 2, printing everything")

	cfg.LogLevel = "info"
	return cmd
}

// redirectOutput truncates/creates path 0644 and dup2s it onto both
// stdout and stderr, matching the original's open(O_TRUNC|O_CREAT,
// 0644) + dup2(fd, STDOUT_FILENO)/dup2(fd, STDERR_FILENO) pair.
func redirectOutput(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	fd := int(f.Fd())
	if err := unix.Dup2(fd, unix.Stdout); err != nil {
		f.Close()
		return err
	}
	if err := unix.Dup2(fd, unix.Stderr); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
