// Command fileserverd runs the reactor-based HTTP/1.x static file server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ClaytonKnittel/fileserverd/pkg/config"
	"github.com/ClaytonKnittel/fileserverd/pkg/docroot"
	"github.com/ClaytonKnittel/fileserverd/pkg/logging"
	"github.com/ClaytonKnittel/fileserverd/pkg/metrics"
	"github.com/ClaytonKnittel/fileserverd/pkg/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var cfg config.AppConfig
	cmd := config.NewRootCommand(&cfg, start)
	return cmd.Execute()
}

func start(cfg *config.AppConfig) error {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log := logging.New(os.Stderr, level)

	root, err := docroot.New(cfg.DocRoot, cfg.IndexNames...)
	if err != nil {
		return fmt.Errorf("fileserverd: %w", err)
	}

	reg := prometheus.NewRegistry()
	promMetrics := metrics.NewRegistry(reg)

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Warnf("metrics server stopped: %v", err)
			}
		}()
	}

	srv, err := server.New(server.Config{
		Port:        cfg.Port,
		Backlog:     cfg.Backlog,
		Workers:     cfg.Workers,
		IdleTimeout: cfg.IdleTimeout,
		Root:        root,
		Log:         log,
		Metrics:     promMetrics,
	})
	if err != nil {
		return fmt.Errorf("fileserverd: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Infof("serving %s on port %d", cfg.DocRoot, cfg.Port)
	return srv.Run(ctx)
}
