// Command autoassist-server runs the automotive MCP server over stdio.
// Protocol frames use stdout; all logging goes to stderr so the framed
// stream stays clean.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/motormind/autoassist/pkg/logging"
	"github.com/motormind/autoassist/pkg/observability"
	"github.com/motormind/autoassist/pkg/server"
	"github.com/motormind/autoassist/pkg/tools"
)

func main() {
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	metricsAddr := flag.String("metrics-addr", "", "address to serve Prometheus metrics on (empty disables)")
	flag.Parse()

	logger := logging.New(os.Stderr, logging.ParseLevel(*logLevel)).
		WithFields(logging.String("component", "server"))

	if err := run(logger, *metricsAddr); err != nil {
		logger.Error("server exited", logging.ErrorField(err))
		os.Exit(1)
	}
}

func run(logger logging.Logger, metricsAddr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics(observability.MetricsConfig{
		ServiceName: "autoassist-server",
	})
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
		go func() {
			logger.Info("serving metrics", logging.String("addr", metricsAddr))
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logger.Warn("metrics listener stopped", logging.ErrorField(err))
			}
		}()
	}

	srv := server.New(tools.DefaultRegistry(),
		server.WithLogger(logger),
		server.WithMetrics(metrics),
	)
	return srv.Run(ctx)
}
