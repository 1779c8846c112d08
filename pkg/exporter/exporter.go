package exporter

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Exporter is responsible for bringing up the web server that answers
// prometheus scrapes, rendering whatever the configured gatherer
// currently holds (e.g., see `pkg/collector`).
type Exporter struct {
	// listenAddress is the full address used by prometheus
	// to listen for scraping requests.
	//
	// Examples:
	// - :9927
	// - 127.0.0.2:1313
	listenAddress string

	// telemetryPath configures the path under which
	// the prometheus metrics are reported.
	//
	// For instance:
	// - /metrics
	// - /telemetry
	telemetryPath string

	// gatherer is the metrics registry rendered on each scrape.
	gatherer prometheus.Gatherer

	// listener is the TCP listener used by the webserver. `nil` if no
	// server is running.
	listener net.Listener

	log logr.Logger
}

// Option is a type used by functional arguments to override the
// exporter's default behavior.
type Option func(e *Exporter)

// WithBindAddress overrides the default address to listen on.
func WithBindAddress(v string) Option {
	return func(e *Exporter) {
		e.listenAddress = v
	}
}

// WithTelemetryPath overrides the default path under which metrics are
// reported.
func WithTelemetryPath(v string) Option {
	return func(e *Exporter) {
		e.telemetryPath = v
	}
}

// WithGatherer overrides the default gatherer (the global prometheus
// one) with an explicit registry.
func WithGatherer(v prometheus.Gatherer) Option {
	return func(e *Exporter) {
		e.gatherer = v
	}
}

// WithLogger overrides the default development logger.
func WithLogger(v logr.Logger) Option {
	return func(e *Exporter) {
		e.log = v
	}
}

// New instantiates an exporter with the default configuration, tweaked
// by any options passed.
func New(opts ...Option) (*Exporter, error) {
	defaultLogger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("zap new development: %w", err)
	}

	e := &Exporter{
		listenAddress: ":9927",
		telemetryPath: "/metrics",
		gatherer:      prometheus.DefaultGatherer,
		log:           zapr.NewLogger(defaultLogger.Named("exporter")),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Run initiates the HTTP server to serve the metrics.
//
// Failing to bind the listen address is an error - the caller is
// expected to treat it as fatal. Requests for any path other than the
// telemetry path get a plain 404.
//
// ps.: this is a BLOCKING method - make sure you either make use of
// goroutines to not block if needed.
func (e *Exporter) Run(ctx context.Context) error {
	var err error

	e.listener, err = net.Listen("tcp", e.listenAddress)
	if err != nil {
		return fmt.Errorf("listen on '%s': %w", e.listenAddress, err)
	}

	mux := http.NewServeMux()
	mux.Handle(e.telemetryPath, promhttp.HandlerFor(
		e.gatherer, promhttp.HandlerOpts{},
	))

	doneChan := make(chan error, 1)

	go func() {
		defer close(doneChan)

		e.log.WithValues(
			"addr", e.listenAddress,
			"path", e.telemetryPath,
		).Info("listening")

		if err := http.Serve(e.listener, mux); err != nil {
			doneChan <- fmt.Errorf(
				"failed listening on address %s: %w",
				e.listenAddress, err,
			)
		}
	}()

	select {
	case err = <-doneChan:
		if err != nil {
			return fmt.Errorf("donechan err: %w", err)
		}
	case <-ctx.Done():
		return fmt.Errorf("ctx err: %w", ctx.Err())
	}

	return nil
}

// Close gracefully closes the tcp listener associated with it.
func (e *Exporter) Close() (err error) {
	if e.listener == nil {
		return nil
	}

	e.log.Info("closing")
	if err := e.listener.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	return nil
}
