package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"dowexporter/pkg/collector"
	"dowexporter/pkg/dow"
	"dowexporter/pkg/exporter"
	"dowexporter/pkg/marketstack"
	"dowexporter/pkg/poller"
	"dowexporter/pkg/pricestore"
)

// apiKeyEnvVar holds the MarketStack access key. Required - the process
// refuses to start without it.
const apiKeyEnvVar = "DATASOURCE_API_KEY"

type command struct {
	collectionInterval int
	listenPort         int
	logLevel           string
	telemetryPath      string
	datasourceURL      string
}

func (c *command) Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use: "dow-exporter",
		Short: "Prometheus exporter for Dow Jones Industrial " +
			"Average component share prices",
		RunE:         c.RunE,
		SilenceUsage: true,
	}

	// sub-15m intervals require a more advanced MarketStack
	// subscription tier, hence the tall default.
	cmd.Flags().IntVar(&c.collectionInterval, "collection-interval",
		900, "frequency at which to update share prices, in seconds")

	cmd.Flags().IntVar(&c.listenPort, "listen-port",
		9927, "port that prometheus will connect to and scrape "+
			"metrics from")

	cmd.Flags().StringVar(&c.logLevel, "log-level",
		"INFO", "log level "+
			"(NOTSET|DEBUG|INFO|WARN|ERROR|CRITICAL)")

	cmd.Flags().StringVar(&c.telemetryPath, "telemetry-path",
		"/metrics", "endpoint at which prometheus metrics are served")

	cmd.Flags().StringVar(&c.datasourceURL, "datasource-url",
		marketstack.DefaultBaseURL, "base url of the marketstack api")

	return cmd
}

func (c *command) RunE(_ *cobra.Command, _ []string) error {
	if c.collectionInterval <= 0 {
		return fmt.Errorf("collection-interval must be positive, "+
			"got %d", c.collectionInterval)
	}

	if c.listenPort <= 0 || c.listenPort > 65535 {
		return fmt.Errorf("listen-port must be a valid tcp port, "+
			"got %d", c.listenPort)
	}

	log, err := newLogger(c.logLevel)
	if err != nil {
		return fmt.Errorf("new logger: %w", err)
	}

	apiKey := os.Getenv(apiKeyEnvVar)
	if apiKey == "" {
		return fmt.Errorf("environment variable %s is required "+
			"to proceed", apiKeyEnvVar)
	}

	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := marketstack.NewClient(apiKey,
		marketstack.WithBaseURL(c.datasourceURL),
	)
	if err != nil {
		return fmt.Errorf("new client: %w", err)
	}

	store := pricestore.New()

	registry := prometheus.NewRegistry()
	if err := collector.Register(registry, store); err != nil {
		return fmt.Errorf("collector register: %w", err)
	}

	pricePoller, err := poller.New(client, store, dow.Components,
		time.Duration(c.collectionInterval)*time.Second,
		poller.WithLogger(log.WithName("poller")),
	)
	if err != nil {
		return fmt.Errorf("new poller: %w", err)
	}

	prometheusExporter, err := exporter.New(
		exporter.WithBindAddress(fmt.Sprintf(":%d", c.listenPort)),
		exporter.WithTelemetryPath(c.telemetryPath),
		exporter.WithGatherer(registry),
		exporter.WithLogger(log.WithName("exporter")),
	)
	if err != nil {
		return fmt.Errorf("new exporter: %w", err)
	}
	defer prometheusExporter.Close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return pricePoller.Run(ctx)
	})

	g.Go(func() error {
		return prometheusExporter.Run(ctx)
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run: %w", err)
	}

	return nil
}

// newLogger builds a logr.Logger backed by zap at the requested level.
func newLogger(level string) (logr.Logger, error) {
	zapLevel, err := parseLogLevel(level)
	if err != nil {
		return logr.Logger{}, err
	}

	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	zapLogger, err := config.Build()
	if err != nil {
		return logr.Logger{}, fmt.Errorf("zap build: %w", err)
	}

	return zapr.NewLogger(zapLogger), nil
}

// parseLogLevel maps the python-style level names onto zap thresholds.
// NOTSET lets everything through; CRITICAL only fatal entries.
func parseLogLevel(level string) (zapcore.Level, error) {
	switch strings.ToUpper(level) {
	case "NOTSET", "DEBUG":
		return zapcore.DebugLevel, nil
	case "INFO":
		return zapcore.InfoLevel, nil
	case "WARN", "WARNING":
		return zapcore.WarnLevel, nil
	case "ERROR":
		return zapcore.ErrorLevel, nil
	case "CRITICAL":
		return zapcore.FatalLevel, nil
	}

	return zapcore.InvalidLevel, fmt.Errorf(
		"unknown log level '%s'", level)
}
