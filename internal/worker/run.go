package worker

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/go-grader/internal/configuration"
	"github.com/ahrav/go-grader/internal/grading"
	"github.com/ahrav/go-grader/internal/reportstore"
	"github.com/ahrav/go-grader/pkg/events"
)

// Setup builds the worker dependencies from configuration: the grader
// catalog from the registry and, when Redis is enabled, the circuit-guarded
// report store and the event stream. The returned cleanup closes any opened
// connection.
func Setup(ctx context.Context, cfg *configuration.Config, registry *grading.Registry, logger *slog.Logger) (Dependencies, func(), error) {
	catalog, err := registry.BuildCatalog(cfg.Grading.Graders, grading.WithLogger(logger.With("component", "grader")))
	if err != nil {
		return Dependencies{}, nil, fmt.Errorf("failed to build graders: %w", err)
	}
	deps := Dependencies{Catalog: catalog, Sink: events.NewNoOpEventSink()}

	if !cfg.Redis.Enabled {
		logger.Warn("Redis disabled, reports will not be persisted")
		return deps, func() {}, nil
	}

	rdb, err := reportstore.NewClient(ctx, reportstore.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return Dependencies{}, nil, err
	}
	deps.Store = reportstore.NewBreaker(reportstore.New(rdb, cfg.Redis.ReportTTL), reportstore.BreakerConfig{
		FailureThreshold: cfg.Redis.BreakerFailures,
		OpenTimeout:      cfg.Redis.BreakerOpenTimeout,
	})
	deps.Sink = reportstore.NewStreamSink(rdb, cfg.Redis.EventStream)

	return deps, func() { _ = rdb.Close() }, nil
}

// Run connects to Temporal and processes grading tasks until interrupted.
func Run(ctx context.Context, cfg *configuration.Config, registry *grading.Registry, logger *slog.Logger) error {
	deps, cleanup, err := Setup(ctx, cfg, registry, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    log.NewStructuredLogger(logger),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to temporal at %s: %w", cfg.Temporal.HostPort, err)
	}
	defer c.Close()

	w := sdkworker.New(c, cfg.Temporal.TaskQueue, sdkworker.Options{})
	RegisterAll(w, deps)

	logger.Info("Starting grading worker",
		"task_queue", cfg.Temporal.TaskQueue,
		"namespace", cfg.Temporal.Namespace,
		"graders", deps.Catalog.Len())

	if err := w.Run(sdkworker.InterruptCh()); err != nil {
		return fmt.Errorf("worker stopped: %w", err)
	}
	return nil
}
