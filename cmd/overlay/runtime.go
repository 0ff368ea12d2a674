package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"overlay/internal/client"
	"overlay/internal/config"
	"overlay/internal/history"
	"overlay/internal/ipc"
	"overlay/internal/launcher"
	"overlay/internal/logging"
	"overlay/internal/metrics"
	"overlay/internal/namedevent"
	"overlay/internal/notifications"
	"overlay/internal/spawn"
)

// rendererRuntime wires a launcher and client for the configured renderer.
type rendererRuntime struct {
	cfg      *config.Config
	name     string
	logger   *slog.Logger
	launcher *launcher.Launcher
	client   *client.Client
	metrics  *metrics.Collector

	history       *history.Store
	metricsServer *metrics.Server
}

func newRendererRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, serveMetrics bool) (*rendererRuntime, error) {
	spawner, err := spawn.New(cfg)
	if err != nil {
		return nil, err
	}

	name := cfg.RendererName()
	dir := cfg.Renderer.RuntimeDir
	rt := &rendererRuntime{
		cfg:     cfg,
		name:    name,
		logger:  logger,
		metrics: metrics.NewCollector(),
	}

	opts := launcher.Options{
		Spawner: spawner,
		Events: namedevent.NewSource(func(name string) string {
			return ipc.NewEndpoint(dir, name).EventPath()
		}),
		Terminate: func(name string) (int, error) {
			return ipc.TerminateServer(ipc.NewEndpoint(dir, name))
		},
		Args:           rendererArgs(cfg),
		Reporter:       notifications.NewReporter(cfg),
		Metrics:        rt.metrics,
		Logger:         logger,
		SuppressErrors: cfg.Notifications.SuppressErrorDialog,
	}

	if path := cfg.HistoryPath(); path != "" {
		store, err := history.Open(path)
		if err != nil {
			logging.WarnWithContext(logger, "launch history unavailable", "history_open_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "launch attempts are not journaled"),
				logging.String(logging.FieldErrorHint, "check history.path or delete the journal to reset it"),
			)
		} else {
			rt.history = store
			opts.Recorder = store
		}
	}

	rt.launcher = launcher.New(opts)
	rt.client = client.New(client.Options{
		Name:          name,
		Path:          cfg.Renderer.Path,
		SkipPathCheck: cfg.Renderer.SkipPathCheck,
		Launcher:      rt.launcher,
		Channels:      ipc.Factory{Dir: dir},
		Metrics:       rt.metrics,
		Logger:        logger,
	})

	if serveMetrics && strings.TrimSpace(cfg.Metrics.Bind) != "" {
		server, err := metrics.Serve(ctx, cfg.Metrics.Bind, rt.metrics, logger)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("start metrics endpoint: %w", err)
		}
		rt.metricsServer = server
	}
	return rt, nil
}

// rendererArgs returns the command line builder handed to the launcher.
func rendererArgs(cfg *config.Config) func(name string) []string {
	return func(name string) []string {
		args := []string{"--name", name, "--runtime-dir", cfg.Renderer.RuntimeDir}
		return append(args, cfg.Renderer.Args...)
	}
}

// Close hides the renderer if it is showing, then joins the launch worker.
func (rt *rendererRuntime) Close() {
	if rt.client != nil {
		rt.client.Close()
	}
	if rt.launcher != nil {
		rt.launcher.Close()
	}
	if rt.metricsServer != nil {
		rt.metricsServer.Close()
	}
	if rt.history != nil {
		_ = rt.history.Close()
	}
}
