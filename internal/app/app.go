// Package app wires the world, simulation loop, persistence and network
// surfaces into a running server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"areacloud/effects/catalog"
	"areacloud/internal/cloud"
	servernet "areacloud/internal/net"
	"areacloud/internal/net/ws"
	"areacloud/internal/persist"
	"areacloud/internal/sim"
	"areacloud/internal/telemetry"
	"areacloud/internal/world"
	"areacloud/logging"
	loggingSinks "areacloud/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

// NewLogger builds the process logger from the configured level and format.
func NewLogger(level, format string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	if strings.EqualFold(format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if out == nil {
		out = os.Stdout
	}
	logger.SetOutput(out)
	return logger
}

// OpenStore constructs the snapshot store selected by cfg. The none backend
// returns a nil store.
func OpenStore(cfg Config) (persist.Store, error) {
	switch cfg.Store {
	case StoreNone, "":
		return nil, nil
	case StoreFile:
		store, err := persist.NewFileStore(cfg.StorePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoreRedis:
		return persist.NewRedisStore(cfg.Redis), nil
	default:
		return nil, fmt.Errorf("app: unknown store backend %q", cfg.Store)
	}
}

func buildSinks(cfg Config, logger *logrus.Logger) (map[string]logging.Sink, func(), error) {
	sinks := make(map[string]logging.Sink)
	cleanup := func() {}
	logCfg := logging.Config{EnabledSinks: cfg.LogSinks}
	if logCfg.HasSink("console") {
		sinks["console"] = loggingSinks.NewConsole(cfg.Output)
	}
	if logCfg.HasSink("logrus") {
		sinks["logrus"] = loggingSinks.NewLogrus(logger)
	}
	if logCfg.HasSink("json") {
		out := cfg.Output
		if cfg.LogJSONPath != "" {
			file, err := os.OpenFile(cfg.LogJSONPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return nil, cleanup, fmt.Errorf("app: open event log: %w", err)
			}
			out = file
			cleanup = func() { file.Close() }
		}
		sinks["json"] = loggingSinks.NewJSON(out, logging.DefaultConfig().JSON.FlushInterval)
	}
	return sinks, cleanup, nil
}

// Run serves until ctx is cancelled, then stops the loop and writes a final
// snapshot.
func Run(ctx context.Context, cfg Config) error {
	return run(ctx, cfg, nil)
}

func run(ctx context.Context, cfg Config, ready chan<- string) error {
	cfg = cfg.normalized()
	logger := NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.Output)

	sinks, closeSinks, err := buildSinks(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSinks()
	logConfig := logging.DefaultConfig()
	logConfig.EnabledSinks = cfg.LogSinks
	logConfig.MinimumSeverity = logging.ParseSeverity(cfg.LogLevel)
	router, err := logging.NewRouter(logConfig, logging.SystemClock{}, logger, sinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(context.Background()); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	kinds, err := catalog.Load(cfg.CatalogPaths...)
	if err != nil {
		return fmt.Errorf("failed to load effect catalog: %w", err)
	}

	store, err := OpenStore(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	metrics := telemetry.NewCounters()
	w := world.New(world.Config{
		Kinds:     kinds,
		Publisher: router,
		Metrics:   metrics,
		OnCloudPhase: func(c *cloud.Cloud, phase cloud.Phase) {
			logger.WithField("cloud", c.ID().String()).Debugf("cloud entered %s", phase)
		},
	})
	if store != nil {
		if err := w.Load(ctx, store, cfg.SnapshotKey); err != nil {
			if errors.Is(err, persist.ErrNotFound) {
				logger.Printf("no snapshot %q, starting empty", cfg.SnapshotKey)
			} else {
				logger.Printf("failed to restore snapshot, starting empty: %v", err)
			}
		}
	}

	var hub *ws.Hub
	var saveEvery uint64
	loop := sim.NewLoop(w, sim.LoopConfig{TickRate: cfg.TickRate}, sim.LoopHooks{
		AfterStep: func(ctx context.Context, result sim.StepResult) {
			hub.Publish(ctx, w)
			if store != nil && saveEvery > 0 && result.Tick%saveEvery == 0 {
				if err := w.Save(ctx, store, cfg.SnapshotKey); err != nil {
					logger.Printf("autosave failed: %v", err)
				}
			}
		},
		OnCommandError: func(cmd sim.Command, err error) {
			logger.WithField("command", string(cmd.Type)).Warnf("command rejected: %v", err)
		},
	}, sim.LoopDeps{Logger: logger, Metrics: metrics, Publisher: router})
	if cfg.SaveInterval > 0 {
		saveEvery = uint64(cfg.SaveInterval / loop.Interval())
	}
	hub = ws.NewHub(ws.HubConfig{Logger: logger, Metrics: metrics, Publisher: router, Commands: loop})

	if cfg.Demo {
		for _, cmd := range DemoCommands() {
			if err := loop.Enqueue(cmd); err != nil {
				logger.Printf("failed to stage demo command: %v", err)
			}
		}
	}

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		Logger:   logger,
		Commands: loop,
		Metrics:  metrics,
		TickRate: cfg.TickRate,
	})
	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddr, err)
	}
	srv := &http.Server{Handler: handler}
	logger.Printf("server listening on %s", listener.Addr())
	if ready != nil {
		ready <- listener.Addr().String()
	}

	loopCtx, stopLoop := context.WithCancel(ctx)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		loop.Run(loopCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(listener)
	}()

	var result error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			result = fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	hub.Close(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("http shutdown: %v", err)
	}
	stopLoop()
	<-loopDone

	if store != nil {
		if err := w.Save(shutdownCtx, store, cfg.SnapshotKey); err != nil {
			logger.Printf("final save failed: %v", err)
			if result == nil {
				result = err
			}
		}
	}
	return result
}
