package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AlexanderHott/rocksdb-memtable-switching/config"
	"github.com/AlexanderHott/rocksdb-memtable-switching/coordinator"
	"github.com/AlexanderHott/rocksdb-memtable-switching/engine"
	"github.com/AlexanderHott/rocksdb-memtable-switching/hooks"
	"github.com/AlexanderHott/rocksdb-memtable-switching/hooks/listeners"
	"github.com/AlexanderHott/rocksdb-memtable-switching/internal/metrics"
	"github.com/AlexanderHott/rocksdb-memtable-switching/memtable"
	"github.com/AlexanderHott/rocksdb-memtable-switching/negotiation"
	"github.com/AlexanderHott/rocksdb-memtable-switching/workload"
)

// createLogger creates a slog.Logger based on the provided configuration.
func createLogger(cfg config.LoggingConfig) (*slog.Logger, io.Closer, error) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, nil, fmt.Errorf("invalid log level: %s", cfg.Level)
	}

	var output io.Writer
	var closer io.Closer
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		output = os.Stdout
	case "file":
		if cfg.File == "" {
			return nil, nil, fmt.Errorf("log output is 'file' but no file path is specified")
		}
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
		}
		output = file
		closer = file
	case "none":
		output = io.Discard
	default:
		return nil, nil, fmt.Errorf("invalid log output: %s", cfg.Output)
	}

	logger := slog.New(slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level}))
	return logger, closer, nil
}

func run() error {
	configPath := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, logCloser, err := createLogger(cfg.Logging)
	if err != nil {
		return err
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	kind, err := memtable.ParseKind(cfg.Engine.Memtable.Kind)
	if err != nil {
		return fmt.Errorf("invalid initial memtable kind: %w", err)
	}

	hookMgr := hooks.NewHookManager(logger)
	eventLog := listeners.NewEventLogListener(logger)
	hookMgr.Register(hooks.EventOperationComplete, eventLog)
	hookMgr.Register(hooks.EventMemtableSwitch, eventLog)

	gate := &coordinator.Gate{}
	eng, err := engine.New(engine.Options{
		Kind:               kind,
		Param:              cfg.Engine.Memtable.Param,
		SizeThresholdBytes: cfg.Engine.Memtable.SizeThresholdBytes,
		WindowCapacity:     cfg.Engine.WindowCapacity,
		Gate:               gate,
		HookManager:        hookMgr,
		Logger:             logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			logger.Info("Serving metrics", "address", cfg.Metrics.ListenAddress)
			if err := http.ListenAndServe(cfg.Metrics.ListenAddress, mux); err != nil {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
	}

	// The engine side owns the negotiation endpoint; the decider connects
	// to it.
	if cfg.Coordinator.Network == "unix" {
		os.Remove(cfg.Coordinator.Endpoint)
	}
	listener, err := negotiation.Listen(cfg.Coordinator.Network, cfg.Coordinator.Endpoint)
	if err != nil {
		return err
	}
	defer listener.Close()

	logger.Info("Waiting for decider to connect", "endpoint", cfg.Coordinator.Endpoint)
	channel, err := listener.Accept()
	if err != nil {
		return err
	}

	coord := coordinator.New(channel, eng.Window(), eng.Counter(), eng.Handle(), hookMgr, logger, coordinator.Options{
		PollInterval:   config.ParseDuration(cfg.Coordinator.PollInterval, coordinator.DefaultPollInterval, logger),
		Watermark:      cfg.Coordinator.Watermark,
		ReceiveTimeout: config.ParseDuration(cfg.Coordinator.ReceiveTimeout, coordinator.DefaultReceiveTimeout, logger),
		Gate:           flushGate(gate, cfg.Coordinator.RequireFlush),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The coordinator loop gets its own cancellation so the workload
	// completing (not just a signal) stops the session.
	coordCtx, cancelCoord := context.WithCancel(ctx)
	defer cancelCoord()

	if err := coord.Start(coordCtx); err != nil {
		return fmt.Errorf("coordinator handshake failed: %w", err)
	}
	// Ingestion must not start before the decision process is ready.
	if err := eng.WaitReady(ctx, coord.Ready()); err != nil {
		return fmt.Errorf("interrupted before decider became ready: %w", err)
	}
	logger.Info("Decider ready, starting workload")

	g, gctx := errgroup.WithContext(ctx)
	for _, path := range flag.Args() {
		path := path
		g.Go(func() error {
			started := time.Now()
			ops, err := workload.ParseFile(path)
			if err != nil {
				return err
			}
			if err := workload.Run(gctx, eng, ops); err != nil {
				return err
			}
			logger.Info("Workload complete", "path", path, "operations", len(ops), "elapsed", time.Since(started))
			return nil
		})
	}
	runErr := g.Wait()

	cancelCoord()
	if err := coord.Wait(); err != nil {
		logger.Error("Coordinator session ended abnormally", "error", err)
	}
	hookMgr.Stop()

	if err := eventLog.WriteFile(cfg.Benchmark.EventLogPath); err != nil {
		return err
	}
	logger.Info("Wrote event log", "path", cfg.Benchmark.EventLogPath, "events", eventLog.Len())

	return runErr
}

func flushGate(gate *coordinator.Gate, required bool) *coordinator.Gate {
	if !required {
		return nil
	}
	return gate
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bench: %v\n", err)
		os.Exit(1)
	}
}
