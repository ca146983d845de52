// Command execd is the executor daemon (spec §6.7): it owns the event
// store, artifact store, session registry, policy bundle, and executor
// engine for every session, and serves them over HTTP (pkg/httpapi).
//
// Grounded on the teacher's cmd/sub dispatcher for flag handling style
// (flag.NewFlagSet, required-flag validation, os.Stderr usage errors) —
// kept as stdlib flag rather than Cobra, since a single daemon binary with
// a flat flag set doesn't need a command tree the way cmd/execctl does.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/codesdk/execd/pkg/adapter"
	"github.com/codesdk/execd/pkg/artifact"
	"github.com/codesdk/execd/pkg/eventstore"
	"github.com/codesdk/execd/pkg/executor"
	"github.com/codesdk/execd/pkg/hostexec"
	"github.com/codesdk/execd/pkg/httpapi"
	"github.com/codesdk/execd/pkg/metrics"
	"github.com/codesdk/execd/pkg/policy"
	"github.com/codesdk/execd/pkg/runtimeenv"
	"github.com/codesdk/execd/pkg/session"
	"github.com/codesdk/execd/pkg/testharness"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

type config struct {
	host               string
	port               int
	dataDir            string
	runtimes           string
	defaultRuntime     string
	defaultPermMode    string
	workspaceRoot      string
	policyFile         string
	rateLimitPerSecond float64
	rateBurst          int
	maxInflightTasks   int
}

func parseFlags(args []string) (*config, error) {
	flags := flag.NewFlagSet("execd", flag.ContinueOnError)
	flags.SetOutput(os.Stderr)

	cfg := &config{}
	flags.StringVar(&cfg.host, "host", "127.0.0.1", "address to listen on")
	flags.IntVar(&cfg.port, "port", 0, "port to listen on (0 = ephemeral)")
	flags.StringVar(&cfg.dataDir, "data-dir", "", "directory for persisted event/artifact/runtime-env state (required)")
	flags.StringVar(&cfg.runtimes, "runtimes", "mock", "comma-separated list of runtime adapter names to register")
	flags.StringVar(&cfg.defaultRuntime, "default-runtime", "mock", "runtime used when a session doesn't name one")
	flags.StringVar(&cfg.defaultPermMode, "default-permission-mode", "auto", "one of auto, ask, yolo")
	flags.StringVar(&cfg.workspaceRoot, "workspace-root", "", "default task working directory")
	flags.StringVar(&cfg.policyFile, "policy-file", "", "YAML file of default policy overrides")
	flags.Float64Var(&cfg.rateLimitPerSecond, "rate-limit", 20, "per-client requests/second (0 disables)")
	flags.IntVar(&cfg.rateBurst, "rate-burst", 40, "per-client token bucket burst size")
	flags.IntVar(&cfg.maxInflightTasks, "max-inflight-tasks", 64, "daemon-wide concurrent task cap")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if cfg.dataDir == "" {
		return nil, fmt.Errorf("--data-dir is required")
	}
	switch policy.Mode(cfg.defaultPermMode) {
	case policy.ModeAuto, policy.ModeAsk, policy.ModeYolo:
	default:
		return nil, fmt.Errorf("--default-permission-mode must be one of auto, ask, yolo, got %q", cfg.defaultPermMode)
	}
	return cfg, nil
}

func run(args []string) int {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := parseFlags(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "execd: %v\n", err)
		return 1
	}

	if err := os.MkdirAll(cfg.dataDir, 0o700); err != nil {
		slog.Error("create data dir", "error", err)
		return 1
	}

	events, err := eventstore.NewSQLiteStore(filepath.Join(cfg.dataDir, "events.db"))
	if err != nil {
		slog.Error("open event store", "error", err)
		return 1
	}
	defer events.Close()

	artifacts, err := artifact.NewFileStore(filepath.Join(cfg.dataDir, "artifacts"))
	if err != nil {
		slog.Error("open artifact store", "error", err)
		return 1
	}

	runtimeEnv, err := runtimeenv.NewBuilder(filepath.Join(cfg.dataDir, "runtime-env"))
	if err != nil {
		slog.Error("build runtime-env builder", "error", err)
		return 1
	}

	bundle, err := policy.NewBundleLoader(cfg.policyFile)
	if err != nil {
		slog.Error("load policy bundle", "error", err)
		return 1
	}

	sessions := session.NewRegistry()
	adapters, err := buildAdapters(strings.Split(cfg.runtimes, ","))
	if err != nil {
		slog.Error("build runtime adapters", "error", err)
		return 1
	}

	promMetrics := metrics.New(prometheus.DefaultRegisterer)

	engine := executor.New(executor.Config{
		Events:       events,
		Artifacts:    artifacts,
		Adapters:     adapters,
		ToolExecutor: hostexec.New(hostexec.Registry{}),
		RuntimeEnv:   runtimeEnv,
		Bundle:       bundle,
		Metrics:      promMetrics,
	})

	srv := httpapi.New(httpapi.Config{
		Engine:                engine,
		Events:                events,
		Artifacts:             artifacts,
		Sessions:              sessions,
		Adapters:              adapters,
		Metrics:               promMetrics,
		DefaultRuntime:        cfg.defaultRuntime,
		DefaultPermissionMode: policy.Mode(cfg.defaultPermMode),
		DefaultWorkspaceRoot:  cfg.workspaceRoot,
		RateLimit:             rate.Limit(cfg.rateLimitPerSecond),
		RateBurst:             cfg.rateBurst,
		MaxInflightTasks:      cfg.maxInflightTasks,
	})

	listener, err := net.Listen("tcp", net.JoinHostPort(cfg.host, fmt.Sprintf("%d", cfg.port)))
	if err != nil {
		slog.Error("listen", "error", err)
		return 1
	}

	httpServer := &http.Server{Handler: srv.Router()}
	serveErr := make(chan error, 1)
	go func() { serveErr <- httpServer.Serve(listener) }()

	slog.Info("execd listening", "addr", listener.Addr().String(), "data_dir", cfg.dataDir, "runtimes", cfg.runtimes)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown", "error", err)
		}
		return 130
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("serve", "error", err)
			return 1
		}
		return 0
	}
}

// buildAdapters registers one adapter per requested runtime name. Only
// "mock" is built in today — a scriptable loopback runtime good enough for
// smoke-testing the daemon end to end without a real backend credential;
// real Claude-/Codex-style backends implement the same pkg/adapter.Adapter
// contract as a separate binary-specific wiring this command doesn't own.
func buildAdapters(names []string) (map[string]adapter.Adapter, error) {
	out := make(map[string]adapter.Adapter, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		switch name {
		case "mock":
			out[name] = testharness.NewMockAdapter("external_mcp", nil)
		default:
			return nil, fmt.Errorf("unknown runtime %q (only \"mock\" is built in)", name)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("--runtimes must name at least one runtime")
	}
	return out, nil
}
