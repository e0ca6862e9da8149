// bbgraph builds per-thread weighted control-flow graphs from basic-block traces.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mrzor/bbgraph/internal/config"
	"github.com/mrzor/bbgraph/internal/dataset"
	"github.com/mrzor/bbgraph/internal/logger"
	"github.com/mrzor/bbgraph/internal/metrics"
	"github.com/mrzor/bbgraph/internal/otel"
	"github.com/mrzor/bbgraph/internal/output"
	"github.com/mrzor/bbgraph/internal/procmeta"
	"github.com/mrzor/bbgraph/internal/runner"
	"github.com/mrzor/bbgraph/internal/selector"
)

// Version information injected by GoReleaser at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	envCfg, err := config.ParseEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	cfg, err := config.ParseArgs(os.Args, envCfg, os.Stderr)
	if errors.Is(err, config.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	if cfg.ShowVersion {
		fmt.Printf("bbgraph %s (commit: %s, built: %s)\n", version, commit, date)
		return 0
	}

	l := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, "bbgraph")
	level.Debug(l).Log("msg", "starting bbgraph", "version", version, "commit", commit, "built", date)

	if err := build(l, cfg); err != nil {
		level.Error(l).Log("msg", "build failed", "err", err)
		return 1
	}
	return 0
}

// setupOTEL initializes the OTEL provider and returns it with a cleanup function.
func setupOTEL(ctx context.Context, l log.Logger, otelCfg *config.OTELConfig) (*otel.Provider, func(), error) {
	versionInfo := fmt.Sprintf("%s (%s)", version, commit)
	provider, err := otel.InitProvider(ctx, l, otelCfg, versionInfo)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize OTEL provider: %w", err)
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			level.Warn(l).Log("msg", "error shutting down OTEL provider", "err", err)
		}
	}
	return provider, cleanup, nil
}

// processes resolves the requested PIDs, or every complete process in the
// trace directory.
func processes(l log.Logger, cfg *config.Config) ([]dataset.Process, error) {
	if len(cfg.PIDs) > 0 {
		procs := make([]dataset.Process, 0, len(cfg.PIDs))
		for _, pid := range cfg.PIDs {
			p, err := dataset.Lookup(cfg.TraceDir, pid)
			if err != nil {
				return nil, err
			}
			procs = append(procs, p)
		}
		return procs, nil
	}

	procs, orphans, err := dataset.Discover(cfg.TraceDir)
	if err != nil {
		return nil, err
	}
	for _, pid := range orphans {
		level.Warn(l).Log("msg", "skipping process with an incomplete table pair", "pid", pid)
	}
	if len(procs) == 0 {
		return nil, fmt.Errorf("no process tables found in %s", cfg.TraceDir)
	}
	return procs, nil
}

func build(l log.Logger, cfg *config.Config) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sel, err := selector.New(cfg.Select)
	if err != nil {
		return err
	}

	procs, err := processes(l, cfg)
	if err != nil {
		return err
	}

	otelCfg, err := config.ParseOTELConfig()
	if err != nil {
		return err
	}
	provider, cleanupOTEL, err := setupOTEL(ctx, l, otelCfg)
	if err != nil {
		return err
	}
	defer cleanupOTEL()

	ctx, warnings := otel.ParentContext(ctx, cfg.TraceID, cfg.ParentID, otelCfg.TraceParent)
	for _, w := range warnings {
		level.Warn(l).Log("msg", w)
	}

	w, err := output.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output: %w", cerr)
		}
	}()

	m := metrics.New(prometheus.NewRegistry())
	if cfg.MetricsFile != "" {
		defer func() {
			if werr := m.WriteTextfile(cfg.MetricsFile); werr != nil {
				level.Warn(l).Log("msg", "failed to write metrics", "err", werr)
			}
		}()
	}

	meta := procmeta.NewManager()
	r := runner.New(l, provider.Tracer(), w, sel, meta, m, cfg.Concurrency)

	start := time.Now()
	level.Info(l).Log(
		"msg", "building graphs",
		"processes", len(procs),
		"concurrency", cfg.Concurrency,
		"select", sel.String(),
		"out", cfg.Out,
	)
	runErr := r.Run(ctx, procs)

	var events, links, failed, issues int
	for _, pid := range meta.PIDs() {
		md, _ := meta.Get(pid)
		events += md.Events
		links += md.Links
		if meta.GetError(pid) != nil {
			failed++
		}
		issues += len(meta.GetIssues(pid))
	}
	level.Info(l).Log(
		"msg", "done",
		"processes", len(procs),
		"failed", failed,
		"issues", issues,
		"events", humanize.Comma(int64(events)),
		"links", humanize.Comma(int64(links)),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return runErr
}
