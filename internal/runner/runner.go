package runner

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/mrzor/bbgraph/internal/dataset"
	"github.com/mrzor/bbgraph/internal/metrics"
	"github.com/mrzor/bbgraph/internal/output"
	"github.com/mrzor/bbgraph/internal/procgraph"
	"github.com/mrzor/bbgraph/internal/procmeta"
	"github.com/mrzor/bbgraph/internal/selector"
	"github.com/mrzor/bbgraph/internal/threadtrace"
	"github.com/mrzor/bbgraph/internal/trace"
)

// Pipeline stages, used as span names and metric labels.
const (
	StageLoadNodes = "load_nodes"
	StageLoadTrace = "load_trace"
	StageBuild     = "build"
	StageSelect    = "select"
	StageWrite     = "write"
)

// Runner coordinates the per-process pipeline.
type Runner struct {
	logger      log.Logger
	tracer      oteltrace.Tracer
	writer      output.Writer
	selector    *selector.Selector
	meta        *procmeta.Manager
	metrics     *metrics.Metrics
	concurrency int
}

// New creates a runner. A concurrency below 1 means runtime.NumCPU().
func New(
	logger log.Logger,
	tracer oteltrace.Tracer,
	writer output.Writer,
	sel *selector.Selector,
	meta *procmeta.Manager,
	m *metrics.Metrics,
	concurrency int,
) *Runner {
	if concurrency < 1 {
		concurrency = runtime.NumCPU()
	}
	return &Runner{
		logger:      log.With(logger, "component", "runner"),
		tracer:      tracer,
		writer:      writer,
		selector:    sel,
		meta:        meta,
		metrics:     m,
		concurrency: concurrency,
	}
}

// Run builds and writes every process. The first failure cancels the
// processes still running and is returned.
func (r *Runner) Run(ctx context.Context, procs []dataset.Process) error {
	ctx, span := r.tracer.Start(ctx, "run", oteltrace.WithAttributes(
		attribute.Int("bbgraph.processes", len(procs)),
		attribute.Int("bbgraph.concurrency", r.concurrency),
		attribute.String("bbgraph.select", r.selector.String()),
	))
	defer span.End()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, p := range procs {
		p := p
		g.Go(func() error {
			return r.process(ctx, p)
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (r *Runner) process(ctx context.Context, p dataset.Process) (err error) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "process", oteltrace.WithAttributes(
		attribute.Int("bbgraph.pid", p.PID),
		attribute.String("bbgraph.trace_path", p.TracePath),
	))
	r.meta.Set(p.PID, &procmeta.ProcessMetadata{})
	defer func() {
		r.meta.Update(p.PID, func(md *procmeta.ProcessMetadata) {
			md.Duration = time.Since(start)
		})
		r.metrics.ObserveProcess(err)
		if err != nil {
			r.meta.SetError(p.PID, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	logger := log.With(r.logger, "pid", p.PID)
	level.Debug(logger).Log("msg", "processing", "nodes", p.BBPath, "trace", p.TracePath)

	var (
		nodes    []trace.BasicBlock
		events   []trace.Event
		graph    *procgraph.Graph
		selected []*threadtrace.Thread
	)

	if err := r.stage(ctx, p.PID, StageLoadNodes, func(ctx context.Context) (err error) {
		nodes, err = dataset.LoadBasicBlocks(ctx, p.BBPath)
		return err
	}); err != nil {
		return err
	}
	r.meta.Update(p.PID, func(md *procmeta.ProcessMetadata) { md.Nodes = len(nodes) })

	if err := r.stage(ctx, p.PID, StageLoadTrace, func(ctx context.Context) (err error) {
		events, err = dataset.LoadTrace(ctx, p.TracePath)
		return err
	}); err != nil {
		return err
	}
	r.meta.Update(p.PID, func(md *procmeta.ProcessMetadata) { md.Events = len(events) })

	if err := r.stage(ctx, p.PID, StageBuild, func(context.Context) error {
		graph = procgraph.Build(p.PID, nodes, events)
		return nil
	}); err != nil {
		return err
	}
	var md procmeta.ProcessMetadata
	r.meta.Update(p.PID, func(m *procmeta.ProcessMetadata) {
		m.Summarize(graph)
		md = *m
	})
	r.metrics.ObserveGraph(md.Events, md.Sentinels, md.Threads)

	for _, issue := range Check(graph) {
		r.meta.AddIssue(p.PID, issue)
		level.Warn(logger).Log("msg", issue)
	}

	if err := r.stage(ctx, p.PID, StageSelect, func(context.Context) (err error) {
		selected, err = r.selector.Select(p.PID, graph.Threads)
		return err
	}); err != nil {
		return err
	}
	r.meta.Update(p.PID, func(m *procmeta.ProcessMetadata) {
		m.CountSelected(selected)
		md = *m
	})

	if err := r.stage(ctx, p.PID, StageWrite, func(ctx context.Context) error {
		return r.writer.WriteGraph(ctx, graph, selected)
	}); err != nil {
		return err
	}
	r.metrics.ObserveExport(md.Selected, md.Links, md.Occurrences)

	level.Info(logger).Log(
		"msg", "process built",
		"events", humanize.Comma(int64(md.Events)),
		"threads", md.Threads,
		"selected", md.Selected,
		"links", humanize.Comma(int64(md.Links)),
		"occurrences", humanize.Comma(int64(md.Occurrences)),
		"duration", time.Since(start),
	)
	return nil
}

// stage runs fn inside a span and records its duration.
func (r *Runner) stage(ctx context.Context, pid int, name string, fn func(context.Context) error) error {
	ctx, span := r.tracer.Start(ctx, name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	r.metrics.ObserveStage(name, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("pid %d: %s: %w", pid, name, err)
	}
	return nil
}

// Check reports threads without events between sentinels and links whose
// endpoints are missing from the node table. Neither stops the export.
func Check(g *procgraph.Graph) []string {
	known := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		known[n.ID] = struct{}{}
	}

	var issues []string
	for _, th := range g.Threads {
		if len(th.Events) == th.Sentinels() {
			issues = append(issues, fmt.Sprintf("thread %s recorded only sentinels", th.Key))
		}
		if len(known) == 0 {
			continue
		}
		missing := 0
		for _, l := range th.Links {
			if !hasNode(known, l.Source) || !hasNode(known, l.Target) {
				missing++
			}
		}
		if missing > 0 {
			issues = append(issues, fmt.Sprintf("thread %s: %d links reference unknown basic blocks", th.Key, missing))
		}
	}
	return issues
}

func hasNode(known map[string]struct{}, idx int64) bool {
	_, ok := known[strconv.FormatInt(idx, 10)]
	return ok
}
