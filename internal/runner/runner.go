package runner

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/vk/tablegrid/internal/cache"
	"github.com/vk/tablegrid/internal/ctxlog"
	"github.com/vk/tablegrid/internal/engine"
	"github.com/vk/tablegrid/internal/errdefs"
	"github.com/vk/tablegrid/internal/frame"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultIterationVar is the injectable the current iteration value is
// registered under.
const DefaultIterationVar = "year"

// Snapshot tags that are not iteration values.
const (
	TagBase  = "base"
	TagFinal = "final"
)

const tracerName = "github.com/vk/tablegrid/internal/runner"

// Writer persists one table of a snapshot. path is the run's persistence
// location, tag names the snapshot.
type Writer interface {
	Write(ctx context.Context, path, tag, table string, data *frame.Frame) error
}

// Config describes one run.
type Config struct {
	// Steps run in order within every iteration.
	Steps []string
	// Iterations are the values injected under IterationVar. When empty the
	// steps run once with the variable set to nil.
	Iterations []int
	// IterationVar defaults to DefaultIterationVar.
	IterationVar string
	// PersistTo enables snapshots when set.
	PersistTo string
	// PersistEvery writes an iteration snapshot every n iterations.
	PersistEvery int
}

// Snapshot records the tables written under one tag.
type Snapshot struct {
	Tag    string
	Tables []string
}

// Result summarises a finished run.
type Result struct {
	RunID      string
	Iterations int
	Snapshots  []Snapshot
	Duration   time.Duration
}

// Runner executes steps registered on an engine.
type Runner struct {
	engine *engine.Engine
	writer Writer
	tracer trace.Tracer
}

// Option configures a Runner.
type Option func(*Runner)

// WithWriter sets the snapshot writer.
func WithWriter(w Writer) Option {
	return func(r *Runner) { r.writer = w }
}

// WithTracerProvider sets where spans go. The global provider is used
// otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Runner) { r.tracer = tp.Tracer(tracerName) }
}

// New creates a Runner for e.
func New(e *engine.Engine, opts ...Option) *Runner {
	r := &Runner{engine: e, tracer: otel.Tracer(tracerName)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (c Config) validate(e *engine.Engine, hasWriter bool) error {
	if len(c.Steps) == 0 {
		return errdefs.Validationf("steps", "at least one step is required")
	}
	for _, s := range c.Steps {
		if _, err := e.Step(s); err != nil {
			return err
		}
	}
	if c.PersistTo != "" {
		if c.PersistEvery < 1 {
			return errdefs.Validationf("persist_every", "must be positive, got %d", c.PersistEvery)
		}
		if !hasWriter {
			return errdefs.Validationf("persist_to", "no snapshot writer configured")
		}
	}
	return nil
}

// Run executes cfg. A failing step aborts the run; tables changed by earlier
// steps keep their state. The iteration variable's previous registration
// is restored afterwards.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.validate(r.engine, r.writer != nil); err != nil {
		return nil, fmt.Errorf("invalid run configuration: %w", err)
	}
	if cfg.IterationVar == "" {
		cfg.IterationVar = DefaultIterationVar
	}

	res := &Result{RunID: uuid.NewString()}
	logger := ctxlog.FromContext(ctx).With("run_id", res.RunID)
	ctx = ctxlog.WithLogger(ctx, logger)

	ctx, span := r.tracer.Start(ctx, "runner.Run", trace.WithAttributes(
		attribute.String("run.id", res.RunID),
		attribute.StringSlice("run.steps", cfg.Steps),
		attribute.Int("run.iterations", len(cfg.Iterations)),
	))
	defer span.End()

	start := time.Now()
	logger.Info("🚀 Starting run.", "steps", cfg.Steps, "iterations", len(cfg.Iterations))

	err := r.engine.WithInjectables(map[string]any{cfg.IterationVar: nil}, func() error {
		return r.loop(ctx, cfg, res)
	})
	res.Duration = time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	span.SetStatus(codes.Ok, "")
	logger.Info("🏁 Run finished.", "iterations", res.Iterations, "snapshots", len(res.Snapshots), "duration", res.Duration)
	return res, nil
}

func (r *Runner) loop(ctx context.Context, cfg Config, res *Result) error {
	var tables []string
	if cfg.PersistTo != "" {
		var err error
		if tables, err = r.tablesUsed(cfg.Steps); err != nil {
			return err
		}
	}

	passes := len(cfg.Iterations)
	if passes == 0 {
		passes = 1
	}
	for i := 0; i < passes; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var value any
		tag := ""
		if len(cfg.Iterations) > 0 {
			value = cfg.Iterations[i]
			tag = strconv.Itoa(cfg.Iterations[i])
		}
		if err := r.engine.AddInjectable(cfg.IterationVar, value); err != nil {
			return err
		}

		if i == 0 && cfg.PersistTo != "" {
			if err := r.snapshot(ctx, cfg.PersistTo, TagBase, tables, res); err != nil {
				return err
			}
		}
		if err := r.iteration(ctx, cfg, i, value); err != nil {
			return err
		}
		res.Iterations++

		if cfg.PersistTo != "" && tag != "" && i%cfg.PersistEvery == 0 {
			if err := r.snapshot(ctx, cfg.PersistTo, tag, tables, res); err != nil {
				return err
			}
		}
		r.engine.ClearScope(cache.ScopeIteration)
	}

	if cfg.PersistTo != "" {
		return r.snapshot(ctx, cfg.PersistTo, TagFinal, tables, res)
	}
	return nil
}

func (r *Runner) iteration(ctx context.Context, cfg Config, i int, value any) error {
	ctx, span := r.tracer.Start(ctx, "runner.Iteration", trace.WithAttributes(
		attribute.Int("iteration.number", i+1),
		attribute.String("iteration.var", cfg.IterationVar),
	))
	defer span.End()

	logger := ctxlog.FromContext(ctx)
	if value != nil {
		logger = logger.With(cfg.IterationVar, value)
		ctx = ctxlog.WithLogger(ctx, logger)
		logger.Info("▶️ Running iteration.", "number", i+1)
	}
	for _, name := range cfg.Steps {
		if err := r.step(ctx, name); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		r.engine.ClearScope(cache.ScopeStep)
	}
	return nil
}

func (r *Runner) step(ctx context.Context, name string) error {
	_, span := r.tracer.Start(ctx, "runner.Step", trace.WithAttributes(attribute.String("step.name", name)))
	defer span.End()

	logger := ctxlog.FromContext(ctx).With("step", name)
	logger.Debug("Running step.")
	start := time.Now()

	s, err := r.engine.Step(name)
	if err != nil {
		return err
	}
	if _, err := s.Run(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("step %q failed: %w", name, err)
	}
	logger.Info("✅ Finished step.", "duration", time.Since(start))
	return nil
}

func (r *Runner) tablesUsed(steps []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, name := range steps {
		s, err := r.engine.Step(name)
		if err != nil {
			return nil, err
		}
		used, err := s.TablesUsed()
		if err != nil {
			return nil, err
		}
		for _, t := range used {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	slices.Sort(out)
	return out, nil
}

func (r *Runner) snapshot(ctx context.Context, path, tag string, tables []string, res *Result) error {
	ctx, span := r.tracer.Start(ctx, "runner.Snapshot", trace.WithAttributes(
		attribute.String("snapshot.tag", tag),
		attribute.Int("snapshot.tables", len(tables)),
	))
	defer span.End()

	for _, name := range tables {
		t, err := r.engine.Table(name)
		if err != nil {
			return err
		}
		f, err := t.ToFrame()
		if err != nil {
			return fmt.Errorf("failed to read table %q for snapshot %q: %w", name, tag, err)
		}
		if err := r.writer.Write(ctx, path, tag, name, f); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to write table %q for snapshot %q: %w", name, tag, err)
		}
	}
	res.Snapshots = append(res.Snapshots, Snapshot{Tag: tag, Tables: append([]string(nil), tables...)})
	ctxlog.FromContext(ctx).Info("💾 Snapshot written.", "tag", tag, "tables", len(tables))
	return nil
}
