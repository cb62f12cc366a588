package app

import (
	"context"
	"fmt"

	"github.com/vk/tablegrid/internal/ctxlog"
	"github.com/vk/tablegrid/internal/errdefs"
	"github.com/vk/tablegrid/internal/resmon"
	"github.com/vk/tablegrid/internal/runner"
	"github.com/vk/tablegrid/internal/store"
)

// Run executes the pipeline's run block. Snapshots go to the store named
// by the configuration or the run block when persistence is enabled.
func (a *App) Run(ctx context.Context) (*runner.Result, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	run := a.model.Run
	if run == nil {
		return nil, errdefs.Validationf("run", "the pipeline has no run block")
	}
	rc := runner.Config{
		Steps:        run.Steps,
		Iterations:   run.Iterations,
		IterationVar: run.IterationVar,
		PersistEvery: run.PersistEvery,
	}

	var opts []runner.Option
	persistTo := firstNonEmpty(a.config.PersistTo, run.PersistTo)
	if persistTo != "" {
		kind := firstNonEmpty(a.config.Store, run.Store)
		st, err := store.Open(kind, persistTo, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot store: %w", err)
		}
		defer func() {
			if err := st.Close(); err != nil {
				a.logger.Error("Failed to close snapshot store.", "error", err)
			}
		}()
		a.logger.Info("💾 Persisting snapshots.", "store", kind, "location", persistTo, "run_name", a.runName())
		opts = append(opts, runner.WithWriter(st))
		rc.PersistTo = a.runName()
		if rc.PersistEvery < 1 {
			rc.PersistEvery = 1
		}
	}

	if a.config.Profile {
		poller, err := resmon.Start(ctx, a.runName(), a.config.ProfileInterval)
		if err != nil {
			return nil, err
		}
		defer func() {
			a.logger.Info("📊 Resource usage.", poller.End().LogAttrs()...)
		}()
	}

	res, err := runner.New(a.engine, opts...).Run(ctx, rc)
	a.logCacheStats()
	if err != nil {
		return res, fmt.Errorf("execution failed: %w", err)
	}

	a.logger.Debug("App.Run method finished.")
	return res, nil
}

func (a *App) logCacheStats() {
	stats, err := a.engine.Cache().Stats()
	if err != nil {
		a.logger.Warn("Failed to gather cache statistics.", "error", err)
		return
	}
	a.logger.Info("🧮 Cache statistics.", "hits", stats.Hits, "misses", stats.Misses)
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
