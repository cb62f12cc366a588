package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/vk/tablegrid/internal/config"
	"github.com/vk/tablegrid/internal/ctxlog"
	"github.com/vk/tablegrid/internal/engine"
	"github.com/vk/tablegrid/internal/runner"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	model  *config.Model
	engine *engine.Engine
}

// NewApp is the constructor for the main application. It loads the
// pipeline with loader, registers modules (the core modules when none are
// given) and the pipeline's definitions with a new engine, and validates
// the result. When loader is nil it is chosen from the pipeline path.
func NewApp(ctx context.Context, outW io.Writer, cfg *Config, loader config.Loader, modules ...engine.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	if loader == nil {
		var err error
		if loader, err = LoaderFor(cfg.PipelinePath); err != nil {
			return nil, err
		}
	}

	model, err := loader.Load(ctx, cfg.PipelinePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline: %w", err)
	}
	if len(model.Files) == 0 {
		return nil, fmt.Errorf("failed to load pipeline: no pipeline files found at %s", cfg.PipelinePath)
	}
	logger.Debug("Pipeline loaded into unified model.", "files", model.Files)

	opts := []engine.Option{engine.WithLogger(logger)}
	if cfg.MaxDepth > 0 {
		opts = append(opts, engine.WithMaxDepth(cfg.MaxDepth))
	}
	e := engine.New(opts...)

	if len(modules) == 0 {
		modules = coreModules(outW)
	}
	if err := e.Use(modules...); err != nil {
		return nil, fmt.Errorf("failed to register modules: %w", err)
	}

	if err := registerModel(ctx, e, model); err != nil {
		return nil, err
	}
	logger.Debug("Pipeline definitions registered.",
		"tables", len(model.Tables),
		"injectables", len(model.Injectables),
		"broadcasts", len(model.Broadcasts))

	if err := e.Registry().Validate(ctx, iterationVar(model)); err != nil {
		return nil, err
	}

	return &App{
		outW:   outW,
		logger: logger,
		config: cfg,
		model:  model,
		engine: e,
	}, nil
}

// Engine returns the application's engine. This is primarily for testing.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Model returns the loaded pipeline model.
func (a *App) Model() *config.Model {
	return a.model
}

// runName is the key snapshots are stored under.
func (a *App) runName() string {
	if a.config.RunName != "" {
		return a.config.RunName
	}
	base := filepath.Base(filepath.Clean(a.config.PipelinePath))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func iterationVar(m *config.Model) string {
	if m.Run != nil && m.Run.IterationVar != "" {
		return m.Run.IterationVar
	}
	return runner.DefaultIterationVar
}
