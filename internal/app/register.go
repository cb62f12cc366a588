package app

import (
	"context"
	"fmt"
	"os"

	"github.com/vk/tablegrid/internal/config"
	"github.com/vk/tablegrid/internal/ctxlog"
	"github.com/vk/tablegrid/internal/engine"
	"github.com/vk/tablegrid/internal/frame"
	"github.com/vk/tablegrid/internal/registry"
)

// registerModel registers the model's tables, injectables and broadcasts
// with e.
func registerModel(ctx context.Context, e *engine.Engine, m *config.Model) error {
	logger := ctxlog.FromContext(ctx)

	for _, t := range m.Tables {
		if err := registerTable(e, t); err != nil {
			return fmt.Errorf("failed to register table %q: %w", t.Name, err)
		}
		logger.Debug("Table registered.", "table", t.Name, "source", t.Source, "cached", t.Cache)
	}
	for _, i := range m.Injectables {
		if err := e.AddInjectable(i.Name, config.GoValue(i.Value)); err != nil {
			return fmt.Errorf("failed to register injectable %q: %w", i.Name, err)
		}
	}
	for _, b := range m.Broadcasts {
		if err := e.Broadcast(b.Broadcast()); err != nil {
			return fmt.Errorf("failed to register broadcast %s onto %s: %w", b.Cast, b.Onto, err)
		}
	}
	return nil
}

// registerTable reads an uncached table eagerly into a static table that
// steps may update. A cached table is re-read from its source whenever its
// cache scope is cleared.
func registerTable(e *engine.Engine, t *config.Table) error {
	opts := []engine.VarOption{engine.CopyCol(t.CopyCol)}
	if !t.Cache {
		f, err := readCSV(t.Source, t.Index)
		if err != nil {
			return err
		}
		_, err = e.AddTable(t.Name, f, opts...)
		return err
	}

	scope, err := t.Scope()
	if err != nil {
		return err
	}
	opts = append(opts, engine.Cache(scope))
	fn := registry.NewFunc(func(registry.Args) (any, error) {
		return readCSV(t.Source, t.Index)
	})
	_, err = e.AddTableFunc(t.Name, fn, opts...)
	return err
}

func readCSV(path, index string) (*frame.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table source: %w", err)
	}
	defer f.Close()
	data, err := frame.ReadCSV(f, index)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
