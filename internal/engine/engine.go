package engine

import (
	"log/slog"

	"github.com/vk/tablegrid/internal/broadcast"
	"github.com/vk/tablegrid/internal/cache"
	"github.com/vk/tablegrid/internal/ctxlog"
	"github.com/vk/tablegrid/internal/errdefs"
	"github.com/vk/tablegrid/internal/frame"
	"github.com/vk/tablegrid/internal/registry"
)

// Engine owns the registry and cache of one pipeline.
type Engine struct {
	reg      *registry.Registry
	cache    *cache.Cache
	logger   *slog.Logger
	maxDepth int
	depth    int
}

// New creates an engine with an empty registry and cache unless options
// supply them.
func New(opts ...Option) *Engine {
	e := &Engine{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(e)
	}
	if e.reg == nil {
		e.reg = registry.New()
	}
	if e.cache == nil {
		e.cache = cache.New()
	}
	if e.logger == nil {
		e.logger = ctxlog.Discard()
	}
	return e
}

// Registry exposes the underlying registry for read access. Definitions
// should be registered through the engine so their cache entries are
// dropped.
func (e *Engine) Registry() *registry.Registry { return e.reg }

// Cache exposes the underlying cache.
func (e *Engine) Cache() *cache.Cache { return e.cache }

// Logger is the engine's logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Register stores def, replacing a definition of the same kind and name,
// and drops the cache entries of the replaced definition.
func (e *Engine) Register(def registry.Definition) error {
	replaced, err := e.reg.Register(def)
	if err != nil {
		return err
	}
	e.invalidate(def.Kind(), def.Key())
	e.logger.Debug("Registered variable.", "kind", def.Kind(), "name", def.Key(), "replaced", replaced)
	return nil
}

func (e *Engine) invalidate(kind registry.Kind, key string) {
	switch kind {
	case registry.KindTable:
		e.cache.Invalidate(cache.StoreTable, key)
	case registry.KindColumn:
		t, c, _ := registry.SplitExpr(key)
		e.cache.Invalidate(cache.StoreColumn, cache.ColumnKey(t, c))
	case registry.KindInjectable:
		e.cache.Invalidate(cache.StoreInjectable, key)
		e.cache.InvalidatePrefix(cache.StoreMemo, cache.MemoPrefix(key))
	}
}

// AddTable registers a table backed by data. The frame is not copied.
func (e *Engine) AddTable(name string, data *frame.Frame, opts ...VarOption) (*Table, error) {
	o := newVarOptions(opts)
	if data == nil {
		data = frame.New(nil)
	}
	def := &registry.TableDef{Name: name, Data: data, Caching: o.caching, CopyCol: o.copyCol}
	if err := e.Register(def); err != nil {
		return nil, err
	}
	return &Table{e: e, name: name}, nil
}

// AddTableFunc registers a table computed by fn, which must return a
// *frame.Frame.
func (e *Engine) AddTableFunc(name string, fn *registry.Func, opts ...VarOption) (*Table, error) {
	o := newVarOptions(opts)
	def := &registry.TableDef{Name: name, Func: fn, Caching: o.caching, CopyCol: o.copyCol}
	if err := e.Register(def); err != nil {
		return nil, err
	}
	return &Table{e: e, name: name}, nil
}

// AddColumn registers a static column of table. The table need not be
// registered yet.
func (e *Engine) AddColumn(table, name string, s *frame.Series, opts ...VarOption) (*Column, error) {
	o := newVarOptions(opts)
	var data *frame.Series
	if s != nil {
		data = s.Rename(name)
	}
	def := &registry.ColumnDef{Table: table, Name: name, Data: data, Caching: o.caching, CopyCol: o.copyCol}
	if err := e.Register(def); err != nil {
		return nil, err
	}
	return &Column{e: e, table: table, name: name}, nil
}

// AddColumnFunc registers a column of table computed by fn, which must
// return a *frame.Series.
func (e *Engine) AddColumnFunc(table, name string, fn *registry.Func, opts ...VarOption) (*Column, error) {
	o := newVarOptions(opts)
	def := &registry.ColumnDef{Table: table, Name: name, Func: fn, Caching: o.caching, CopyCol: o.copyCol}
	if err := e.Register(def); err != nil {
		return nil, err
	}
	return &Column{e: e, table: table, name: name}, nil
}

// AddInjectable registers a literal value.
func (e *Engine) AddInjectable(name string, v any) error {
	return e.Register(&registry.InjectableDef{Name: name, Value: v, Caching: registry.Caching{Scope: cache.ScopeForever}})
}

// AddInjectableFunc registers a callable injectable. By default it is
// called on resolution and its result is not cached.
func (e *Engine) AddInjectableFunc(name string, fn *registry.Func, opts ...VarOption) error {
	o := newVarOptions(opts)
	return e.Register(&registry.InjectableDef{
		Name:     name,
		Func:     fn,
		Autocall: o.autocall,
		Memoize:  o.memoize,
		Caching:  o.caching,
	})
}

// AddStep registers a step.
func (e *Engine) AddStep(name string, fn *registry.Func) error {
	return e.Register(&registry.StepDef{Name: name, Func: fn})
}

// Broadcast declares that b.Cast can be merged onto b.Onto, replacing an
// earlier broadcast for the same pair.
func (e *Engine) Broadcast(b broadcast.Broadcast) error {
	replaced, err := e.reg.Broadcasts().Add(b)
	if err != nil {
		return err
	}
	e.logger.Debug("Registered broadcast.", "cast", b.Cast, "onto", b.Onto, "replaced", replaced)
	return nil
}

// Remove deletes a definition and its cache entries. Columns are named
// "table.column". Removing a table also removes its registered columns and
// every broadcast that names it.
func (e *Engine) Remove(kind registry.Kind, name string) error {
	var columns []string
	if kind == registry.KindTable {
		columns = e.reg.ColumnsFor(name)
	}
	if err := e.reg.Remove(kind, name); err != nil {
		return err
	}
	e.invalidate(kind, name)
	for _, c := range columns {
		e.invalidate(registry.KindColumn, registry.ColumnExpr(name, c))
	}
	e.logger.Debug("Removed variable.", "kind", kind, "name", name, "columns", len(columns))
	return nil
}

// RemoveBroadcast deletes the broadcast of cast onto onto.
func (e *Engine) RemoveBroadcast(cast, onto string) error {
	if !e.reg.Broadcasts().Remove(cast, onto) {
		return errdefs.NotFound("broadcast", cast+" -> "+onto)
	}
	e.logger.Debug("Removed broadcast.", "cast", cast, "onto", onto)
	return nil
}

// Clear drops every definition, broadcast and cache entry.
func (e *Engine) Clear() {
	e.reg.Clear()
	e.cache.Clear()
	e.logger.Debug("Engine cleared.")
}

// ClearCache empties the whole cache.
func (e *Engine) ClearCache() { e.cache.Clear() }

// ClearScope drops the cache entries of scope and narrower scopes.
func (e *Engine) ClearScope(scope cache.Scope) { e.cache.ClearScope(scope) }

// EnableCache turns caching on.
func (e *Engine) EnableCache() { e.cache.Enable() }

// DisableCache turns caching off. Computed values are still stored.
func (e *Engine) DisableCache() { e.cache.Disable() }

// CacheDisabled runs fn with caching disabled and restores the previous
// state afterwards.
func (e *Engine) CacheDisabled(fn func() error) error { return e.cache.Disabled(fn) }

// IsTable reports whether name is a registered table.
func (e *Engine) IsTable(name string) bool { return e.reg.Has(registry.KindTable, name) }

// IsInjectable reports whether name is a registered injectable.
func (e *Engine) IsInjectable(name string) bool { return e.reg.Has(registry.KindInjectable, name) }

// ListTables lists table names in registration order.
func (e *Engine) ListTables() []string { return e.reg.List(registry.KindTable) }

// ListColumns lists registered columns as "table.column".
func (e *Engine) ListColumns() []string { return e.reg.List(registry.KindColumn) }

// ListInjectables lists injectable names in registration order.
func (e *Engine) ListInjectables() []string { return e.reg.List(registry.KindInjectable) }

// ListSteps lists step names in registration order.
func (e *Engine) ListSteps() []string { return e.reg.List(registry.KindStep) }

// ListBroadcasts lists the broadcasts in registration order.
func (e *Engine) ListBroadcasts() []broadcast.Broadcast { return e.reg.Broadcasts().List() }

// Table returns a handle onto the table named name.
func (e *Engine) Table(name string) (*Table, error) {
	if _, err := e.reg.Table(name); err != nil {
		return nil, err
	}
	return &Table{e: e, name: name}, nil
}

// Column returns a handle onto a registered column of table.
func (e *Engine) Column(table, name string) (*Column, error) {
	if _, err := e.reg.Column(table, name); err != nil {
		return nil, err
	}
	return &Column{e: e, table: table, name: name}, nil
}

// Injectable returns a handle onto the injectable named name.
func (e *Engine) Injectable(name string) (*Injectable, error) {
	if _, err := e.reg.Injectable(name); err != nil {
		return nil, err
	}
	return &Injectable{e: e, name: name}, nil
}

// Step returns a handle onto the step named name.
func (e *Engine) Step(name string) (*Step, error) {
	if _, err := e.reg.Step(name); err != nil {
		return nil, err
	}
	return &Step{e: e, name: name}, nil
}
