package engine

import (
	"fmt"

	"github.com/vk/tablegrid/internal/cache"
	"github.com/vk/tablegrid/internal/errdefs"
	"github.com/vk/tablegrid/internal/frame"
	"github.com/vk/tablegrid/internal/registry"
)

// Resolve evaluates an expression: a bare injectable or table name, or
// "table.column". Tables resolve to a *Table, columns to a *frame.Series and
// injectables to their value, the result of calling them (autocall) or a
// *Callable.
func (e *Engine) Resolve(expr string) (any, error) {
	if err := e.enter(expr); err != nil {
		return nil, err
	}
	defer e.leave()

	if table, column, ok := registry.SplitExpr(expr); ok {
		t, err := e.Table(table)
		if err != nil {
			return nil, err
		}
		return t.Column(column)
	}
	if def, err := e.reg.Injectable(expr); err == nil {
		return e.injectableValue(def)
	}
	if e.reg.Has(registry.KindTable, expr) {
		return &Table{e: e, name: expr}, nil
	}
	return nil, errdefs.NotFound("variable", expr)
}

// EvalVariable resolves expr with overrides registered as temporary
// injectables for the duration of the call.
func (e *Engine) EvalVariable(expr string, overrides map[string]any) (any, error) {
	var out any
	err := e.WithInjectables(overrides, func() error {
		v, err := e.Resolve(expr)
		out = v
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate %q: %w", expr, err)
	}
	return out, nil
}

// EvalStep runs the step named name with overrides registered as temporary
// injectables, and returns its result.
func (e *Engine) EvalStep(name string, overrides map[string]any) (any, error) {
	s, err := e.Step(name)
	if err != nil {
		return nil, err
	}
	var out any
	err = e.WithInjectables(overrides, func() error {
		v, err := s.Run()
		out = v
		return err
	})
	return out, err
}

// WithInjectables registers values as literal injectables, runs fn and then
// restores the previous registrations, also when fn fails or panics.
func (e *Engine) WithInjectables(values map[string]any, fn func() error) (err error) {
	previous := make(map[string]*registry.InjectableDef, len(values))
	for name := range values {
		if def, lookupErr := e.reg.Injectable(name); lookupErr == nil {
			previous[name] = def
		} else {
			previous[name] = nil
		}
	}
	defer func() {
		for name, def := range previous {
			var restoreErr error
			if def == nil {
				restoreErr = e.Remove(registry.KindInjectable, name)
			} else {
				restoreErr = e.Register(def)
			}
			if restoreErr != nil && err == nil {
				err = fmt.Errorf("failed to restore injectable %q: %w", name, restoreErr)
			}
		}
	}()

	for name, v := range values {
		if err := e.AddInjectable(name, v); err != nil {
			return err
		}
	}
	return fn()
}

// Inject resolves the arguments of params. overrides take precedence over
// resolution; a Default is used only when the parameter's own name is not
// registered.
func (e *Engine) Inject(params []registry.Param, overrides registry.Args) (registry.Args, error) {
	args := make(registry.Args, len(params))
	for _, p := range params {
		if v, ok := overrides[p.Name]; ok {
			args[p.Name] = v
			continue
		}
		if p.Default != nil && !e.registered(p.Name) {
			switch d := p.Default.(type) {
			case registry.Direct:
				args[p.Name] = d.Value
				continue
			case registry.Expr:
				v, err := e.Resolve(d.Expression)
				if err != nil {
					return nil, err
				}
				args[p.Name] = v
				continue
			}
		}
		v, err := e.Resolve(p.Name)
		if err != nil {
			return nil, err
		}
		args[p.Name] = v
	}
	return args, nil
}

func (e *Engine) call(fn *registry.Func, overrides registry.Args) (any, error) {
	args, err := e.Inject(fn.Params, overrides)
	if err != nil {
		return nil, err
	}
	return fn.Fn(args)
}

// registered reports whether the name expr refers to is registered, without
// resolving anything.
func (e *Engine) registered(expr string) bool {
	if table, _, ok := registry.SplitExpr(expr); ok {
		return e.IsTable(table)
	}
	return e.IsInjectable(expr) || e.IsTable(expr)
}

func (e *Engine) enter(expr string) error {
	if e.depth >= e.maxDepth {
		return errdefs.Structuralf("resolving %q exceeded %d nested resolutions, the dependencies are probably cyclic", expr, e.maxDepth)
	}
	e.depth++
	return nil
}

func (e *Engine) leave() { e.depth-- }

func (e *Engine) injectableValue(def *registry.InjectableDef) (any, error) {
	if def.Func == nil {
		return def.Value, nil
	}
	if !def.Autocall {
		return &Callable{e: e, def: def}, nil
	}
	compute := func() (any, error) { return e.call(def.Func, nil) }
	if !def.Caching.Cached {
		return compute()
	}
	return e.cache.GetOrCompute(cache.StoreInjectable, def.Name, def.Caching.Scope, compute)
}

func (e *Engine) materialize(def *registry.TableDef) (*frame.Frame, error) {
	if def.Static() {
		return def.Data, nil
	}
	compute := func() (any, error) {
		v, err := e.call(def.Func, nil)
		if err != nil {
			return nil, err
		}
		f, ok := v.(*frame.Frame)
		if !ok || f == nil {
			return nil, errdefs.Validationf(def.Name, "table function returned %T, want *frame.Frame", v)
		}
		for _, c := range e.reg.ColumnsFor(def.Name) {
			if f.HasColumn(c) {
				return nil, errdefs.Validationf(registry.ColumnExpr(def.Name, c), "column collides with a local column of table %q", def.Name)
			}
		}
		return f, nil
	}
	var (
		v   any
		err error
	)
	if def.Caching.Cached {
		v, err = e.cache.GetOrCompute(cache.StoreTable, def.Name, def.Caching.Scope, compute)
	} else {
		v, err = compute()
	}
	if err != nil {
		return nil, err
	}
	return v.(*frame.Frame), nil
}

func (e *Engine) columnValue(def *registry.ColumnDef) (*frame.Series, error) {
	if def.Data != nil {
		return def.Data, nil
	}
	compute := func() (any, error) {
		v, err := e.call(def.Func, nil)
		if err != nil {
			return nil, err
		}
		s, ok := v.(*frame.Series)
		if !ok || s == nil {
			return nil, errdefs.Validationf(def.Key(), "column function returned %T, want *frame.Series", v)
		}
		if s.Name() != def.Name {
			s = s.Rename(def.Name)
		}
		return s, nil
	}
	var (
		v   any
		err error
	)
	if def.Caching.Cached {
		v, err = e.cache.GetOrCompute(cache.StoreColumn, cache.ColumnKey(def.Table, def.Name), def.Caching.Scope, compute)
	} else {
		v, err = compute()
	}
	if err != nil {
		return nil, err
	}
	return v.(*frame.Series), nil
}
