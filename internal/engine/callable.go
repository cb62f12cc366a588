package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vk/tablegrid/internal/cache"
	"github.com/vk/tablegrid/internal/errdefs"
	"github.com/vk/tablegrid/internal/frame"
	"github.com/vk/tablegrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Injectable is a handle onto a registered injectable.
type Injectable struct {
	e    *Engine
	name string
}

// Name is the injectable's registered name.
func (i *Injectable) Name() string { return i.name }

// Value resolves the injectable.
func (i *Injectable) Value() (any, error) {
	def, err := i.e.reg.Injectable(i.name)
	if err != nil {
		return nil, err
	}
	if err := i.e.enter(i.name); err != nil {
		return nil, err
	}
	defer i.e.leave()
	return i.e.injectableValue(def)
}

// ClearCached drops the injectable's cache entry and, for a memoized
// callable, every memoized call.
func (i *Injectable) ClearCached() {
	i.e.invalidate(registry.KindInjectable, i.name)
}

// Callable is a non-autocall injectable. Calling it injects the parameters
// not supplied by the caller.
type Callable struct {
	e   *Engine
	def *registry.InjectableDef
}

// Name is the injectable's registered name.
func (c *Callable) Name() string { return c.def.Name }

// Call invokes the callable with positional arguments bound to its leading
// parameters. The remaining parameters are injected.
func (c *Callable) Call(args ...any) (any, error) {
	params := c.def.Func.Params
	if len(args) > len(params) {
		return nil, errdefs.Validationf(c.def.Name, "called with %d arguments, takes %d", len(args), len(params))
	}
	overrides := make(registry.Args, len(args))
	for i, a := range args {
		overrides[params[i].Name] = a
	}
	return c.CallArgs(overrides)
}

// CallArgs invokes the callable with named arguments. The parameters not in
// args are injected. Memoized callables serve repeated calls with the same
// arguments from the cache.
func (c *Callable) CallArgs(args registry.Args) (any, error) {
	compute := func() (any, error) { return c.e.call(c.def.Func, args) }
	if !c.def.Memoize {
		return compute()
	}
	sig, err := signature(c.def.Func.Params, args)
	if err != nil {
		return nil, errdefs.WrapValidation(c.def.Name, err)
	}
	return c.e.cache.GetOrCompute(cache.StoreMemo, cache.MemoKey(c.def.Name, sig), c.def.Caching.Scope, compute)
}

// ClearCached drops every memoized call.
func (c *Callable) ClearCached() {
	c.e.cache.InvalidatePrefix(cache.StoreMemo, cache.MemoPrefix(c.def.Name))
}

// signature renders the supplied arguments in parameter order. Equal
// arguments give equal signatures.
func signature(params []registry.Param, args registry.Args) (string, error) {
	var b strings.Builder
	for _, p := range params {
		v, ok := args[p.Name]
		if !ok {
			continue
		}
		k, err := argKey(v)
		if err != nil {
			return "", fmt.Errorf("memoized argument %q: %w", p.Name, err)
		}
		fmt.Fprintf(&b, "%s=%s;", p.Name, k)
	}
	return b.String(), nil
}

func argKey(v any) (string, error) {
	switch x := v.(type) {
	case *frame.Series:
		return "series(" + x.Name() + "|" + cellKeys(x.Index()) + "|" + cellKeys(x.Values()) + ")", nil
	case *frame.Frame:
		var b strings.Builder
		b.WriteString("frame(" + cellKeys(x.Index()))
		for _, name := range x.Columns() {
			s, _ := x.Column(name)
			b.WriteString("|" + name + ":" + cellKeys(s.Values()))
		}
		return b.String() + ")", nil
	case *Table:
		return "table(" + x.Name() + ")", nil
	}
	c, err := frame.Val(v)
	if err != nil {
		return "", err
	}
	return frame.Key(c), nil
}

func cellKeys(vs []cty.Value) string {
	keys := make([]string, len(vs))
	for i, v := range vs {
		keys[i] = strconv.Quote(frame.Key(v))
	}
	return strings.Join(keys, ",")
}

// Step is a handle onto a registered step.
type Step struct {
	e    *Engine
	name string
}

// Name is the step's registered name.
func (s *Step) Name() string { return s.name }

// Run injects the step's arguments and calls it.
func (s *Step) Run() (any, error) {
	def, err := s.e.reg.Step(s.name)
	if err != nil {
		return nil, err
	}
	return s.e.call(def.Func, nil)
}

// TablesUsed lists the registered tables the step refers to, sorted.
func (s *Step) TablesUsed() ([]string, error) {
	return s.e.reg.TablesUsed(s.name)
}
