package registry

import (
	"fmt"

	"github.com/vk/tablegrid/internal/errdefs"
)

// Default is the fallback of a parameter whose own name is not registered.
// It is either Direct or Expr.
type Default interface {
	isDefault()
}

// Direct is a literal fallback value.
type Direct struct {
	Value any
}

// Expr is a fallback expression, resolved like a parameter name.
type Expr struct {
	Expression string
}

func (Direct) isDefault() {}
func (Expr) isDefault()   {}

// Param is one named parameter of a Func.
type Param struct {
	Name    string
	Default Default
}

// Params builds parameters without defaults.
func Params(names ...string) []Param {
	out := make([]Param, len(names))
	for i, n := range names {
		out[i] = Param{Name: n}
	}
	return out
}

// WithExpr is a parameter that resolves expr when name is not registered.
func WithExpr(name, expr string) Param {
	return Param{Name: name, Default: Expr{Expression: expr}}
}

// WithValue is a parameter that falls back to v when name is not registered.
func WithValue(name string, v any) Param {
	return Param{Name: name, Default: Direct{Value: v}}
}

// Args are the injected arguments of one call, keyed by parameter name.
type Args map[string]any

// Arg returns the argument name converted to T.
func Arg[T any](args Args, name string) (T, error) {
	var zero T
	v, ok := args[name]
	if !ok {
		return zero, errdefs.NotFound("argument", name)
	}
	t, ok := v.(T)
	if !ok {
		return zero, errdefs.Validationf(name, "argument is %T, want %T", v, zero)
	}
	return t, nil
}

// Func is a callable with declared parameters.
type Func struct {
	Params []Param
	Fn     func(Args) (any, error)
}

// NewFunc declares fn with the named parameters.
func NewFunc(fn func(Args) (any, error), params ...Param) *Func {
	return &Func{Params: params, Fn: fn}
}

// Names lists the parameter names in declaration order.
func (f *Func) Names() []string {
	out := make([]string, len(f.Params))
	for i, p := range f.Params {
		out[i] = p.Name
	}
	return out
}

func (f *Func) validate() error {
	if f.Fn == nil {
		return errdefs.Validationf("func", "function is nil")
	}
	seen := make(map[string]bool, len(f.Params))
	for i, p := range f.Params {
		if p.Name == "" {
			return errdefs.Validationf(fmt.Sprintf("params[%d]", i), "parameter name is empty")
		}
		if seen[p.Name] {
			return errdefs.Validationf(fmt.Sprintf("params[%d]", i), "duplicate parameter %q", p.Name)
		}
		seen[p.Name] = true
		if e, ok := p.Default.(Expr); ok && e.Expression == "" {
			return errdefs.Validationf(p.Name, "default expression is empty")
		}
	}
	return nil
}
