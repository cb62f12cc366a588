package registry

import (
	"fmt"
	"strings"

	"github.com/vk/tablegrid/internal/cache"
	"github.com/vk/tablegrid/internal/errdefs"
	"github.com/vk/tablegrid/internal/frame"
)

// Kind is the namespace of a definition.
type Kind int

const (
	KindTable Kind = iota
	KindColumn
	KindInjectable
	KindStep
)

func (k Kind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindColumn:
		return "column"
	case KindInjectable:
		return "injectable"
	case KindStep:
		return "step"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind converts a kind name.
func ParseKind(s string) (Kind, error) {
	for k := KindTable; k <= KindStep; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, errdefs.Validationf("kind", "unknown kind %q", s)
}

// Definition is anything the registry stores.
type Definition interface {
	Kind() Kind
	// Key is the definition's name within its namespace. Columns use
	// "table.column".
	Key() string
	validate() error
}

// Caching controls whether and for how long a computed value is cached.
type Caching struct {
	Cached bool
	Scope  cache.Scope
}

func (c Caching) validate() error {
	if !c.Scope.Valid() {
		return errdefs.Validationf("cache_scope", "invalid scope %v", c.Scope)
	}
	return nil
}

// TableDef is a table backed by static Data or a Func returning a table.
type TableDef struct {
	Name    string
	Data    *frame.Frame
	Func    *Func
	Caching Caching
	CopyCol bool
}

func (d *TableDef) Kind() Kind  { return KindTable }
func (d *TableDef) Key() string { return d.Name }

// Static reports whether the table is backed by data rather than a function.
func (d *TableDef) Static() bool { return d.Data != nil }

func (d *TableDef) validate() error {
	if err := validName("name", d.Name); err != nil {
		return err
	}
	if err := backing(d.Data != nil, d.Func); err != nil {
		return err
	}
	return d.Caching.validate()
}

// ColumnDef is a column of Table backed by static Data or a Func returning
// a series.
type ColumnDef struct {
	Table   string
	Name    string
	Data    *frame.Series
	Func    *Func
	Caching Caching
	CopyCol bool
}

func (d *ColumnDef) Kind() Kind  { return KindColumn }
func (d *ColumnDef) Key() string { return ColumnExpr(d.Table, d.Name) }

func (d *ColumnDef) validate() error {
	if err := validName("table", d.Table); err != nil {
		return err
	}
	if err := validName("name", d.Name); err != nil {
		return err
	}
	if err := backing(d.Data != nil, d.Func); err != nil {
		return err
	}
	return d.Caching.validate()
}

// InjectableDef is a literal Value or a Func. An Autocall injectable
// resolves to the result of calling Func; otherwise it resolves to the
// callable itself. Memoize caches calls of a non-autocall callable by
// argument signature.
type InjectableDef struct {
	Name     string
	Value    any
	Func     *Func
	Autocall bool
	Memoize  bool
	Caching  Caching
}

func (d *InjectableDef) Kind() Kind  { return KindInjectable }
func (d *InjectableDef) Key() string { return d.Name }

func (d *InjectableDef) validate() error {
	if err := validName("name", d.Name); err != nil {
		return err
	}
	if d.Func != nil {
		if d.Value != nil {
			return errdefs.Validationf("value", "an injectable has either a value or a function")
		}
		if err := d.Func.validate(); err != nil {
			return err
		}
	}
	if d.Memoize && (d.Func == nil || d.Autocall) {
		return errdefs.Validationf("memoize", "only non-autocall functions can be memoized")
	}
	return d.Caching.validate()
}

// StepDef is a callable run by the runner. Steps are never cached.
type StepDef struct {
	Name string
	Func *Func
}

func (d *StepDef) Kind() Kind  { return KindStep }
func (d *StepDef) Key() string { return d.Name }

func (d *StepDef) validate() error {
	if err := validName("name", d.Name); err != nil {
		return err
	}
	if d.Func == nil {
		return errdefs.Validationf("func", "a step needs a function")
	}
	return d.Func.validate()
}

// ExprSep separates the table and column of an expression.
const ExprSep = "."

// ColumnExpr is the expression naming column of table.
func ColumnExpr(table, column string) string {
	return table + ExprSep + column
}

// SplitExpr splits "table.column". ok is false for a bare name.
func SplitExpr(expr string) (table, column string, ok bool) {
	return strings.Cut(expr, ExprSep)
}

func validName(field, name string) error {
	switch {
	case name == "":
		return errdefs.Validationf(field, "name is required")
	case strings.Contains(name, ExprSep):
		return errdefs.Validationf(field, "name %q must not contain %q", name, ExprSep)
	case strings.ContainsRune(name, '\x1f'):
		return errdefs.Validationf(field, "name %q contains a control character", name)
	}
	return nil
}

func backing(hasData bool, fn *Func) error {
	switch {
	case hasData && fn != nil:
		return errdefs.Validationf("func", "data and function are mutually exclusive")
	case !hasData && fn == nil:
		return errdefs.Validationf("data", "either data or a function is required")
	case fn != nil:
		return fn.validate()
	}
	return nil
}
