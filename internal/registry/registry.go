package registry

import (
	"sort"

	"github.com/vk/tablegrid/internal/broadcast"
	"github.com/vk/tablegrid/internal/errdefs"
)

// namespace keeps definitions in registration order.
type namespace[T Definition] struct {
	order []string
	items map[string]T
}

func newNamespace[T Definition]() *namespace[T] {
	return &namespace[T]{items: make(map[string]T)}
}

func (n *namespace[T]) put(v T) bool {
	key := v.Key()
	_, replaced := n.items[key]
	if !replaced {
		n.order = append(n.order, key)
	}
	n.items[key] = v
	return replaced
}

func (n *namespace[T]) get(key string) (T, bool) {
	v, ok := n.items[key]
	return v, ok
}

func (n *namespace[T]) remove(key string) bool {
	if _, ok := n.items[key]; !ok {
		return false
	}
	delete(n.items, key)
	for i, k := range n.order {
		if k == key {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
	return true
}

func (n *namespace[T]) keys() []string {
	return append([]string(nil), n.order...)
}

// Registry holds every definition of one engine. It is not safe for
// concurrent use.
type Registry struct {
	tables      *namespace[*TableDef]
	columns     *namespace[*ColumnDef]
	injectables *namespace[*InjectableDef]
	steps       *namespace[*StepDef]
	broadcasts  *broadcast.Set
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		tables:      newNamespace[*TableDef](),
		columns:     newNamespace[*ColumnDef](),
		injectables: newNamespace[*InjectableDef](),
		steps:       newNamespace[*StepDef](),
		broadcasts:  broadcast.NewSet(),
	}
}

// Register validates def and stores it, replacing an existing definition
// of the same kind and key. It reports whether one was replaced.
//
// A column may not share its name with a local column of a static table;
// the check runs whichever of the two is registered last.
func (r *Registry) Register(def Definition) (bool, error) {
	if err := def.validate(); err != nil {
		return false, err
	}
	switch d := def.(type) {
	case *TableDef:
		if d.Static() {
			for _, c := range r.ColumnsFor(d.Name) {
				if d.Data.HasColumn(c) {
					return false, collision(d.Name, c)
				}
			}
		}
		return r.tables.put(d), nil
	case *ColumnDef:
		if t, ok := r.tables.get(d.Table); ok && t.Static() && t.Data.HasColumn(d.Name) {
			return false, collision(d.Table, d.Name)
		}
		return r.columns.put(d), nil
	case *InjectableDef:
		return r.injectables.put(d), nil
	case *StepDef:
		return r.steps.put(d), nil
	}
	return false, errdefs.Validationf("kind", "unsupported definition %T", def)
}

func collision(table, column string) error {
	return errdefs.Validationf(ColumnExpr(table, column), "column collides with a local column of table %q", table)
}

// Get returns the definition of kind named name. Columns are named
// "table.column".
func (r *Registry) Get(kind Kind, name string) (Definition, error) {
	var (
		def Definition
		ok  bool
	)
	switch kind {
	case KindTable:
		def, ok = r.tables.get(name)
	case KindColumn:
		def, ok = r.columns.get(name)
	case KindInjectable:
		def, ok = r.injectables.get(name)
	case KindStep:
		def, ok = r.steps.get(name)
	}
	if !ok {
		return nil, errdefs.NotFound(kind.String(), name)
	}
	return def, nil
}

// Has reports whether kind has a definition named name.
func (r *Registry) Has(kind Kind, name string) bool {
	_, err := r.Get(kind, name)
	return err == nil
}

// List returns the names of kind in registration order.
func (r *Registry) List(kind Kind) []string {
	switch kind {
	case KindTable:
		return r.tables.keys()
	case KindColumn:
		return r.columns.keys()
	case KindInjectable:
		return r.injectables.keys()
	case KindStep:
		return r.steps.keys()
	}
	return nil
}

// Remove deletes the definition of kind named name.
func (r *Registry) Remove(kind Kind, name string) error {
	var ok bool
	switch kind {
	case KindTable:
		if ok = r.tables.remove(name); ok {
			for _, c := range r.ColumnsFor(name) {
				r.columns.remove(ColumnExpr(name, c))
			}
			r.broadcasts.RemoveTable(name)
		}
	case KindColumn:
		ok = r.columns.remove(name)
	case KindInjectable:
		ok = r.injectables.remove(name)
	case KindStep:
		ok = r.steps.remove(name)
	}
	if !ok {
		return errdefs.NotFound(kind.String(), name)
	}
	return nil
}

// Table returns the table named name.
func (r *Registry) Table(name string) (*TableDef, error) {
	if d, ok := r.tables.get(name); ok {
		return d, nil
	}
	return nil, errdefs.NotFound("table", name)
}

// Column returns column of table.
func (r *Registry) Column(table, column string) (*ColumnDef, error) {
	if d, ok := r.columns.get(ColumnExpr(table, column)); ok {
		return d, nil
	}
	return nil, errdefs.NotFound("column", ColumnExpr(table, column))
}

// Injectable returns the injectable named name.
func (r *Registry) Injectable(name string) (*InjectableDef, error) {
	if d, ok := r.injectables.get(name); ok {
		return d, nil
	}
	return nil, errdefs.NotFound("injectable", name)
}

// Step returns the step named name.
func (r *Registry) Step(name string) (*StepDef, error) {
	if d, ok := r.steps.get(name); ok {
		return d, nil
	}
	return nil, errdefs.NotFound("step", name)
}

// ColumnsFor lists the registered columns of table in registration order.
func (r *Registry) ColumnsFor(table string) []string {
	var out []string
	for _, k := range r.columns.order {
		if d := r.columns.items[k]; d.Table == table {
			out = append(out, d.Name)
		}
	}
	return out
}

// Broadcasts is the set of declared broadcasts.
func (r *Registry) Broadcasts() *broadcast.Set { return r.broadcasts }

// Clear drops every definition and broadcast.
func (r *Registry) Clear() {
	*r = *New()
}

// TablesUsed returns the sorted names of the registered tables a step
// refers to through its parameter names or default expressions.
func (r *Registry) TablesUsed(step string) ([]string, error) {
	def, err := r.Step(step)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	add := func(expr string) {
		name := expr
		if t, _, ok := SplitExpr(expr); ok {
			name = t
		}
		if r.Has(KindTable, name) {
			seen[name] = true
		}
	}
	for _, p := range def.Func.Params {
		add(p.Name)
		if e, ok := p.Default.(Expr); ok {
			add(e.Expression)
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}
