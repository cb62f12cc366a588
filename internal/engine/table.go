package engine

import (
	"github.com/vk/tablegrid/internal/errdefs"
	"github.com/vk/tablegrid/internal/frame"
	"github.com/vk/tablegrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Table is a handle onto a registered table. It always reads the current
// registration, so a handle survives the table being re-registered.
type Table struct {
	e    *Engine
	name string
}

// Name is the table's registered name.
func (t *Table) Name() string { return t.name }

func (t *Table) def() (*registry.TableDef, error) {
	return t.e.reg.Table(t.name)
}

// Static reports whether the table is backed by data rather than a
// function.
func (t *Table) Static() (bool, error) {
	def, err := t.def()
	if err != nil {
		return false, err
	}
	return def.Static(), nil
}

// Local returns the backing frame, computing it if the table is
// function-backed. The frame is not copied.
func (t *Table) Local() (*frame.Frame, error) {
	def, err := t.def()
	if err != nil {
		return nil, err
	}
	return t.e.materialize(def)
}

// LocalColumns lists the columns of the backing frame.
func (t *Table) LocalColumns() ([]string, error) {
	local, err := t.Local()
	if err != nil {
		return nil, err
	}
	return local.Columns(), nil
}

// Columns lists the local columns followed by the registered columns in
// registration order.
func (t *Table) Columns() ([]string, error) {
	local, err := t.Local()
	if err != nil {
		return nil, err
	}
	out := local.Columns()
	for _, c := range t.e.reg.ColumnsFor(t.name) {
		if !local.HasColumn(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Index returns a copy of the row labels.
func (t *Table) Index() ([]cty.Value, error) {
	local, err := t.Local()
	if err != nil {
		return nil, err
	}
	return local.Index(), nil
}

// Len is the number of rows.
func (t *Table) Len() (int, error) {
	local, err := t.Local()
	if err != nil {
		return 0, err
	}
	return local.Len(), nil
}

// ToFrame returns a copy of the table holding columns, or every column when
// none are given. Only the requested registered columns are computed.
// Registered columns are aligned to the table index by label.
func (t *Table) ToFrame(columns ...string) (*frame.Frame, error) {
	if len(columns) == 0 {
		columns = nil
	}
	return t.collect(columns)
}

// collect builds a copy holding columns. A nil slice means every column; an
// empty one means none.
func (t *Table) collect(columns []string) (*frame.Frame, error) {
	def, err := t.def()
	if err != nil {
		return nil, err
	}
	local, err := t.e.materialize(def)
	if err != nil {
		return nil, err
	}
	if columns == nil {
		if columns, err = t.Columns(); err != nil {
			return nil, err
		}
	}

	out := frame.New(local.Index())
	for _, c := range columns {
		s, _, err := t.column(local, c)
		if err != nil {
			return nil, err
		}
		if err := out.SetColumn(c, s.Copy()); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Column returns one column, local or registered. The result is a copy when
// the table or the registered column was registered with copy_col,
// otherwise it is the backing series.
func (t *Table) Column(name string) (*frame.Series, error) {
	def, err := t.def()
	if err != nil {
		return nil, err
	}
	local, err := t.e.materialize(def)
	if err != nil {
		return nil, err
	}
	s, copyCol, err := t.column(local, name)
	if err != nil {
		return nil, err
	}
	if def.CopyCol || copyCol {
		return s.Copy(), nil
	}
	return s, nil
}

// column looks name up among the local columns, then the registered ones.
// copyCol reports the registered column's own copy_col.
func (t *Table) column(local *frame.Frame, name string) (s *frame.Series, copyCol bool, err error) {
	if s, ok := local.Column(name); ok {
		return s, false, nil
	}
	cdef, err := t.e.reg.Column(t.name, name)
	if err != nil {
		return nil, false, err
	}
	s, err = t.e.columnValue(cdef)
	return s, cdef.CopyCol, err
}

// UpdateCol replaces or adds a column. On a static table the backing frame
// is changed in place. On a function-backed table the series is registered
// as a static column, since the computed frame is not owned by the table;
// local columns of such a table cannot be replaced.
func (t *Table) UpdateCol(name string, s *frame.Series) error {
	def, err := t.def()
	if err != nil {
		return err
	}
	if !def.Static() {
		local, err := t.e.materialize(def)
		if err != nil {
			return err
		}
		if local.HasColumn(name) {
			return errdefs.Validationf(name, "cannot replace a local column of function-backed table %q", t.name)
		}
		_, err = t.e.AddColumn(t.name, name, s, CopyCol(def.CopyCol))
		return err
	}
	if t.e.reg.Has(registry.KindColumn, registry.ColumnExpr(t.name, name)) {
		return errdefs.Validationf(name, "column of table %q is registered separately", t.name)
	}
	return def.Data.SetColumn(name, s.Copy())
}

// UpdateColFromSeries writes the cells of s into the rows of column name
// whose labels appear in s. Every label of s must be in the table index.
// Unless cast is set, s must have the column's element type. Only local
// columns of static tables can be updated.
func (t *Table) UpdateColFromSeries(name string, s *frame.Series, cast bool) error {
	def, err := t.def()
	if err != nil {
		return err
	}
	if !def.Static() {
		return errdefs.Validationf(name, "cannot update a column of function-backed table %q in place", t.name)
	}
	return def.Data.UpdateFromSeries(name, s, cast)
}

// ClearCached drops the table's own cache entry. Its columns keep theirs.
func (t *Table) ClearCached() {
	t.e.invalidate(registry.KindTable, t.name)
}

// Column is a handle onto a registered column.
type Column struct {
	e     *Engine
	table string
	name  string
}

// Table is the name of the owning table.
func (c *Column) Table() string { return c.table }

// Name is the column name.
func (c *Column) Name() string { return c.name }

// Series computes the column, through the cache when it is cached. The
// result is a copy when the column was registered with copy_col.
func (c *Column) Series() (*frame.Series, error) {
	def, err := c.e.reg.Column(c.table, c.name)
	if err != nil {
		return nil, err
	}
	s, err := c.e.columnValue(def)
	if err != nil {
		return nil, err
	}
	if def.CopyCol {
		return s.Copy(), nil
	}
	return s, nil
}

// ClearCached drops the column's cache entry.
func (c *Column) ClearCached() {
	c.e.invalidate(registry.KindColumn, registry.ColumnExpr(c.table, c.name))
}
