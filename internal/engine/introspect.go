package engine

import (
	"fmt"
	"io"
	"reflect"
	"runtime"

	"github.com/vk/tablegrid/internal/broadcast"
	"github.com/vk/tablegrid/internal/errdefs"
	"github.com/vk/tablegrid/internal/frame"
	"github.com/vk/tablegrid/internal/registry"
)

// Table kinds reported by TableKind.
const (
	KindStatic   = "static"
	KindFunction = "function"
)

// TableSchema describes one table.
type TableSchema struct {
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	Columns      []string `json:"columns"`
	LocalColumns []string `json:"local_columns"`
}

// Schema describes everything registered in an engine.
type Schema struct {
	Tables      []TableSchema         `json:"tables"`
	Injectables []string              `json:"injectables"`
	Steps       []string              `json:"steps"`
	Broadcasts  []broadcast.Broadcast `json:"broadcasts"`
}

// Schema lists the registered variables. Function-backed tables are
// computed to learn their columns.
func (e *Engine) Schema() (*Schema, error) {
	s := &Schema{
		Injectables: e.ListInjectables(),
		Steps:       e.ListSteps(),
		Broadcasts:  e.ListBroadcasts(),
	}
	for _, name := range e.ListTables() {
		t := &Table{e: e, name: name}
		kind, err := e.TableKind(name)
		if err != nil {
			return nil, err
		}
		local, err := t.LocalColumns()
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", name, err)
		}
		cols, err := t.Columns()
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", name, err)
		}
		s.Tables = append(s.Tables, TableSchema{Name: name, Kind: kind, Columns: cols, LocalColumns: local})
	}
	return s, nil
}

// TableKind reports whether a table is static or function-backed.
func (e *Engine) TableKind(name string) (string, error) {
	def, err := e.reg.Table(name)
	if err != nil {
		return "", err
	}
	if def.Static() {
		return KindStatic, nil
	}
	return KindFunction, nil
}

// Preview returns a copy of the first n rows of a table.
func (e *Engine) Preview(name string, n int) (*frame.Frame, error) {
	f, err := e.tableFrame(name)
	if err != nil {
		return nil, err
	}
	return f.Head(n), nil
}

// Describe returns summary statistics of a table's numeric columns.
func (e *Engine) Describe(name string) (*frame.Frame, error) {
	f, err := e.tableFrame(name)
	if err != nil {
		return nil, err
	}
	return frame.Describe(f), nil
}

// WriteCSV writes a table as CSV.
func (e *Engine) WriteCSV(name string, w io.Writer) error {
	f, err := e.tableFrame(name)
	if err != nil {
		return err
	}
	return frame.WriteCSV(w, f)
}

// GroupByAgg aggregates column of table grouped by the values of column
// by, or by the index when by is empty.
func (e *Engine) GroupByAgg(table, column, by, agg string) (*frame.Series, error) {
	t, err := e.Table(table)
	if err != nil {
		return nil, err
	}
	values, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	var keys *frame.Series
	if by == "" {
		idx, err := t.Index()
		if err != nil {
			return nil, err
		}
		return frame.GroupBy(values, idx, agg)
	}
	if keys, err = t.Column(by); err != nil {
		return nil, err
	}
	return frame.GroupBy(values, keys.Values(), agg)
}

func (e *Engine) tableFrame(name string) (*frame.Frame, error) {
	t, err := e.Table(name)
	if err != nil {
		return nil, err
	}
	return t.ToFrame()
}

// Source locates the Go function backing a variable.
type Source struct {
	Func string `json:"func"`
	File string `json:"file"`
	Line int    `json:"line"`
}

// FuncSource locates the function backing a function-backed table, column,
// injectable or step. Columns are named "table.column".
func (e *Engine) FuncSource(kind registry.Kind, name string) (*Source, error) {
	def, err := e.reg.Get(kind, name)
	if err != nil {
		return nil, err
	}
	var fn *registry.Func
	switch d := def.(type) {
	case *registry.TableDef:
		fn = d.Func
	case *registry.ColumnDef:
		fn = d.Func
	case *registry.InjectableDef:
		fn = d.Func
	case *registry.StepDef:
		fn = d.Func
	}
	if fn == nil || fn.Fn == nil {
		return nil, errdefs.Validationf(name, "%s is not backed by a function", kind)
	}
	rf := runtime.FuncForPC(reflect.ValueOf(fn.Fn).Pointer())
	if rf == nil {
		return nil, errdefs.NotFound("function source", name)
	}
	file, line := rf.FileLine(rf.Entry())
	return &Source{Func: rf.Name(), File: file, Line: line}, nil
}
