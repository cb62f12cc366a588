package frame

import (
	"fmt"
	"strings"

	"github.com/vk/tablegrid/internal/errdefs"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Frame is an ordered collection of Series over one shared index.
type Frame struct {
	index   []cty.Value
	columns []string
	data    map[string]*Series
}

// New returns a frame with the given index and no columns.
func New(index []cty.Value) *Frame {
	return &Frame{
		index: append([]cty.Value(nil), index...),
		data:  make(map[string]*Series),
	}
}

// FromColumns builds a frame from series, aligning each one to index.
func FromColumns(index []cty.Value, cols ...*Series) (*Frame, error) {
	f := New(index)
	for _, s := range cols {
		if err := f.SetColumn(s.Name(), s); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// MustFrame is FromColumns that panics on error.
func MustFrame(index []cty.Value, cols ...*Series) *Frame {
	f, err := FromColumns(index, cols...)
	if err != nil {
		panic(err)
	}
	return f
}

// Index returns a copy of the row labels.
func (f *Frame) Index() []cty.Value { return append([]cty.Value(nil), f.index...) }

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.index) }

// Columns returns the column names in order.
func (f *Frame) Columns() []string { return append([]string(nil), f.columns...) }

// HasColumn reports whether name is a column of f.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.data[name]
	return ok
}

// Column returns the backing series of name. Mutating it mutates f.
func (f *Frame) Column(name string) (*Series, bool) {
	s, ok := f.data[name]
	return s, ok
}

// SetColumn stores s under name, replacing an existing column in place of
// order or appending a new one. A series whose labels differ from the frame
// index is aligned by label.
func (f *Frame) SetColumn(name string, s *Series) error {
	if s == nil {
		return fmt.Errorf("column %q: nil series", name)
	}
	var col *Series
	switch {
	case sameKeys(s.index, f.index):
		col = &Series{name: name, index: f.index, values: s.values}
	default:
		col = s.Reindex(f.index)
		col.name = name
		col.index = f.index
	}
	if _, ok := f.data[name]; !ok {
		f.columns = append(f.columns, name)
	}
	f.data[name] = col
	return nil
}

// Select returns a frame holding only names, in that order. The series are
// shared with f.
func (f *Frame) Select(names ...string) (*Frame, error) {
	out := &Frame{index: f.index, data: make(map[string]*Series, len(names))}
	for _, n := range names {
		s, ok := f.data[n]
		if !ok {
			return nil, errdefs.NotFound("column", n)
		}
		if _, dup := out.data[n]; dup {
			continue
		}
		out.columns = append(out.columns, n)
		out.data[n] = s
	}
	return out, nil
}

// Copy returns a deep copy of f.
func (f *Frame) Copy() *Frame {
	out := New(f.index)
	for _, n := range f.columns {
		s := f.data[n]
		out.columns = append(out.columns, n)
		out.data[n] = &Series{name: n, index: out.index, values: append([]cty.Value(nil), s.values...)}
	}
	return out
}

// Head returns a copy of the first n rows.
func (f *Frame) Head(n int) *Frame {
	if n > f.Len() {
		n = f.Len()
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return f.Take(rows)
}

// Take returns a new frame holding the given row positions in order.
func (f *Frame) Take(rows []int) *Frame {
	index := make([]cty.Value, len(rows))
	for i, r := range rows {
		index[i] = f.index[r]
	}
	out := New(index)
	for _, n := range f.columns {
		out.columns = append(out.columns, n)
		out.data[n] = f.data[n].take(rows, out.index)
	}
	return out
}

// Equal reports whether both frames have the same index, column order and
// cells.
func (f *Frame) Equal(o *Frame) bool {
	if f == nil || o == nil {
		return f == o
	}
	if !sameKeys(f.index, o.index) || len(f.columns) != len(o.columns) {
		return false
	}
	for i, n := range f.columns {
		if o.columns[i] != n || !sameKeys(f.data[n].values, o.data[n].values) {
			return false
		}
	}
	return true
}

// UpdateFromSeries writes the cells of s into column name at the rows whose
// labels appear in s, leaving every other row untouched. Every label of s
// must be in the frame index. When the element types differ the update is
// rejected unless cast is true, in which case cells are converted to the
// column's type.
func (f *Frame) UpdateFromSeries(name string, s *Series, cast bool) error {
	col, ok := f.data[name]
	if !ok {
		return errdefs.NotFound("column", name)
	}
	if s.Len() == 0 {
		return nil
	}

	values := s.values
	colType, updType := col.Type(), s.Type()
	if colType != cty.DynamicPseudoType && updType != cty.DynamicPseudoType && !colType.Equals(updType) {
		if !cast {
			return errdefs.Validationf(name, "data type mismatch, existing %s, update %s", colType.FriendlyName(), updType.FriendlyName())
		}
		values = make([]cty.Value, len(s.values))
		for i, v := range s.values {
			if v.IsNull() {
				values[i] = v
				continue
			}
			cv, err := convert.Convert(v, colType)
			if err != nil {
				return errdefs.WrapValidation(name, err)
			}
			values[i] = cv
		}
	}

	pos := positions(f.index)
	var missing []string
	for _, l := range s.index {
		if _, ok := pos[Key(l)]; !ok {
			missing = append(missing, Format(l))
		}
	}
	if len(missing) > 0 {
		return errdefs.Validationf(name, "update index is not a subset of the table index, unknown labels [%s]", strings.Join(missing, ", "))
	}

	for i, l := range s.index {
		for _, p := range pos[Key(l)] {
			col.values[p] = values[i]
		}
	}
	return nil
}

func (f *Frame) String() string {
	return fmt.Sprintf("Frame(rows=%d, columns=[%s])", f.Len(), strings.Join(f.columns, ", "))
}
