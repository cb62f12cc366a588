package frame

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Series is a named, labelled column of cells.
type Series struct {
	name   string
	index  []cty.Value
	values []cty.Value
}

// NewSeries builds a Series. index and values must have the same length;
// both slices are copied.
func NewSeries(name string, index, values []cty.Value) (*Series, error) {
	if len(index) != len(values) {
		return nil, fmt.Errorf("series %q: index has %d labels but %d values were given", name, len(index), len(values))
	}
	return &Series{
		name:   name,
		index:  append([]cty.Value(nil), index...),
		values: append([]cty.Value(nil), values...),
	}, nil
}

// MustSeries is NewSeries that panics on error.
func MustSeries(name string, index, values []cty.Value) *Series {
	s, err := NewSeries(name, index, values)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the series name.
func (s *Series) Name() string { return s.name }

// Len returns the number of rows.
func (s *Series) Len() int { return len(s.values) }

// Index returns a copy of the labels.
func (s *Series) Index() []cty.Value { return append([]cty.Value(nil), s.index...) }

// Values returns a copy of the cells.
func (s *Series) Values() []cty.Value { return append([]cty.Value(nil), s.values...) }

// At returns the cell at row position i.
func (s *Series) At(i int) cty.Value { return s.values[i] }

// Label returns the label at row position i.
func (s *Series) Label(i int) cty.Value { return s.index[i] }

// Get returns the first cell labelled label.
func (s *Series) Get(label cty.Value) (cty.Value, bool) {
	k := Key(label)
	for i, l := range s.index {
		if Key(l) == k {
			return s.values[i], true
		}
	}
	return cty.NilVal, false
}

// Set overwrites the cell at row position i in place.
func (s *Series) Set(i int, v cty.Value) { s.values[i] = v }

// Type returns the element type: the type of the first non-null cell.
func (s *Series) Type() cty.Type { return elemType(s.values) }

// Copy returns an independent copy.
func (s *Series) Copy() *Series {
	return &Series{
		name:   s.name,
		index:  append([]cty.Value(nil), s.index...),
		values: append([]cty.Value(nil), s.values...),
	}
}

// Rename returns a copy named name.
func (s *Series) Rename(name string) *Series {
	c := s.Copy()
	c.name = name
	return c
}

// Map returns a new series with fn applied to every cell.
func (s *Series) Map(fn func(cty.Value) cty.Value) *Series {
	c := s.Copy()
	for i, v := range c.values {
		c.values[i] = fn(v)
	}
	return c
}

// Reindex returns a copy aligned to index. Each label takes the value of its
// first match in s; labels missing from s get Null.
func (s *Series) Reindex(index []cty.Value) *Series {
	pos := positions(s.index)
	out := &Series{
		name:   s.name,
		index:  append([]cty.Value(nil), index...),
		values: make([]cty.Value, len(index)),
	}
	for i, l := range index {
		if ps, ok := pos[Key(l)]; ok {
			out.values[i] = s.values[ps[0]]
		} else {
			out.values[i] = Null
		}
	}
	return out
}

// Equal reports whether both series have the same name, labels and cells.
func (s *Series) Equal(o *Series) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.name == o.name && sameKeys(s.index, o.index) && sameKeys(s.values, o.values)
}

func (s *Series) take(rows []int, index []cty.Value) *Series {
	out := &Series{name: s.name, index: index, values: make([]cty.Value, len(rows))}
	for i, r := range rows {
		out.values[i] = s.values[r]
	}
	return out
}

func (s *Series) String() string {
	return fmt.Sprintf("Series(%s, len=%d)", s.name, len(s.values))
}

// positions maps label keys to every row position carrying that label.
func positions(index []cty.Value) map[string][]int {
	pos := make(map[string][]int, len(index))
	for i, l := range index {
		k := Key(l)
		pos[k] = append(pos[k], i)
	}
	return pos
}

func sameKeys(a, b []cty.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if Key(a[i]) != Key(b[i]) {
			return false
		}
	}
	return true
}
