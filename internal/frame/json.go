package frame

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/zclconf/go-cty/cty"
)

var codec = sonic.Config{UseNumber: true}.Froze()

// split is the "split" orientation: column names, row labels and a row-major
// matrix of cells.
type split struct {
	Columns []string `json:"columns"`
	Index   []any    `json:"index"`
	Data    [][]any  `json:"data"`
}

// MarshalJSON encodes f in split orientation.
func (f *Frame) MarshalJSON() ([]byte, error) {
	doc := split{
		Columns: f.Columns(),
		Index:   make([]any, len(f.index)),
		Data:    make([][]any, len(f.index)),
	}
	for i, l := range f.index {
		doc.Index[i] = ToGo(l)
		row := make([]any, len(f.columns))
		for c, n := range f.columns {
			row[c] = ToGo(f.data[n].values[i])
		}
		doc.Data[i] = row
	}
	return codec.Marshal(doc)
}

// UnmarshalJSON decodes a split-oriented document into f.
func (f *Frame) UnmarshalJSON(b []byte) error {
	var doc split
	if err := codec.Unmarshal(b, &doc); err != nil {
		return err
	}
	index, err := cells(doc.Index)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}
	out := New(index)
	columns := make([][]cty.Value, len(doc.Columns))
	for c := range columns {
		columns[c] = make([]cty.Value, len(doc.Data))
	}
	if len(doc.Data) != len(index) {
		return fmt.Errorf("split document has %d labels but %d rows", len(index), len(doc.Data))
	}
	for i, row := range doc.Data {
		if len(row) != len(doc.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(doc.Columns))
		}
		for c, raw := range row {
			v, err := Val(raw)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			columns[c][i] = v
		}
	}
	for c, n := range doc.Columns {
		out.columns = append(out.columns, n)
		out.data[n] = &Series{name: n, index: out.index, values: columns[c]}
	}
	*f = *out
	return nil
}

func cells(raw []any) ([]cty.Value, error) {
	out := make([]cty.Value, len(raw))
	for i, r := range raw {
		v, err := Val(r)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

var (
	_ json.Marshaler   = (*Frame)(nil)
	_ json.Unmarshaler = (*Frame)(nil)
)
