package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// ReadCSV parses a CSV document with a header row. indexCol names the column
// holding row labels; when empty the rows are labelled 0..n-1. Cells that
// parse as numbers become numbers, empty cells become Null and everything
// else stays a string.
func ReadCSV(r io.Reader, indexCol string) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv has no header row")
	}

	header := records[0]
	rows := records[1:]
	indexPos := -1
	if indexCol != "" {
		for i, h := range header {
			if h == indexCol {
				indexPos = i
				break
			}
		}
		if indexPos < 0 {
			return nil, fmt.Errorf("index column %q not in csv header", indexCol)
		}
	}

	var index []cty.Value
	if indexPos < 0 {
		index = Range(len(rows))
	} else {
		index = make([]cty.Value, len(rows))
		for i, rec := range rows {
			index[i] = parseCell(rec[indexPos])
		}
	}

	f := New(index)
	for c, name := range header {
		if c == indexPos {
			continue
		}
		values := make([]cty.Value, len(rows))
		for i, rec := range rows {
			values[i] = parseCell(rec[c])
		}
		f.columns = append(f.columns, name)
		f.data[name] = &Series{name: name, index: f.index, values: values}
	}
	return f, nil
}

// WriteCSV writes f with a leading, unnamed index column.
func WriteCSV(w io.Writer, f *Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{""}, f.columns...)); err != nil {
		return err
	}
	record := make([]string, len(f.columns)+1)
	for i, l := range f.index {
		record[0] = Format(l)
		for c, n := range f.columns {
			record[c+1] = Format(f.data[n].values[i])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func parseCell(s string) cty.Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Null
	}
	if n, err := cty.ParseNumberVal(s); err == nil {
		return n
	}
	return cty.StringVal(s)
}
