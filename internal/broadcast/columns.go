package broadcast

import (
	"github.com/vk/tablegrid/internal/errdefs"
)

// ColumnMap assigns every requested column to the participating tables that
// own it. owners maps each table to its columns. The result maps each table
// to the requested columns it owns, in request order; a table owning none of
// them maps to an empty slice. A column no table owns is a structural error.
func ColumnMap(tables []string, owners map[string][]string, columns []string) (map[string][]string, error) {
	owned := make(map[string]map[string]bool, len(tables))
	out := make(map[string][]string, len(tables))
	for _, t := range tables {
		set := make(map[string]bool, len(owners[t]))
		for _, c := range owners[t] {
			set[c] = true
		}
		owned[t] = set
		out[t] = []string{}
	}

	for _, c := range columns {
		found := false
		for _, t := range tables {
			if owned[t][c] {
				out[t] = append(out[t], c)
				found = true
			}
		}
		if !found {
			return nil, errdefs.Structuralf("column %q is not in any of the tables %v", c, tables)
		}
	}
	return out, nil
}
