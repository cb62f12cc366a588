package engine

import (
	"fmt"
	"slices"

	"github.com/vk/tablegrid/internal/broadcast"
	"github.com/vk/tablegrid/internal/frame"
)

// MergeTables joins tables into target along the registered broadcasts
// between them. The broadcasts restricted to the participating tables must
// form a tree rooted at target. When columns is non-empty only those columns
// (plus the join keys) are computed, and only they are returned.
func (e *Engine) MergeTables(target string, tables []string, columns []string) (*frame.Frame, error) {
	names := participants(target, tables)
	handles := make(map[string]*Table, len(names))
	for _, n := range names {
		t, err := e.Table(n)
		if err != nil {
			return nil, err
		}
		handles[n] = t
	}

	bcs := e.reg.Broadcasts().Among(names)
	root, err := broadcast.BuildTree(target, names, bcs)
	if err != nil {
		return nil, err
	}
	plan, err := root.Plan(bcs)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("Merge plan built.", "target", target, "tables", root.Tables(), "merges", len(plan))

	var fetch map[string][]string
	if len(columns) > 0 {
		if fetch, err = e.fetchColumns(names, handles, bcs, columns); err != nil {
			return nil, err
		}
	}

	frames := make(map[string]*frame.Frame, len(names))
	for _, n := range names {
		f, err := handles[n].collect(fetch[n])
		if err != nil {
			return nil, fmt.Errorf("failed to read table %q for merge: %w", n, err)
		}
		frames[n] = f
	}

	for _, m := range plan {
		e.logger.Debug("Merging tables.", "cast", m.Cast, "onto", m.Onto)
		merged, err := frame.Join(frames[m.Cast], frames[m.Onto], m.JoinSpec())
		if err != nil {
			return nil, fmt.Errorf("failed to merge %q onto %q: %w", m.Cast, m.Onto, err)
		}
		frames[m.Onto] = merged
	}

	out := frames[target]
	if len(columns) > 0 {
		return out.Select(columns...)
	}
	return out, nil
}

// fetchColumns decides which columns to read from each table: the
// requested columns it owns plus the join keys its broadcasts need.
func (e *Engine) fetchColumns(names []string, handles map[string]*Table, bcs []broadcast.Broadcast, columns []string) (map[string][]string, error) {
	owners := make(map[string][]string, len(names))
	for _, n := range names {
		cols, err := handles[n].Columns()
		if err != nil {
			return nil, err
		}
		owners[n] = cols
	}
	fetch, err := broadcast.ColumnMap(names, owners, columns)
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		for _, b := range bcs {
			for _, k := range b.KeyColumns(n) {
				if !slices.Contains(fetch[n], k) {
					fetch[n] = append(fetch[n], k)
				}
			}
		}
	}
	return fetch, nil
}

// participants is target followed by tables, without duplicates.
func participants(target string, tables []string) []string {
	out := []string{target}
	for _, t := range tables {
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}
