package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/tablegrid/internal/ctxlog"
	"github.com/vk/tablegrid/internal/errdefs"
)

// Validate checks that the registered definitions refer to each other
// consistently: broadcasts name registered tables and every step parameter
// without a default names a registered variable. ambient lists names that
// are injected at run time, such as the iteration variable.
//
// Columns registered for tables that do not exist are only logged, since a
// table may legitimately be registered after its columns.
func (r *Registry) Validate(ctx context.Context, ambient ...string) error {
	logger := ctxlog.FromContext(ctx)
	var errs []error

	for _, b := range r.broadcasts.List() {
		for _, t := range []string{b.Cast, b.Onto} {
			if !r.Has(KindTable, t) {
				errs = append(errs, errdefs.Validationf("broadcast", "%s onto %s names unknown table %q", b.Cast, b.Onto, t))
			}
		}
	}

	for _, k := range r.columns.order {
		if d := r.columns.items[k]; !r.Has(KindTable, d.Table) {
			logger.Warn("Column registered for an unknown table.", "table", d.Table, "column", d.Name)
		}
	}

	known := make(map[string]bool, len(ambient))
	for _, a := range ambient {
		known[a] = true
	}
	for _, name := range r.steps.order {
		for _, p := range r.steps.items[name].Func.Params {
			if p.Default != nil || known[p.Name] || r.resolvable(p.Name) {
				continue
			}
			errs = append(errs, errdefs.Validationf(fmt.Sprintf("step %s", name), "parameter %q does not name a registered variable", p.Name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed: %w", errors.Join(errs...))
	}
	logger.Debug("Registry validation passed.",
		"tables", len(r.tables.order),
		"columns", len(r.columns.order),
		"injectables", len(r.injectables.order),
		"steps", len(r.steps.order),
		"broadcasts", r.broadcasts.Len())
	return nil
}

func (r *Registry) resolvable(expr string) bool {
	if t, c, ok := SplitExpr(expr); ok {
		return r.Has(KindTable, t) && (r.Has(KindColumn, ColumnExpr(t, c)) || r.localColumn(t, c))
	}
	return r.Has(KindInjectable, expr) || r.Has(KindTable, expr)
}

func (r *Registry) localColumn(table, column string) bool {
	d, err := r.Table(table)
	if err != nil || !d.Static() {
		// Function-backed tables only know their columns once computed.
		return err == nil
	}
	return d.Data.HasColumn(column)
}
