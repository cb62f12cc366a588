package print

import (
	"fmt"
	"io"
	"os"

	"github.com/vk/tablegrid/internal/engine"
	"github.com/vk/tablegrid/internal/frame"
	"github.com/vk/tablegrid/internal/registry"
)

const (
	// StepName is the step registered by the module.
	StepName = "print_tables"
	// RowsParam names the injectable that overrides how many rows are
	// printed per table.
	RowsParam = "print_rows"
	// DefaultRows is used when no RowsParam injectable is registered.
	DefaultRows = 5
)

// Module registers the print_tables step, which writes the first rows of
// every registered table as CSV.
type Module struct {
	// Out receives the previews. Nil means standard output.
	Out io.Writer
}

// Register registers the step with the engine.
func (m *Module) Register(e *engine.Engine) error {
	fn := func(args registry.Args) (any, error) {
		rows, err := toInt(args[RowsParam])
		if err != nil {
			return nil, err
		}
		return nil, printTables(e, m.out(), rows)
	}
	return e.AddStep(StepName, registry.NewFunc(fn, registry.WithValue(RowsParam, DefaultRows)))
}

func (m *Module) out() io.Writer {
	if m.Out != nil {
		return m.Out
	}
	return os.Stdout
}

func printTables(e *engine.Engine, w io.Writer, rows int) error {
	for _, name := range e.ListTables() {
		t, err := e.Table(name)
		if err != nil {
			return err
		}
		n, err := t.Len()
		if err != nil {
			return err
		}
		preview, err := e.Preview(name, rows)
		if err != nil {
			return err
		}
		e.Logger().Debug("Printing table.", "table", name, "rows", n)
		fmt.Fprintf(w, "== %s (%d rows) ==\n", name, n)
		if err := frame.WriteCSV(w, preview); err != nil {
			return fmt.Errorf("failed to print table %q: %w", name, err)
		}
	}
	return nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	}
	return 0, fmt.Errorf("%s must be a number, got %T", RowsParam, v)
}
