package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/bytedance/sonic"
)

// Describe writes the schema of the loaded pipeline to w as "text" or
// "json". Function-backed tables are computed to learn their columns.
func (a *App) Describe(w io.Writer, format string) error {
	schema, err := a.engine.Schema()
	if err != nil {
		return fmt.Errorf("failed to build schema: %w", err)
	}

	if format == "json" {
		b, err := sonic.ConfigStd.MarshalIndent(schema, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", b)
		return err
	}

	var sb strings.Builder
	sb.WriteString("Tables:\n")
	for _, t := range schema.Tables {
		fmt.Fprintf(&sb, "  %s (%s): %s\n", t.Name, t.Kind, strings.Join(t.Columns, ", "))
	}
	fmt.Fprintf(&sb, "Injectables: %s\n", strings.Join(schema.Injectables, ", "))
	fmt.Fprintf(&sb, "Steps: %s\n", strings.Join(schema.Steps, ", "))
	sb.WriteString("Broadcasts:\n")
	for _, b := range schema.Broadcasts {
		fmt.Fprintf(&sb, "  %s -> %s on %s = %s\n", b.Cast, b.Onto, side(b.CastIndex, b.CastOn), side(b.OntoIndex, b.OntoOn))
	}
	if run := a.model.Run; run != nil {
		fmt.Fprintf(&sb, "Run: steps=[%s] iterations=%d\n", strings.Join(run.Steps, ", "), len(run.Iterations))
	}
	_, err = io.WriteString(w, sb.String())
	return err
}

func side(index bool, on string) string {
	if index {
		return "index"
	}
	return on
}
