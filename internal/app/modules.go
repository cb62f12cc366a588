package app

import (
	"io"

	"github.com/vk/tablegrid/internal/engine"
	"github.com/vk/tablegrid/modules/env_vars"
	"github.com/vk/tablegrid/modules/print"
)

// coreModules is the definitive list of all modules that are compiled into
// the tablegrid binary. Printed output goes to out.
func coreModules(out io.Writer) []engine.Module {
	return []engine.Module{
		&env_vars.Module{},
		&print.Module{Out: out},
	}
}
