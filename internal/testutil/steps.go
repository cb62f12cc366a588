package testutil

import (
	"github.com/vk/tablegrid/internal/engine"
	"github.com/vk/tablegrid/internal/registry"
)

// NoOpModule registers steps that take no arguments and do nothing. It is
// useful for pipelines that only exercise loading or persistence.
type NoOpModule struct {
	Steps []string
}

// Register registers every step in m.Steps.
func (m *NoOpModule) Register(e *engine.Engine) error {
	for _, name := range m.Steps {
		if err := e.AddStep(name, registry.NewFunc(func(registry.Args) (any, error) { return nil, nil })); err != nil {
			return err
		}
	}
	return nil
}
