package env_vars

import (
	"os"
	"strings"

	"github.com/vk/tablegrid/internal/engine"
)

// InjectableName is the injectable registered by the module.
const InjectableName = "env"

// Module registers the process environment as the "env" injectable, a
// map[string]string captured at registration time.
type Module struct{}

// Register registers the injectable with the engine.
func (m *Module) Register(e *engine.Engine) error {
	envMap := make(map[string]string)
	for _, kv := range os.Environ() {
		pair := strings.SplitN(kv, "=", 2)
		if len(pair) == 2 {
			envMap[pair[0]] = pair[1]
		}
	}
	return e.AddInjectable(InjectableName, envMap)
}
