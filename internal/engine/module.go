package engine

// Module is the interface built-in modules implement to contribute
// variables and steps to an engine.
type Module interface {
	Register(e *Engine) error
}

// Use registers every module in order and stops at the first failure.
func (e *Engine) Use(mods ...Module) error {
	for _, m := range mods {
		if err := m.Register(e); err != nil {
			return err
		}
	}
	e.logger.Debug("Modules registered.", "count", len(mods))
	return nil
}

// ModuleFunc adapts a function to the Module interface.
type ModuleFunc func(e *Engine) error

// Register calls f(e).
func (f ModuleFunc) Register(e *Engine) error { return f(e) }
