package config

import "context"

// Loader is the interface for a format-specific pipeline loader.
type Loader interface {
	// Load reads every supported file under paths, translates the blocks
	// into the format-agnostic model and merges them.
	Load(ctx context.Context, paths ...string) (*Model, error)
}

// Combine returns a Loader that runs every loader over the same paths and
// merges their models. Each loader only picks up its own file types.
func Combine(loaders ...Loader) Loader {
	return combined(loaders)
}

type combined []Loader

func (c combined) Load(ctx context.Context, paths ...string) (*Model, error) {
	model := NewModel()
	for _, l := range c {
		m, err := l.Load(ctx, paths...)
		if err != nil {
			return nil, err
		}
		if err := model.Merge(m); err != nil {
			return nil, err
		}
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	return model, nil
}
