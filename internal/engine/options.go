package engine

import (
	"log/slog"

	"github.com/vk/tablegrid/internal/cache"
	"github.com/vk/tablegrid/internal/registry"
)

// DefaultMaxDepth bounds nested resolutions. Deeper chains are reported as
// cyclic.
const DefaultMaxDepth = 512

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for registration and merge diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// WithRegistry makes the engine resolve out of an existing registry, for
// instance one already populated by modules.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) { e.reg = r }
}

// WithCache makes the engine use an existing cache.
func WithCache(c *cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// VarOption configures a registered table, column or injectable.
type VarOption func(*varOptions)

type varOptions struct {
	caching  registry.Caching
	copyCol  bool
	autocall bool
	memoize  bool
}

func newVarOptions(opts []VarOption) varOptions {
	o := varOptions{
		caching:  registry.Caching{Scope: cache.ScopeForever},
		copyCol:  true,
		autocall: true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Cache caches the computed value under scope.
func Cache(scope cache.Scope) VarOption {
	return func(o *varOptions) {
		o.caching = registry.Caching{Cached: true, Scope: scope}
	}
}

// CopyCol controls whether column reads return copies. It defaults to true.
func CopyCol(on bool) VarOption {
	return func(o *varOptions) { o.copyCol = on }
}

// NoAutocall makes an injectable resolve to its callable instead of the
// result of calling it.
func NoAutocall() VarOption {
	return func(o *varOptions) { o.autocall = false }
}

// Memoize caches each call of a non-autocall injectable by its arguments,
// under scope.
func Memoize(scope cache.Scope) VarOption {
	return func(o *varOptions) {
		o.autocall = false
		o.memoize = true
		o.caching.Scope = scope
	}
}
