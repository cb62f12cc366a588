package cache

import (
	"fmt"

	"github.com/vk/tablegrid/internal/errdefs"
)

// Scope is the lifetime tier of a cache entry.
type Scope int

const (
	// ScopeStep entries are dropped after every runner step.
	ScopeStep Scope = iota
	// ScopeIteration entries are dropped after every runner iteration.
	ScopeIteration
	// ScopeForever entries live until an explicit clear.
	ScopeForever
)

var scopeNames = map[Scope]string{
	ScopeStep:      "step",
	ScopeIteration: "iteration",
	ScopeForever:   "forever",
}

func (s Scope) String() string {
	if n, ok := scopeNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Scope(%d)", int(s))
}

// Valid reports whether s is one of the three known scopes.
func (s Scope) Valid() bool {
	_, ok := scopeNames[s]
	return ok
}

// ParseScope converts a scope name. An empty name is ScopeForever.
func ParseScope(name string) (Scope, error) {
	if name == "" {
		return ScopeForever, nil
	}
	for s, n := range scopeNames {
		if n == name {
			return s, nil
		}
	}
	return 0, errdefs.Validationf("cache_scope", "unknown scope %q, want step, iteration or forever", name)
}

// Store identifies one of the four cache stores.
type Store int

const (
	StoreTable Store = iota
	StoreColumn
	StoreInjectable
	StoreMemo
	numStores
)

func (s Store) String() string {
	switch s {
	case StoreTable:
		return "table"
	case StoreColumn:
		return "column"
	case StoreInjectable:
		return "injectable"
	case StoreMemo:
		return "memo"
	}
	return fmt.Sprintf("Store(%d)", int(s))
}
