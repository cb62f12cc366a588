// Package engine is the context object that owns a pipeline's registry and
// cache and resolves variables out of them.
//
// # Resolution
//
// A variable is requested by expression: a bare name resolves to an
// injectable, else to a table; "table.column" resolves to one column of a
// table. Callables receive their arguments by name. For every declared
// parameter the engine resolves the parameter's own name; when that name is
// not registered at all, the parameter's Default is used instead, either as
// a literal (registry.Direct) or as another expression to resolve
// (registry.Expr). Nothing is matched by type.
//
// # Caching
//
// Function-backed tables, columns and autocall injectables may be cached
// under a scope (see package cache). Re-registering a variable drops its
// cache entry. The runner clears the step and iteration scopes as it goes.
//
// # Tables
//
// A Table is a handle onto a registered table. Its local columns come from
// the backing frame; registered columns extend them in registration order.
// ToFrame always returns a copy. Column returns a copy only when the table
// was registered with copy_col.
//
// An Engine is single threaded: it must not be shared between goroutines
// and registration must not happen re-entrantly while the same name is
// being resolved.
package engine
