// Package registry holds the variable definitions an engine resolves.
//
// There are four namespaces: tables, columns (keyed by table and column),
// injectables and steps. Each keeps its names in registration order and
// re-registering a name replaces its definition in place. The registry also
// owns the set of declared broadcasts between tables.
//
// Callables are described without reflection: a Func lists its parameters
// by name, each optionally carrying a Default, and receives its injected
// arguments as Args keyed by those names.
//
// Validate checks that what was registered before a run hangs together.
package registry
