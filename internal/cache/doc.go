// Package cache implements the engine's scoped result cache.
//
// # Stores
//
// The cache is split into four independent stores, one per kind of cached
// value:
//
//   - StoreTable: materialized tables, keyed by table name.
//   - StoreColumn: computed columns, keyed by ColumnKey(table, column).
//   - StoreInjectable: resolved injectables, keyed by name.
//   - StoreMemo: memoized callables, keyed by MemoKey(name, signature).
//
// # Scopes
//
// Every entry is tagged with the Scope it was computed under. Scopes nest:
// step entries live inside an iteration, which lives inside forever.
// ClearScope(s) drops the entries of s and of every narrower scope, across
// all four stores. Clear drops everything.
//
// # Enabling and disabling
//
// When the cache is disabled GetOrCompute always recomputes, but it still
// writes the fresh value through so that re-enabling serves the last value
// computed while disabled.
package cache
