// Package runner drives registered steps through a sequence of iterations.
//
// Each iteration value is injected under a well-known name (year by
// default), every step runs in order and the step and iteration cache
// scopes are cleared as the loop advances. When a persistence path is set,
// the tables the steps use are handed to a Writer as base, per-iteration
// and final snapshots.
package runner
