// Package frame is the tabular data model of the engine: a Series is a
// labelled column of go-cty values and a Frame is an ordered set of Series
// sharing one index.
//
// Cells are cty.Value so that values read from pipeline files (HCL, YAML,
// CSV) flow into tables without a second type system. Labels and join keys
// are compared through Key, which gives every primitive value a canonical
// string form.
//
// Frames are not safe for concurrent mutation. Column accessors return the
// backing Series so callers can observe each other's writes; use Copy when
// isolation is needed.
package frame
