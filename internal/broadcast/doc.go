// Package broadcast holds the declared join relationships between tables
// and turns a set of participating tables into a merge plan.
//
// A Broadcast says that table Cast can be joined onto table Onto. Given a
// target table and the participating tables, BuildTree roots a tree at the
// target whose children are the tables broadcasting onto each node. The
// participating tables must form exactly one such tree: a table reachable
// through two paths, or not reachable at all, is a structural error.
//
// Plan walks the tree bottom-up with an explicit stack and yields the
// pairwise merges in the order they must be applied.
package broadcast
