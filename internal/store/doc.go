// Package store persists run snapshots.
//
// A snapshot is one table written under a tag (base, an iteration value or
// final) for a persistence path. Every Store satisfies runner.Writer and can
// read its snapshots back. Frames are encoded in the JSON split orientation.
package store
