// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary execution lifecycle, decoupled
// from any specific entrypoint like a CLI or server.
//
// An App loads a pipeline, registers its tables, injectables and
// broadcasts with a fresh engine next to the built-in modules, and runs the
// pipeline's run block through the runner, persisting snapshots when asked.
package app
