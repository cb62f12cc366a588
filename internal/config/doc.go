// Package config defines the format-agnostic pipeline model and the Loader
// interface that turns pipeline files into it.
//
// The Model is what the app registers on an engine: CSV-backed tables,
// literal injectables, broadcasts and the run block. Concrete loaders for
// HCL and YAML live in separate packages.
package config
