// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// translates CLI flags, environment variables and an optional config file
// into the application's internal configuration.
//
// Every flag can also be set through an environment variable named after
// it with the TABLEGRID_ prefix, e.g. TABLEGRID_LOG_LEVEL=debug.
package cli
