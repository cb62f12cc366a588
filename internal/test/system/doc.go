// Package system holds end-to-end tests that load pipeline files, build an
// app and run it through testutil.
package system
