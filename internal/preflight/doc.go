// Package preflight provides readiness checks for the filesystem paths and
// external tools a preprocessing run depends on.
//
// The CLI "check" command prints every result; "preprocess" runs the same
// checks first and refuses to start when a required one fails, so a run does
// not halt on its first document with an unavailable tool.
//
// Each tool check is gated by its config toggle; disabled features are
// skipped.
package preflight
