// Package main hosts the ieprep CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration, opens the named corpus and
// hands work to the internal packages: ingestion, the preprocessing
// pipeline, progress reporting and operator resets. Keep this package lean;
// add functionality to the internal packages first and surface it here.
package main
