// Package workflow drives every corpus document through the registered
// preprocessing stages.
//
// The Manager runs stages one after another in prerequisite order. For each
// stage it asks the progress tracker which documents still need it, loads
// each document, runs the stage's runner (or its recognizers followed by the
// annotation merger), and records the result. A recoverable failure is logged
// and recorded in the run report while the run continues; a fatal failure
// halts the run, leaving completed work in place. Because completion is read
// back from the store, rerunning after a crash or an interrupt resumes with
// only the missing work.
//
// Documents within one stage may be processed by several workers; stages are
// never overlapped.
package workflow
