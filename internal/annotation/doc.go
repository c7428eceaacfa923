// Package annotation defines the document and annotation model shared by the
// preprocessing pipeline.
//
// Stage names and their prerequisite order live here together with the typed
// annotation payloads (tokens, sentence starts, POS tags, entity occurrences,
// segments). Payloads are validated against the document they belong to before
// they are persisted, so every stored stage result is internally consistent
// with the stages it builds on.
package annotation
