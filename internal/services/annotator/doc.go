// Package annotator runs external NLP tools that annotate one document per
// process invocation.
//
// The tool receives a JSON request on stdin (document id, text, tokens,
// sentence starts, and any POS tags) and answers with a JSON response on
// stdout carrying either POS tags or entity spans. Failures are classified
// with the services markers: a missing or non-executable binary is
// ErrUnavailable (fatal), a non-zero exit or malformed reply is
// ErrExternalTool and an expired per-document deadline is ErrTimeout (both
// recoverable).
//
// Prefer this package over ad-hoc exec.Command usage so timeouts and error
// classification stay consistent across stages.
package annotator
