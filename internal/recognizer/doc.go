// Package recognizer provides the entity sources merged by the
// named-entity-recognition stage.
//
// Literal matches gazetteer aliases against document tokens, taking the
// longest match at each position. Statistical delegates to an external
// model through services/annotator.
package recognizer
