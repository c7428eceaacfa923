// Package tagger implements the pos-tag stage.
//
// Two backends are available. The builtin backend assigns Penn Treebank tags
// from a closed-class lexicon plus suffix and capitalization rules; it needs
// no external tooling and is deterministic. The command backend hands the
// tokens to an external tool through services/annotator.
package tagger
