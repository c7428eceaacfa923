// Package tokenizer implements the built-in tokenize-sentence-split stage.
//
// Text is split into word and punctuation tokens carrying their byte offset
// into the document. Sentence boundaries follow terminal punctuation unless
// the preceding word is a configured abbreviation or a single-letter
// initial.
package tokenizer
