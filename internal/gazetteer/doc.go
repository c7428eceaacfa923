// Package gazetteer defines the configured entity kinds and loads the
// dictionary of known entities used by the literal recognizer.
package gazetteer
