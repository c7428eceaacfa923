// Package segmenter implements the syntactic-segmentation stage, selecting
// token ranges that hold at least two entities for downstream extraction.
//
// Syntactic mode emits whole sentences. Contextual mode emits windows around
// pairs of entities that are less than context_distance tokens apart, padded
// by the same distance on each side and widened so no entity is cut.
package segmenter
