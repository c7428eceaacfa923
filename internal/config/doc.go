// Package config loads, normalizes, and validates ieprep configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// IEPREP_CUSTOM_ENTITY_KINDS. The Config type centralizes every knob the
// pipeline and CLI need, so corpus locations, annotator backends, and
// orchestration limits are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
