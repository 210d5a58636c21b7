// Package config loads, normalizes, and validates cutline configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CUTLINE_LOG_LEVEL. The Config type centralizes the logging, timeline,
// track, and backend settings the CLI and the timeline model need.
//
// Always obtain settings through this package so downstream code receives
// canonical log formats, sane queue sizes, and clear validation errors.
package config
