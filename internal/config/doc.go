// Package config loads, normalizes, and validates sortbook configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// SORTBOOK_WORKFLOW_URL (optionally sourced from a .env file). The Config
// type centralizes every knob the CLI and pipeline need so downstream code
// receives sanitized paths, canonical log formats, and clear validation
// errors.
package config
