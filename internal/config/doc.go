// Package config loads, normalizes, and validates stemswap configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// VDB_API_KEY and VDB_URL. The Config type centralizes every knob the CLI and
// pipeline need: catalog connection, matching thresholds, output locations,
// the run ledger, metrics, and logging.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log formats, and clear validation errors.
package config
