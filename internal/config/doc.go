// Package config loads, normalizes, and validates unwrapped configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PORT, DATABASE_URL, and NTFY_TOPIC. The Config type centralizes every knob
// the render service, the worker, and the CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
