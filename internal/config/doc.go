// Package config loads, normalizes, and validates classifier configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// engine and CLI need: knowledge base location, state directory, executor
// tuning, and log routing.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
