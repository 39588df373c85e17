// Package config loads, normalizes, and validates scribe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DATA_DIR and TRANSCRIPT_TTL_SECONDS. The Config type centralizes every knob
// the daemon and CLI need; construct it once at startup and pass it by
// reference so business logic never reaches into the environment.
package config
