// Package transcribe orchestrates transcript ingestion: URL validation,
// subtitle download, cue normalization, format serialization, and manifest
// registration. Auto mode probes video metadata first and returns inline
// text when the normalized transcript fits the configured byte threshold.
package transcribe
