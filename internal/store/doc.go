// Package store performs path-safe byte-level file I/O scoped to per-session
// directories under the configured data root.
//
// Each session owns <data_dir>/<session_id>/ with a manifest file and
// transcripts/ and derived/ subdirectories. Resolution rejects absolute
// paths, dot-dot segments, and symlinks that escape the session root. The
// package carries no business policy; TTL and capacity decisions live in the
// manifest repository.
package store
