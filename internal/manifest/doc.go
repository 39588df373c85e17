// Package manifest owns the durable per-session index of stored items.
//
// One JSON manifest per session is the single source of truth for what exists
// on disk under that session root. Saves are atomic (temp file + rename) so a
// concurrent reader never observes a partial manifest, and every
// load-mutate-save sequence for a session is serialized behind an in-process
// mutex plus an advisory file lock, so daemon and CLI invocations cannot lose
// updates to each other. Expiry is lazy: cleanup runs at the start of any
// session-scoped operation rather than on a background timer.
package manifest
