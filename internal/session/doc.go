// Package session exposes the session-scoped read and item-management
// operations: listing, pin state, TTL changes, deletion, derived-file
// writes, and metadata or chunked reads addressed by item id or relative
// path. Every operation runs expiry cleanup first, so a lapsed item is
// reported as expired on the access that finds it gone.
package session
