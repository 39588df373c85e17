// Package infocache caches downloader metadata probes per video URL so that
// repeated duration and auto-mode lookups skip the external tool. Entries
// carry a TTL; the cache is memory-only by default and can spill to a
// SQLite database for reuse across daemon restarts.
package infocache
