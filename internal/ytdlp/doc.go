// Package ytdlp wraps the yt-dlp binary for metadata probes and subtitle
// downloads. Invocations run under the configured timeout with output
// captured for error reporting; tests inject a fake command runner instead
// of spawning the real tool.
package ytdlp
