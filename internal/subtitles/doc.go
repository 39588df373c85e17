// Package subtitles turns noisy WebVTT cue data into clean transcript text.
//
// The normalizer strips headers, cue timings, and inline styling tags, then
// deduplicates the surviving lines: a line equal to the immediately preceding
// kept line is dropped, and a line equal to any of the last W kept lines is
// dropped as a caption rollover artifact. Normalization is deterministic and
// total; malformed input degrades to fewer lines, never an error.
package subtitles
