package subtitles

import (
	"regexp"
	"strings"
)

// Structural markers dropped during normalization. Matching is by prefix and
// case-sensitive on the canonical WebVTT spellings.
var structuralPrefixes = []string{
	"WEBVTT",
	"NOTE",
	"STYLE",
	"REGION",
	"Kind:",
	"Language:",
}

var (
	cueTimingPattern    = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d{3}\s-->\s`)
	inlineStampPattern  = regexp.MustCompile(`<\d{2}:\d{2}:\d{2}\.\d{3}>`)
	stylingTagPattern   = regexp.MustCompile(`</?c(\.[^>]*)?>`)
	angleBracketPattern = regexp.MustCompile(`</?[^>]+>`)
	whitespaceRun       = regexp.MustCompile(`\s+`)
)

// Normalizer converts raw cue text into deduplicated transcript lines.
type Normalizer struct {
	// Window is the rolling dedup window size. Values <= 0 disable rolling
	// dedup; consecutive duplicates are always dropped.
	Window int
}

// Normalize returns the cleaned transcript joined with newlines. Empty input
// and input containing only structural or timing lines yield an empty string.
func (n Normalizer) Normalize(raw []byte) string {
	lines := Dedupe(Lines(raw), n.Window)
	return strings.Join(lines, "\n")
}

// Lines splits raw cue text, drops structural and timing lines, strips inline
// tags, and collapses whitespace. Lines that become empty are dropped.
func Lines(raw []byte) []string {
	normalized := strings.ReplaceAll(string(raw), "\r\n", "\n")
	var out []string
	for _, rawLine := range strings.Split(normalized, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}
		if isStructural(line) {
			continue
		}
		if cueTimingPattern.MatchString(line) {
			continue
		}

		line = inlineStampPattern.ReplaceAllString(line, "")
		line = stylingTagPattern.ReplaceAllString(line, "")
		line = angleBracketPattern.ReplaceAllString(line, "")
		line = strings.TrimSpace(whitespaceRun.ReplaceAllString(line, " "))

		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Dedupe removes consecutive duplicates, then suppresses any line equal to
// one of the last window kept lines. window <= 0 disables the rolling rule.
func Dedupe(lines []string, window int) []string {
	deduped := make([]string, 0, len(lines))
	var recent []string
	prev := ""
	havePrev := false

	for _, line := range lines {
		if havePrev && line == prev {
			continue
		}
		if window > 0 && contains(recent, line) {
			continue
		}
		deduped = append(deduped, line)
		if window > 0 {
			recent = append(recent, line)
			if len(recent) > window {
				recent = recent[len(recent)-window:]
			}
		}
		prev = line
		havePrev = true
	}
	return deduped
}

func isStructural(line string) bool {
	for _, prefix := range structuralPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func contains(lines []string, target string) bool {
	for _, line := range lines {
		if line == target {
			return true
		}
	}
	return false
}
