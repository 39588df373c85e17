package language

import (
	"strings"

	xlang "golang.org/x/text/language"
)

// Preference is a parsed subtitle language preference. The zero value
// matches nothing; use ParsePreference.
type Preference struct {
	raw     string
	all     bool
	exact   []string
	globs   []string
	tags    []xlang.Tag
	matcher xlang.Matcher
}

// ParsePreference parses a comma-separated preference string. Each token is
// either a plain code ("en"), a glob covering regional and origin variants
// ("en.*"), or the wildcard "all". Unparseable tokens still participate in
// literal matching, so downloader-specific codes like en-orig keep working.
func ParsePreference(raw string) Preference {
	p := Preference{raw: strings.TrimSpace(raw)}
	for _, token := range strings.Split(p.raw, ",") {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		if token == "all" {
			p.all = true
			continue
		}
		base := token
		if strings.HasSuffix(token, ".*") {
			base = strings.TrimSuffix(token, ".*")
			p.globs = append(p.globs, base)
		} else {
			p.exact = append(p.exact, base)
		}
		if tag, err := xlang.Parse(base); err == nil {
			p.tags = append(p.tags, tag)
		}
	}
	if len(p.tags) > 0 {
		p.matcher = xlang.NewMatcher(p.tags)
	}
	return p
}

// Raw returns the preference string as configured.
func (p Preference) Raw() string {
	return p.raw
}

// IsAll reports whether the preference accepts any language.
func (p Preference) IsAll() bool {
	return p.all
}

// Matches reports whether a track code satisfies the preference.
func (p Preference) Matches(code string) bool {
	return p.score(code) > 0
}

// PickTrack returns the best-matching candidate code. Literal matches beat
// BCP 47 matcher results so that a track tagged exactly as configured always
// wins over a regional variant.
func (p Preference) PickTrack(codes []string) (string, bool) {
	best := ""
	bestScore := 0
	for _, code := range codes {
		if s := p.score(code); s > bestScore {
			best = code
			bestScore = s
		}
	}
	return best, bestScore > 0
}

func (p Preference) score(code string) int {
	code = normalizeCode(code)
	if code == "" {
		return 0
	}
	if p.all {
		return 10
	}
	for _, base := range p.exact {
		if code == base {
			return 100
		}
	}
	for _, base := range p.globs {
		if code == base {
			return 100
		}
		if strings.HasPrefix(code, base+"-") {
			return 90
		}
	}
	if p.matcher != nil {
		if tag, err := xlang.Parse(code); err == nil {
			if _, _, conf := p.matcher.Match(tag); conf >= xlang.High {
				return 50 + int(conf)
			}
		}
	}
	return 0
}

func normalizeCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	return strings.ReplaceAll(code, "_", "-")
}
