// Package language selects subtitle tracks against a configured language
// preference. Preferences use the downloader's pattern syntax ("en.*",
// "en,es", "all"); candidate track codes are matched as BCP 47 tags so that
// regional and origin variants such as en-US or en-orig resolve to the
// preferred base language.
package language
