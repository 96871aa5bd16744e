// Package normalize canonicalizes character and series names into the keys
// the store matches on.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRuns = regexp.MustCompile(`\s+`)

	// Punctuation that commonly varies between renderings of the same series
	// title. Colons are dropped too; names keep theirs via Name.
	seriesPunct = regexp.MustCompile(`[/\\()\[\]{},;"’‘*+?·•:]`)

	// Trailing Japanese particle "wo" (or を) optionally followed by
	// exclamation marks and spaces. Fixed special case, not generalized.
	trailingParticle = regexp.MustCompile(`(?:\bwo\b|を)[\s!！]*$`)

	trailingMarks = regexp.MustCompile(`[!！?？]+$`)
)

// Name is the conservative normalizer used for character name keys. It keeps
// punctuation, which can be a meaningful part of a name.
func Name(text string) string {
	if text == "" {
		return ""
	}
	s := norm.NFKC.String(strings.TrimSpace(text))
	s = strings.ToLower(s)
	return strings.TrimSpace(whitespaceRuns.ReplaceAllString(s, " "))
}

// SeriesLoose is the looser normalizer used for series keys. Two renderings of
// the same title that differ only by trailing particles or punctuation, such
// as "Kono Subarashii Sekai ni Shukufuku wo!" and "Kono Subarashii Sekai ni
// Shukufuku", normalize to the same string.
func SeriesLoose(series string) string {
	if series == "" {
		return "unknown"
	}

	s := norm.NFKC.String(strings.TrimSpace(series))
	s = strings.ToLower(s)

	s = seriesPunct.ReplaceAllString(s, " ")
	s = strings.NewReplacer("—", "-", "–", "-").Replace(s)
	s = strings.TrimSpace(whitespaceRuns.ReplaceAllString(s, " "))

	s = trailingParticle.ReplaceAllString(s, "")
	s = trailingMarks.ReplaceAllString(s, "")

	return strings.TrimSpace(s)
}
