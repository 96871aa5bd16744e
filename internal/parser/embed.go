// Package parser extracts structured character data from the loosely
// formatted embeds Mudae emits. Extraction is best-effort: an embed that does
// not match any recognized pattern is rejected, never an error.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"mudae-tracker/internal/constants"
	"mudae-tracker/internal/domain"
	"mudae-tracker/internal/platform"
)

var (
	// Keywords that mark list/summary embeds rather than single characters.
	titleNoiseKeywords  = []string{"top", "roulette", "daily", "ranking", "claim rank", "like rank"}
	authorNoiseKeywords = []string{"top", "roulette", "daily", "ranking"}

	// First description lines containing these are not series titles.
	seriesNoiseKeywords = []string{"roulette", "claim", "rank", "like", "kakera"}

	emojiTags    = regexp.MustCompile(`<:[^>]+>|[💎♦♂♀]`)
	letters      = regexp.MustCompile(`[A-Za-z]`)
	snowflakeRun = regexp.MustCompile(`\b\d{17,20}\b`)

	// Ordered kakera value extractors; first match wins.
	kakeraPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d{1,3}(?:,\d{3})*)\s*[💎♦]`),
		regexp.MustCompile(`[💎♦]\s*(\d{1,3}(?:,\d{3})*)`),
		regexp.MustCompile(`(\d{1,3}(?:,\d{3})*)\s*<:kakera:`),
		regexp.MustCompile(`(?i)roulette\s*[•-]?\s*(\d{1,3}(?:,\d{3})*)`),
	}
	windowNumbers = regexp.MustCompile(`\d{1,3}(?:,\d{3})*|\d{1,4}`)

	claimRankPattern = regexp.MustCompile(`(?i)Claim\s*Rank\s*:\s*#?\s*([\d,]+)`)
	likeRankPattern  = regexp.MustCompile(`(?i)Like\s*Rank\s*:\s*#?\s*([\d,]+)`)
)

// ParseCharacterEmbed extracts {name, series, kakera, claim rank, like rank}
// from one embed. Returns nil when the embed is not a single-character embed.
func ParseCharacterEmbed(embed *platform.Embed) *domain.ParsedCharacter {
	if embed == nil {
		return nil
	}

	titleLower := strings.ToLower(strings.TrimSpace(embed.Title))
	authorLower := strings.ToLower(strings.TrimSpace(embed.AuthorLine))

	for _, kw := range titleNoiseKeywords {
		if strings.Contains(titleLower, kw) {
			return nil
		}
	}
	for _, kw := range authorNoiseKeywords {
		if strings.Contains(authorLower, kw) {
			return nil
		}
	}

	// The author line carries the character name; the title is a fallback.
	name := cleanEmojiAndTags(embed.AuthorLine)
	if name == "" {
		name = cleanEmojiAndTags(embed.Title)
	}

	series := extractSeries(embed.Description, name)

	parsed := &domain.ParsedCharacter{
		Name:        name,
		Series:      series,
		KakeraValue: extractKakera(embed.Description),
		ClaimRank:   matchRank(claimRankPattern, embed.Description),
		LikeRank:    matchRank(likeRankPattern, embed.Description),
	}

	// Self-titled characters have no separate series line.
	if parsed.Series == "" || !letters.MatchString(parsed.Series) {
		parsed.Series = parsed.Name
	}

	if parsed.Name == "" || parsed.Series == "" || !letters.MatchString(parsed.Name) {
		return nil
	}

	parsed.Name = strings.TrimSpace(parsed.Name)
	parsed.Series = strings.TrimSpace(parsed.Series)
	return parsed
}

// extractSeries takes the first non-empty description line when it looks like
// a series title: long enough, free of rank/claim keywords and entity-id digit
// runs, and distinct from the character name.
func extractSeries(description, name string) string {
	var firstLine string
	for _, line := range strings.Split(description, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			firstLine = cleanEmojiAndTags(trimmed)
			break
		}
	}
	if firstLine == "" || len([]rune(firstLine)) <= 2 {
		return ""
	}

	lineLower := strings.ToLower(firstLine)
	for _, kw := range seriesNoiseKeywords {
		if strings.Contains(lineLower, kw) {
			return ""
		}
	}
	if snowflakeRun.MatchString(firstLine) {
		return ""
	}
	if strings.EqualFold(firstLine, name) {
		return ""
	}
	return firstLine
}

func extractKakera(description string) *int64 {
	for _, pattern := range kakeraPatterns {
		if m := pattern.FindStringSubmatch(description); m != nil {
			return parseGroupedInt(m[1])
		}
	}
	return kakeraNearIcon(description)
}

// kakeraNearIcon is the last-resort pass: scan a window around the currency
// icon for any bare number in the plausible kakera range.
func kakeraNearIcon(description string) *int64 {
	runes := []rune(description)
	pos := -1
	for i, r := range runes {
		if r == '💎' || r == '♦' {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil
	}

	lo := max(0, pos-constants.KakeraWindowRadius)
	hi := min(len(runes), pos+constants.KakeraWindowRadius)
	snippet := string(runes[lo:hi])

	for _, candidate := range windowNumbers.FindAllString(snippet, -1) {
		if v := parseGroupedInt(candidate); v != nil &&
			*v >= constants.KakeraValueMin && *v <= constants.KakeraValueMax {
			return v
		}
	}
	return nil
}

func matchRank(pattern *regexp.Regexp, description string) *int64 {
	if m := pattern.FindStringSubmatch(description); m != nil {
		return parseGroupedInt(m[1])
	}
	return nil
}

func cleanEmojiAndTags(s string) string {
	return strings.TrimSpace(emojiTags.ReplaceAllString(s, ""))
}

// parseGroupedInt converts "6,000" style numbers; nil on any failure.
func parseGroupedInt(s string) *int64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}
