package parser

import (
	"regexp"
	"strings"

	"mudae-tracker/internal/domain"
	"mudae-tracker/internal/platform"
)

var (
	pageFooter = regexp.MustCompile(`(\d{1,3})\s*(?:/|of)\s*(\d{1,3})`)

	// Entry line variants: "#1 - Name - Series", "1. Name — Series",
	// "1 - Name - Series". Dash glyphs vary between pages.
	entryPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^#?\s*(\d{1,4})\s*[-.)]\s*(.*?)\s*[-–—]\s*(.+)$`),
		regexp.MustCompile(`^\s*(\d{1,4})\.\s*(.*?)\s*[-–—]\s*(.+)$`),
		regexp.MustCompile(`^\s*(\d{1,4})\s*-\s*(.*?)\s*-\s*(.+)$`),
	}
)

// DetectPage reads the "<page> / <total>" marker from a footer. Either value
// is nil when the footer carries no page marker.
func DetectPage(footer string) (page, total *int) {
	m := pageFooter.FindStringSubmatch(footer)
	if m == nil {
		return nil, nil
	}
	if p := parseGroupedInt(m[1]); p != nil {
		v := int(*p)
		page = &v
	}
	if t := parseGroupedInt(m[2]); t != nil {
		v := int(*t)
		total = &v
	}
	return page, total
}

// ListEmbedText gathers every text source of a list embed into one block.
func ListEmbedText(embed *platform.Embed) string {
	var parts []string
	if embed.Title != "" {
		parts = append(parts, embed.Title)
	}
	if embed.Description != "" {
		parts = append(parts, embed.Description)
	}
	for _, f := range embed.Fields {
		if f.Name != "" {
			parts = append(parts, f.Name)
		}
		if f.Value != "" {
			parts = append(parts, f.Value)
		}
	}

	joined := strings.Join(parts, "\n")
	joined = strings.ReplaceAll(joined, "​", "")
	return strings.ReplaceAll(joined, " ", " ")
}

// ParseListEntries extracts ranked {rank, name, series} triples from a block
// of list text. Lines that match no pattern are skipped silently.
func ParseListEntries(text string) []domain.TopListEntry {
	var entries []domain.TopListEntry
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len([]rune(line)) < 6 {
			continue
		}

		for _, pattern := range entryPatterns {
			m := pattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			rank := parseGroupedInt(m[1])
			if rank == nil {
				break
			}
			entries = append(entries, domain.TopListEntry{
				Rank:   *rank,
				Name:   cleanEmojiAndTags(m[2]),
				Series: cleanEmojiAndTags(m[3]),
			})
			break
		}
	}
	return entries
}
