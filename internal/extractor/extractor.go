package extractor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Catherina0/MemoryIndex/pkg/types"
)

const (
	maxSummaryRunes      = 50
	maxTopicSummaryRunes = 200
	maxTags              = 10
	maxTopics            = 20
	minTagRunes          = 2
	maxTagRunes          = 20
)

// Report section labels the extractor recognizes. Headings carrying one of
// these are metadata sections, not content topics.
var (
	summaryLabels = []string{"摘要", "概要", "总结", "summary", "overview", "tl;dr", "tldr"}
	tagLabels     = []string{"标签", "关键词", "tags", "tag", "keywords"}
)

var (
	summarySectionRe = regexp.MustCompile(`(?is)(?:^|\n)#{1,6}[ \t]*(?:摘要|概要|总结|Summary|Overview|TL;?DR)[ \t]*\n+(.+?)(?:\n[ \t]*\n|\n#|$)`)
	summaryInlineRe  = regexp.MustCompile(`(?im)^(?:摘要|概要|总结|Summary)[：:][ \t]*(.+)$`)
	tagsSectionRe    = regexp.MustCompile(`(?is)(?:^|\n)#{1,6}[ \t]*(?:标签|关键词|Tags?|Keywords)[ \t]*\n+(.+?)(?:\n[ \t]*\n|\n#|$)`)
	tagsInlineRe     = regexp.MustCompile(`(?im)^(?:标签|关键词|Tags?|Keywords)[：:][ \t]*(.+)$`)
	tagSplitRe       = regexp.MustCompile(`[,，、;；|]`)
	markupRe         = regexp.MustCompile("\\*\\*|\\*|`|#|\\[|\\]|\\(.*?\\)")
	whitespaceRe     = regexp.MustCompile(`\s+`)
	headingRe        = regexp.MustCompile(`^(#{1,6})[ \t]+(.+?)[ \t]*$`)
	timeRangeRe      = regexp.MustCompile(`\[[ \t]*(\d{1,2}(?::\d{2}){1,2})[ \t]*-[ \t]*(\d{1,2}(?::\d{2}){1,2})[ \t]*\]$`)
)

// Extractor pulls structured knowledge out of unstructured analysis reports.
// Reports come from language models, so every field is parsed through an
// ordered chain of progressively looser patterns. Extraction never fails:
// a report that matches nothing yields a zero-value Extraction whose
// Warnings record what fell through.
type Extractor struct{}

// New creates a new report extractor
func New() *Extractor {
	return &Extractor{}
}

// Extract parses one analysis report into summary, tags, and topics
func (e *Extractor) Extract(report string) types.Extraction {
	var ex types.Extraction

	report = strings.ReplaceAll(report, "\r\n", "\n")
	if strings.TrimSpace(report) == "" {
		ex.Warnings = append(ex.Warnings, "empty report")
		return ex
	}

	var warns []string
	ex.Summary, warns = e.extractSummary(report)
	ex.Warnings = append(ex.Warnings, warns...)

	ex.Tags, warns = e.extractTags(report)
	ex.Warnings = append(ex.Warnings, warns...)

	ex.Topics, warns = e.extractTopics(report)
	ex.Warnings = append(ex.Warnings, warns...)

	return ex
}

// extractSummary walks the fallback chain: labeled section, inline label,
// then the first substantial body line.
func (e *Extractor) extractSummary(report string) (string, []string) {
	if m := summarySectionRe.FindStringSubmatch(report); m != nil {
		if s := cleanSummary(m[1], maxSummaryRunes); s != "" {
			return s, nil
		}
	}

	if m := summaryInlineRe.FindStringSubmatch(report); m != nil {
		if s := cleanSummary(m[1], maxSummaryRunes); s != "" {
			return s, []string{"summary: used inline label"}
		}
	}

	for _, line := range strings.Split(report, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if tagsInlineRe.MatchString(line) {
			continue
		}
		s := cleanSummary(line, maxSummaryRunes)
		if utf8.RuneCountInString(s) > 10 {
			return s, []string{"summary: used first paragraph"}
		}
	}

	return "", []string{"summary: no usable text"}
}

// extractTags finds the tag list via section heading or inline label and
// normalizes the candidates.
func (e *Extractor) extractTags(report string) ([]string, []string) {
	var raw string
	if m := tagsSectionRe.FindStringSubmatch(report); m != nil {
		raw = m[1]
	} else if m := tagsInlineRe.FindStringSubmatch(report); m != nil {
		raw = m[1]
	}
	if raw == "" {
		return nil, []string{"tags: none found"}
	}

	// The section body often repeats the inline form ("标签: a, b")
	if m := tagsInlineRe.FindStringSubmatch(raw); m != nil {
		raw = m[1]
	}

	candidates := tagSplitRe.Split(raw, -1)
	if len(candidates) == 1 && strings.ContainsAny(raw, " \t") {
		// No list delimiters: treat whitespace as the separator
		candidates = strings.Fields(raw)
	}

	seen := make(map[string]bool)
	tags := make([]string, 0, len(candidates))
	var warnings []string
	for _, c := range candidates {
		tag := cleanTag(c)
		n := utf8.RuneCountInString(tag)
		if n < minTagRunes || n > maxTagRunes {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, tag)
		if len(tags) == maxTags {
			warnings = append(warnings, fmt.Sprintf("tags: capped at %d", maxTags))
			break
		}
	}
	if len(tags) == 0 {
		warnings = append(warnings, "tags: no valid candidates")
	}
	return tags, warnings
}

// extractTopics scans for chapter headings. Level-1 headings are treated as
// the document title; metadata sections (summary, tags) are excluded.
func (e *Extractor) extractTopics(report string) ([]types.Topic, []string) {
	var (
		topics   []types.Topic
		warnings []string
		current  *types.Topic
		body     []string
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Summary = cleanSummary(strings.Join(body, " "), maxTopicSummaryRunes)
		topics = append(topics, *current)
		current = nil
		body = nil
	}

	for _, line := range strings.Split(report, "\n") {
		m := headingRe.FindStringSubmatch(line)
		if m == nil {
			if current != nil && strings.TrimSpace(line) != "" {
				body = append(body, strings.TrimSpace(line))
			}
			continue
		}

		flush()

		level := len(m[1])
		if level < 2 {
			continue
		}

		title := m[2]
		var start, end *int
		hasRange := false
		if tm := timeRangeRe.FindStringSubmatch(title); tm != nil {
			hasRange = true
			title = strings.TrimSpace(title[:len(title)-len(tm[0])])
			s, errS := parseTimecode(tm[1])
			t, errT := parseTimecode(tm[2])
			if errS != nil || errT != nil {
				warnings = append(warnings, fmt.Sprintf("topics: bad time range on %q", title))
			} else {
				start, end = &s, &t
			}
		}

		// A time range marks a chapter even when the title collides with a
		// section label ("## 总结 [12:00 - 14:00]" is a closing chapter, not
		// the summary block).
		if !hasRange && isMetadataHeading(title) {
			continue
		}
		title = cleanInline(title)
		if title == "" {
			continue
		}

		current = &types.Topic{Title: title, StartTime: start, EndTime: end}
	}
	flush()

	if len(topics) > maxTopics {
		topics = topics[:maxTopics]
		warnings = append(warnings, fmt.Sprintf("topics: capped at %d", maxTopics))
	}
	for i := range topics {
		topics[i].Sequence = i
	}
	return topics, warnings
}

// parseTimecode converts "MM:SS" or "H:MM:SS" to seconds
func parseTimecode(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timecode %q", s)
	}
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid timecode %q", s)
		}
		total = total*60 + n
	}
	return total, nil
}

// isMetadataHeading reports whether a heading names a summary or tag section
func isMetadataHeading(title string) bool {
	normalized := strings.ToLower(strings.TrimSpace(title))
	for _, label := range summaryLabels {
		if normalized == label {
			return true
		}
	}
	for _, label := range tagLabels {
		if normalized == label {
			return true
		}
	}
	return false
}

// cleanSummary strips markdown markup, collapses whitespace, and truncates
// to the rune limit with an ellipsis. The ellipsis rides on top of the
// limit, so a truncated result is limit+3 runes.
func cleanSummary(s string, limit int) string {
	s = markupRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) > limit {
		s = string(runes[:limit]) + "..."
	}
	return s
}

// cleanInline strips markup from a single-line fragment without truncation
func cleanInline(s string) string {
	s = markupRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// cleanTag normalizes one tag candidate
func cleanTag(s string) string {
	s = markupRe.ReplaceAllString(s, "")
	s = strings.Trim(s, ` "'“”‘’`)
	return strings.TrimSpace(s)
}
