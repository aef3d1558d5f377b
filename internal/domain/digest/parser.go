package digest

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	placeholderTLDR     = "Summary generated successfully."
	placeholderKeyPoint = "Key insights were extracted from the provided content."
	minFallbackPointLen = 10
	keyPointCeiling     = 5
)

var (
	bulletPrefix   = regexp.MustCompile(`^\s*(?:•\s*|[*-](?:\s+|$))`)
	listLine       = regexp.MustCompile(`^\s*(?:[•*-]|\d+[.)])\s+(.+)$`)
	sentenceBreaks = regexp.MustCompile(`[.!?]+`)

	tldrPattern      = markerPattern(tldrMarker)
	keyPointsPattern = markerPattern(keyPointsMarker)
)

// ParseResponse turns raw model output into a Summary. Structural
// irregularities degrade to fallbacks and placeholders; only an empty
// response is an error.
func ParseResponse(raw string, style OutputStyle, maxKeyPoints int) (Summary, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return Summary{}, newError(CodeEmptyResponse, "the AI service returned an empty response", nil)
	}
	if style == StyleParagraph {
		return Summary{TLDR: content, KeyPoints: []string{}}, nil
	}

	limit := keyPointCeiling
	if maxKeyPoints > 0 && maxKeyPoints < limit {
		limit = maxKeyPoints
	}

	summary, ok := parseMarkers(content, limit)
	if !ok {
		summary = parseFallback(content, limit)
	}
	if summary.TLDR == "" {
		summary.TLDR = placeholderTLDR
	}
	if len(summary.KeyPoints) == 0 {
		summary.KeyPoints = []string{placeholderKeyPoint}
	}
	return summary, nil
}

// FormatStructured renders s in the marker format ParseResponse reads.
func FormatStructured(s Summary) string {
	var b strings.Builder
	b.WriteString(tldrMarker)
	b.WriteString(" ")
	b.WriteString(s.TLDR)
	b.WriteString("\n\n")
	b.WriteString(keyPointsMarker)
	for _, point := range s.KeyPoints {
		b.WriteString("\n• ")
		b.WriteString(point)
	}
	return b.String()
}

func parseMarkers(content string, limit int) (Summary, bool) {
	tldr := tldrPattern.FindStringIndex(content)
	if tldr == nil {
		return Summary{}, false
	}
	body := content[tldr[1]:]
	points := keyPointsPattern.FindStringIndex(body)
	if points == nil {
		return Summary{}, false
	}

	return Summary{
		TLDR:      strings.TrimSpace(body[:points[0]]),
		KeyPoints: splitKeyPoints(body[points[1]:], limit),
	}, true
}

// splitKeyPoints splits a block on leading bullet markers. Lines without a
// marker continue the previous point.
func splitKeyPoints(block string, limit int) []string {
	points := make([]string, 0, limit)
	var current []string
	flush := func() {
		if point := strings.Join(current, " "); point != "" {
			points = append(points, point)
		}
		current = nil
	}
	for _, line := range strings.Split(block, "\n") {
		if loc := bulletPrefix.FindStringIndex(line); loc != nil {
			flush()
			line = line[loc[1]:]
		}
		if line = strings.TrimSpace(line); line != "" {
			current = append(current, line)
		}
	}
	flush()
	if len(points) > limit {
		points = points[:limit]
	}
	return points
}

func parseFallback(content string, limit int) Summary {
	content = stripMarkers(content)

	var (
		prose  []string
		points = make([]string, 0, limit)
	)
	for _, line := range strings.Split(content, "\n") {
		if m := listLine.FindStringSubmatch(line); m != nil {
			point := strings.TrimSpace(m[1])
			if utf8.RuneCountInString(point) > minFallbackPointLen && len(points) < limit {
				points = append(points, point)
			}
			continue
		}
		prose = append(prose, line)
	}

	text := strings.Join(prose, " ")
	if strings.TrimSpace(text) == "" {
		text = content
	}
	return Summary{TLDR: firstSentences(text, 2), KeyPoints: points}
}

func firstSentences(text string, n int) string {
	segments := make([]string, 0, n)
	for _, part := range sentenceBreaks.Split(text, -1) {
		part = strings.Join(strings.Fields(part), " ")
		if part == "" {
			continue
		}
		segments = append(segments, part)
		if len(segments) == n {
			break
		}
	}
	if len(segments) == 0 {
		return ""
	}
	return strings.Join(segments, ". ") + "."
}

func stripMarkers(content string) string {
	for _, pattern := range []*regexp.Regexp{tldrPattern, keyPointsPattern} {
		if loc := pattern.FindStringIndex(content); loc != nil {
			content = content[:loc[0]] + content[loc[1]:]
		}
	}
	return content
}

// markerPattern matches marker case-insensitively on the original bytes, so
// offsets stay valid when case folding changes a rune's width.
func markerPattern(marker string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(marker))
}
