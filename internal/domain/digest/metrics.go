package digest

import (
	"math"
	"strings"
)

// WordCount counts whitespace separated tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// SummaryText flattens a summary into the text that is counted.
func SummaryText(s Summary) string {
	if len(s.KeyPoints) == 0 {
		return s.TLDR
	}
	return s.TLDR + " " + strings.Join(s.KeyPoints, " ")
}

// ComputeMetrics derives word counts and the reduction percentage.
// The percentage is negative when the summary is longer than the source.
func ComputeMetrics(original, summary string) Metrics {
	o := WordCount(original)
	s := WordCount(summary)
	m := Metrics{OriginalWordCount: o, SummaryWordCount: s}
	if o == 0 {
		return m
	}
	m.ReductionPercentage = int(math.Floor(100*float64(o-s)/float64(o) + 0.5))
	return m
}
