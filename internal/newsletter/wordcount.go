package newsletter

import (
	"log"
	"strings"
)

// ellipsisMarker is appended to the final token of truncated content. It never
// counts toward the word budget, which keeps enforcement idempotent.
const ellipsisMarker = "..."

// WordCountValidation is the verdict for one piece of content against a target
// band. Exactly one of WithinRange, OverLimit and UnderLimit is true.
type WordCountValidation struct {
	WordCount   int  `json:"wordCount"`
	MinWords    int  `json:"minWords"`
	MaxWords    int  `json:"maxWords"`
	WithinRange bool `json:"withinRange"`
	OverLimit   bool `json:"overLimit"`
	UnderLimit  bool `json:"underLimit"`
}

// CountWords returns the number of whitespace-delimited tokens in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// ValidateWordCount classifies content against [min, max]. Pure and
// deterministic.
func ValidateWordCount(content string, minWords, maxWords int) WordCountValidation {
	wc := CountWords(content)
	return WordCountValidation{
		WordCount:   wc,
		MinWords:    minWords,
		MaxWords:    maxWords,
		WithinRange: wc >= minWords && wc <= maxWords,
		OverLimit:   wc > maxWords,
		UnderLimit:  wc < minWords,
	}
}

// TrimToLimit truncates content to exactly maxWords whitespace tokens and
// attaches the ellipsis marker to the final token. Content already at or under
// the limit is returned unchanged.
func TrimToLimit(content string, maxWords int) string {
	words := strings.Fields(content)
	if len(words) <= maxWords {
		return content
	}
	trimmed := words[:maxWords]
	return strings.Join(trimmed, " ") + ellipsisMarker
}

// LengthGovernor enforces the configured word-count band on consolidated
// drafts.
type LengthGovernor struct {
	minWords int
	maxWords int
	logger   *log.Logger
}

func NewLengthGovernor(minWords, maxWords int) *LengthGovernor {
	return &LengthGovernor{
		minWords: minWords,
		maxWords: maxWords,
		logger:   log.New(log.Writer(), "[LENGTH] ", log.LstdFlags),
	}
}

// Validate classifies content against the configured band.
func (g *LengthGovernor) Validate(content string) WordCountValidation {
	return ValidateWordCount(content, g.minWords, g.maxWords)
}

// Enforce truncates over-length content to the maximum and flags under-length
// content in the log. Under-length content is never auto-expanded, only
// flagged. Idempotent on within-range content and on already-truncated
// content.
func (g *LengthGovernor) Enforce(content string) string {
	v := g.Validate(content)
	if v.OverLimit {
		g.logger.Printf("content exceeds word limit by %d words, trimming to %d", v.WordCount-v.MaxWords, v.MaxWords)
		return TrimToLimit(content, g.maxWords)
	}
	if v.UnderLimit {
		g.logger.Printf("content under word limit by %d words", v.MinWords-v.WordCount)
	}
	return content
}
