// Package jsonx recovers JSON objects from model output that may wrap them in
// explanatory prose or markdown fences.
package jsonx

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrNoObject means no opening brace was found at all.
	ErrNoObject = errors.New("no JSON object found")
	// ErrUnbalanced means an opening brace was found but never closed.
	ErrUnbalanced = errors.New("unbalanced JSON object")
)

var (
	codeFenceRe    = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	trailingComma  = regexp.MustCompile(`,(\s*[}\]])`)
	singleQuoteVal = regexp.MustCompile(`:\s*'([^']*)'`)
)

// ExtractObject returns the first top-level JSON object embedded in s.
// It strips markdown code fences, then scans forward from the first '{'
// tracking brace depth while respecting quoted strings and escape sequences,
// so braces inside string values never confuse the match.
func ExtractObject(s string) (string, error) {
	if m := codeFenceRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", ErrNoObject
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
			// characters inside strings carry no structure
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", ErrUnbalanced
}

// Repair applies lenient fixes for the JSON mistakes models make most often:
// trailing commas before a closing brace/bracket and single-quoted values.
func Repair(s string) string {
	s = trailingComma.ReplaceAllString(s, "$1")
	s = singleQuoteVal.ReplaceAllString(s, `: "$1"`)
	return s
}
