// Package cardparse recovers question/answer records from free-form model
// output that is expected to hold a JSON array, possibly wrapped in a
// markdown code fence.
package cardparse

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	fence      = "```"
	snippetLen = 200

	msgNoJSON       = "could not extract valid JSON content"
	msgInvalidJSON  = "failed to parse response as JSON"
	msgBadStructure = "response structure is not the expected array of question/answer objects"
)

// Card is a generated question/answer candidate.
type Card struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ParseError describes why model output could not be turned into cards.
// Snippet holds the start of the cleaned content for diagnosis.
type ParseError struct {
	Message string
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Snippet != "" {
		fmt.Fprintf(&b, "; content after cleaning started with: %s...", e.Snippet)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, "; parse error: %v", e.Err)
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse cleans raw and decodes it into cards. Empty input means nothing was
// generated and yields an empty list. Records whose trimmed question or
// answer is a single character or shorter are dropped.
func Parse(raw string) ([]Card, error) {
	if strings.TrimSpace(raw) == "" {
		return []Card{}, nil
	}

	cleaned := Clean(raw)

	if !strings.HasPrefix(cleaned, "[") && !strings.HasPrefix(cleaned, "{") {
		return nil, &ParseError{Message: msgNoJSON}
	}

	var decoded any
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return nil, &ParseError{Message: msgInvalidJSON, Snippet: snippet(cleaned), Err: err}
	}

	items, ok := decoded.([]any)
	if !ok {
		return nil, &ParseError{Message: msgBadStructure}
	}

	cards := make([]Card, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &ParseError{Message: msgBadStructure}
		}
		q, qok := obj["question"].(string)
		a, aok := obj["answer"].(string)
		if !qok || !aok {
			return nil, &ParseError{Message: msgBadStructure}
		}
		cards = append(cards, Card{Question: q, Answer: a})
	}

	valid := cards[:0]
	for _, c := range cards {
		if meaningful(c.Question) && meaningful(c.Answer) {
			valid = append(valid, c)
		}
	}
	return valid, nil
}

// Clean trims raw and strips a leading fence line (with an optional
// language tag) and a trailing fence.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, fence) {
		s = strings.TrimLeftFunc(s[len(fence):], isLangRune)
		s = strings.TrimSpace(s)
	}

	if strings.HasSuffix(s, fence) {
		s = strings.TrimSpace(s[:len(s)-len(fence)])
	}

	return s
}

func isLangRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '+' || r == '_'
}

func meaningful(s string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) > 1
}

func snippet(s string) string {
	if utf8.RuneCountInString(s) <= snippetLen {
		return s
	}
	return string([]rune(s)[:snippetLen])
}
