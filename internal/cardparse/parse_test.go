package cardparse

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected []Card
	}{
		{
			name:     "empty input",
			input:    "",
			expected: []Card{},
		},
		{
			name:     "whitespace only",
			input:    "  \n\t ",
			expected: []Card{},
		},
		{
			name:     "json fence",
			input:    "```json\n[{\"question\":\"Q\",\"answer\":\"A\"}]\n```",
			expected: nil, // single-character fields are filtered
		},
		{
			name:     "json fence with real content",
			input:    "```json\n[{\"question\":\"What is Go?\",\"answer\":\"A language\"}]\n```",
			expected: []Card{{Question: "What is Go?", Answer: "A language"}},
		},
		{
			name:     "bare fence",
			input:    "```\n[{\"question\":\"Capital of France?\",\"answer\":\"Paris\"}]\n```",
			expected: []Card{{Question: "Capital of France?", Answer: "Paris"}},
		},
		{
			name:     "fence without newline",
			input:    "```json[{\"question\":\"2+2?\",\"answer\":\"four\"}]```",
			expected: []Card{{Question: "2+2?", Answer: "four"}},
		},
		{
			name:     "surrounding whitespace",
			input:    "\n\n  [{\"question\":\"Largest planet?\",\"answer\":\"Jupiter\"}]  \n",
			expected: []Card{{Question: "Largest planet?", Answer: "Jupiter"}},
		},
		{
			name:  "drops short records and keeps order",
			input: `[{"question":"First?","answer":"one"},{"question":"x","answer":"A long answer"},{"question":"Third?","answer":" "},{"question":"Fourth?","answer":"four"}]`,
			expected: []Card{
				{Question: "First?", Answer: "one"},
				{Question: "Fourth?", Answer: "four"},
			},
		},
		{
			name:     "extra keys are ignored",
			input:    `[{"question":"Why?","answer":"Because","topic":"misc"}]`,
			expected: []Card{{Question: "Why?", Answer: "Because"}},
		},
		{
			name:     "empty array",
			input:    "[]",
			expected: []Card{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cards, err := Parse(tc.input)
			require.NoError(t, err)
			require.NotNil(t, cards)
			if len(tc.expected) == 0 {
				assert.Empty(t, cards)
				return
			}
			assert.Equal(t, tc.expected, cards)
		})
	}
}

func TestParse_SingleCharacterFieldsAreDropped(t *testing.T) {
	cards, err := Parse(`[{"question":"Q","answer":"A"},{"question":"x","answer":"A"}]`)
	require.NoError(t, err)
	assert.Empty(t, cards)

	cards, err = Parse(`[{"question":"Qu","answer":"An"},{"question":"x","answer":"An"}]`)
	require.NoError(t, err)
	assert.Equal(t, []Card{{Question: "Qu", Answer: "An"}}, cards)
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		message string
	}{
		{"not json", "not json", msgNoJSON},
		{"prose before array", "Here are your cards: [{\"question\":\"Q1?\",\"answer\":\"A1\"}]", msgNoJSON},
		{"fence only", "```", msgNoJSON},
		{"tag runs into prose", "```jsonfoo", msgNoJSON},
		{"prose after fence line", "```json\nfoo\n```", msgNoJSON},
		{"truncated array", `[{"question":"Q1?","answer":"A1"`, msgInvalidJSON},
		{"missing keys", `[{"q":"Q"}]`, msgBadStructure},
		{"object instead of array", `{"question":"Q1?","answer":"A1"}`, msgBadStructure},
		{"non-string answer", `[{"question":"Q1?","answer":42}]`, msgBadStructure},
		{"array of strings", `["Q1?","A1"]`, msgBadStructure},
		{"null element", `[null]`, msgBadStructure},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cards, err := Parse(tc.input)
			assert.Nil(t, cards)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tc.message, perr.Message)
		})
	}
}

func TestParseError_CarriesSnippetAndCause(t *testing.T) {
	long := "[" + strings.Repeat(`{"question":"Q1?","answer":"A1"},`, 20)

	_, err := Parse(long)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Len(t, []rune(perr.Snippet), snippetLen)
	assert.True(t, strings.HasPrefix(long, perr.Snippet))

	var syntaxErr *json.SyntaxError
	assert.True(t, errors.As(err, &syntaxErr))
	assert.Contains(t, err.Error(), "parse error:")
}

func TestClean(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"```json\n[1]\n```", "[1]"},
		{"```JSON\r\n[1]\r\n```", "[1]"},
		{"```\n{}\n```", "{}"},
		{"  [1]  ", "[1]"},
		{"[1]\n```", "[1]"},
		{"```typescript\n[]", "[]"},
		{"```jsonfoo", ""},
		{"```json\nfoo", "foo"},
		{"```c++ [1]```", "[1]"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, Clean(tc.input), "input %q", tc.input)
	}
}
