package rag

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSONObject is returned when generator output holds no parseable JSON object.
var ErrNoJSONObject = errors.New("no JSON object found")

// ExtractJSONObject returns the first balanced {...} span in raw that is
// valid JSON. Braces inside string literals are ignored, including escaped quotes.
func ExtractJSONObject(raw string) (string, error) {
	for start := strings.IndexByte(raw, '{'); start >= 0; {
		// Unclosed or invalid candidates move the scan to the next brace.
		if end, ok := balancedEnd(raw, start); ok {
			candidate := raw[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, nil
			}
		}

		next := strings.IndexByte(raw[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", ErrNoJSONObject
}

// balancedEnd returns the index of the brace closing the one at start.
func balancedEnd(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// ParseGeneratedAnswer extracts and decodes the generator's JSON object.
func ParseGeneratedAnswer(raw string) (GeneratedAnswer, error) {
	obj, err := ExtractJSONObject(raw)
	if err != nil {
		return GeneratedAnswer{}, err
	}
	var ans GeneratedAnswer
	if err := json.Unmarshal([]byte(obj), &ans); err != nil {
		return GeneratedAnswer{}, fmt.Errorf("failed to decode generated answer: %w", err)
	}
	return ans, nil
}
