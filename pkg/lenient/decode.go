// Package lenient extracts structured JSON from free-form model output.
// Generators routinely wrap JSON in prose or markdown fences, so decoding
// tries a strict parse first and falls back to the first balanced-brace
// substring before giving up.
package lenient

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Decode unmarshals the first well-formed JSON object found in raw into out.
func Decode(raw string, out interface{}) error {
	trimmed := strings.TrimSpace(raw)

	// Strict parse first: the happy path when the model obeyed instructions.
	if err := json.Unmarshal([]byte(trimmed), out); err == nil {
		return nil
	}

	candidate := ExtractObject(trimmed)
	if candidate == "" {
		return fmt.Errorf("no JSON object found in response")
	}

	if err := json.Unmarshal([]byte(candidate), out); err != nil {
		return fmt.Errorf("unmarshal extracted object: %w", err)
	}
	return nil
}

// ExtractObject returns the first balanced-brace substring of raw, or ""
// when no complete object exists. Braces inside JSON strings are ignored.
func ExtractObject(raw string) string {
	start := strings.Index(raw, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(raw); i++ {
		c := raw[i]

		if escaped {
			escaped = false
			continue
		}

		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return raw[start : i+1]
				}
			}
		}
	}
	return ""
}
