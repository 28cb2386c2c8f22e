package eval

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractStructured coerces free-form reply text into a nested mapping.
// It tries, in order:
//
//  1. a strict parse of the whole text as a JSON object,
//  2. the first fenced ```json code block,
//  3. a balanced-brace scan from the first "{" — braces inside JSON strings
//     are ignored, and the first balanced object that parses wins.
//
// The scan is best-effort by design; replies that defeat it are recorded
// with a parse-failure flag rather than dropped.
func ExtractStructured(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)

	var payload map[string]any
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal([]byte(trimmed), &payload); err == nil {
			return payload, nil
		}
	}

	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		if err := json.Unmarshal([]byte(m[1]), &payload); err == nil {
			return payload, nil
		}
	}

	if fragment, ok := scanBalanced(text); ok {
		if err := json.Unmarshal([]byte(fragment), &payload); err == nil {
			return payload, nil
		}
	}

	return nil, fmt.Errorf("no JSON object found in reply text")
}

// scanBalanced returns the first balanced {...} fragment of text.
func scanBalanced(text string) (string, bool) {
	start := strings.Index(text, "{")
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
