// Package jsonextract recovers a JSON value from an LLM's free-text
// response when a provider was asked for JSON output but wrapped it in
// markdown fences or surrounded it with commentary anyway.
package jsonextract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Extract finds and returns the JSON portion of a response string. It
// handles, in order: a pure JSON response, JSON wrapped in a ```json or
// ``` code fence, and a JSON object embedded in surrounding text (found by
// first '{' and last '}').
//
// Limitations: only handles JSON objects, not top-level arrays, and uses
// brace matching rather than a full parse, so it can be fooled by braces
// inside string literals.
func Extract(response string) (string, error) {
	response = stripCodeFence(response)

	var probe interface{}
	if err := json.Unmarshal([]byte(response), &probe); err == nil {
		return response, nil
	}

	start := strings.Index(response, "{")
	if start != -1 {
		end := strings.LastIndex(response, "}")
		if end != -1 && end > start {
			candidate := response[start : end+1]
			if err := json.Unmarshal([]byte(candidate), &probe); err == nil {
				return candidate, nil
			}
		}
	}

	preview := response
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return "", fmt.Errorf("no valid JSON found in response: %q", preview)
}

func stripCodeFence(response string) string {
	trimmed := strings.TrimSpace(response)
	switch {
	case strings.HasPrefix(trimmed, "```json"):
		trimmed = strings.TrimPrefix(trimmed, "```json")
	case strings.HasPrefix(trimmed, "```"):
		trimmed = strings.TrimPrefix(trimmed, "```")
	}
	trimmed = strings.TrimSpace(trimmed)
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

// Into extracts the JSON portion of response and unmarshals it into out.
func Into(response string, out interface{}) error {
	jsonStr, err := Extract(response)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(jsonStr), out); err != nil {
		return fmt.Errorf("unmarshaling extracted JSON: %w", err)
	}
	return nil
}
