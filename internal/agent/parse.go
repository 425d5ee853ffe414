package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON pulls a JSON object out of agent output that may be wrapped
// in markdown code fences or surrounded by prose.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)

	// Prefer an explicit fenced block when present.
	if start := strings.Index(s, "```json"); start != -1 {
		rest := s[start+len("```json"):]
		if end := strings.Index(rest, "```"); end != -1 {
			s = rest[:end]
		} else {
			s = rest
		}
	} else {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end != -1 && end > start {
		return s[start : end+1]
	}
	return s
}

// DecodeJSON extracts and unmarshals a JSON object from agent output.
func DecodeJSON(output string, v any) error {
	raw := ExtractJSON(output)
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("parsing agent JSON: %w", err)
	}
	return nil
}
