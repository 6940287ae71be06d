package collab

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON pulls the JSON document out of an agent response. Agents
// often wrap JSON in markdown fences or surround it with prose.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if i := strings.Index(s, "```json"); i >= 0 {
		s = s[i+len("```json"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		return strings.TrimSpace(s)
	}
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		return strings.TrimSpace(s)
	}

	// Fall back to the outermost object
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	var end int
	if s[start] == '{' {
		end = strings.LastIndex(s, "}")
	} else {
		end = strings.LastIndex(s, "]")
	}
	if end <= start {
		return s
	}
	return s[start : end+1]
}

// decodeJSON unmarshals the agent response into out with a uniform
// error shape
func decodeJSON(raw string, out any) error {
	doc := extractJSON(raw)
	if err := json.Unmarshal([]byte(doc), out); err != nil {
		preview := raw
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return fmt.Errorf("parse agent response: %w (response: %s)", err, preview)
	}
	return nil
}
