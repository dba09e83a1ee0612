package research

import (
	"encoding/json"
	"fmt"
	"strings"
)

// decodeJSON parses model output into T. Models wrap JSON in code fences or
// lead with prose often enough that two cleanup passes are worth it: strip
// fences first, then fall back to the outermost brace pair.
func decodeJSON[T any](raw string) (*T, error) {
	clean := sanitizeJSON(raw)
	var out T
	if err := json.Unmarshal([]byte(clean), &out); err == nil {
		return &out, nil
	}
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start >= 0 && end > start {
		var embedded T
		if err := json.Unmarshal([]byte(clean[start:end+1]), &embedded); err == nil {
			return &embedded, nil
		}
	}
	return nil, fmt.Errorf("no JSON object found in model output")
}

func sanitizeJSON(raw string) string {
	clean := strings.TrimSpace(raw)
	if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
		clean = strings.TrimPrefix(clean, "json")
		clean = strings.TrimPrefix(clean, "JSON")
		if idx := strings.LastIndex(clean, "```"); idx >= 0 {
			clean = clean[:idx]
		}
	}
	return strings.TrimSpace(clean)
}
