package guardrail

// Redact replaces every match of each pattern with that pattern's
// placeholder, applying the patterns in slice order. Text outside matched
// spans is returned byte for byte.
func Redact(text string, patterns []PIIPattern) string {
	for _, p := range patterns {
		text = p.re.ReplaceAllString(text, p.Placeholder)
	}
	return text
}
