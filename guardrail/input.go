package guardrail

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// checkLength bounds the query size. Leading and trailing whitespace does not
// count toward the minimum.
func checkLength(text string, rules *RuleSet) []Verdict {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < rules.MinLength {
		return []Verdict{{
			Category: CategoryLength,
			Severity: SeverityMedium,
			Action:   ActionBlock,
			Reason:   fmt.Sprintf("query too short (min %d characters)", rules.MinLength),
		}}
	}
	if utf8.RuneCountInString(text) > rules.MaxLength {
		return []Verdict{{
			Category: CategoryLength,
			Severity: SeverityMedium,
			Action:   ActionBlock,
			Reason:   fmt.Sprintf("query too long (max %d characters)", rules.MaxLength),
		}}
	}
	return nil
}

// checkToxic scans for toxic and personal-attack terms. A term whose every
// occurrence sits in mention context (a cue word shortly before it, as in
// "research about hate speech") downgrades to LOW/WARN so discussion of a
// topic is not confused with engaging in it.
func checkToxic(text string, rules *RuleSet) []Verdict {
	lower := strings.ToLower(text)

	var verdicts []Verdict
	if v, ok := scanToxic(lower, rules.ToxicTerms, CategoryHarmfulContent, rules.MentionCues); ok {
		verdicts = append(verdicts, v)
	}
	if v, ok := scanToxic(lower, rules.AttackTerms, CategoryPersonalAttacks, rules.MentionCues); ok {
		verdicts = append(verdicts, v)
	}
	return verdicts
}

func scanToxic(lower string, terms []string, category Category, cues []string) (Verdict, bool) {
	var found []string
	mentionOnly := true
	for _, term := range terms {
		idx := strings.Index(lower, term)
		if idx < 0 {
			continue
		}
		found = append(found, term)
		if !inMentionContext(lower, idx, cues) {
			mentionOnly = false
		}
	}
	if len(found) == 0 {
		return Verdict{}, false
	}

	matched := strings.Join(found, ", ")
	if mentionOnly {
		return Verdict{
			Category: category,
			Severity: SeverityLow,
			Action:   ActionWarn,
			Matched:  matched,
			Reason:   fmt.Sprintf("toxic terms in mention context: %s", matched),
		}, true
	}
	return Verdict{
		Category: category,
		Severity: SeverityHigh,
		Action:   ActionBlock,
		Matched:  matched,
		Reason:   fmt.Sprintf("contains potentially toxic language: %s", matched),
	}, true
}

// inMentionContext reports whether one of the three words before position idx
// is a mention cue.
func inMentionContext(lower string, idx int, cues []string) bool {
	words := strings.Fields(lower[:idx])
	start := len(words) - 3
	if start < 0 {
		start = 0
	}
	for _, w := range words[start:] {
		w = strings.Trim(w, ".,;:!?\"'()")
		for _, cue := range cues {
			if w == cue {
				return true
			}
		}
	}
	return false
}

// checkInjection matches known manipulation phrases. Any hit blocks and the
// coordinator never downgrades it, whatever the policy says.
func checkInjection(text string, rules *RuleSet) []Verdict {
	lower := strings.ToLower(text)

	var found []string
	for _, pattern := range rules.InjectionPatterns {
		if strings.Contains(lower, pattern) {
			found = append(found, pattern)
		}
	}
	if len(found) == 0 {
		return nil
	}

	matched := strings.Join(found, ", ")
	return []Verdict{{
		Category: CategoryPromptInjection,
		Severity: SeverityHigh,
		Action:   ActionBlock,
		Matched:  matched,
		Reason:   fmt.Sprintf("potential prompt injection detected: %s", matched),
	}}
}

// checkRelevance flags longer queries that mention none of the topic
// keywords. Short queries pass, and the verdict only ever warns.
func checkRelevance(text string, rules *RuleSet) []Verdict {
	if len(strings.Fields(text)) <= rules.MinTopicWords {
		return nil
	}
	lower := strings.ToLower(text)
	for _, keyword := range rules.TopicKeywords {
		if strings.Contains(lower, keyword) {
			return nil
		}
	}
	return []Verdict{{
		Category: CategoryOffTopic,
		Severity: SeverityLow,
		Action:   ActionWarn,
		Reason:   "query does not mention any research topic keyword",
	}}
}
