package guardrail

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
	numberClaim   = regexp.MustCompile(`\b\d+(?:[.,]\d+)*%?`)
	bracketCite   = regexp.MustCompile(`\[[^\]]+\]`)
)

// checkPII reports one verdict per PII kind present. Matched carries the kind
// name, not the matched values, so verdicts are safe to log.
func checkPII(text string, rules *RuleSet) []Verdict {
	var verdicts []Verdict
	for _, p := range rules.PIIPatterns {
		n := len(p.re.FindAllStringIndex(text, -1))
		if n == 0 {
			continue
		}
		verdicts = append(verdicts, Verdict{
			Category: CategoryPII,
			Severity: SeverityMedium,
			Action:   ActionSanitize,
			Matched:  p.Kind,
			Reason:   fmt.Sprintf("contains %s (%d occurrence(s))", p.Kind, n),
		})
	}
	return verdicts
}

// checkHarmful scans for harmful terms. A handful of matches warns only, so
// academic discussion passes; at the density threshold it blocks.
func checkHarmful(text string, rules *RuleSet) []Verdict {
	lower := strings.ToLower(text)

	var found []string
	for _, term := range rules.HarmfulTerms {
		if strings.Contains(lower, term) {
			found = append(found, term)
		}
	}
	if len(found) == 0 {
		return nil
	}

	matched := strings.Join(found, ", ")
	if len(found) >= rules.HarmfulBlockThreshold {
		return []Verdict{{
			Category: CategoryHarmfulContent,
			Severity: SeverityHigh,
			Action:   ActionBlock,
			Matched:  matched,
			Reason:   fmt.Sprintf("high density of harmful terms: %s", matched),
		}}
	}
	return []Verdict{{
		Category: CategoryHarmfulContent,
		Severity: SeverityLow,
		Action:   ActionWarn,
		Matched:  matched,
		Reason:   fmt.Sprintf("may contain harmful content: %s", matched),
	}}
}

// checkBias counts absolutist terms, but only in sentences with no hedging
// word. Scattered absolutes are fine; several of them warrant a warning.
func checkBias(text string, rules *RuleSet) []Verdict {
	var unhedged []string
	for _, sentence := range sentenceSplit.Split(strings.ToLower(text), -1) {
		if containsAnyWord(sentence, rules.HedgeTerms) {
			continue
		}
		unhedged = append(unhedged, sentence)
	}

	var found []string
	for _, term := range rules.BiasTerms {
		for _, sentence := range unhedged {
			if containsWord(sentence, term) {
				found = append(found, term)
				break
			}
		}
	}
	if len(found) < rules.BiasWarnThreshold {
		return nil
	}

	matched := strings.Join(found, ", ")
	return []Verdict{{
		Category: CategoryBias,
		Severity: SeverityLow,
		Action:   ActionWarn,
		Matched:  matched,
		Reason:   fmt.Sprintf("absolutist language without hedging: %s", matched),
	}}
}

// checkCitations warns when the text makes factual claims (numbers or
// superlatives) but carries neither a URL nor a bracket citation.
func checkCitations(text string, rules *RuleSet) []Verdict {
	lower := strings.ToLower(text)

	hasClaim := numberClaim.MatchString(text)
	if !hasClaim {
		for _, s := range rules.Superlatives {
			if containsWord(lower, s) {
				hasClaim = true
				break
			}
		}
	}
	if !hasClaim {
		return nil
	}

	cited := strings.Contains(lower, "http://") ||
		strings.Contains(lower, "https://") ||
		strings.Contains(lower, "et al") ||
		bracketCite.MatchString(text)
	if cited {
		return nil
	}

	return []Verdict{{
		Category: CategoryCitationMissing,
		Severity: SeverityLow,
		Action:   ActionWarn,
		Reason:   "factual claims without citations or links",
	}}
}

// containsWord reports whether term occurs as a whole word, with surrounding
// punctuation stripped.
func containsWord(text, term string) bool {
	for _, w := range strings.Fields(text) {
		if strings.Trim(w, ".,;:!?\"'()[]") == term {
			return true
		}
	}
	return false
}

func containsAnyWord(text string, terms []string) bool {
	for _, term := range terms {
		if containsWord(text, term) {
			return true
		}
	}
	return false
}
