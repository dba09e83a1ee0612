package guardrail

import (
	"fmt"
	"regexp"
	"strings"
)

// PIIPattern pairs a PII kind with its detection regex. The placeholder used
// for redaction is derived from the kind, e.g. email -> [EMAIL_REDACTED].
type PIIPattern struct {
	Kind        string
	Placeholder string
	re          *regexp.Regexp
}

// NewPIIPattern compiles a PII detection pattern.
func NewPIIPattern(kind, pattern string) (PIIPattern, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return PIIPattern{}, fmt.Errorf("invalid %s pattern: %w", kind, err)
	}
	return PIIPattern{
		Kind:        kind,
		Placeholder: fmt.Sprintf("[%s_REDACTED]", strings.ToUpper(kind)),
		re:          re,
	}, nil
}

// MustPIIPattern compiles a built-in pattern and panics on error.
func MustPIIPattern(kind, pattern string) PIIPattern {
	p, err := NewPIIPattern(kind, pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// RuleSet is the data the checks run over. Every list is plain data so
// configuration can swap terms without touching the check logic. Term lists
// match case-insensitively as substrings unless noted otherwise.
type RuleSet struct {
	// Length bounds for input queries, in runes.
	MinLength int
	MaxLength int

	// Toxic-language scan. ToxicTerms report harmful_content, AttackTerms
	// report personal_attacks. A term found only in mention context (a cue
	// word shortly before it) is LOW instead of HIGH.
	ToxicTerms  []string
	AttackTerms []string
	MentionCues []string

	// Manipulation phrases. Any hit is HIGH/BLOCK and never downgraded.
	InjectionPatterns []string

	// Topic relevance. Queries longer than MinTopicWords words with none of
	// these keywords are flagged off_topic.
	TopicKeywords []string
	MinTopicWords int

	// PII detection and redaction, applied in slice order.
	PIIPatterns []PIIPattern

	// Harmful-content scan for outputs. At least HarmfulBlockThreshold
	// distinct terms escalate to HIGH/BLOCK, fewer stay LOW/WARN.
	HarmfulTerms          []string
	HarmfulBlockThreshold int

	// Absolutist terms (matched on word boundaries) count only in sentences
	// with no hedge word; BiasWarnThreshold distinct hits raise a verdict.
	BiasTerms         []string
	HedgeTerms        []string
	BiasWarnThreshold int

	// Citation heuristic: superlatives and numbers are claim markers; a URL
	// or bracket citation satisfies the check.
	Superlatives []string
}

// DefaultRules returns the built-in rule set.
func DefaultRules() *RuleSet {
	return &RuleSet{
		MinLength: 5,
		MaxLength: 2000,

		ToxicTerms:  []string{"hate", "kill", "violence", "abuse"},
		AttackTerms: []string{"offensive", "racist", "sexist", "discriminat"},
		MentionCues: []string{"is", "about", "discussing", "regarding", "on"},

		InjectionPatterns: []string{
			"ignore previous instructions",
			"disregard",
			"forget everything",
			"system:",
			"sudo",
			"override",
			"jailbreak",
			"pretend you are",
			"act as",
			"role play",
		},

		TopicKeywords: []string{
			"user", "interface", "design", "usability", "ux", "ui",
			"interaction", "hci", "human", "computer", "experience",
			"accessibility", "prototype", "visualization", "mobile",
			"web", "app", "software", "system", "evaluation", "study",
		},
		MinTopicWords: 3,

		PIIPatterns: []PIIPattern{
			MustPIIPattern("email", `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
			MustPIIPattern("phone", `\b(?:\+?1[-.]?)?\d{3}[-.]?\d{3}[-.]?\d{4}\b`),
			MustPIIPattern("ssn", `\b\d{3}-\d{2}-\d{4}\b`),
			MustPIIPattern("credit_card", `\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`),
			MustPIIPattern("ip_address", `\b(?:\d{1,3}\.){3}\d{1,3}\b`),
		},

		HarmfulTerms: []string{
			"violent", "harmful", "dangerous", "illegal", "weapon",
			"drug", "explosive", "poison", "hack", "steal",
		},
		HarmfulBlockThreshold: 3,

		BiasTerms: []string{
			"always", "never", "all", "none", "every", "only",
			"obviously", "clearly", "undoubtedly",
		},
		HedgeTerms: []string{
			"may", "might", "can", "could", "often", "some", "sometimes",
			"generally", "typically", "suggest", "suggests", "tend", "tends",
		},
		BiasWarnThreshold: 3,

		Superlatives: []string{
			"best", "worst", "most", "least", "fastest", "slowest",
			"largest", "smallest", "highest", "lowest", "greatest",
		},
	}
}
