// Package guardrail implements keyword and pattern based safety checks over
// the texts that cross the system boundary: user queries on the way in,
// generated answers on the way out. Checks are pure functions over a text and
// a RuleSet; they accumulate verdicts and never mutate anything.
package guardrail

// Direction tells the engine which battery of checks to run.
type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// Category classifies what a check found.
type Category string

const (
	CategoryHarmfulContent  Category = "harmful_content"
	CategoryPersonalAttacks Category = "personal_attacks"
	CategoryMisinformation  Category = "misinformation"
	CategoryOffTopic        Category = "off_topic"
	CategoryPII             Category = "pii"
	CategoryBias            Category = "bias"
	CategoryCitationMissing Category = "citation_missing"
	CategoryPromptInjection Category = "prompt_injection"
	CategoryLength          Category = "length"
)

// Severity grades how serious a finding is.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Rank orders severities for comparison; unknown values rank lowest.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

// Action is what a verdict recommends doing about the text.
type Action string

const (
	ActionAllow    Action = "ALLOW"
	ActionWarn     Action = "WARN"
	ActionSanitize Action = "SANITIZE"
	ActionBlock    Action = "BLOCK"
)

// Rank orders actions by strictness: BLOCK > SANITIZE > WARN > ALLOW.
func (a Action) Rank() int {
	switch a {
	case ActionWarn:
		return 1
	case ActionSanitize:
		return 2
	case ActionBlock:
		return 3
	default:
		return 0
	}
}

// Verdict is the result of one check over one text. Matched carries the
// triggering substrings or pattern kinds, Reason a human-readable summary.
type Verdict struct {
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	Action   Action   `json:"action"`
	Matched  string   `json:"matched,omitempty"`
	Reason   string   `json:"reason"`
}

// Engine runs the check batteries over a rule set.
type Engine struct {
	rules *RuleSet
}

// NewEngine creates an engine; a nil rule set means DefaultRules.
func NewEngine(rules *RuleSet) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Engine{rules: rules}
}

// Rules exposes the active rule set.
func (e *Engine) Rules() *RuleSet { return e.rules }

// Evaluate runs every check for the direction, in a fixed order, and returns
// the accumulated verdicts. All checks run even after a finding; for a fixed
// text and rule set the result is deterministic.
func (e *Engine) Evaluate(text string, direction Direction) []Verdict {
	var verdicts []Verdict
	switch direction {
	case DirectionOutput:
		verdicts = append(verdicts, checkPII(text, e.rules)...)
		verdicts = append(verdicts, checkHarmful(text, e.rules)...)
		verdicts = append(verdicts, checkBias(text, e.rules)...)
		verdicts = append(verdicts, checkCitations(text, e.rules)...)
	default:
		verdicts = append(verdicts, checkLength(text, e.rules)...)
		verdicts = append(verdicts, checkToxic(text, e.rules)...)
		verdicts = append(verdicts, checkInjection(text, e.rules)...)
		verdicts = append(verdicts, checkRelevance(text, e.rules)...)
	}
	return verdicts
}

// Redact replaces every PII match in text with its kind placeholder, in
// pattern order. Characters outside matched spans are untouched.
func (e *Engine) Redact(text string) string {
	return Redact(text, e.rules.PIIPatterns)
}
