// Package pattern implements deterministic, zero-cost recognition of known
// CI/CD failure signatures. The matcher is always attempted before any LLM
// call; a high-confidence match short-circuits the rest of the pipeline.
package pattern

// ErrorPattern is a static, configuration-like error signature. Patterns
// are loaded once at startup and read-only for the process lifetime.
type ErrorPattern struct {
	// Name identifies the pattern, e.g. "pytest_not_found".
	Name string `yaml:"name" json:"name"`

	// Description is the human-readable root cause used as the
	// primary_error of a pattern-matched analysis.
	Description string `yaml:"description" json:"description"`

	// Indicators are literal substrings or regexes matched
	// case-insensitively against the failure text. OR semantics: any
	// indicator hit counts toward the pattern's score.
	Indicators []string `yaml:"indicators" json:"indicators"`

	// ErrorType is the category tag, hierarchical like "maven_test".
	ErrorType string `yaml:"error_type" json:"error_type"`

	// ConfidenceBoost (0-4) is added to the base confidence when this
	// pattern is the primary match.
	ConfidenceBoost int `yaml:"confidence_boost" json:"confidence_boost"`

	// Solutions are ordered fix suggestions.
	Solutions []string `yaml:"solutions" json:"solutions"`

	// VerificationSteps confirm the fix worked.
	VerificationSteps []string `yaml:"verification_steps" json:"verification_steps"`
}

// Match pairs a pattern with its aggregate indicator score for one
// failure text.
type Match struct {
	Pattern *ErrorPattern
	Score   int
}
