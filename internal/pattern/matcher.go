package pattern

import (
	"regexp"
	"sort"
	"strings"

	"github.com/harrison/detective/internal/models"
)

// Confidence math for pattern-matched analyses.
const (
	baseConfidence    = 5
	maxBoost          = 4
	maxPatternBonus   = 2
	unknownConfidence = 3
)

// regexMetacharacters distinguish regex indicators from plain substrings.
var regexMetacharacters = []string{`.*`, `+`, `?`, `\d`, `\w`, `\s`, `[`, `]`, `(`, `)`}

// Matcher scores failure text against the library's patterns. It
// precompiles regex indicators at construction and is safe for concurrent
// use afterwards.
type Matcher struct {
	library  *Library
	compiled map[string]*regexp.Regexp
}

// NewMatcher builds a Matcher over the given library. Indicators that look
// like regexes but fail to compile are demoted to substring matching.
func NewMatcher(library *Library) *Matcher {
	m := &Matcher{
		library:  library,
		compiled: make(map[string]*regexp.Regexp),
	}
	for _, category := range library.Categories() {
		for _, p := range library.Patterns(category) {
			for _, indicator := range p.Indicators {
				if !isRegexIndicator(indicator) {
					continue
				}
				re, err := regexp.Compile("(?i)" + indicator)
				if err != nil {
					continue
				}
				m.compiled[indicator] = re
			}
		}
	}
	return m
}

// Match scores every pattern in the applicable categories against
// failureText and returns matches sorted descending by score. Ties keep
// declaration order (stable sort). Patterns with zero matched indicators
// are excluded. The result is deterministic for identical input.
func (m *Matcher) Match(failureText string, categories []string) []Match {
	lower := strings.ToLower(failureText)

	var matches []Match
	for _, category := range categories {
		patterns := m.library.Patterns(category)
		for i := range patterns {
			score := m.scorePattern(&patterns[i], failureText, lower)
			if score > 0 {
				matches = append(matches, Match{Pattern: &patterns[i], Score: score})
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// MatchAll runs Match with technology detection over the same text
// selecting the applicable categories.
func (m *Matcher) MatchAll(failureText string) []Match {
	return m.Match(failureText, m.library.DetectTechnologies(failureText))
}

// scorePattern sums indicator contributions: a plain case-insensitive
// substring hit is worth 1 point, a regex hit 2 (regexes are more
// specific).
func (m *Matcher) scorePattern(p *ErrorPattern, text, lowerText string) int {
	score := 0
	for _, indicator := range p.Indicators {
		if re, ok := m.compiled[indicator]; ok {
			if re.MatchString(text) {
				score += 2
			}
			continue
		}
		if strings.Contains(lowerText, strings.ToLower(indicator)) {
			score++
		}
	}
	return score
}

// Analyze converts the matches for one failure into an AnalysisResult.
// Confidence is base 5 plus the primary pattern's boost (capped at 4) plus
// one point per extra matched pattern (capped at 2), all clamped to 10.
// With no matches the result is a low-confidence unknown, never an error.
func (m *Matcher) Analyze(failure models.Failure, matches []Match) models.AnalysisResult {
	if len(matches) == 0 {
		return models.AnalysisResult{
			FailureID:        failure.ID,
			Status:           models.StatusPartial,
			PrimaryError:     "Unable to match against known patterns",
			ErrorType:        "unknown",
			Confidence:       unknownConfidence,
			SuggestedActions: []string{"Manual log review required"},
			Source:           models.SourcePatternMatch,
		}
	}

	primary := matches[0].Pattern

	boost := primary.ConfidenceBoost
	if boost > maxBoost {
		boost = maxBoost
	}
	bonus := len(matches) - 1
	if bonus > maxPatternBonus {
		bonus = maxPatternBonus
	}
	confidence := models.ClampConfidence(baseConfidence + boost + bonus)

	// Merge solutions from the top three matches, preserving order.
	var actions, verifications []string
	limit := len(matches)
	if limit > 3 {
		limit = 3
	}
	for _, match := range matches[:limit] {
		actions = append(actions, match.Pattern.Solutions...)
		verifications = append(verifications, match.Pattern.VerificationSteps...)
	}

	status := models.StatusPartial
	if confidence >= models.BlockingConfidence {
		status = models.StatusFailure
	}

	return models.AnalysisResult{
		FailureID:         failure.ID,
		Status:            status,
		PrimaryError:      primary.Description,
		ErrorType:         primary.ErrorType,
		Confidence:        confidence,
		Blocking:          confidence >= models.BlockingConfidence,
		SuggestedActions:  models.DedupeOrdered(actions),
		VerificationSteps: models.DedupeOrdered(verifications),
		GitHubCommands:    githubCommands(primary.ErrorType),
		EstimatedFixTime:  fixTimeEstimate(primary.ErrorType),
		EstimatedCost:     0, // pattern matching is free
		Source:            models.SourcePatternMatch,
	}
}

// isRegexIndicator reports whether an indicator contains regex
// metacharacters.
func isRegexIndicator(indicator string) bool {
	for _, meta := range regexMetacharacters {
		if strings.Contains(indicator, meta) {
			return true
		}
	}
	return false
}

// fixTimeEstimate maps error types to rough human fix times.
func fixTimeEstimate(errorType string) string {
	estimates := map[string]string{
		"maven_test":          "5-10 minutes",
		"maven_dependency":    "10-15 minutes",
		"python_test":         "5 minutes",
		"docker_build":        "10-20 minutes",
		"workflow_versioning": "5 minutes",
		"integration_aws":     "15-30 minutes",
	}
	if est, ok := estimates[errorType]; ok {
		return est
	}
	return "10-15 minutes"
}

// githubCommands suggests gh CLI follow-ups for investigating the failure.
func githubCommands(errorType string) []string {
	commands := []string{"gh run view --log"}
	switch {
	case strings.HasPrefix(errorType, "maven"):
		commands = append(commands,
			"gh run view --log | grep -A5 -B5 'BUILD FAILURE'",
			"gh run view --log | grep 'Tests run:'",
		)
	case strings.HasPrefix(errorType, "python"):
		commands = append(commands,
			"gh run view --log | grep -A3 -B3 'ModuleNotFoundError'",
			"gh run view --log | grep 'pytest'",
		)
	case strings.HasPrefix(errorType, "docker"):
		commands = append(commands,
			"gh run view --log | grep -A5 'ERROR'",
			"gh run view --log | grep 'COPY\\|ADD'",
		)
	}
	return commands
}
