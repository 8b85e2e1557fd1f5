package validator

import (
	"regexp"
	"strings"

	"github.com/harrison/detective/internal/models"
)

// Rule names, used as keys in ValidationResult.RuleScores.
const (
	RuleErrorIdentification   = "error_identification_accuracy"
	RuleSolutionAppropriate   = "solution_appropriateness"
	RuleImplementationClarity = "implementation_clarity"
	RuleRiskAssessment        = "risk_assessment"
	RuleTechnicalAccuracy     = "technical_accuracy"
)

// ruleWeights combine the five rule scores into the weighted average.
var ruleWeights = map[string]float64{
	RuleErrorIdentification:   0.25,
	RuleSolutionAppropriate:   0.25,
	RuleImplementationClarity: 0.20,
	RuleRiskAssessment:        0.15,
	RuleTechnicalAccuracy:     0.15,
}

var (
	genericErrors    = map[string]bool{"unknown": true, "generic": true, "manual analysis needed": true}
	genericSolutions = []string{"check logs", "manual review", "investigate", "debug"}

	orderedStepRe       = regexp.MustCompile(`^\d+\.|-\s|\*\s|Step\s\d+`)
	executableCommandRe = regexp.MustCompile(`^(mvn|pip|docker|gh|git|java|python|uv)\s`)
	doubledBracesRe     = regexp.MustCompile(`[{}\[\]]\s*[{}\[\]]`)

	// commandPatterns spot action strings that look runnable: verb-object
	// pairs, CLI flags, config file references.
	commandPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\w+\s+\w+`),
		regexp.MustCompile(`--\w+`),
		regexp.MustCompile(`\.xml\b`),
		regexp.MustCompile(`\.json\b`),
	}
)

// scoreErrorIdentification rates how well the root cause was identified.
// Generic or terse descriptions score low; specificity keywords and a
// categorized error type raise the score. A high stated confidence paired
// with a vague description is penalized.
func scoreErrorIdentification(analysis models.AnalysisResult) int {
	primary := analysis.PrimaryError
	lower := strings.ToLower(primary)

	var score int
	switch {
	case primary == "" || genericErrors[lower]:
		score = 2
	case len(primary) < 20:
		score = 3
	case containsAny(lower, "specific", "version", "configuration", "dependency"):
		score = 8
	default:
		score = 6
	}

	if analysis.ErrorType == "unknown" {
		score -= 2
	} else if strings.Contains(analysis.ErrorType, "_") {
		score++
	}

	words := len(strings.Fields(primary))
	if analysis.Confidence >= 8 && words < 5 {
		score -= 2
	}
	if analysis.Confidence <= 4 && words >= 10 {
		score++
	}

	return models.ClampConfidence(score)
}

// scoreSolutionAppropriateness rates whether the suggested actions fit the
// declared error type. Missing actions floor the score at 1; mismatched
// technology (a maven error with no maven commands) is penalized harder
// than generic advice.
func scoreSolutionAppropriateness(analysis models.AnalysisResult) int {
	actions := analysis.SuggestedActions
	if len(actions) == 0 {
		return 1
	}

	score := 5
	joined := strings.ToLower(strings.Join(actions, " "))

	techKeywords := map[string][]string{
		"maven":  {"mvn", "java", "pom.xml"},
		"python": {"pip", "python", "pytest", "uv"},
		"docker": {"docker", "dockerfile"},
	}
	for prefix, keywords := range techKeywords {
		if !strings.HasPrefix(analysis.ErrorType, prefix) {
			continue
		}
		if containsAny(joined, keywords...) {
			score += 2
		} else {
			score -= 3
		}
	}

	specific, generic := 0, 0
	for _, action := range actions {
		if containsAny(strings.ToLower(action), genericSolutions...) {
			generic++
		} else if len(strings.Fields(action)) >= 3 {
			specific++
		}
	}
	if generic > specific {
		score -= 2
	} else if specific > 0 && generic == 0 {
		score += 2
	}

	actionable := 0
	for _, action := range actions {
		for _, re := range commandPatterns {
			if re.MatchString(action) {
				actionable++
				break
			}
		}
	}
	if actionable*2 >= len(actions) {
		score++
	}

	return models.ClampConfidence(score)
}

// scoreImplementationClarity rates how actionable the instructions are:
// ordered steps, a high fraction of literal commands, verification steps,
// technology-matching file references, and a time estimate all help.
func scoreImplementationClarity(analysis models.AnalysisResult) int {
	actions := analysis.SuggestedActions
	if len(actions) == 0 {
		return 1
	}

	score := 5

	for _, action := range actions {
		if orderedStepRe.MatchString(action) {
			score += 2
			break
		}
	}

	executable := 0
	for _, action := range actions {
		trimmed := strings.TrimSpace(action)
		if executableCommandRe.MatchString(trimmed) || strings.Contains(action, "--") || strings.Contains(action, " -") {
			executable++
		}
	}
	switch {
	case executable*10 >= len(actions)*7:
		score += 2
	case executable*10 >= len(actions)*4:
		score++
	}

	switch {
	case len(analysis.VerificationSteps) >= 2:
		score += 2
	case len(analysis.VerificationSteps) == 1:
		score++
	default:
		score--
	}

	joined := strings.ToLower(strings.Join(actions, " "))
	switch {
	case strings.HasPrefix(analysis.ErrorType, "maven") && strings.Contains(joined, "pom.xml"),
		strings.HasPrefix(analysis.ErrorType, "python") && containsAny(joined, "requirements.txt", "pyproject.toml"),
		strings.HasPrefix(analysis.ErrorType, "docker") && strings.Contains(joined, "dockerfile"):
		score++
	}

	if strings.Contains(analysis.EstimatedFixTime, "minute") {
		score++
	}

	return models.ClampConfidence(score)
}

// scoreTechnicalAccuracy rates the correctness of the recommendations:
// technology-specific micro-checks plus a penalty for detectable syntax
// defects in any action.
func scoreTechnicalAccuracy(analysis models.AnalysisResult) int {
	actions := analysis.SuggestedActions
	if len(actions) == 0 {
		return 1
	}

	score := 6
	joined := strings.ToLower(strings.Join(actions, " "))

	switch {
	case strings.HasPrefix(analysis.ErrorType, "maven"):
		score += mavenAccuracy(joined)
	case strings.HasPrefix(analysis.ErrorType, "python"):
		score += pythonAccuracy(joined)
	case strings.HasPrefix(analysis.ErrorType, "docker"):
		score += dockerAccuracy(joined)
	}

	syntaxErrors := 0
	for _, action := range actions {
		if doubledBracesRe.MatchString(action) {
			syntaxErrors++
		} else if strings.Count(action, `"`)%2 != 0 || strings.Count(action, `'`)%2 != 0 {
			syntaxErrors++
		}
	}
	if syntaxErrors > 0 {
		penalty := syntaxErrors * 2
		if penalty > 4 {
			penalty = 4
		}
		score -= penalty
	}

	return models.ClampConfidence(score)
}

func mavenAccuracy(joined string) int {
	boost := 0
	if strings.Contains(joined, "mvn clean") {
		boost++
	}
	if containsAny(joined, "test", "compile", "verify", "validate") {
		boost++
	}
	if strings.Contains(joined, "surefire") && strings.Contains(joined, "maven") {
		boost++
	}
	if containsAny(joined, "npm", "pip") {
		boost -= 2
	}
	return boost
}

func pythonAccuracy(joined string) int {
	boost := 0
	if containsAny(joined, "pip install", "python -m", "pytest") {
		boost++
	}
	if strings.Contains(joined, "--extra") && strings.Contains(joined, "uv") {
		boost++
	}
	if containsAny(joined, "requirements.txt", "pyproject.toml") {
		boost++
	}
	if containsAny(joined, "mvn", "java") {
		boost -= 2
	}
	return boost
}

func dockerAccuracy(joined string) int {
	boost := 0
	if strings.Contains(joined, "docker build") {
		boost++
	}
	if strings.Contains(joined, "--no-cache") {
		boost++
	}
	if strings.Contains(joined, "dockerfile") {
		boost++
	}
	if containsAny(joined, "mvn", "pip install") {
		boost--
	}
	return boost
}

func containsAny(text string, substrings ...string) bool {
	for _, s := range substrings {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}
