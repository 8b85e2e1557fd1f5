package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/harrison/detective/internal/models"
)

// Risk vocabulary shared by the risk-assessment rule and the risk rollup.
type riskPattern struct {
	label string
	re    *regexp.Regexp
}

func compileRisk(pairs ...string) []riskPattern {
	out := make([]riskPattern, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, riskPattern{label: pairs[i], re: regexp.MustCompile(`(?i)` + pairs[i+1])})
	}
	return out
}

// Declaration order fixes the order of emitted risk factors.
var (
	highRiskPatterns = compileRisk(
		"rm -rf", `rm -rf`,
		"sudo install", `sudo.*install`,
		"chmod 777", `chmod 777`,
		"disabling security", `disable.*security`,
		"production database", `production.*database`,
	)

	mediumRiskPatterns = compileRisk(
		"full clean install", `mvn clean install`,
		"no-cache rebuild", `docker.*--no-cache`,
		"hard reset", `git reset --hard`,
		"global npm install", `npm.*global`,
	)

	configChangePatterns = compileRisk(
		"pom.xml", `pom\.xml`,
		"package.json", `package\.json`,
		"Dockerfile", `dockerfile`,
		"workflow files", `github.*workflows|\.github[\\/]workflows`,
		"maven settings", `maven.*settings`,
	)

	destructiveVerbs = []string{"delete", "remove", "rm ", "drop", "truncate", "clear"}
	safeVerbs        = []string{"test", "check", "verify", "validate", "dry-run", "--help"}
	productionWords  = []string{"production", "prod", "main branch", "master"}
)

// scoreRiskAssessment rates how safe the actions are to execute, higher
// meaning safer. The baseline of 7 assumes CI fixes are mostly benign;
// risky vocabulary subtracts, explicitly reversible verbs add a little.
func scoreRiskAssessment(analysis models.AnalysisResult) int {
	actions := analysis.SuggestedActions
	score := 7
	if len(actions) == 0 {
		return score
	}

	joined := strings.ToLower(strings.Join(actions, " "))

	for _, p := range highRiskPatterns {
		if p.re.MatchString(joined) {
			score -= 4
		}
	}
	for _, p := range mediumRiskPatterns {
		if p.re.MatchString(joined) {
			score -= 2
		}
	}

	configChanges := 0
	for _, p := range configChangePatterns {
		if p.re.MatchString(joined) {
			configChanges++
		}
	}
	if configChanges > 2 {
		score -= 2
	} else if configChanges > 0 {
		score--
	}

	for _, verb := range destructiveVerbs {
		if strings.Contains(joined, verb) {
			score -= 3
		}
	}

	safeHits := 0
	for _, verb := range safeVerbs {
		if strings.Contains(joined, verb) {
			safeHits++
		}
	}
	if safeHits >= 2 {
		score++
	}

	return models.ClampConfidence(score)
}

// assessRisk rolls the same vocabulary up into a risk level plus
// human-readable factors. High-risk hits dominate; configuration changes
// and production references elevate low to medium.
func assessRisk(analysis models.AnalysisResult) (models.RiskLevel, []string) {
	joined := strings.ToLower(strings.Join(analysis.SuggestedActions, " "))

	level := models.RiskLow
	var factors []string

	for _, p := range highRiskPatterns {
		if p.re.MatchString(joined) {
			factors = append(factors, fmt.Sprintf("High-risk operation: %s", p.label))
			level = models.RiskHigh
		}
	}

	var configChanges []string
	for _, p := range configChangePatterns {
		if p.re.MatchString(joined) {
			configChanges = append(configChanges, p.label)
		}
	}
	if len(configChanges) > 0 {
		factors = append(factors, fmt.Sprintf("Configuration changes: %s", strings.Join(configChanges, ", ")))
		if level == models.RiskLow {
			level = models.RiskMedium
		}
	}

	if containsAny(joined, productionWords...) {
		factors = append(factors, "May affect production environment")
		if level == models.RiskLow {
			level = models.RiskMedium
		}
	}

	return level, factors
}
