// Package validator independently re-scores analysis results across five
// weighted quality rules, checks quality gates, assesses solution risk,
// and emits a final approval verdict. Validation is pure and
// deterministic: the same analysis always yields the same verdict.
package validator

import (
	"math"

	"github.com/harrison/detective/internal/models"
)

// Quality gate names, used as keys in ValidationResult.QualityGates.
const (
	GatePrimaryErrorIdentified = "primary_error_identified"
	GateSolutionActionable     = "solution_actionable"
	GateTechnicallySound       = "technically_sound"
	GateAppropriateConfidence  = "appropriate_confidence"
	GateReasonableCost         = "reasonable_cost"
)

// Validator scores AnalysisResults. Stateless; the zero value is usable.
type Validator struct{}

// New returns a Validator.
func New() *Validator {
	return &Validator{}
}

// Validate wraps one analysis in a fresh ValidationResult. A REJECTED
// verdict is a legitimate terminal classification, not an error; Validate
// never fails.
func (v *Validator) Validate(analysis models.AnalysisResult) models.ValidationResult {
	scores := map[string]int{
		RuleErrorIdentification:   scoreErrorIdentification(analysis),
		RuleSolutionAppropriate:   scoreSolutionAppropriateness(analysis),
		RuleImplementationClarity: scoreImplementationClarity(analysis),
		RuleRiskAssessment:        scoreRiskAssessment(analysis),
		RuleTechnicalAccuracy:     scoreTechnicalAccuracy(analysis),
	}

	gates := qualityGates(analysis, scores)
	riskLevel, riskFactors := assessRisk(analysis)

	result := models.ValidationResult{
		RuleScores:   scores,
		QualityGates: gates,
		RiskLevel:    riskLevel,
		RiskFactors:  riskFactors,
	}

	result.OverallConfidence = overallConfidence(scores, result.GatesPassed(), riskLevel)
	result.Status = decideStatus(result.OverallConfidence, result.GatesPassed(), riskLevel)
	result.Recommendations = recommendations(scores, riskLevel)
	return result
}

// qualityGates evaluates the five boolean gates.
func qualityGates(analysis models.AnalysisResult, scores map[string]int) map[string]bool {
	return map[string]bool{
		GatePrimaryErrorIdentified: len(analysis.PrimaryError) > 10,
		GateSolutionActionable:     len(analysis.SuggestedActions) > 0,
		GateTechnicallySound:       scores[RuleTechnicalAccuracy] >= 6,
		GateAppropriateConfidence:  analysis.Confidence >= 3 && analysis.Confidence <= 10,
		GateReasonableCost:         true,
	}
}

// overallConfidence combines the weighted rule average with a gate
// adjustment of (gates_passed - 3) * 0.5 and a risk adjustment of
// {low: 0, medium: -1, high: -2}, rounded and clamped to [1,10].
func overallConfidence(scores map[string]int, gatesPassed int, risk models.RiskLevel) int {
	var total, totalWeight float64
	for name, weight := range ruleWeights {
		total += float64(scores[name]) * weight
		totalWeight += weight
	}
	average := 5.0
	if totalWeight > 0 {
		average = total / totalWeight
	}

	gateAdjustment := float64(gatesPassed-3) * 0.5

	riskAdjustment := 0.0
	switch risk {
	case models.RiskMedium:
		riskAdjustment = -1
	case models.RiskHigh:
		riskAdjustment = -2
	}

	return models.ClampConfidence(int(math.Round(average + gateAdjustment + riskAdjustment)))
}

// decideStatus applies the verdict ladder, first match wins. High risk can
// never reach an approval tier, so it caps the verdict at REVISION_NEEDED.
func decideStatus(confidence, gatesPassed int, risk models.RiskLevel) models.ValidationStatus {
	switch {
	case confidence >= 8 && gatesPassed >= 4 && risk == models.RiskLow:
		return models.ValidationApproved
	case confidence >= 6 && gatesPassed >= 3 && risk != models.RiskHigh:
		return models.ValidationWithCaution
	case confidence >= 4 && gatesPassed >= 2:
		return models.ValidationRevision
	default:
		return models.ValidationRejected
	}
}

// recommendations emits one suggestion per weak rule plus risk cautions.
// Never empty: a clean result gets a ready-for-implementation note.
func recommendations(scores map[string]int, risk models.RiskLevel) []string {
	var recs []string

	if scores[RuleErrorIdentification] < 6 {
		recs = append(recs, "Improve error identification specificity")
	}
	if scores[RuleSolutionAppropriate] < 6 {
		recs = append(recs, "Ensure solutions directly address the identified problem")
	}
	if scores[RuleImplementationClarity] < 6 {
		recs = append(recs, "Provide more specific, step-by-step implementation instructions")
	}
	if scores[RuleTechnicalAccuracy] < 6 {
		recs = append(recs, "Review technical recommendations for accuracy")
	}

	switch risk {
	case models.RiskHigh:
		recs = append(recs,
			"Test all changes in development environment first",
			"Consider having solutions reviewed by senior developer",
		)
	case models.RiskMedium:
		recs = append(recs, "Test the solution in non-production environment")
	}

	if len(recs) == 0 {
		recs = []string{"Solution appears ready for implementation"}
	}
	return recs
}
