package models

// ValidationStatus is the validator's final verdict on an AnalysisResult.
type ValidationStatus string

const (
	ValidationApproved    ValidationStatus = "APPROVED"
	ValidationWithCaution ValidationStatus = "APPROVED_WITH_CAUTION"
	ValidationRevision    ValidationStatus = "REVISION_NEEDED"
	ValidationRejected    ValidationStatus = "REJECTED"
)

// RiskLevel classifies how dangerous the suggested actions are to execute.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ValidationResult is derived entirely from an AnalysisResult plus the
// static rule definitions. It is stateless and recomputable.
type ValidationResult struct {
	Status ValidationStatus `json:"validation_status"`

	// OverallConfidence is the validator's own 1-10 confidence, computed
	// from the weighted rule average, quality gates and risk level.
	OverallConfidence int `json:"overall_confidence"`

	// RuleScores maps rule name to its 1-10 score.
	RuleScores map[string]int `json:"rule_scores"`

	// QualityGates maps gate name to pass/fail.
	QualityGates map[string]bool `json:"quality_gates"`

	RiskLevel   RiskLevel `json:"risk_level"`
	RiskFactors []string  `json:"risk_factors"`

	// Recommendations is never empty: failing rules and risk tiers each
	// contribute a suggestion, and a clean result gets a single
	// ready-for-implementation note.
	Recommendations []string `json:"recommendations"`
}

// GatesPassed counts quality gates that evaluated true.
func (v *ValidationResult) GatesPassed() int {
	n := 0
	for _, passed := range v.QualityGates {
		if passed {
			n++
		}
	}
	return n
}
