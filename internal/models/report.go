package models

// Analysis pairs a classification with its validation verdict.
type Analysis struct {
	Result     AnalysisResult    `json:"result"`
	Validation *ValidationResult `json:"validation,omitempty"`
}

// Report aggregates one supervisor pass over a batch of failures.
type Report struct {
	TotalFailures int        `json:"total_failures"`
	Analyses      []Analysis `json:"analyses"`

	CachedCount    int `json:"cached_count"`
	AnalyzedCount  int `json:"analyzed_count"`
	EscalatedCount int `json:"escalated_count"`

	// HighConfidenceCount is results with confidence >= 8.
	HighConfidenceCount int `json:"high_confidence_count"`

	// ErrorTypeCounts maps error_type to occurrences in this report.
	ErrorTypeCounts map[string]int `json:"error_type_counts"`

	AverageConfidence float64 `json:"average_confidence"`
	EstimatedCost     float64 `json:"estimated_cost"`
}

// Summarize recomputes the aggregate counters from the Analyses slice.
func (r *Report) Summarize() {
	r.ErrorTypeCounts = make(map[string]int)
	r.EscalatedCount = 0
	r.HighConfidenceCount = 0
	r.AverageConfidence = 0
	r.EstimatedCost = 0
	total := 0
	for _, a := range r.Analyses {
		res := a.Result
		r.ErrorTypeCounts[res.ErrorType]++
		if res.Escalated {
			r.EscalatedCount++
		}
		if res.Confidence >= 8 {
			r.HighConfidenceCount++
		}
		total += res.Confidence
		r.EstimatedCost += res.EstimatedCost
	}
	if len(r.Analyses) > 0 {
		r.AverageConfidence = float64(total) / float64(len(r.Analyses))
	}
}
