package models

// Priority expresses how urgent an analysis request is. It feeds both the
// complexity score and the routing decision matrix.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Tier is a named cost/quality level of the LLM backend.
type Tier string

const (
	// TierHaiku is the cheap, fast tier.
	TierHaiku Tier = "haiku"

	// TierSonnet is the expensive, powerful tier.
	TierSonnet Tier = "sonnet"
)

// Source returns the analysis source tag corresponding to this tier.
func (t Tier) Source() Source {
	if t == TierSonnet {
		return SourceLLMSonnet
	}
	return SourceLLMHaiku
}

// BudgetStatus is the traffic-light classification of current spend
// against the daily and monthly limits.
type BudgetStatus string

const (
	BudgetGreen  BudgetStatus = "green"  // < 50% of the tighter limit
	BudgetYellow BudgetStatus = "yellow" // < 80%
	BudgetRed    BudgetStatus = "red"    // >= 80%
)

// ComplexityLevel buckets the 1-10 complexity score.
type ComplexityLevel string

const (
	ComplexitySimple   ComplexityLevel = "simple"   // score <= 4
	ComplexityModerate ComplexityLevel = "moderate" // score <= 7
	ComplexityComplex  ComplexityLevel = "complex"  // score > 7
)

// AnalysisRequest is the router's input: where the failure came from and
// how urgently it needs an answer.
type AnalysisRequest struct {
	// URL is the CI run or pull-request URL, used for shape-based
	// complexity hints.
	URL string `json:"url"`

	Priority Priority `json:"priority"`

	// FailedJobs is the number of jobs that failed in the same run.
	FailedJobs int `json:"failed_jobs"`

	// JobNames lists the failed job names, used to spot integration tests.
	JobNames []string `json:"job_names,omitempty"`

	// HasUpstreamContext is set when another stage has already enriched
	// the request (project discovery, prior analysis).
	HasUpstreamContext bool `json:"has_upstream_context,omitempty"`

	// UnknownPatterns is set when pattern matching found nothing, which
	// demands deeper analysis.
	UnknownPatterns bool `json:"unknown_patterns,omitempty"`
}

// RoutingDecision records which model tier the router chose and why.
type RoutingDecision struct {
	Tier          Tier    `json:"tier"`
	EstimatedCost float64 `json:"estimated_cost"`
	Reason        string  `json:"reason"`

	// Confidence in the routing decision itself, 1-10. Forced downgrades
	// lower it.
	Confidence int `json:"confidence"`

	// BudgetImpactPct is the estimated cost as a percentage of the
	// remaining daily budget.
	BudgetImpactPct float64 `json:"budget_impact_pct"`

	ComplexityScore int             `json:"complexity_score"`
	Complexity      ComplexityLevel `json:"complexity"`
	BudgetStatus    BudgetStatus    `json:"budget_status"`
}
