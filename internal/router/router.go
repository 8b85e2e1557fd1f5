// Package router decides which LLM tier an analysis request should use,
// balancing complexity, priority, and the remaining budget. Accepted
// decisions are recorded against the budget tracker exactly once.
package router

import (
	"errors"
	"fmt"
	"strings"

	"github.com/harrison/detective/internal/budget"
	"github.com/harrison/detective/internal/models"
)

// ErrBudgetExhausted signals that not even the cheapest tier fits the
// remaining budget. It is a distinguished condition, not a generic error:
// the caller must skip paid analysis and fall back to pattern matching.
var ErrBudgetExhausted = errors.New("budget exhausted: no tier fits the remaining daily budget")

// Complexity score tuning.
const (
	baseComplexity     = 5
	simpleUpperBound   = 4
	moderateUpperBound = 7
)

// Tier aliases keep the router readable.
type Tier = models.Tier

// Router routes analysis requests to a model tier and records accepted
// decisions in the budget tracker.
type Router struct {
	tracker *budget.Tracker

	// costs maps tier to its estimated per-analysis cost.
	costs map[Tier]float64
}

// New creates a Router over the given tracker and tier costs.
func New(tracker *budget.Tracker, haikuCost, sonnetCost float64) *Router {
	return &Router{
		tracker: tracker,
		costs: map[Tier]float64{
			models.TierHaiku:  haikuCost,
			models.TierSonnet: sonnetCost,
		},
	}
}

// Route picks a model tier for the request and reserves its estimated cost
// from the budget in the same step. It returns ErrBudgetExhausted when no
// paid tier can fit; the decision is not recorded in that case.
func (r *Router) Route(req models.AnalysisRequest) (models.RoutingDecision, error) {
	score := r.complexityScore(req)
	level := scoreToLevel(score)
	status := r.tracker.Status()

	decision := r.decide(req.Priority, status, level)
	decision.ComplexityScore = score
	decision.Complexity = level
	decision.BudgetStatus = status

	// Post-decision validation: downgrade when the chosen tier does not
	// fit the remaining daily budget, and surface exhaustion when even the
	// cheapest tier cannot fit.
	remaining := r.tracker.RemainingDaily()
	if decision.EstimatedCost > remaining {
		if decision.Tier == models.TierSonnet {
			decision.Tier = models.TierHaiku
			decision.EstimatedCost = r.costs[models.TierHaiku]
			decision.Reason = "budget constraint forced downgrade: " + decision.Reason
			decision.Confidence = 6
		}
		if decision.EstimatedCost > remaining {
			return models.RoutingDecision{}, ErrBudgetExhausted
		}
	}

	if remaining > 0 {
		decision.BudgetImpactPct = decision.EstimatedCost / remaining * 100
	} else {
		decision.BudgetImpactPct = 100
	}

	// Reserve and record exactly once. A failed reservation here means a
	// concurrent decision consumed the margin between the check above and
	// now, which is the same exhaustion condition.
	if !r.tracker.TryReserve(decision.EstimatedCost) {
		return models.RoutingDecision{}, fmt.Errorf("reserve %.4f for %s: %w", decision.EstimatedCost, decision.Tier, ErrBudgetExhausted)
	}

	return decision, nil
}

// Reserve charges the budget for one analysis on a fixed tier, bypassing
// the decision matrix. Used for escalation re-runs where the tier is
// already chosen. Returns the reserved cost, or ErrBudgetExhausted.
func (r *Router) Reserve(tier Tier) (float64, error) {
	cost := r.costs[tier]
	if !r.tracker.TryReserve(cost) {
		return 0, fmt.Errorf("reserve %.4f for %s: %w", cost, tier, ErrBudgetExhausted)
	}
	return cost, nil
}

// complexityScore starts at 5 and applies per-factor adjustments, clamped
// to [1,10].
func (r *Router) complexityScore(req models.AnalysisRequest) int {
	score := baseComplexity

	if strings.Contains(req.URL, "/actions/runs/") {
		score++
	}
	// Pull-request URLs are standard complexity: no adjustment.

	switch req.Priority {
	case models.PriorityLow:
		score--
	case models.PriorityHigh:
		score++
	case models.PriorityCritical:
		score += 2
	}

	if req.HasUpstreamContext {
		score++
	}

	switch {
	case req.FailedJobs > 3:
		score += 2
	case req.FailedJobs > 1:
		score++
	}

	for _, job := range req.JobNames {
		if strings.Contains(strings.ToLower(job), "integration") {
			score++
			break
		}
	}

	if req.UnknownPatterns {
		score += 2
	}

	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}
	return score
}

// decide applies the routing matrix: priority first, then budget, then
// complexity.
func (r *Router) decide(priority models.Priority, status models.BudgetStatus, level models.ComplexityLevel) models.RoutingDecision {
	tier := models.TierHaiku
	reason := "default cost-effective routing"
	confidence := 8

	switch {
	case priority == models.PriorityCritical:
		tier = models.TierSonnet
		reason = "critical priority requires the strongest tier"

	case status == models.BudgetRed:
		tier = models.TierHaiku
		reason = "budget constraints require cost-effective routing"

	case status == models.BudgetGreen:
		if level == models.ComplexityComplex {
			tier = models.TierSonnet
			reason = "complex analysis requires advanced reasoning"
		} else {
			reason = "simple or moderate complexity suits the cheap tier"
		}

	case status == models.BudgetYellow:
		if level == models.ComplexityComplex && priority == models.PriorityHigh {
			tier = models.TierSonnet
			reason = "complex high-priority analysis justifies the higher cost"
		} else {
			reason = "budget caution with acceptable complexity for the cheap tier"
		}
	}

	return models.RoutingDecision{
		Tier:          tier,
		EstimatedCost: r.costs[tier],
		Reason:        reason,
		Confidence:    confidence,
	}
}

func scoreToLevel(score int) models.ComplexityLevel {
	switch {
	case score <= simpleUpperBound:
		return models.ComplexitySimple
	case score <= moderateUpperBound:
		return models.ComplexityModerate
	default:
		return models.ComplexityComplex
	}
}
