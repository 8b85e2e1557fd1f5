package router

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/harrison/detective/internal/budget"
	"github.com/harrison/detective/internal/models"
)

const (
	testHaikuCost  = 0.02
	testSonnetCost = 0.15
)

func newTestRouter(t *testing.T, daily, monthly float64) *Router {
	t.Helper()
	path := filepath.Join(t.TempDir(), "budget.json")
	tr, err := budget.NewTracker(path, daily, monthly, 1.0)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	return New(tr, testHaikuCost, testSonnetCost)
}

func TestComplexityScore(t *testing.T) {
	r := newTestRouter(t, 10, 200)

	tests := []struct {
		name string
		req  models.AnalysisRequest
		want int
	}{
		{
			name: "baseline medium priority",
			req:  models.AnalysisRequest{Priority: models.PriorityMedium, FailedJobs: 1},
			want: 5,
		},
		{
			name: "low priority simple",
			req:  models.AnalysisRequest{Priority: models.PriorityLow, FailedJobs: 1},
			want: 4,
		},
		{
			name: "actions run url adds one",
			req: models.AnalysisRequest{
				URL:      "https://github.com/acme/widget/actions/runs/42",
				Priority: models.PriorityMedium,
			},
			want: 6,
		},
		{
			name: "critical with many failures and unknown patterns",
			req: models.AnalysisRequest{
				Priority:        models.PriorityCritical,
				FailedJobs:      5,
				UnknownPatterns: true,
			},
			want: 10, // 5+2+2+2 = 11, clamped
		},
		{
			name: "integration job and upstream context",
			req: models.AnalysisRequest{
				Priority:           models.PriorityMedium,
				FailedJobs:         2,
				JobNames:           []string{"unit-tests", "integration-tests"},
				HasUpstreamContext: true,
			},
			want: 8, // 5+1+1+1
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.complexityScore(tt.req); got != tt.want {
				t.Errorf("complexityScore() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreToLevel(t *testing.T) {
	cases := map[int]models.ComplexityLevel{
		1:  models.ComplexitySimple,
		4:  models.ComplexitySimple,
		5:  models.ComplexityModerate,
		7:  models.ComplexityModerate,
		8:  models.ComplexityComplex,
		10: models.ComplexityComplex,
	}
	for score, want := range cases {
		if got := scoreToLevel(score); got != want {
			t.Errorf("scoreToLevel(%d) = %s, want %s", score, got, want)
		}
	}
}

func TestRouteCriticalAlwaysSonnet(t *testing.T) {
	r := newTestRouter(t, 10, 200)

	dec, err := r.Route(models.AnalysisRequest{Priority: models.PriorityCritical})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if dec.Tier != models.TierSonnet {
		t.Errorf("Tier = %s, want sonnet", dec.Tier)
	}
	if dec.EstimatedCost != testSonnetCost {
		t.Errorf("EstimatedCost = %v, want %v", dec.EstimatedCost, testSonnetCost)
	}
}

func TestRouteGreenBudgetByComplexity(t *testing.T) {
	r := newTestRouter(t, 10, 200)

	// Moderate complexity stays on the cheap tier.
	dec, err := r.Route(models.AnalysisRequest{Priority: models.PriorityMedium, FailedJobs: 1})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if dec.Tier != models.TierHaiku {
		t.Errorf("moderate under green: Tier = %s, want haiku", dec.Tier)
	}
	if dec.BudgetStatus != models.BudgetGreen {
		t.Errorf("BudgetStatus = %s, want green", dec.BudgetStatus)
	}

	// Complex analysis gets the strong tier while the budget is healthy.
	dec, err = r.Route(models.AnalysisRequest{
		Priority:        models.PriorityHigh,
		FailedJobs:      4,
		UnknownPatterns: true,
	})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if dec.Complexity != models.ComplexityComplex {
		t.Fatalf("Complexity = %s, want complex", dec.Complexity)
	}
	if dec.Tier != models.TierSonnet {
		t.Errorf("complex under green: Tier = %s, want sonnet", dec.Tier)
	}
}

func TestRouteRedBudgetForcesHaiku(t *testing.T) {
	r := newTestRouter(t, 1.0, 200)

	// Burn 85% of the daily budget to push the status to red.
	if !r.tracker.TryReserve(0.85) {
		t.Fatal("setup reserve failed")
	}
	if got := r.tracker.Status(); got != models.BudgetRed {
		t.Fatalf("Status = %s, want red", got)
	}

	dec, err := r.Route(models.AnalysisRequest{
		Priority:        models.PriorityHigh,
		FailedJobs:      4,
		UnknownPatterns: true,
	})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if dec.Tier != models.TierHaiku {
		t.Errorf("complex under red: Tier = %s, want haiku", dec.Tier)
	}
}

func TestRouteYellowBudget(t *testing.T) {
	r := newTestRouter(t, 1.0, 200)
	if !r.tracker.TryReserve(0.6) {
		t.Fatal("setup reserve failed")
	}
	if got := r.tracker.Status(); got != models.BudgetYellow {
		t.Fatalf("Status = %s, want yellow", got)
	}

	// Complex but only medium priority: stay cheap under yellow.
	dec, err := r.Route(models.AnalysisRequest{
		Priority:        models.PriorityMedium,
		FailedJobs:      4,
		UnknownPatterns: true,
	})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if dec.Tier != models.TierHaiku {
		t.Errorf("complex medium under yellow: Tier = %s, want haiku", dec.Tier)
	}

	// Complex and high priority justifies the strong tier.
	dec, err = r.Route(models.AnalysisRequest{
		Priority:        models.PriorityHigh,
		FailedJobs:      4,
		UnknownPatterns: true,
	})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if dec.Tier != models.TierSonnet {
		t.Errorf("complex high under yellow: Tier = %s, want sonnet", dec.Tier)
	}
}

func TestRouteDowngradesWhenSonnetDoesNotFit(t *testing.T) {
	// 0.10 remaining: sonnet (0.15) does not fit, haiku (0.02) does.
	r := newTestRouter(t, 0.10, 200)

	dec, err := r.Route(models.AnalysisRequest{Priority: models.PriorityCritical})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if dec.Tier != models.TierHaiku {
		t.Errorf("Tier = %s, want haiku after downgrade", dec.Tier)
	}
	if dec.EstimatedCost != testHaikuCost {
		t.Errorf("EstimatedCost = %v, want %v", dec.EstimatedCost, testHaikuCost)
	}
	if dec.Confidence >= 8 {
		t.Errorf("Confidence = %d, want lowered after forced downgrade", dec.Confidence)
	}
}

func TestRouteBudgetExhausted(t *testing.T) {
	// 0.01 remaining: not even haiku fits.
	r := newTestRouter(t, 0.01, 200)

	_, err := r.Route(models.AnalysisRequest{Priority: models.PriorityMedium})
	if !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("err = %v, want ErrBudgetExhausted", err)
	}

	// Nothing was recorded.
	if spend := r.tracker.Snapshot().DailySpend; spend != 0 {
		t.Errorf("DailySpend = %v, want 0 after rejected route", spend)
	}
}

func TestRouteRecordsSpendOnce(t *testing.T) {
	r := newTestRouter(t, 10, 200)

	dec, err := r.Route(models.AnalysisRequest{Priority: models.PriorityMedium})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}

	snap := r.tracker.Snapshot()
	if snap.DailySpend != dec.EstimatedCost {
		t.Errorf("DailySpend = %v, want %v", snap.DailySpend, dec.EstimatedCost)
	}
	if snap.OperationsToday != 1 {
		t.Errorf("OperationsToday = %d, want 1", snap.OperationsToday)
	}
}
