package budget

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/harrison/detective/internal/models"
)

func newTestTracker(t *testing.T, daily, monthly, perOp float64) *Tracker {
	t.Helper()
	tr, err := NewTracker("", daily, monthly, perOp)
	if err != nil {
		t.Fatal(err)
	}
	return tr
}

func TestTryReserve_CommitsOnce(t *testing.T) {
	tr := newTestTracker(t, 10, 200, 1)

	if !tr.TryReserve(0.15) {
		t.Fatal("reservation within budget rejected")
	}

	s := tr.Snapshot()
	if s.DailySpend != 0.15 || s.MonthlySpend != 0.15 {
		t.Errorf("spend = %f/%f, want 0.15/0.15", s.DailySpend, s.MonthlySpend)
	}
	if s.OperationsToday != 1 {
		t.Errorf("OperationsToday = %d, want 1", s.OperationsToday)
	}
}

func TestTryReserve_RejectsOverDailyLimit(t *testing.T) {
	tr := newTestTracker(t, 1, 200, 1)

	if !tr.TryReserve(0.9) {
		t.Fatal("first reservation rejected")
	}
	if tr.TryReserve(0.2) {
		t.Error("reservation breaching daily limit accepted")
	}

	s := tr.Snapshot()
	if s.DailySpend > s.DailyLimit {
		t.Errorf("daily spend %f exceeds limit %f", s.DailySpend, s.DailyLimit)
	}
	if s.OperationsToday != 1 {
		t.Errorf("rejected reservation was counted: %d operations", s.OperationsToday)
	}
}

func TestTryReserve_RejectsPerOperationLimit(t *testing.T) {
	tr := newTestTracker(t, 10, 200, 0.1)
	if tr.TryReserve(0.5) {
		t.Error("cost above the per-operation limit accepted")
	}
}

func TestTryReserve_RejectsNonPositiveCost(t *testing.T) {
	tr := newTestTracker(t, 10, 200, 1)
	if tr.TryReserve(0) || tr.TryReserve(-1) {
		t.Error("non-positive cost accepted")
	}
}

func TestCanProceed_DoesNotCommit(t *testing.T) {
	tr := newTestTracker(t, 1, 200, 1)

	if !tr.CanProceed(0.9) {
		t.Error("cost within budget rejected")
	}
	if s := tr.Snapshot(); s.DailySpend != 0 || s.OperationsToday != 0 {
		t.Errorf("advisory check committed spend: %f, %d operations", s.DailySpend, s.OperationsToday)
	}

	tr.TryReserve(0.9)
	if tr.CanProceed(0.2) {
		t.Error("cost breaching the daily limit accepted")
	}
	if tr.CanProceed(0) {
		t.Error("non-positive cost accepted")
	}
}

func TestCanProceed_PerOperationLimit(t *testing.T) {
	tr := newTestTracker(t, 10, 200, 0.1)
	if tr.CanProceed(0.5) {
		t.Error("cost above the per-operation limit accepted")
	}
}

func TestBudgetInvariant_ConcurrentReservations(t *testing.T) {
	tr := newTestTracker(t, 1.0, 200, 1)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.TryReserve(0.15)
		}()
	}
	wg.Wait()

	s := tr.Snapshot()
	if s.DailySpend > s.DailyLimit+1e-9 {
		t.Errorf("concurrent reservations overspent: %f > %f", s.DailySpend, s.DailyLimit)
	}
}

func TestStatus_Thresholds(t *testing.T) {
	tr := newTestTracker(t, 10, 1000, 10)

	if got := tr.Status(); got != models.BudgetGreen {
		t.Errorf("fresh tracker status = %s, want green", got)
	}

	tr.TryReserve(5) // 50% daily
	if got := tr.Status(); got != models.BudgetYellow {
		t.Errorf("at 50%% status = %s, want yellow", got)
	}

	tr.TryReserve(3.5) // 85% daily
	if got := tr.Status(); got != models.BudgetRed {
		t.Errorf("at 85%% status = %s, want red", got)
	}
}

// setClock pins the tracker's clock so reset behavior is deterministic.
func setClock(tr *Tracker, at time.Time) {
	tr.now = func() time.Time { return at }
	tr.state.LastReset = at.Format("2006-01-02")
}

func TestDailyReset_NewDay(t *testing.T) {
	tr := newTestTracker(t, 10, 200, 10)
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	setClock(tr, base)
	tr.TryReserve(5)

	// Next calendar day, same month.
	tr.now = func() time.Time { return base.AddDate(0, 0, 1) }

	s := tr.Snapshot()
	if s.DailySpend != 0 {
		t.Errorf("DailySpend after day rollover = %f, want 0", s.DailySpend)
	}
	if s.OperationsToday != 0 {
		t.Errorf("OperationsToday after day rollover = %d, want 0", s.OperationsToday)
	}
	if s.MonthlySpend != 5 {
		t.Errorf("MonthlySpend must survive a daily reset, got %f", s.MonthlySpend)
	}
}

func TestMonthlyReset_NewMonth(t *testing.T) {
	tr := newTestTracker(t, 10, 200, 10)
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	setClock(tr, base)
	tr.TryReserve(5)

	tr.now = func() time.Time { return base.AddDate(0, 1, 0) }

	s := tr.Snapshot()
	if s.MonthlySpend != 0 {
		t.Errorf("MonthlySpend after month rollover = %f, want 0", s.MonthlySpend)
	}
}

func TestRecordActualCost_Variance(t *testing.T) {
	tr := newTestTracker(t, 10, 200, 1)
	tr.TryReserve(0.15)
	tr.RecordActualCost(0.10, 0.15)

	s := tr.Snapshot()
	if diff := s.DailySpend - 0.10; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("DailySpend after variance adjustment = %f, want 0.10", s.DailySpend)
	}
}

func TestPersistence_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cost-tracking.json")

	tr, err := NewTracker(path, 10, 200, 1)
	if err != nil {
		t.Fatal(err)
	}
	tr.TryReserve(0.5)

	// File reflects the reservation.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var onDisk State
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatal(err)
	}
	if onDisk.DailySpend != 0.5 {
		t.Errorf("persisted DailySpend = %f, want 0.5", onDisk.DailySpend)
	}

	// A second tracker picks up where the first left off.
	tr2, err := NewTracker(path, 10, 200, 1)
	if err != nil {
		t.Fatal(err)
	}
	s := tr2.Snapshot()
	if s.DailySpend != 0.5 {
		t.Errorf("reloaded DailySpend = %f, want 0.5", s.DailySpend)
	}
}

func TestNewTracker_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cost-tracking.json")
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewTracker(path, 10, 200, 1); err == nil {
		t.Error("NewTracker() accepted a corrupt state file")
	}
}

func TestRemainingDaily(t *testing.T) {
	tr := newTestTracker(t, 10, 200, 10)
	tr.TryReserve(4)
	if got := tr.RemainingDaily(); got != 6 {
		t.Errorf("RemainingDaily() = %f, want 6", got)
	}
}
