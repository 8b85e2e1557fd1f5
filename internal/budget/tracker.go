// Package budget tracks cumulative LLM spend against daily and monthly
// caps. All accounting goes through a single mutex-guarded tracker so that
// concurrent routing decisions cannot overspend, and the on-disk state is
// shared across processes via file locking and atomic writes.
package budget

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/harrison/detective/internal/filelock"
	"github.com/harrison/detective/internal/models"
)

// Budget status thresholds as fractions of the tighter limit.
const (
	yellowThreshold = 0.5
	redThreshold    = 0.8
)

// State is the persisted cost-tracking record.
type State struct {
	DailySpend      float64 `json:"daily_spend"`
	MonthlySpend    float64 `json:"monthly_spend"`
	OperationsToday int     `json:"operations_today"`
	DailyLimit      float64 `json:"daily_limit"`
	MonthlyLimit    float64 `json:"monthly_limit"`

	// LastReset is the calendar day (2006-01-02) of the last daily reset.
	LastReset string `json:"last_reset_date"`
}

// Tracker is the process-wide budget aggregate. Safe for concurrent use.
type Tracker struct {
	mu         sync.Mutex
	state      State
	path       string // empty means in-memory only
	perOpLimit float64
	now        func() time.Time
}

// NewTracker creates a tracker persisting to path (pass "" for in-memory).
// Existing state on disk is loaded; its limits are overridden by the
// provided ones so configuration stays authoritative.
func NewTracker(path string, dailyLimit, monthlyLimit, perOpLimit float64) (*Tracker, error) {
	t := &Tracker{
		path:       path,
		perOpLimit: perOpLimit,
		now:        time.Now,
		state: State{
			DailyLimit:   dailyLimit,
			MonthlyLimit: monthlyLimit,
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			var loaded State
			if err := json.Unmarshal(data, &loaded); err != nil {
				return nil, fmt.Errorf("parse cost tracking file %s: %w", path, err)
			}
			t.state = loaded
			t.state.DailyLimit = dailyLimit
			t.state.MonthlyLimit = monthlyLimit
		case os.IsNotExist(err):
			// First run, fresh state.
		default:
			return nil, fmt.Errorf("read cost tracking file %s: %w", path, err)
		}
	}

	t.state.LastReset = defaultResetDay(t.state.LastReset, t.now())
	return t, nil
}

// defaultResetDay keeps a loaded reset day, or stamps today for fresh state.
func defaultResetDay(existing string, now time.Time) string {
	if existing != "" {
		return existing
	}
	return now.Format("2006-01-02")
}

// TryReserve atomically checks the budget and commits the cost in one
// step. It returns false without recording anything when the reservation
// would breach the daily or monthly limit, exceed the per-operation limit,
// or the cost is not positive. A successful reservation increments spend
// and the operation counter exactly once.
func (t *Tracker) TryReserve(cost float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeResetLocked()

	if cost <= 0 {
		return false
	}
	if t.perOpLimit > 0 && cost > t.perOpLimit {
		return false
	}
	if t.state.DailySpend+cost > t.state.DailyLimit {
		return false
	}
	if t.state.MonthlySpend+cost > t.state.MonthlyLimit {
		return false
	}

	t.state.DailySpend += cost
	t.state.MonthlySpend += cost
	t.state.OperationsToday++
	t.persistLocked()
	return true
}

// CanProceed reports whether a cost would fit without committing it.
// Prefer TryReserve; this exists for advisory checks only.
func (t *Tracker) CanProceed(cost float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeResetLocked()

	if cost <= 0 {
		return false
	}
	if t.perOpLimit > 0 && cost > t.perOpLimit {
		return false
	}
	return t.state.DailySpend+cost <= t.state.DailyLimit &&
		t.state.MonthlySpend+cost <= t.state.MonthlyLimit
}

// RecordActualCost adjusts spend by the variance between the actual and
// the previously reserved estimate, once the real cost is known.
func (t *Tracker) RecordActualCost(actual, estimated float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeResetLocked()

	adjustment := actual - estimated
	t.state.DailySpend += adjustment
	t.state.MonthlySpend += adjustment
	if t.state.DailySpend < 0 {
		t.state.DailySpend = 0
	}
	if t.state.MonthlySpend < 0 {
		t.state.MonthlySpend = 0
	}
	t.persistLocked()
}

// Status classifies current usage: green below 50% of the tighter limit,
// yellow below 80%, red at or above.
func (t *Tracker) Status() models.BudgetStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeResetLocked()

	usage := t.maxUsageLocked()
	switch {
	case usage >= redThreshold:
		return models.BudgetRed
	case usage >= yellowThreshold:
		return models.BudgetYellow
	default:
		return models.BudgetGreen
	}
}

// RemainingDaily returns the unspent portion of today's budget.
func (t *Tracker) RemainingDaily() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeResetLocked()

	remaining := t.state.DailyLimit - t.state.DailySpend
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Snapshot returns a copy of the current state for reporting.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeResetLocked()
	return t.state
}

// maxUsageLocked is the larger of the daily and monthly usage fractions.
func (t *Tracker) maxUsageLocked() float64 {
	daily := 0.0
	if t.state.DailyLimit > 0 {
		daily = t.state.DailySpend / t.state.DailyLimit
	}
	monthly := 0.0
	if t.state.MonthlyLimit > 0 {
		monthly = t.state.MonthlySpend / t.state.MonthlyLimit
	}
	if monthly > daily {
		return monthly
	}
	return daily
}

// maybeResetLocked zeroes the daily counters on the first operation of a
// new calendar day, and the monthly counter on a month rollover.
func (t *Tracker) maybeResetLocked() {
	today := t.now().Format("2006-01-02")
	if t.state.LastReset == today {
		return
	}

	if len(t.state.LastReset) >= 7 && t.state.LastReset[:7] != today[:7] {
		t.state.MonthlySpend = 0
	}
	t.state.DailySpend = 0
	t.state.OperationsToday = 0
	t.state.LastReset = today
	t.persistLocked()
}

// persistLocked writes state to disk under the file lock. Persistence
// errors are swallowed: budget accounting must not fail the pipeline, and
// the in-memory state stays correct for this process.
func (t *Tracker) persistLocked() {
	if t.path == "" {
		return
	}
	data, err := json.MarshalIndent(t.state, "", "  ")
	if err != nil {
		return
	}
	_ = filelock.LockAndWrite(t.path, data)
}
