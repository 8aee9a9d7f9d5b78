package services

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"mindcash/internal/core"
)

const (
	// defaultMonthlyLimit backs the spending rule when the user never set a
	// monthly goal: 3000 currency units.
	defaultMonthlyLimit = 300_000

	// spendingWarnPercent is the share of the monthly limit that triggers a
	// warning; beyond 100% the alert escalates to high priority.
	spendingWarnPercent = 80

	// largeExpenseThreshold flags single expenses above 500 units.
	largeExpenseThreshold = 50_000

	// recurringDueWindowDays covers due-today through due-in-three-days.
	recurringDueWindowDays = 3

	// Goal milestone band: fire once when progress first enters [25%, 30%).
	milestoneLowerPercent = 25
	milestoneUpperPercent = 30

	// maxAlerts caps the retained alert list; older entries fall off.
	maxAlerts = 200
)

// AlertEngine evaluates the smart-alert rules. Rules are independent and
// re-evaluated on every trigger (startup, new transaction, period change);
// only goal milestones carry notified-state so they fire once per goal.
type AlertEngine struct {
	mu       sync.Mutex
	now      func() time.Time
	notified map[string]bool
}

func NewAlertEngine() *AlertEngine {
	return NewAlertEngineWithClock(time.Now)
}

func NewAlertEngineWithClock(now func() time.Time) *AlertEngine {
	return &AlertEngine{now: now, notified: make(map[string]bool)}
}

// EvaluateSpending checks the month's expenses against the user's monthly
// goal (or the default limit) and emits at most one spending_limit alert.
func (e *AlertEngine) EvaluateSpending(transactions []core.Transaction, monthlyGoal core.Money) []core.Alert {
	now := e.now()
	var expenses core.Money
	for _, t := range core.FilterByPeriod(transactions, core.PeriodMonth, now) {
		if t.Kind == core.Expense {
			expenses = expenses.Add(t.Amount)
		}
	}

	limit := monthlyGoal
	if limit.Cents <= 0 {
		limit = core.Money{Cents: defaultMonthlyLimit}
	}

	percent := expenses.Units() / limit.Units() * 100
	if percent <= spendingWarnPercent {
		return nil
	}

	priority := core.PriorityMedium
	if percent > 100 {
		priority = core.PriorityHigh
	}

	amount := expenses
	return []core.Alert{{
		ID:        uuid.NewString(),
		Type:      core.AlertSpendingLimit,
		Message:   fmt.Sprintf("You have already spent %.0f%% of your monthly limit", percent),
		Amount:    &amount,
		Timestamp: now,
		Priority:  priority,
	}}
}

// EvaluateBudget checks the month's expenses against the user's configured
// alert limit, which is separate from the monthly goal. A zero limit
// disables the rule.
func (e *AlertEngine) EvaluateBudget(transactions []core.Transaction, alertLimit core.Money) []core.Alert {
	now := e.now()
	if !core.OverAlertLimit(transactions, alertLimit, now) {
		return nil
	}

	var expenses core.Money
	for _, t := range core.FilterByPeriod(transactions, core.PeriodMonth, now) {
		if t.Kind == core.Expense {
			expenses = expenses.Add(t.Amount)
		}
	}

	amount := expenses
	return []core.Alert{{
		ID:        uuid.NewString(),
		Type:      core.AlertBudgetWarning,
		Message:   fmt.Sprintf("Monthly expenses of %s exceed your alert limit of %s", expenses, alertLimit),
		Amount:    &amount,
		Timestamp: now,
		Priority:  core.PriorityHigh,
	}}
}

// EvaluateGoals emits a goal_achieved alert the first time a goal's progress
// enters the milestone band. The band alone would re-fire on every
// evaluation, so each goal/threshold pair is announced only once.
func (e *AlertEngine) EvaluateGoals(goals []core.Goal) []core.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	var out []core.Alert
	for _, g := range goals {
		if g.TargetAmount.Cents <= 0 {
			continue
		}
		progress := g.CurrentAmount.Units() / g.TargetAmount.Units() * 100
		if progress < milestoneLowerPercent || progress >= milestoneUpperPercent {
			continue
		}

		key := fmt.Sprintf("%s:%d", g.ID, milestoneLowerPercent)
		if e.notified[key] {
			continue
		}
		e.notified[key] = true

		out = append(out, core.Alert{
			ID:        uuid.NewString(),
			Type:      core.AlertGoalAchieved,
			Message:   fmt.Sprintf("Congratulations! You reached %.0f%% of your goal %q", progress, g.Name),
			Timestamp: now,
			Priority:  core.PriorityMedium,
		})
	}
	return out
}

// EvaluateLargeExpense flags a freshly added expense above the fixed
// threshold. Income never triggers it.
func (e *AlertEngine) EvaluateLargeExpense(t core.Transaction) []core.Alert {
	if t.Kind != core.Expense || t.Amount.Cents <= largeExpenseThreshold {
		return nil
	}

	amount := t.Amount
	return []core.Alert{{
		ID:        uuid.NewString(),
		Type:      core.AlertUnusualExpense,
		Message:   fmt.Sprintf("Large expense detected: %s - %s", t.Description, t.Amount),
		Amount:    &amount,
		Category:  t.Category,
		Timestamp: e.now(),
		Priority:  core.PriorityMedium,
	}}
}

// EvaluateRecurring emits a high-priority reminder for every active
// recurring expense due within the next three days, due-today included.
func (e *AlertEngine) EvaluateRecurring(recurring []core.RecurringExpense) []core.Alert {
	now := e.now()
	var out []core.Alert
	for _, re := range recurring {
		if !re.Active {
			continue
		}
		days := int(math.Ceil(re.NextDate.Sub(now).Hours() / 24))
		if days < 0 || days > recurringDueWindowDays {
			continue
		}

		unit := "days"
		if days == 1 {
			unit = "day"
		}
		amount := re.Amount
		out = append(out, core.Alert{
			ID:        uuid.NewString(),
			Type:      core.AlertRecurringDue,
			Message:   fmt.Sprintf("Reminder: %s is due in %d %s", re.Description, days, unit),
			Amount:    &amount,
			Category:  re.Category,
			Timestamp: now,
			Priority:  core.PriorityHigh,
		})
	}
	return out
}

// AppendAlerts prepends fresh alerts to the list, newest first, and trims to
// the retention cap so the list cannot grow without bound.
func AppendAlerts(existing []core.Alert, fresh []core.Alert) []core.Alert {
	if len(fresh) == 0 {
		return existing
	}
	out := make([]core.Alert, 0, len(existing)+len(fresh))
	out = append(out, fresh...)
	out = append(out, existing...)
	if len(out) > maxAlerts {
		out = out[:maxAlerts]
	}
	return out
}
