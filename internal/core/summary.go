package core

import "time"

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

type (
	// Period selects the date window used to filter transactions before
	// aggregation: the current calendar day, the trailing 7 days, or the
	// current calendar month.
	Period string

	// FinancialSummary is the derived dashboard headline for a period.
	FinancialSummary struct {
		TotalIncome         Money
		TotalExpenses       Money
		Balance             Money
		MonthlyGoalProgress float64
	}

	// CategoryBreakdown is the per-category share of total expenses.
	CategoryBreakdown struct {
		Name       string
		Amount     Money
		Percentage float64
		Color      string
	}
)

func (p Period) IsValid() bool {
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return true
	default:
		return false
	}
}

// Display colors for category slices, assigned by first-seen order and
// cycled after the tenth distinct category.
var categoryPalette = []string{
	"#D4AF37", "#B8860B", "#DAA520", "#FFD700", "#F4A460",
	"#CD853F", "#DEB887", "#F5DEB3", "#FFEBCD", "#FFF8DC",
}

// PeriodStart returns the inclusive lower bound of the period relative to now:
// day is today's local midnight, week is exactly seven days before now, month
// is the first of the current month at local midnight.
func PeriodStart(p Period, now time.Time) time.Time {
	switch p {
	case PeriodDay:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case PeriodWeek:
		return now.AddDate(0, 0, -7)
	default:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	}
}

// FilterByPeriod keeps transactions whose date is on or after the period's
// lower bound. The upper bound is open: future-dated entries pass through,
// matching how the entry form lets users post-date transactions.
func FilterByPeriod(transactions []Transaction, p Period, now time.Time) []Transaction {
	start := PeriodStart(p, now)
	out := make([]Transaction, 0, len(transactions))
	for _, t := range transactions {
		if !t.OccurredOn.Before(start) {
			out = append(out, t)
		}
	}
	return out
}

// Summarize computes income, expenses, balance and goal progress for an
// already filtered transaction list. It never fails: empty input yields a
// zero summary. Progress is capped at 100 but has no lower floor, so a
// negative balance surfaces as negative progress.
func Summarize(transactions []Transaction, monthlyGoal Money) FinancialSummary {
	var income, expenses Money
	for _, t := range transactions {
		switch t.Kind {
		case Income:
			income = income.Add(t.Amount)
		case Expense:
			expenses = expenses.Add(t.Amount)
		}
	}

	balance := income.Sub(expenses)

	progress := 0.0
	if monthlyGoal.Cents > 0 {
		progress = balance.Units() / monthlyGoal.Units() * 100
		if progress > 100 {
			progress = 100
		}
	}

	return FinancialSummary{
		TotalIncome:         income,
		TotalExpenses:       expenses,
		Balance:             balance,
		MonthlyGoalProgress: progress,
	}
}

// BreakdownByCategory groups expense transactions by exact category name,
// in first-seen order, with each entry's percentage of total expenses and
// a palette color. Income transactions are ignored.
func BreakdownByCategory(transactions []Transaction) []CategoryBreakdown {
	var total Money
	order := make([]string, 0)
	sums := make(map[string]Money)

	for _, t := range transactions {
		if t.Kind != Expense {
			continue
		}
		if _, seen := sums[t.Category]; !seen {
			order = append(order, t.Category)
		}
		sums[t.Category] = sums[t.Category].Add(t.Amount)
		total = total.Add(t.Amount)
	}

	out := make([]CategoryBreakdown, 0, len(order))
	for i, name := range order {
		pct := 0.0
		if total.Cents > 0 {
			pct = sums[name].Units() / total.Units() * 100
		}
		out = append(out, CategoryBreakdown{
			Name:       name,
			Amount:     sums[name],
			Percentage: pct,
			Color:      categoryPalette[i%len(categoryPalette)],
		})
	}
	return out
}

// OverAlertLimit reports whether the month's expenses exceed the user's
// configured spending limit. A zero limit disables the check.
func OverAlertLimit(transactions []Transaction, alertLimit Money, now time.Time) bool {
	if alertLimit.Cents <= 0 {
		return false
	}
	var expenses Money
	for _, t := range FilterByPeriod(transactions, PeriodMonth, now) {
		if t.Kind == Expense {
			expenses = expenses.Add(t.Amount)
		}
	}
	return expenses.Cents > alertLimit.Cents
}
