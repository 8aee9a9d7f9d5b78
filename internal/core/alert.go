package core

import "time"

const (
	AlertSpendingLimit  AlertType = "spending_limit"
	AlertGoalAchieved   AlertType = "goal_achieved"
	AlertUnusualExpense AlertType = "unusual_expense"
	AlertRecurringDue   AlertType = "recurring_due"
	AlertBudgetWarning  AlertType = "budget_warning"
)

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

const (
	InsightRecommendation InsightType = "recommendation"
	InsightPrediction     InsightType = "prediction"
	InsightWarning        InsightType = "warning"
	InsightOpportunity    InsightType = "opportunity"
)

type (
	AlertType string

	Priority string

	InsightType string

	// Alert is a notification produced by rule evaluation. Amount and
	// Category are optional context; a nil Amount means the rule had no
	// monetary value to attach.
	Alert struct {
		ID        string
		Type      AlertType
		Message   string
		Amount    *Money
		Category  string
		Timestamp time.Time
		Read      bool
		Priority  Priority
	}

	// AIInsight is a generated advisory record shown in the insights panel.
	AIInsight struct {
		ID          string
		Type        InsightType
		Title       string
		Description string
		Impact      Priority
		Category    string
		Timestamp   time.Time
		Actionable  bool
	}
)

func (t AlertType) IsValid() bool {
	switch t {
	case AlertSpendingLimit, AlertGoalAchieved, AlertUnusualExpense,
		AlertRecurringDue, AlertBudgetWarning:
		return true
	default:
		return false
	}
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}
