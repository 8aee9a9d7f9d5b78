package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const (
	PlanTrial     Plan = "trial"
	PlanEssencial Plan = "essencial"
	PlanPro       Plan = "pro"
	PlanPremium   Plan = "premium"
)

const (
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// Defaults applied to freshly registered accounts.
const (
	DefaultMonthlyGoalCents int64 = 500_000
	DefaultAlertLimitCents  int64 = 300_000
)

type (
	Kind string

	Plan string

	Frequency string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Transaction struct {
		ID          string
		Kind        Kind
		Amount      Money
		Category    string
		Description string
		OccurredOn  Date
		CreatedAt   time.Time
	}

	User struct {
		ID                    string
		DisplayName           string
		Email                 string
		MonthlyGoal           Money
		AlertLimit            Money
		Plan                  Plan
		TrialStartedAt        *time.Time
		TrialTransactionCount int
	}

	Goal struct {
		ID            string
		Name          string
		TargetAmount  Money
		CurrentAmount Money
		Deadline      Date
		Category      string
		CreatedAt     time.Time
	}

	RecurringExpense struct {
		ID          string
		Description string
		Amount      Money
		Category    string
		Frequency   Frequency
		NextDate    Date
		Active      bool
	}
)

// Fixed category taxonomy. Auto-categorization and the dashboard group by
// these names with exact, case-sensitive matching.
var (
	ExpenseCategories = []string{
		"Food", "Transport", "Housing", "Health", "Education",
		"Entertainment", "Shopping", "Investments", "Other",
	}
	IncomeCategories = []string{
		"Salary", "Freelance", "Investments", "Sales", "Other",
	}
)

var (
	ErrInvalidKind      = errors.New("invalid transaction kind")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrInvalidFrequency = errors.New("invalid frequency")
)

func (k Kind) IsValid() bool {
	return k == Income || k == Expense
}

func (p Plan) IsValid() bool {
	switch p {
	case PlanTrial, PlanEssencial, PlanPro, PlanPremium:
		return true
	default:
		return false
	}
}

// Paid reports whether the plan is a paid tier (anything but trial).
func (p Plan) Paid() bool {
	return p.IsValid() && p != PlanTrial
}

func (f Frequency) IsValid() bool {
	switch f {
	case Weekly, Monthly, Yearly:
		return true
	default:
		return false
	}
}

// NewDate creates a Date at local midnight for year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (t Transaction) Validate() error {
	if !t.Kind.IsValid() {
		return ErrInvalidKind
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return t.OccurredOn.Validate()
}

func (u User) Validate() error {
	if err := ValidateEmail(u.Email); err != nil {
		return err
	}
	if !u.Plan.IsValid() {
		return errors.New("invalid plan")
	}
	// A trial user without a start date is a corrupt record.
	if u.Plan == PlanTrial && u.TrialStartedAt == nil {
		return errors.New("trial plan requires a trial start date")
	}
	return nil
}

func (re RecurringExpense) Validate() error {
	if len(strings.TrimSpace(re.Description)) == 0 {
		return ErrEmptyDescription
	}
	if err := re.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(re.Category) == "" {
		return ErrEmptyCategory
	}
	if !re.Frequency.IsValid() {
		return ErrInvalidFrequency
	}
	return re.NextDate.Validate()
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return errors.New("empty goal name")
	}
	return g.TargetAmount.Validate()
}

// ValidateEmail applies the same lenient shape check the registration form
// uses: something before and after a single @, with a dot in the domain.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	if at <= 0 || at != strings.LastIndex(email, "@") {
		return ErrInvalidEmail
	}
	domain := email[at+1:]
	if domain == "" || !strings.Contains(domain, ".") {
		return ErrInvalidEmail
	}
	if strings.ContainsAny(email, " \t\n") {
		return ErrInvalidEmail
	}
	return nil
}

// NormalizeEmail lowercases and trims an address. Trial records and account
// lookups are keyed by the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
