// Package app is the application shell: one Session per signed-in user,
// owning the dashboard period, the alert list, and every intent the
// transport layer exposes. Engines stay pure; all state mutation funnels
// through here.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"mindcash/internal/auth"
	"mindcash/internal/backend"
	"mindcash/internal/core"
	"mindcash/internal/export"
	"mindcash/internal/services"
	"mindcash/internal/trial"

	"github.com/google/uuid"
)

// Session lifecycle.
type State int

const (
	StateInit State = iota
	StateActive
	StateClosed
)

const backupKey = "mindcash_backup"

// Entitlement and state errors. These gate actions; they are not remote
// failures.
var (
	ErrNotSignedIn       = errors.New("not signed in")
	ErrSessionClosed     = errors.New("session closed")
	ErrTrialExpired      = errors.New("trial expired, upgrade to keep adding transactions")
	ErrTrialLimitReached = errors.New("trial transaction limit reached, upgrade to keep adding transactions")
	ErrUnknownPlan       = errors.New("unknown subscription plan")
)

// Publisher emits sync events after writes. A nil publisher disables them.
type Publisher interface {
	PublishTransactionSync(ctx context.Context, id, action string) error
}

// Session is the explicit session-context object: init until a successful
// register/login, active while signed in, closed after logout.
type Session struct {
	store       backend.Store
	auth        *auth.Service
	trials      *trial.Tracker
	alertEngine *services.AlertEngine
	insights    *services.InsightGenerator
	pub         Publisher
	now         func() time.Time

	// mu serializes intents: the transport shares one Session per token
	// across concurrent requests. Unexported methods assume it is held.
	mu     sync.Mutex
	state  State
	user   core.User
	token  string
	period core.Period
	alerts []core.Alert

	autoCategorize bool
	smartAlerts    bool
}

type Options struct {
	Store     backend.Store
	Auth      *auth.Service
	Trials    *trial.Tracker
	Publisher Publisher
	Now       func() time.Time
}

func NewSession(opts Options) *Session {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Session{
		store:          opts.Store,
		auth:           opts.Auth,
		trials:         opts.Trials,
		alertEngine:    services.NewAlertEngineWithClock(now),
		insights:       services.NewInsightGeneratorWithClock(now),
		pub:            opts.Publisher,
		now:            now,
		state:          StateInit,
		period:         core.PeriodMonth,
		autoCategorize: true,
		smartAlerts:    true,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) User() core.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) requireActive() error {
	switch s.state {
	case StateActive:
		return nil
	case StateClosed:
		return ErrSessionClosed
	default:
		return ErrNotSignedIn
	}
}

// Register creates an account and opens the session. An email that already
// consumed its trial is rejected before any account is created.
func (s *Session) Register(ctx context.Context, email, password, displayName string) auth.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInit {
		return auth.Result{Message: "session already used"}
	}
	if !s.trials.CanStartTrial(email) {
		return auth.Result{Message: trial.ErrTrialAlreadyUsed.Error()}
	}

	res := s.auth.SignUp(ctx, email, password, displayName)
	if !res.OK {
		return res
	}
	if _, err := s.trials.Start(email); err != nil {
		return auth.Result{Message: err.Error()}
	}
	s.open(ctx, res)
	return res
}

// Login signs in and opens the session. A first login for the email starts
// its trial, same as registration.
func (s *Session) Login(ctx context.Context, email, password string) auth.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInit {
		return auth.Result{Message: "session already used"}
	}

	res := s.auth.SignIn(ctx, email, password)
	if !res.OK {
		return res
	}
	if _, err := s.trials.EnsureStarted(email); err != nil {
		return auth.Result{Message: err.Error()}
	}
	s.open(ctx, res)
	return res
}

// Resume reopens a session from a still-valid token, for example after a
// server restart. The token keeps working until its original expiry.
func (s *Session) Resume(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInit {
		return ErrSessionClosed
	}
	user, err := s.auth.Validate(ctx, token)
	if err != nil {
		return err
	}
	s.open(ctx, auth.Result{OK: true, User: user, Token: token})
	return nil
}

func (s *Session) open(ctx context.Context, res auth.Result) {
	s.state = StateActive
	s.user = res.User
	s.token = res.Token
	s.period = core.PeriodMonth

	if persisted, err := s.store.ListAlerts(ctx, s.user.ID); err == nil {
		s.alerts = services.AppendAlerts(nil, persisted)
	}
	s.refreshAlerts(ctx)
}

// Logout closes the session. The session object is done afterwards; a new
// sign-in needs a fresh Session.
func (s *Session) Logout(ctx context.Context) auth.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return auth.Result{Message: err.Error()}
	}
	res := s.auth.SignOut(ctx, s.token)
	s.state = StateClosed
	s.user = core.User{}
	s.token = ""
	s.alerts = nil
	return res
}

// SetAutoCategorize toggles filling a blank category from the description.
func (s *Session) SetAutoCategorize(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoCategorize = enabled
}

// SetSmartAlerts toggles rule evaluation on triggers.
func (s *Session) SetSmartAlerts(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.smartAlerts = enabled
}

// CanAddTransaction is the entitlement check: paid plans always pass; trial
// accounts pass until the trial expires or the transaction allowance runs
// out. Read access is never blocked.
func (s *Session) CanAddTransaction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entitlement() == nil
}

func (s *Session) entitlement() error {
	if err := s.requireActive(); err != nil {
		return err
	}
	if s.user.Plan.Paid() {
		return nil
	}
	if s.trials.IsExpired(s.user.Email) {
		return ErrTrialExpired
	}
	if s.user.TrialTransactionCount >= trial.TrialTransactionLimit {
		return ErrTrialLimitReached
	}
	return nil
}

// AddTransactionInput is the raw form payload. Amount is a decimal string;
// a zero OccurredOn means today.
type AddTransactionInput struct {
	Kind        core.Kind
	Amount      string
	Category    string
	Description string
	OccurredOn  core.Date
}

// AddTransaction validates, categorizes and stores a transaction, then runs
// the alert rules it can trigger.
func (s *Session) AddTransaction(ctx context.Context, in AddTransactionInput) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.entitlement(); err != nil {
		return core.Transaction{}, err
	}

	cents, err := core.ParseDecimalToCents(in.Amount)
	if err != nil {
		return core.Transaction{}, err
	}

	category := in.Category
	if category == "" && s.autoCategorize {
		category = services.Categorize(in.Description, in.Kind)
	}

	occurredOn := in.OccurredOn
	if occurredOn.IsEmpty() {
		occurredOn = core.DateOf(s.now())
	}

	t := core.Transaction{
		ID:          uuid.NewString(),
		Kind:        in.Kind,
		Amount:      core.Money{Cents: cents},
		Category:    category,
		Description: in.Description,
		OccurredOn:  occurredOn,
		CreatedAt:   s.now(),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if err := s.store.CreateTransaction(ctx, s.user.ID, t); err != nil {
		return core.Transaction{}, fmt.Errorf("store transaction: %w", err)
	}

	if !s.user.Plan.Paid() {
		s.user.TrialTransactionCount++
		if err := s.store.UpdateUser(ctx, s.user); err != nil {
			return core.Transaction{}, fmt.Errorf("update trial allowance: %w", err)
		}
	}

	s.publish(ctx, t.ID, "upsert")

	if s.smartAlerts {
		fresh := s.alertEngine.EvaluateLargeExpense(t)
		if txns, err := s.store.ListTransactions(ctx, s.user.ID); err == nil {
			fresh = append(fresh, s.alertEngine.EvaluateSpending(txns, s.user.MonthlyGoal)...)
			fresh = append(fresh, s.alertEngine.EvaluateBudget(txns, s.user.AlertLimit)...)
		}
		s.appendAlerts(ctx, fresh)
	}
	return t, nil
}

// DeleteTransaction removes a transaction outright. Deletion is always
// allowed, even on an expired trial.
func (s *Session) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, s.user.ID, id); err != nil {
		return err
	}
	s.publish(ctx, id, "delete")
	return nil
}

func (s *Session) publish(ctx context.Context, id, action string) {
	if s.pub == nil {
		return
	}
	// Sync events are best effort: the worker's pending scan covers losses.
	_ = s.pub.PublishTransactionSync(ctx, id, action)
}

// Transactions returns the user's full list, newest first.
func (s *Session) Transactions(ctx context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, s.user.ID)
}

// SetPeriod switches the dashboard window and re-evaluates alerts.
func (s *Session) SetPeriod(ctx context.Context, p core.Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return err
	}
	if !p.IsValid() {
		return fmt.Errorf("invalid period %q", p)
	}
	s.period = p
	s.refreshAlerts(ctx)
	return nil
}

func (s *Session) Period() core.Period {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.period
}

// Summary aggregates the current period.
func (s *Session) Summary(ctx context.Context) (core.FinancialSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return core.FinancialSummary{}, err
	}
	txns, err := s.store.ListTransactions(ctx, s.user.ID)
	if err != nil {
		return core.FinancialSummary{}, err
	}
	filtered := core.FilterByPeriod(txns, s.period, s.now())
	return core.Summarize(filtered, s.user.MonthlyGoal), nil
}

// Breakdown returns the expense share per category for the current period.
func (s *Session) Breakdown(ctx context.Context) ([]core.CategoryBreakdown, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return nil, err
	}
	txns, err := s.store.ListTransactions(ctx, s.user.ID)
	if err != nil {
		return nil, err
	}
	filtered := core.FilterByPeriod(txns, s.period, s.now())
	return core.BreakdownByCategory(filtered), nil
}

// OverSpendingLimit reports whether this month's expenses exceed the
// account's configured alert limit.
func (s *Session) OverSpendingLimit(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return false, err
	}
	txns, err := s.store.ListTransactions(ctx, s.user.ID)
	if err != nil {
		return false, err
	}
	return core.OverAlertLimit(txns, s.user.AlertLimit, s.now()), nil
}

// RefreshAlerts re-evaluates the spending, goal and recurring rules.
func (s *Session) RefreshAlerts(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshAlerts(ctx)
}

func (s *Session) refreshAlerts(ctx context.Context) {
	if s.state != StateActive || !s.smartAlerts {
		return
	}

	var fresh []core.Alert
	if txns, err := s.store.ListTransactions(ctx, s.user.ID); err == nil {
		fresh = append(fresh, s.alertEngine.EvaluateSpending(txns, s.user.MonthlyGoal)...)
		fresh = append(fresh, s.alertEngine.EvaluateBudget(txns, s.user.AlertLimit)...)
	}
	if goals, err := s.store.ListGoals(ctx, s.user.ID); err == nil {
		fresh = append(fresh, s.alertEngine.EvaluateGoals(goals)...)
	}
	if recurring, err := s.store.ListRecurring(ctx, s.user.ID); err == nil {
		fresh = append(fresh, s.alertEngine.EvaluateRecurring(recurring)...)
	}
	s.appendAlerts(ctx, fresh)
}

func (s *Session) appendAlerts(ctx context.Context, fresh []core.Alert) {
	if len(fresh) == 0 {
		return
	}
	for _, a := range fresh {
		// Persistence is best effort; the in-memory list is authoritative
		// for this session.
		_ = s.store.SaveAlert(ctx, s.user.ID, a)
	}
	s.alerts = services.AppendAlerts(s.alerts, fresh)
}

// Alerts returns the alert list, newest first.
func (s *Session) Alerts() ([]core.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return nil, err
	}
	return append([]core.Alert(nil), s.alerts...), nil
}

func (s *Session) MarkAlertRead(ctx context.Context, alertID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return err
	}
	if err := s.store.MarkAlertRead(ctx, s.user.ID, alertID); err != nil {
		return err
	}
	for i := range s.alerts {
		if s.alerts[i].ID == alertID {
			s.alerts[i].Read = true
			break
		}
	}
	return nil
}

// NextInsight returns the next curated insight in rotation.
func (s *Session) NextInsight() (core.AIInsight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return core.AIInsight{}, err
	}
	return s.insights.Next(), nil
}

// AddGoal creates a savings goal.
func (s *Session) AddGoal(ctx context.Context, name, target string, deadline core.Date, category string) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return core.Goal{}, err
	}
	cents, err := core.ParseDecimalToCents(target)
	if err != nil {
		return core.Goal{}, err
	}
	g := core.Goal{
		ID:           uuid.NewString(),
		Name:         name,
		TargetAmount: core.Money{Cents: cents},
		Deadline:     deadline,
		Category:     category,
		CreatedAt:    s.now(),
	}
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	if err := s.store.UpsertGoal(ctx, s.user.ID, g); err != nil {
		return core.Goal{}, err
	}
	return g, nil
}

// SetGoalProgress updates a goal's saved amount and re-runs the milestone
// rule.
func (s *Session) SetGoalProgress(ctx context.Context, goalID, current string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return err
	}
	cents, err := core.ParseDecimalToCents(current)
	if err != nil {
		return err
	}

	goals, err := s.store.ListGoals(ctx, s.user.ID)
	if err != nil {
		return err
	}
	for _, g := range goals {
		if g.ID != goalID {
			continue
		}
		g.CurrentAmount = core.Money{Cents: cents}
		if err := s.store.UpsertGoal(ctx, s.user.ID, g); err != nil {
			return err
		}
		if s.smartAlerts {
			s.appendAlerts(ctx, s.alertEngine.EvaluateGoals([]core.Goal{g}))
		}
		return nil
	}
	return fmt.Errorf("goal %q not found", goalID)
}

func (s *Session) Goals(ctx context.Context) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return nil, err
	}
	return s.store.ListGoals(ctx, s.user.ID)
}

// AddRecurringInput is the form payload for a recurring expense template.
type AddRecurringInput struct {
	Description string
	Amount      string
	Category    string
	Frequency   core.Frequency
	NextDate    core.Date
}

// AddRecurring registers a reminder template. It never creates transactions
// on its own; it only feeds the due-soon rule.
func (s *Session) AddRecurring(ctx context.Context, in AddRecurringInput) (core.RecurringExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return core.RecurringExpense{}, err
	}
	cents, err := core.ParseDecimalToCents(in.Amount)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	re := core.RecurringExpense{
		ID:          uuid.NewString(),
		Description: in.Description,
		Amount:      core.Money{Cents: cents},
		Category:    in.Category,
		Frequency:   in.Frequency,
		NextDate:    in.NextDate,
		Active:      true,
	}
	if err := re.Validate(); err != nil {
		return core.RecurringExpense{}, err
	}
	if err := s.store.UpsertRecurring(ctx, s.user.ID, re); err != nil {
		return core.RecurringExpense{}, err
	}
	s.refreshAlerts(ctx)
	return re, nil
}

func (s *Session) Recurring(ctx context.Context) ([]core.RecurringExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return nil, err
	}
	return s.store.ListRecurring(ctx, s.user.ID)
}

// TrialStatus reports the signed-in user's remaining allowance.
type TrialStatus struct {
	Expired               bool
	RemainingDays         int
	RemainingTransactions int
}

// StartFreeTrial ensures the signed-in email has its trial record, starting
// one if this account never had it. Starting twice is a no-op.
func (s *Session) StartFreeTrial() (TrialStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return TrialStatus{}, err
	}
	if _, err := s.trials.EnsureStarted(s.user.Email); err != nil {
		return TrialStatus{}, err
	}
	return s.trialStatus()
}

func (s *Session) Trial() (TrialStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trialStatus()
}

func (s *Session) trialStatus() (TrialStatus, error) {
	if err := s.requireActive(); err != nil {
		return TrialStatus{}, err
	}
	remaining := trial.TrialTransactionLimit - s.user.TrialTransactionCount
	if remaining < 0 || s.user.Plan.Paid() {
		remaining = 0
	}
	return TrialStatus{
		Expired:               s.trials.IsExpired(s.user.Email),
		RemainingDays:         s.trials.RemainingDays(s.user.Email),
		RemainingTransactions: remaining,
	}, nil
}

// Plans returns the subscription catalog.
func (s *Session) Plans() []core.PlanOffer {
	return core.SubscriptionPlans
}

// CheckoutURL is handed to the client to open externally; no confirmation
// ever comes back from it.
func (s *Session) CheckoutURL() string {
	return core.CheckoutURL
}

// ConfirmSubscription upgrades the account after the user confirms payment
// in the client. Subscribed state is sticky; the email's trial record stays
// so a later re-registration cannot earn a second trial.
func (s *Session) ConfirmSubscription(ctx context.Context, planID core.Plan) (core.PlanOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return core.PlanOffer{}, err
	}
	offer, ok := core.PlanByID(planID)
	if !ok {
		return core.PlanOffer{}, ErrUnknownPlan
	}

	s.user.Plan = offer.ID
	s.user.TrialStartedAt = nil
	if err := s.store.UpdateUser(ctx, s.user); err != nil {
		return core.PlanOffer{}, fmt.Errorf("upgrade plan: %w", err)
	}
	return offer, nil
}

// BackupSnapshot is the manual backup payload written to the key-value
// store.
type BackupSnapshot struct {
	Version        int                     `json:"version"`
	CreatedAt      time.Time               `json:"createdAt"`
	User           core.User               `json:"user"`
	Transactions   []core.Transaction      `json:"transactions"`
	Goals          []core.Goal             `json:"goals"`
	Recurring      []core.RecurringExpense `json:"recurring"`
	UnreadAlerts   []core.Alert            `json:"unreadAlerts"`
	AutoCategorize bool                    `json:"autoCategorize"`
	SmartAlerts    bool                    `json:"smartAlerts"`
}

// Backup writes a full snapshot into the key-value store and returns it.
func (s *Session) Backup(ctx context.Context) (BackupSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return BackupSnapshot{}, err
	}

	txns, err := s.store.ListTransactions(ctx, s.user.ID)
	if err != nil {
		return BackupSnapshot{}, err
	}
	goals, err := s.store.ListGoals(ctx, s.user.ID)
	if err != nil {
		return BackupSnapshot{}, err
	}
	recurring, err := s.store.ListRecurring(ctx, s.user.ID)
	if err != nil {
		return BackupSnapshot{}, err
	}

	var unread []core.Alert
	for _, a := range s.alerts {
		if !a.Read {
			unread = append(unread, a)
		}
	}

	snap := BackupSnapshot{
		Version:        1,
		CreatedAt:      s.now(),
		User:           s.user,
		Transactions:   txns,
		Goals:          goals,
		Recurring:      recurring,
		UnreadAlerts:   unread,
		AutoCategorize: s.autoCategorize,
		SmartAlerts:    s.smartAlerts,
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return BackupSnapshot{}, fmt.Errorf("marshal backup: %w", err)
	}
	if err := s.store.KV().Set(backupKey, string(data)); err != nil {
		return BackupSnapshot{}, fmt.Errorf("write backup: %w", err)
	}
	return snap, nil
}

// ImportCSV restores transactions from a previous CSV export. Each row goes
// through the same entitlement gate as a manual entry; the import stops at
// the first rejected row and reports how many made it in.
func (s *Session) ImportCSV(ctx context.Context, data string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return 0, err
	}
	txns, err := export.ParseTransactionsCSV(data)
	if err != nil {
		return 0, err
	}

	imported := 0
	for _, t := range txns {
		if err := s.entitlement(); err != nil {
			return imported, err
		}
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = s.now()
		}
		if err := t.Validate(); err != nil {
			return imported, err
		}
		if err := s.store.CreateTransaction(ctx, s.user.ID, t); err != nil {
			return imported, fmt.Errorf("store transaction: %w", err)
		}
		if !s.user.Plan.Paid() {
			s.user.TrialTransactionCount++
			if err := s.store.UpdateUser(ctx, s.user); err != nil {
				return imported, fmt.Errorf("update trial allowance: %w", err)
			}
		}
		s.publish(ctx, t.ID, "upsert")
		imported++
	}
	s.refreshAlerts(ctx)
	return imported, nil
}

// ExportCSV renders the user's transactions in the plain CSV format.
func (s *Session) ExportCSV(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return "", err
	}
	txns, err := s.store.ListTransactions(ctx, s.user.ID)
	if err != nil {
		return "", err
	}
	return export.TransactionsCSV(txns), nil
}
