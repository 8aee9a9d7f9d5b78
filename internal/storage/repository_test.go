package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mindcash/internal/core"

	"github.com/google/uuid"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "mindcash.db"))
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testUser() core.User {
	return core.User{
		ID:          uuid.New().String(),
		DisplayName: "Alice",
		Email:       "alice@example.com",
		MonthlyGoal: core.Money{Cents: 500_000},
		AlertLimit:  core.Money{Cents: 300_000},
		Plan:        core.PlanEssencial,
	}
}

func TestUserRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := testUser()
	if err := repo.CreateUser(ctx, u, "hash123"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	got, hash, err := repo.GetUserByEmail(ctx, "ALICE@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if hash != "hash123" {
		t.Errorf("password hash = %q, want %q", hash, "hash123")
	}
	if got.ID != u.ID || got.DisplayName != u.DisplayName {
		t.Errorf("got user %+v, want %+v", got, u)
	}
	if got.MonthlyGoal.Cents != 500_000 || got.AlertLimit.Cents != 300_000 {
		t.Errorf("money fields not preserved: %+v", got)
	}
	if got.Plan != core.PlanEssencial {
		t.Errorf("plan = %q, want essencial", got.Plan)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.CreateUser(ctx, testUser(), "h1"); err != nil {
		t.Fatalf("first CreateUser() error = %v", err)
	}
	dup := testUser()
	dup.ID = uuid.New().String()
	if err := repo.CreateUser(ctx, dup, "h2"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate CreateUser() error = %v, want ErrEmailTaken", err)
	}
}

func TestUpdateUserTrialFields(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := testUser()
	u.Plan = core.PlanTrial
	started := time.Now().Add(-48 * time.Hour)
	u.TrialStartedAt = &started
	if err := repo.CreateUser(ctx, u, "h"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	u.TrialTransactionCount = 3
	u.DisplayName = "Alice B"
	if err := repo.UpdateUser(ctx, u); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}

	got, err := repo.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if got.TrialTransactionCount != 3 {
		t.Errorf("trial count = %d, want 3", got.TrialTransactionCount)
	}
	if got.TrialStartedAt == nil || !got.TrialStartedAt.Equal(started) {
		t.Errorf("trial start = %v, want %v", got.TrialStartedAt, started)
	}
	if got.DisplayName != "Alice B" {
		t.Errorf("display name = %q", got.DisplayName)
	}
}

func TestUpdateUserMissing(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.UpdateUser(context.Background(), testUser()); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateUser() error = %v, want ErrNotFound", err)
	}
}

func TestSessions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := testUser()
	if err := repo.CreateUser(ctx, u, "h"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	expires := time.Now().Add(7 * 24 * time.Hour)
	if err := repo.CreateSession(ctx, "tok-1", u.ID, expires); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	userID, gotExpires, err := repo.GetSession(ctx, "tok-1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if userID != u.ID {
		t.Errorf("session user = %q, want %q", userID, u.ID)
	}
	if !gotExpires.Equal(expires) {
		t.Errorf("session expiry = %v, want %v", gotExpires, expires)
	}

	if err := repo.DeleteSession(ctx, "tok-1"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if _, _, err := repo.GetSession(ctx, "tok-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSession() after delete error = %v, want ErrNotFound", err)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := testUser()
	if err := repo.CreateUser(ctx, u, "h"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	older := core.Transaction{
		ID:          uuid.New().String(),
		Kind:        core.Expense,
		Amount:      core.Money{Cents: 4_500},
		Category:    "Food",
		Description: "lunch",
		OccurredOn:  core.NewDate(2026, 3, 1),
		CreatedAt:   time.Now().Add(-time.Hour),
	}
	newer := core.Transaction{
		ID:          uuid.New().String(),
		Kind:        core.Income,
		Amount:      core.Money{Cents: 300_000},
		Category:    "Salary",
		Description: "paycheck",
		OccurredOn:  core.NewDate(2026, 3, 5),
		CreatedAt:   time.Now(),
	}
	for _, tx := range []core.Transaction{older, newer} {
		if err := repo.CreateTransaction(ctx, u.ID, tx); err != nil {
			t.Fatalf("CreateTransaction() error = %v", err)
		}
	}

	list, err := repo.ListTransactions(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d transactions, want 2", len(list))
	}
	if list[0].ID != newer.ID {
		t.Errorf("expected newest first, got %q", list[0].Description)
	}
	if list[1].Amount.Cents != 4_500 || list[1].Category != "Food" {
		t.Errorf("transaction fields not preserved: %+v", list[1])
	}
	if !list[0].OccurredOn.Equal(newer.OccurredOn.Time) {
		t.Errorf("occurred_on = %v, want %v", list[0].OccurredOn, newer.OccurredOn)
	}

	got, ownerID, err := repo.GetTransaction(ctx, older.ID)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if ownerID != u.ID || got.Description != "lunch" {
		t.Errorf("GetTransaction() = %+v owner %q", got, ownerID)
	}

	if err := repo.DeleteTransaction(ctx, u.ID, older.ID); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	if err := repo.DeleteTransaction(ctx, u.ID, older.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestDeleteTransactionWrongUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := testUser()
	if err := repo.CreateUser(ctx, u, "h"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	tx := core.Transaction{
		ID:          uuid.New().String(),
		Kind:        core.Expense,
		Amount:      core.Money{Cents: 100},
		Category:    "Other",
		Description: "x",
		OccurredOn:  core.DateOf(time.Now()),
		CreatedAt:   time.Now(),
	}
	if err := repo.CreateTransaction(ctx, u.ID, tx); err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	if err := repo.DeleteTransaction(ctx, "someone-else", tx.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-user delete error = %v, want ErrNotFound", err)
	}
}

func TestSyncStatusTracking(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := testUser()
	if err := repo.CreateUser(ctx, u, "h"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	var ids []string
	for i := 0; i < 3; i++ {
		tx := core.Transaction{
			ID:          uuid.New().String(),
			Kind:        core.Expense,
			Amount:      core.Money{Cents: 1_000},
			Category:    "Other",
			Description: "pending",
			OccurredOn:  core.DateOf(time.Now()),
			CreatedAt:   time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := repo.CreateTransaction(ctx, u.ID, tx); err != nil {
			t.Fatalf("CreateTransaction() error = %v", err)
		}
		ids = append(ids, tx.ID)
	}

	pending, err := repo.ListPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingSync() error = %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("got %d pending, want 3", len(pending))
	}
	if pending[0] != ids[0] {
		t.Errorf("expected oldest first, got %q", pending[0])
	}

	if err := repo.MarkSynced(ctx, ids[0]); err != nil {
		t.Fatalf("MarkSynced() error = %v", err)
	}
	if err := repo.MarkSyncError(ctx, ids[1]); err != nil {
		t.Fatalf("MarkSyncError() error = %v", err)
	}

	pending, err = repo.ListPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingSync() error = %v", err)
	}
	if len(pending) != 1 || pending[0] != ids[2] {
		t.Errorf("pending after marks = %v, want [%s]", pending, ids[2])
	}
}

func TestAlertsPersistence(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := testUser()
	if err := repo.CreateUser(ctx, u, "h"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	amount := core.Money{Cents: 60_000}
	a := core.Alert{
		ID:        uuid.New().String(),
		Type:      core.AlertUnusualExpense,
		Message:   "large expense detected",
		Amount:    &amount,
		Category:  "Shopping",
		Timestamp: time.Now(),
		Priority:  core.PriorityMedium,
	}
	if err := repo.SaveAlert(ctx, u.ID, a); err != nil {
		t.Fatalf("SaveAlert() error = %v", err)
	}

	list, err := repo.ListAlerts(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListAlerts() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d alerts, want 1", len(list))
	}
	got := list[0]
	if got.Type != core.AlertUnusualExpense || got.Priority != core.PriorityMedium {
		t.Errorf("alert fields = %+v", got)
	}
	if got.Amount == nil || got.Amount.Cents != 60_000 {
		t.Errorf("alert amount = %v, want 60000 cents", got.Amount)
	}
	if got.Read {
		t.Error("new alert should be unread")
	}

	if err := repo.MarkAlertRead(ctx, u.ID, a.ID); err != nil {
		t.Fatalf("MarkAlertRead() error = %v", err)
	}
	list, _ = repo.ListAlerts(ctx, u.ID)
	if !list[0].Read {
		t.Error("alert should be read after MarkAlertRead")
	}

	if err := repo.MarkAlertRead(ctx, u.ID, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkAlertRead(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRecurringUpsert(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := testUser()
	if err := repo.CreateUser(ctx, u, "h"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	re := core.RecurringExpense{
		ID:          uuid.New().String(),
		Description: "rent",
		Amount:      core.Money{Cents: 150_000},
		Category:    "Housing",
		Frequency:   core.Monthly,
		NextDate:    core.NewDate(2026, 9, 1),
		Active:      true,
	}
	if err := repo.UpsertRecurring(ctx, u.ID, re); err != nil {
		t.Fatalf("UpsertRecurring() error = %v", err)
	}

	re.Active = false
	re.Amount.Cents = 160_000
	if err := repo.UpsertRecurring(ctx, u.ID, re); err != nil {
		t.Fatalf("UpsertRecurring() update error = %v", err)
	}

	list, err := repo.ListRecurring(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListRecurring() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d recurring expenses, want 1", len(list))
	}
	if list[0].Active || list[0].Amount.Cents != 160_000 {
		t.Errorf("upsert did not apply: %+v", list[0])
	}
	if list[0].Frequency != core.Monthly {
		t.Errorf("frequency = %q", list[0].Frequency)
	}
}

func TestGoalsUpsert(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := testUser()
	if err := repo.CreateUser(ctx, u, "h"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	g := core.Goal{
		ID:           uuid.New().String(),
		Name:         "Emergency fund",
		TargetAmount: core.Money{Cents: 1_000_000},
		Deadline:     core.NewDate(2027, 1, 1),
		Category:     "Investments",
		CreatedAt:    time.Now(),
	}
	if err := repo.UpsertGoal(ctx, u.ID, g); err != nil {
		t.Fatalf("UpsertGoal() error = %v", err)
	}

	g.CurrentAmount = core.Money{Cents: 250_000}
	if err := repo.UpsertGoal(ctx, u.ID, g); err != nil {
		t.Fatalf("UpsertGoal() update error = %v", err)
	}

	list, err := repo.ListGoals(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListGoals() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d goals, want 1", len(list))
	}
	if list[0].CurrentAmount.Cents != 250_000 {
		t.Errorf("current amount = %d, want 250000", list[0].CurrentAmount.Cents)
	}
	if !list[0].Deadline.Equal(g.Deadline.Time) {
		t.Errorf("deadline = %v, want %v", list[0].Deadline, g.Deadline)
	}
}

func TestKVStore(t *testing.T) {
	repo := newTestRepo(t)
	store := repo.KV()

	if _, ok := store.Get("missing"); ok {
		t.Error("Get(missing) should report not found")
	}
	if err := store.Set("k", "v1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Set("k", "v2"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	if v, ok := store.Get("k"); !ok || v != "v2" {
		t.Errorf("Get(k) = %q, %v; want v2, true", v, ok)
	}
	if err := store.Remove("k"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, ok := store.Get("k"); ok {
		t.Error("key should be gone after Remove")
	}
}
