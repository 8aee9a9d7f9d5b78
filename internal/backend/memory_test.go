package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mindcash/internal/core"
	"mindcash/internal/kv"
	"mindcash/internal/storage"
)

func memUser(id, email string) core.User {
	return core.User{
		ID:          id,
		DisplayName: "Alice",
		Email:       email,
		Plan:        core.PlanEssencial,
	}
}

func memTxn(id string, cents int64) core.Transaction {
	return core.Transaction{
		ID:          id,
		Kind:        core.Expense,
		Amount:      core.Money{Cents: cents},
		Category:    "Food",
		Description: "lunch",
		OccurredOn:  core.NewDate(2026, 3, 10),
		CreatedAt:   time.Now(),
	}
}

func TestMemoryStoreUsers(t *testing.T) {
	m := NewMemoryStore(kv.NewMemory())
	ctx := context.Background()

	u := memUser("u1", "alice@example.com")
	if err := m.CreateUser(ctx, u, "hash"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if err := m.CreateUser(ctx, memUser("u2", "alice@example.com"), "h2"); !errors.Is(err, storage.ErrEmailTaken) {
		t.Errorf("duplicate email error = %v, want ErrEmailTaken", err)
	}

	got, hash, err := m.GetUserByEmail(ctx, "ALICE@example.com")
	if err != nil || got.ID != "u1" || hash != "hash" {
		t.Fatalf("GetUserByEmail() = %+v, %q, %v", got, hash, err)
	}

	got.DisplayName = "Alice B"
	if err := m.UpdateUser(ctx, got); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	reloaded, _ := m.GetUser(ctx, "u1")
	if reloaded.DisplayName != "Alice B" {
		t.Errorf("update lost: %+v", reloaded)
	}

	if err := m.UpdateUser(ctx, memUser("ghost", "x@example.com")); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("UpdateUser(ghost) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreTransactions(t *testing.T) {
	m := NewMemoryStore(kv.NewMemory())
	ctx := context.Background()

	m.CreateTransaction(ctx, "u1", memTxn("t1", 100))
	m.CreateTransaction(ctx, "u1", memTxn("t2", 200))
	m.CreateTransaction(ctx, "u2", memTxn("t3", 300))

	list, err := m.ListTransactions(ctx, "u1")
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != "t2" {
		t.Errorf("expected newest first for u1, got %+v", list)
	}

	if err := m.DeleteTransaction(ctx, "u1", "t3"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("cross-user delete error = %v, want ErrNotFound", err)
	}
	if err := m.DeleteTransaction(ctx, "u1", "t1"); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	list, _ = m.ListTransactions(ctx, "u1")
	if len(list) != 1 || list[0].ID != "t2" {
		t.Errorf("after delete: %+v", list)
	}
}

func TestMemoryStoreAlerts(t *testing.T) {
	m := NewMemoryStore(kv.NewMemory())
	ctx := context.Background()

	a := core.Alert{ID: "a1", Type: core.AlertUnusualExpense, Message: "big spend", Priority: core.PriorityMedium, Timestamp: time.Now()}
	if err := m.SaveAlert(ctx, "u1", a); err != nil {
		t.Fatalf("SaveAlert() error = %v", err)
	}
	if err := m.MarkAlertRead(ctx, "u1", "a1"); err != nil {
		t.Fatalf("MarkAlertRead() error = %v", err)
	}
	list, _ := m.ListAlerts(ctx, "u1")
	if len(list) != 1 || !list[0].Read {
		t.Errorf("alerts = %+v", list)
	}
	if err := m.MarkAlertRead(ctx, "u1", "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("MarkAlertRead(nope) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreSnapshotRestore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	fileKV, err := kv.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	m := NewMemoryStore(fileKV)
	ctx := context.Background()
	if err := m.CreateUser(ctx, memUser("u1", "alice@example.com"), "hash"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	m.CreateTransaction(ctx, "u1", memTxn("t1", 4_200))
	m.UpsertGoal(ctx, "u1", core.Goal{ID: "g1", Name: "Fund", TargetAmount: core.Money{Cents: 100_000}, CreatedAt: time.Now()})

	// Reopen from the same file: the snapshot must come back.
	reopenedKV, err := kv.NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen NewFileStore() error = %v", err)
	}
	restored := NewMemoryStore(reopenedKV)

	u, hash, err := restored.GetUserByEmail(ctx, "alice@example.com")
	if err != nil || u.ID != "u1" || hash != "hash" {
		t.Fatalf("restored user = %+v, %q, %v", u, hash, err)
	}
	txns, _ := restored.ListTransactions(ctx, "u1")
	if len(txns) != 1 || txns[0].Amount.Cents != 4_200 {
		t.Errorf("restored transactions = %+v", txns)
	}
	goals, _ := restored.ListGoals(ctx, "u1")
	if len(goals) != 1 || goals[0].Name != "Fund" {
		t.Errorf("restored goals = %+v", goals)
	}
}

func TestMemoryStoreRecurringUpsert(t *testing.T) {
	m := NewMemoryStore(kv.NewMemory())
	ctx := context.Background()

	re := core.RecurringExpense{
		ID: "r1", Description: "rent", Amount: core.Money{Cents: 150_000},
		Category: "Housing", Frequency: core.Monthly,
		NextDate: core.NewDate(2026, 9, 1), Active: true,
	}
	m.UpsertRecurring(ctx, "u1", re)
	re.Active = false
	m.UpsertRecurring(ctx, "u1", re)

	list, _ := m.ListRecurring(ctx, "u1")
	if len(list) != 1 || list[0].Active {
		t.Errorf("recurring = %+v", list)
	}
}
