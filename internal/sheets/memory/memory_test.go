package memory

import (
	"context"
	"testing"
	"time"

	"mindcash/internal/core"
)

func sampleTxn(id string) core.Transaction {
	return core.Transaction{
		ID:          id,
		Kind:        core.Expense,
		Amount:      core.Money{Cents: 2_500},
		Category:    "Food",
		Description: "lunch",
		OccurredOn:  core.NewDate(2026, 3, 10),
		CreatedAt:   time.Now(),
	}
}

func TestStoreAppend(t *testing.T) {
	s := New()
	ref, err := s.Append(context.Background(), "alice@example.com", sampleTxn("t1"))
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	rows := s.Rows()
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].OwnerEmail != "alice@example.com" || rows[0].Transaction.ID != "t1" {
		t.Errorf("unexpected row: %+v", rows[0])
	}
}

func TestStoreAppendRejectsInvalid(t *testing.T) {
	s := New()
	bad := sampleTxn("t1")
	bad.Description = ""
	if _, err := s.Append(context.Background(), "alice@example.com", bad); err == nil {
		t.Fatal("expected validation error")
	}
	if len(s.Rows()) != 0 {
		t.Error("invalid transaction must not be stored")
	}
}

func TestStoreDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.Append(ctx, "alice@example.com", sampleTxn("t1"))
	s.Append(ctx, "alice@example.com", sampleTxn("t2"))

	if err := s.Delete(ctx, "t1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	rows := s.Rows()
	if len(rows) != 1 || rows[0].Transaction.ID != "t2" {
		t.Errorf("rows after delete = %+v", rows)
	}

	// Deleting an unknown id is idempotent.
	if err := s.Delete(ctx, "t1"); err != nil {
		t.Errorf("repeat Delete() error = %v", err)
	}
}
