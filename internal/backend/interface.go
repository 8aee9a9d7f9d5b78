// Package backend selects and assembles the persistence stack: a durable
// SQLite store with optional AMQP sync, or an in-process store persisted
// through the key-value file.
package backend

import (
	"context"
	"time"

	"mindcash/internal/amqp"
	"mindcash/internal/core"
	"mindcash/internal/kv"
)

// Store is the persistence surface the application shell works against.
// Both the SQLite repository and the memory store implement it.
type Store interface {
	CreateUser(ctx context.Context, u core.User, passwordHash string) error
	GetUserByEmail(ctx context.Context, email string) (core.User, string, error)
	GetUser(ctx context.Context, id string) (core.User, error)
	UpdateUser(ctx context.Context, u core.User) error

	CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error
	GetSession(ctx context.Context, token string) (string, time.Time, error)
	DeleteSession(ctx context.Context, token string) error

	CreateTransaction(ctx context.Context, userID string, t core.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id string) error
	ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)

	SaveAlert(ctx context.Context, userID string, a core.Alert) error
	ListAlerts(ctx context.Context, userID string) ([]core.Alert, error)
	MarkAlertRead(ctx context.Context, userID, alertID string) error

	UpsertRecurring(ctx context.Context, userID string, re core.RecurringExpense) error
	ListRecurring(ctx context.Context, userID string) ([]core.RecurringExpense, error)

	UpsertGoal(ctx context.Context, userID string, g core.Goal) error
	ListGoals(ctx context.Context, userID string) ([]core.Goal, error)

	KV() kv.Store
}

type CleanupFunc func() error

// Result bundles the assembled store with its optional sync publisher.
type Result struct {
	Store     Store
	Publisher *amqp.Client
	Cleanup   CleanupFunc
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
