// Package worker moves transactions from SQLite to the spreadsheet. AMQP
// messages drive the normal path; a periodic scan picks up rows whose
// messages were lost.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mindcash/internal/amqp"
	"mindcash/internal/sheets"
	"mindcash/internal/storage"

	"golang.org/x/sync/errgroup"
)

type SyncWorker struct {
	storage   *storage.Repository
	appender  sheets.TransactionAppender
	deleter   sheets.TransactionDeleter
	batchSize int
}

func NewSyncWorker(repo *storage.Repository, appender sheets.TransactionAppender, deleter sheets.TransactionDeleter, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   repo,
		appender:  appender,
		deleter:   deleter,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes one AMQP message.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "processing sync message", "id", msg.ID, "action", msg.Action)

	switch msg.Action {
	case amqp.ActionDelete:
		return w.deleteFromSheet(ctx, msg.ID)
	case amqp.ActionUpsert:
		return w.syncTransaction(ctx, msg.ID)
	default:
		// Unknown actions are dropped rather than requeued forever.
		slog.WarnContext(ctx, "ignoring unknown sync action", "action", msg.Action, "id", msg.ID)
		return nil
	}
}

func (w *SyncWorker) deleteFromSheet(ctx context.Context, id string) error {
	if w.deleter == nil {
		slog.WarnContext(ctx, "no sheet deleter configured, skipping", "id", id)
		return nil
	}
	if err := w.deleter.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete transaction row: %w", err)
	}
	return nil
}

func (w *SyncWorker) syncTransaction(ctx context.Context, id string) error {
	txn, userID, err := w.storage.GetTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Deleted before the worker got to it; nothing to sync.
			slog.WarnContext(ctx, "transaction vanished before sync", "id", id)
			return nil
		}
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	owner, err := w.storage.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("get transaction owner: %w", err)
	}

	ref, err := w.appender.Append(ctx, owner.Email, txn)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		// The append worked; only the bookkeeping failed.
		slog.ErrorContext(ctx, "failed to mark as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "synced transaction",
		"id", id,
		"sheets_ref", ref,
		"amount_cents", txn.Amount.Cents)
	return nil
}

// ProcessPending syncs transactions still marked pending. This is the backup
// path for lost AMQP messages.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	return w.processPendingBatch(ctx, w.batchSize)
}

// StartupSyncCheck drains a larger pending backlog accumulated while the
// worker was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	return w.processPendingBatch(ctx, w.batchSize*5)
}

func (w *SyncWorker) processPendingBatch(ctx context.Context, limit int) error {
	ids, err := w.storage.ListPendingSync(ctx, limit)
	if err != nil {
		return fmt.Errorf("list pending transactions: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "processing pending transactions", "count", len(ids))

	synced, failed := 0, 0
	for _, id := range ids {
		if err := w.syncTransaction(ctx, id); err != nil {
			slog.ErrorContext(ctx, "failed to sync pending transaction", "id", id, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "pending scan completed",
		"total", len(ids),
		"synced", synced,
		"errors", failed)
	return nil
}

// Run consumes AMQP messages and scans for pending rows until ctx is done.
func (w *SyncWorker) Run(ctx context.Context, client *amqp.Client, scanInterval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return client.ConsumeTransactionSync(ctx, func(msg *amqp.TransactionSyncMessage) error {
			return w.HandleSyncMessage(ctx, msg)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(scanInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.ProcessPending(ctx); err != nil {
					slog.ErrorContext(ctx, "pending scan failed", "error", err)
				}
			}
		}
	})

	return g.Wait()
}
