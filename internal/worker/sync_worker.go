package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/sheets"
)

// SyncWorker exports expenses to the backup spreadsheet. It consumes
// expense-sync messages and also runs a recovery pass over rows that are
// still pending, covering messages lost while the worker was down.
type SyncWorker struct {
	repo      SyncRepository
	appender  sheets.ExpenseAppender
	batchSize int
}

// SyncRepository is the storage surface the worker needs.
type SyncRepository interface {
	FindByID(ctx context.Context, id string) (core.Expense, error)
	PendingSync(ctx context.Context, limit int) ([]string, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error
}

func NewSyncWorker(repo SyncRepository, appender sheets.ExpenseAppender, batchSize int) *SyncWorker {
	return &SyncWorker{
		repo:      repo,
		appender:  appender,
		batchSize: batchSize,
	}
}

// HandleSyncMessage exports one expense referenced by a queue message. A
// record deleted between publish and consumption is not an error.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.ExpenseSyncMessage) error {
	expense, err := w.repo.FindByID(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		slog.InfoContext(ctx, "Expense gone before export, skipping", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}

	return w.export(ctx, expense)
}

// ProcessPending exports a batch of rows that are still pending. Failures
// park the row so one broken record cannot wedge the pass.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	ids, err := w.repo.PendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending expenses: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending expenses", "count", len(ids))

	for _, id := range ids {
		expense, err := w.repo.FindByID(ctx, id)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load pending expense", "id", id, "error", err)
			if err := w.repo.MarkSyncError(ctx, id); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", err)
			}
			continue
		}
		if err := w.export(ctx, expense); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending expense", "id", id, "error", err)
		}
	}

	return nil
}

// StartupCheck runs a larger recovery pass once at worker startup.
func (w *SyncWorker) StartupCheck(ctx context.Context) error {
	ids, err := w.repo.PendingSync(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending expenses for startup check: %w", err)
	}
	if len(ids) == 0 {
		slog.InfoContext(ctx, "No pending expenses found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending expenses on startup", "count", len(ids))
	return w.ProcessPending(ctx)
}

func (w *SyncWorker) export(ctx context.Context, e core.Expense) error {
	ref, err := w.appender.Append(ctx, e)
	if err != nil {
		if markErr := w.repo.MarkSyncError(ctx, e.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", e.ID, "error", markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.repo.MarkSynced(ctx, e.ID); err != nil {
		// The export itself worked; only the bookkeeping failed.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", e.ID, "error", err)
	}

	slog.InfoContext(ctx, "Exported expense",
		"id", e.ID,
		"sheet_ref", ref,
		"amount", e.Amount.String())

	return nil
}
