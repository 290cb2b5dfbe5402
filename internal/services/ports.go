package services

import (
	"context"

	"tally/internal/core"
)

// Ports for outbound collaborators, implemented by internal/storage and
// internal/amqp.
type (
	// ExpenseRepository is the storage contract for expense records.
	// Listings are always ordered spent_at descending; FindAll is
	// ascending and unbounded for aggregation.
	ExpenseRepository interface {
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		FindByID(ctx context.Context, id string) (core.Expense, error)
		FindMany(ctx context.Context, f core.Filter, offset, limit int) ([]core.Expense, error)
		FindAll(ctx context.Context, f core.Filter) ([]core.Expense, error)
		Count(ctx context.Context, f core.Filter) (int, error)
		UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		DeleteExpense(ctx context.Context, id string) error
	}

	// CategoryRepository serves the seeded, read-only category data.
	CategoryRepository interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		FindCategoryBySlug(ctx context.Context, slug string) (core.Category, error)
	}

	// SyncPublisher queues expenses for background export. Optional:
	// services tolerate a nil publisher.
	SyncPublisher interface {
		PublishExpenseSync(ctx context.Context, id string) error
	}
)
