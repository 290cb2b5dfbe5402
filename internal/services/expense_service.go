package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"tally/internal/core"
)

// ExpenseService orchestrates expense CRUD, listings, and summaries on
// top of the storage and messaging ports. All operations are scoped to
// the authenticated owner passed in by the caller.
type ExpenseService struct {
	expenses   ExpenseRepository
	categories CategoryRepository
	publisher  SyncPublisher
}

func NewExpenseService(expenses ExpenseRepository, categories CategoryRepository, publisher SyncPublisher) *ExpenseService {
	return &ExpenseService{
		expenses:   expenses,
		categories: categories,
		publisher:  publisher,
	}
}

type (
	// CreateExpenseInput carries validated-shape input for a new record.
	CreateExpenseInput struct {
		Description string
		Amount      decimal.Decimal
		Category    string
		SpentAt     time.Time

		// Provenance, set only by the receipt-scan ingest path.
		FromScan       bool
		ScanConfidence float64
		ScanJobID      string
	}

	// UpdateExpenseInput is a partial update; nil fields are untouched.
	UpdateExpenseInput struct {
		Description *string
		Amount      *decimal.Decimal
		Category    *string
		SpentAt     *time.Time
	}

	// ListInput selects a filtered window of the owner's expenses.
	ListInput struct {
		From     time.Time
		To       time.Time
		Category string
		Page     int
		Limit    int
	}

	// ListResult is one page plus its metadata.
	ListResult struct {
		Expenses []core.Expense
		Meta     core.PageMeta
	}

	// SummaryInput selects the record set to aggregate. GroupBy is only
	// honored when Grouped is true.
	SummaryInput struct {
		From    time.Time
		To      time.Time
		GroupBy core.Granularity
		Grouped bool
	}

	// SummaryResult is the multi-dimensional rollup; ByPeriod is nil
	// unless a granularity was requested.
	SummaryResult struct {
		core.Summary
		ByPeriod []core.PeriodTotal
	}
)

// Create validates and stores a new expense for the owner, then queues it
// for background export. A publish failure never fails the request.
func (s *ExpenseService) Create(ctx context.Context, ownerID string, in CreateExpenseInput) (core.Expense, error) {
	e := core.Expense{
		ID:             uuid.NewString(),
		OwnerID:        ownerID,
		Description:    in.Description,
		Amount:         in.Amount,
		Category:       in.Category,
		SpentAt:        in.SpentAt,
		FromScan:       in.FromScan,
		ScanConfidence: in.ScanConfidence,
		ScanJobID:      in.ScanJobID,
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if e.Category != "" {
		if err := s.validateCategory(ctx, e.Category); err != nil {
			return core.Expense{}, err
		}
	}

	created, err := s.expenses.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.publishSync(ctx, created.ID)
	return created, nil
}

// List returns one page of the owner's expenses plus pagination metadata.
// The page query and the total count are independent reads and run
// concurrently.
func (s *ExpenseService) List(ctx context.Context, ownerID string, in ListInput) (ListResult, error) {
	filter := core.NewFilter(ownerID).
		WithRange(in.From, in.To).
		WithCategory(in.Category)
	page := core.NewPage(in.Page, in.Limit)

	var (
		expenses []core.Expense
		total    int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = s.expenses.FindMany(gctx, filter, page.Offset(), page.Size)
		if err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		total, err = s.expenses.Count(gctx, filter)
		if err != nil {
			return fmt.Errorf("count expenses: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return ListResult{}, err
	}

	return ListResult{
		Expenses: expenses,
		Meta:     core.NewPageMeta(total, page),
	}, nil
}

// Get returns one expense after the ownership check.
func (s *ExpenseService) Get(ctx context.Context, ownerID, id string) (core.Expense, error) {
	return s.authorize(ctx, ownerID, id)
}

// Update applies a partial update to an owned expense and re-queues it
// for export.
func (s *ExpenseService) Update(ctx context.Context, ownerID, id string, in UpdateExpenseInput) (core.Expense, error) {
	e, err := s.authorize(ctx, ownerID, id)
	if err != nil {
		return core.Expense{}, err
	}

	if in.Description != nil {
		e.Description = *in.Description
	}
	if in.Amount != nil {
		e.Amount = *in.Amount
	}
	if in.Category != nil {
		e.Category = *in.Category
	}
	if in.SpentAt != nil {
		e.SpentAt = *in.SpentAt
	}

	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if in.Category != nil && e.Category != "" {
		if err := s.validateCategory(ctx, e.Category); err != nil {
			return core.Expense{}, err
		}
	}

	updated, err := s.expenses.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	s.publishSync(ctx, updated.ID)
	return updated, nil
}

// Delete removes an owned expense.
func (s *ExpenseService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.authorize(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.expenses.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

// Summary aggregates the owner's matching expenses: grand total, category
// rollup, and, when a granularity was requested, the period series. One
// bounded fetch feeds both rollups.
func (s *ExpenseService) Summary(ctx context.Context, ownerID string, in SummaryInput) (SummaryResult, error) {
	filter := core.NewFilter(ownerID).WithRange(in.From, in.To)

	records, err := s.expenses.FindAll(ctx, filter)
	if err != nil {
		return SummaryResult{}, fmt.Errorf("load expenses for summary: %w", err)
	}

	result := SummaryResult{Summary: core.Summarize(records)}
	if in.Grouped {
		result.ByPeriod = core.SummarizeByPeriod(records, in.GroupBy)
	}
	return result, nil
}

// Categories lists the seeded reference data.
func (s *ExpenseService) Categories(ctx context.Context) ([]core.Category, error) {
	cats, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// authorize loads a record and enforces ownership. Existence is checked
// first, so a missing id is NotFound regardless of the requester, and
// only an existing record owned by someone else is Forbidden.
func (s *ExpenseService) authorize(ctx context.Context, ownerID, id string) (core.Expense, error) {
	e, err := s.expenses.FindByID(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("load expense: %w", err)
	}
	if e.OwnerID != ownerID {
		return core.Expense{}, core.ErrForbidden
	}
	return e, nil
}

func (s *ExpenseService) validateCategory(ctx context.Context, slug string) error {
	_, err := s.categories.FindCategoryBySlug(ctx, slug)
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("%w: %q", core.ErrUnknownCategory, slug)
	}
	if err != nil {
		return fmt.Errorf("validate category: %w", err)
	}
	return nil
}

func (s *ExpenseService) publishSync(ctx context.Context, id string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExpenseSync(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", id, "error", err)
	}
}
