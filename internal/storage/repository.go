package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"

	_ "modernc.org/sqlite"
)

// Stored timestamps use second precision so UTC strings compare
// lexicographically in range and ORDER BY clauses.
const timeLayout = time.RFC3339

// SQLiteRepository persists expenses and serves the read-only category
// reference data.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const expenseColumns = `id, owner_id, description, amount, category, spent_at,
	created_at, updated_at, from_scan, scan_confidence, scan_job_id`

// CreateExpense inserts a new record, stamping creation metadata.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (`+expenseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerID, e.Description, e.Amount.String(), nullableSlug(e.Category),
		e.SpentAt.UTC().Format(timeLayout), now.Format(timeLayout), now.Format(timeLayout),
		e.FromScan, e.ScanConfidence, e.ScanJobID,
	)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"owner_id", e.OwnerID,
		"amount", e.Amount.String(),
		"category", e.Category)

	return e, nil
}

// FindByID returns a single expense regardless of owner. Callers enforce
// ownership; absence maps to core.ErrNotFound.
func (r *SQLiteRepository) FindByID(ctx context.Context, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)

	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense by id: %w", err)
	}
	return e, nil
}

// FindMany returns one page of matching expenses ordered by spent_at
// descending.
func (r *SQLiteRepository) FindMany(ctx context.Context, f core.Filter, offset, limit int) ([]core.Expense, error) {
	where, args := filterClause(f)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+expenseColumns+` FROM expenses
		WHERE `+where+`
		ORDER BY spent_at DESC
		LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	return collectExpenses(rows)
}

// FindAll returns the full matching set ordered by spent_at ascending,
// used by the summary path.
func (r *SQLiteRepository) FindAll(ctx context.Context, f core.Filter) ([]core.Expense, error) {
	where, args := filterClause(f)

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+expenseColumns+` FROM expenses
		WHERE `+where+`
		ORDER BY spent_at ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses for summary: %w", err)
	}
	defer rows.Close()

	return collectExpenses(rows)
}

// Count returns the number of expenses matching the filter.
func (r *SQLiteRepository) Count(ctx context.Context, f core.Filter) (int, error) {
	where, args := filterClause(f)

	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses WHERE `+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

// UpdateExpense writes back a full record and bumps updated_at. The row is
// re-flagged as pending sync so the export worker picks up the change.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses
		SET description = ?, amount = ?, category = ?, spent_at = ?, updated_at = ?, synced_at = NULL
		WHERE id = ?`,
		e.Description, e.Amount.String(), nullableSlug(e.Category),
		e.SpentAt.UTC().Format(timeLayout), e.UpdatedAt.Format(timeLayout), e.ID,
	)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.Expense{}, core.ErrNotFound
	}
	return e, nil
}

// DeleteExpense removes a record.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ListCategories returns the seeded category reference data.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT slug, name FROM categories ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.Slug, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// FindCategoryBySlug resolves a category reference; absence maps to
// core.ErrNotFound.
func (r *SQLiteRepository) FindCategoryBySlug(ctx context.Context, slug string) (core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx,
		`SELECT slug, name FROM categories WHERE slug = ?`, slug).Scan(&c.Slug, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category by slug: %w", err)
	}
	return c, nil
}

// PendingSync lists ids of expenses not yet exported, oldest first. This
// backs the worker's recovery pass for missed queue messages.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM expenses
		WHERE synced_at IS NULL AND sync_error = 0
		ORDER BY created_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending sync expenses: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkSynced records a successful export.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET synced_at = ?, sync_error = 0 WHERE id = ?`,
		time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}
	return nil
}

// MarkSyncError flags a row so the recovery pass stops retrying it.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET sync_error = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark expense sync error: %w", err)
	}
	slog.WarnContext(ctx, "Expense marked with sync error", "id", id)
	return nil
}

// filterClause translates a core.Filter into a WHERE fragment plus args.
// The owner constraint is always present.
func filterClause(f core.Filter) (string, []any) {
	where := []string{"owner_id = ?"}
	args := []any{f.OwnerID}

	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.HasFrom() {
		where = append(where, "spent_at >= ?")
		args = append(args, f.From.UTC().Format(timeLayout))
	}
	if f.HasTo() {
		where = append(where, "spent_at <= ?")
		args = append(args, f.To.UTC().Format(timeLayout))
	}

	return strings.Join(where, " AND "), args
}

func nullableSlug(slug string) any {
	if slug == "" {
		return nil
	}
	return slug
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e         core.Expense
		amount    string
		category  sql.NullString
		spentAt   string
		createdAt string
		updatedAt string
	)
	err := row.Scan(&e.ID, &e.OwnerID, &e.Description, &amount, &category, &spentAt,
		&createdAt, &updatedAt, &e.FromScan, &e.ScanConfidence, &e.ScanJobID)
	if err != nil {
		return core.Expense{}, err
	}

	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Expense{}, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	e.Category = category.String
	if e.SpentAt, err = time.Parse(timeLayout, spentAt); err != nil {
		return core.Expense{}, fmt.Errorf("parse stored spent_at %q: %w", spentAt, err)
	}
	if e.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return core.Expense{}, fmt.Errorf("parse stored created_at %q: %w", createdAt, err)
	}
	if e.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return core.Expense{}, fmt.Errorf("parse stored updated_at %q: %w", updatedAt, err)
	}
	return e, nil
}

func collectExpenses(rows *sql.Rows) ([]core.Expense, error) {
	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
