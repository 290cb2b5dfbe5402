package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "tally.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newExpense(owner, category, amount, date string) core.Expense {
	spentAt, _ := time.Parse("2006-01-02", date)
	return core.Expense{
		ID:          uuid.NewString(),
		OwnerID:     owner,
		Description: "test expense",
		Amount:      decimal.RequireFromString(amount),
		Category:    category,
		SpentAt:     spentAt,
	}
}

func TestCreateAndFindByID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	e := newExpense("user-a", "food", "19.99", "2024-01-05")
	created, err := repo.CreateExpense(ctx, e)
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.FindByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, "user-a", got.OwnerID)
	assert.Equal(t, "food", got.Category)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, e.SpentAt.UTC(), got.SpentAt.UTC())
}

func TestFindByIDAbsent(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.FindByID(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCountMatchesFindAll(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, e := range []core.Expense{
		newExpense("user-a", "food", "10", "2024-01-01"),
		newExpense("user-a", "transport", "20", "2024-01-15"),
		newExpense("user-a", "", "30", "2024-02-01"),
		newExpense("user-b", "food", "40", "2024-01-10"),
	} {
		_, err := repo.CreateExpense(ctx, e)
		require.NoError(t, err)
	}

	filters := []core.Filter{
		core.NewFilter("user-a"),
		core.NewFilter("user-a").WithCategory("food"),
		core.NewFilter("user-a").WithRange(mustDate("2024-01-01"), mustDate("2024-01-31")),
		core.NewFilter("user-b"),
		// Inverted range matches nothing but must not error.
		core.NewFilter("user-a").WithRange(mustDate("2024-03-01"), mustDate("2024-01-01")),
	}
	for _, f := range filters {
		all, err := repo.FindAll(ctx, f)
		require.NoError(t, err)
		n, err := repo.Count(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, len(all), n)
	}
}

func TestFindManyOrderAndWindow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	dates := []string{"2024-01-01", "2024-01-03", "2024-01-02", "2024-01-05", "2024-01-04"}
	for _, d := range dates {
		_, err := repo.CreateExpense(ctx, newExpense("user-a", "", "1", d))
		require.NoError(t, err)
	}

	page, err := repo.FindMany(ctx, core.NewFilter("user-a"), 0, 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, "2024-01-05", page[0].SpentAt.Format("2006-01-02"))
	assert.Equal(t, "2024-01-04", page[1].SpentAt.Format("2006-01-02"))
	assert.Equal(t, "2024-01-03", page[2].SpentAt.Format("2006-01-02"))

	rest, err := repo.FindMany(ctx, core.NewFilter("user-a"), 3, 3)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, "2024-01-02", rest[0].SpentAt.Format("2006-01-02"))
}

func TestUpdateAndDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	e := newExpense("user-a", "food", "10", "2024-01-01")
	_, err := repo.CreateExpense(ctx, e)
	require.NoError(t, err)

	e.Description = "changed"
	e.Amount = decimal.RequireFromString("12.34")
	e.Category = ""
	_, err = repo.UpdateExpense(ctx, e)
	require.NoError(t, err)

	got, err := repo.FindByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Description)
	assert.Equal(t, "", got.Category)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("12.34")))

	require.NoError(t, repo.DeleteExpense(ctx, e.ID))
	_, err = repo.FindByID(ctx, e.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteExpense(ctx, e.ID), core.ErrNotFound)
}

func TestCategorySeed(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cats, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, cats)

	food, err := repo.FindCategoryBySlug(ctx, "food")
	require.NoError(t, err)
	assert.Equal(t, "Food & Dining", food.Name)

	_, err = repo.FindCategoryBySlug(ctx, "no-such-slug")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestPendingSyncLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	e := newExpense("user-a", "", "5", "2024-01-01")
	_, err := repo.CreateExpense(ctx, e)
	require.NoError(t, err)

	pending, err := repo.PendingSync(ctx, 10)
	require.NoError(t, err)
	assert.Contains(t, pending, e.ID)

	require.NoError(t, repo.MarkSynced(ctx, e.ID))
	pending, err = repo.PendingSync(ctx, 10)
	require.NoError(t, err)
	assert.NotContains(t, pending, e.ID)

	// An update re-queues the row; a sync error parks it.
	_, err = repo.UpdateExpense(ctx, e)
	require.NoError(t, err)
	pending, err = repo.PendingSync(ctx, 10)
	require.NoError(t, err)
	assert.Contains(t, pending, e.ID)

	require.NoError(t, repo.MarkSyncError(ctx, e.ID))
	pending, err = repo.PendingSync(ctx, 10)
	require.NoError(t, err)
	assert.NotContains(t, pending, e.ID)
}

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
