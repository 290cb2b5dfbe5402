package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/config"
	"tally/internal/core"
	"tally/internal/services"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type memoryRepo struct {
	mu         sync.Mutex
	expenses   map[string]core.Expense
	categories []core.Category
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		expenses: make(map[string]core.Expense),
		categories: []core.Category{
			{Slug: "food", Name: "Food & Dining"},
			{Slug: "transport", Name: "Transportation"},
		},
	}
}

func (r *memoryRepo) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	r.expenses[e.ID] = e
	return e, nil
}

func (r *memoryRepo) FindByID(_ context.Context, id string) (core.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.expenses[id]
	if !ok {
		return core.Expense{}, core.ErrNotFound
	}
	return e, nil
}

func (r *memoryRepo) matching(f core.Filter) []core.Expense {
	var out []core.Expense
	for _, e := range r.expenses {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

func (r *memoryRepo) FindMany(_ context.Context, f core.Filter, offset, limit int) ([]core.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.matching(f)
	sort.Slice(out, func(i, j int) bool { return out[i].SpentAt.After(out[j].SpentAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepo) FindAll(_ context.Context, f core.Filter) ([]core.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.matching(f)
	sort.Slice(out, func(i, j int) bool { return out[i].SpentAt.Before(out[j].SpentAt) })
	return out, nil
}

func (r *memoryRepo) Count(_ context.Context, f core.Filter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.matching(f)), nil
}

func (r *memoryRepo) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.expenses[e.ID]; !ok {
		return core.Expense{}, core.ErrNotFound
	}
	e.UpdatedAt = time.Now().UTC()
	r.expenses[e.ID] = e
	return e, nil
}

func (r *memoryRepo) DeleteExpense(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.expenses[id]; !ok {
		return core.ErrNotFound
	}
	delete(r.expenses, id)
	return nil
}

func (r *memoryRepo) ListCategories(_ context.Context) ([]core.Category, error) {
	return r.categories, nil
}

func (r *memoryRepo) FindCategoryBySlug(_ context.Context, slug string) (core.Category, error) {
	for _, c := range r.categories {
		if c.Slug == slug {
			return c, nil
		}
	}
	return core.Category{}, core.ErrNotFound
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo := newMemoryRepo()
	svc := services.NewExpenseService(repo, repo, nil)
	cfg := &config.Config{
		Port:               "0",
		JWTSecret:          testSecret,
		AllowedOrigins:     []string{"*"},
		SummaryCacheSize:   16,
		SummaryCacheTTL:    time.Minute,
		RateLimitPerMinute: 10000,
	}
	srv := NewServer(cfg, svc)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func tokenFor(t *testing.T, subject string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, srv *Server, method, target, subject string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if subject != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, subject))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func createExpense(t *testing.T, srv *Server, subject string, body map[string]any) expenseResponse {
	t.Helper()
	rec := doRequest(t, srv, "POST", "/api/v1/expenses", subject, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created expenseResponse
	decodeInto(t, rec, &created)
	return created
}

func TestAuth(t *testing.T) {
	srv := newTestServer(t)

	t.Run("missing token", func(t *testing.T) {
		rec := doRequest(t, srv, "GET", "/api/v1/expenses", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/expenses", nil)
		req.Header.Set("Authorization", "Bearer not.a.jwt")
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		claims := jwt.MapClaims{"sub": "user-a", "exp": time.Now().Add(time.Hour).Unix()}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
			SignedString([]byte("another-secret-another-secret-32"))
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/api/v1/expenses", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := jwt.MapClaims{"sub": "user-a", "exp": time.Now().Add(-time.Hour).Unix()}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/api/v1/expenses", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("health endpoints are public", func(t *testing.T) {
		rec := doRequest(t, srv, "GET", "/healthz", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestExpenseCRUD(t *testing.T) {
	srv := newTestServer(t)

	created := createExpense(t, srv, "user-a", map[string]any{
		"description": "Groceries",
		"amount":      "42.50",
		"category":    "food",
		"spentAt":     "2024-03-15",
	})
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Amount.Equal(decimal.RequireFromString("42.50")))
	assert.Equal(t, "food", created.Category)

	t.Run("get", func(t *testing.T) {
		rec := doRequest(t, srv, "GET", "/api/v1/expenses/"+created.ID, "user-a", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var got expenseResponse
		decodeInto(t, rec, &got)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "Groceries", got.Description)
	})

	t.Run("patch", func(t *testing.T) {
		rec := doRequest(t, srv, "PATCH", "/api/v1/expenses/"+created.ID, "user-a",
			map[string]any{"description": "Weekly groceries"})
		require.Equal(t, http.StatusOK, rec.Code)
		var got expenseResponse
		decodeInto(t, rec, &got)
		assert.Equal(t, "Weekly groceries", got.Description)
		assert.Equal(t, "food", got.Category, "untouched fields keep their values")
	})

	t.Run("delete", func(t *testing.T) {
		rec := doRequest(t, srv, "DELETE", "/api/v1/expenses/"+created.ID, "user-a", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = doRequest(t, srv, "GET", "/api/v1/expenses/"+created.ID, "user-a", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t)

	created := createExpense(t, srv, "user-a", map[string]any{
		"description": "Lunch",
		"amount":      12.5,
		"spentAt":     "2024-03-15",
	})

	t.Run("foreign expense is forbidden", func(t *testing.T) {
		rec := doRequest(t, srv, "GET", "/api/v1/expenses/"+created.ID, "user-b", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		rec := doRequest(t, srv, "GET", "/api/v1/expenses/no-such-id", "user-b", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown category", func(t *testing.T) {
		rec := doRequest(t, srv, "POST", "/api/v1/expenses", "user-a", map[string]any{
			"description": "Mystery",
			"amount":      "1.00",
			"category":    "crypto",
			"spentAt":     "2024-03-15",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		rec := doRequest(t, srv, "POST", "/api/v1/expenses", "user-a", map[string]any{
			"description": "Refund",
			"amount":      "-5.00",
			"spentAt":     "2024-03-15",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing spentAt", func(t *testing.T) {
		rec := doRequest(t, srv, "POST", "/api/v1/expenses", "user-a", map[string]any{
			"description": "Undated",
			"amount":      "5.00",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/v1/expenses", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, "user-a"))
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown groupBy", func(t *testing.T) {
		rec := doRequest(t, srv, "GET", "/api/v1/expenses/summary?groupBy=quarter", "user-a", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListPaginationOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	for day := 1; day <= 12; day++ {
		createExpense(t, srv, "user-a", map[string]any{
			"description": "Entry",
			"amount":      "1.00",
			"spentAt":     time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC).Format("2006-01-02"),
		})
	}

	rec := doRequest(t, srv, "GET", "/api/v1/expenses?page=2&limit=5", "user-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res listResponse
	decodeInto(t, rec, &res)
	assert.Len(t, res.Data, 5)
	assert.Equal(t, 12, res.Meta.Total)
	assert.Equal(t, 2, res.Meta.Page)
	assert.Equal(t, 5, res.Meta.Limit)
	assert.Equal(t, 3, res.Meta.TotalPages)

	// Newest first: page 2 of 5 starts at the 6th most recent day.
	assert.Equal(t, "2024-03-07T00:00:00Z", res.Data[0].SpentAt.Format(time.RFC3339))
}

func TestListCategoryFilterOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	createExpense(t, srv, "user-a", map[string]any{
		"description": "Groceries", "amount": "20.00", "category": "food", "spentAt": "2024-03-01",
	})
	createExpense(t, srv, "user-a", map[string]any{
		"description": "Bus pass", "amount": "30.00", "category": "transport", "spentAt": "2024-03-02",
	})

	rec := doRequest(t, srv, "GET", "/api/v1/expenses?category=food", "user-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res listResponse
	decodeInto(t, rec, &res)
	assert.Equal(t, 1, res.Meta.Total)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "food", res.Data[0].Category)
	assert.Equal(t, "Groceries", res.Data[0].Description)
}

func TestSummaryOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	createExpense(t, srv, "user-a", map[string]any{
		"description": "Groceries", "amount": "120.50", "category": "food", "spentAt": "2024-01-10",
	})
	createExpense(t, srv, "user-a", map[string]any{
		"description": "Bus pass", "amount": "30", "category": "transport", "spentAt": "2024-01-20",
	})
	createExpense(t, srv, "user-a", map[string]any{
		"description": "Dinner", "amount": "30.25", "category": "food", "spentAt": "2024-02-05",
	})

	rec := doRequest(t, srv, "GET", "/api/v1/expenses/summary?groupBy=month", "user-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res summaryResponse
	decodeInto(t, rec, &res)
	assert.True(t, res.Total.Equal(decimal.RequireFromString("180.75")), "total = %s", res.Total)
	assert.Equal(t, 3, res.Count)
	require.Len(t, res.ByCategory, 2)
	assert.Equal(t, "food", res.ByCategory[0].Category)
	assert.True(t, res.ByCategory[0].Total.Equal(decimal.RequireFromString("150.75")))
	require.Len(t, res.ByPeriod, 2)
	assert.Equal(t, "2024-01", res.ByPeriod[0].Period)
	assert.Equal(t, "2024-02", res.ByPeriod[1].Period)

	t.Run("cache is refreshed after a mutation", func(t *testing.T) {
		createExpense(t, srv, "user-a", map[string]any{
			"description": "Coffee", "amount": "4.25", "category": "food", "spentAt": "2024-02-06",
		})

		rec := doRequest(t, srv, "GET", "/api/v1/expenses/summary?groupBy=month", "user-a", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var after summaryResponse
		decodeInto(t, rec, &after)
		assert.True(t, after.Total.Equal(decimal.RequireFromString("185.00")), "total = %s", after.Total)
		assert.Equal(t, 4, after.Count)
	})

	t.Run("owners are isolated", func(t *testing.T) {
		rec := doRequest(t, srv, "GET", "/api/v1/expenses/summary", "user-b", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var other summaryResponse
		decodeInto(t, rec, &other)
		assert.Equal(t, 0, other.Count)
		assert.True(t, other.Total.IsZero())
	})
}

func TestCategoriesEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, "GET", "/api/v1/categories", "user-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cats []categoryResponse
	decodeInto(t, rec, &cats)
	require.Len(t, cats, 2)
	assert.Equal(t, "food", cats[0].Slug)
	assert.Equal(t, "Food & Dining", cats[0].Name)
}
