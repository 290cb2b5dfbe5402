package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// MaxDescriptionLen bounds the free-text description of an expense.
const MaxDescriptionLen = 500

type (
	// Expense is a single spending record. It is exclusively owned by one
	// user; OwnerID is immutable after creation.
	Expense struct {
		ID          string
		OwnerID     string
		Description string
		Amount      decimal.Decimal
		Category    string // category slug, empty when uncategorized
		SpentAt     time.Time
		CreatedAt   time.Time
		UpdatedAt   time.Time

		// Provenance of records created by the receipt-scan pipeline.
		FromScan       bool
		ScanConfidence float64
		ScanJobID      string
	}

	// Category is shared, read-only reference data seeded by migration.
	Category struct {
		Slug string
		Name string
	}
)

// Validate checks the invariants every stored expense must satisfy.
// Category references are checked against the category table by the
// service layer, not here.
func (e Expense) Validate() error {
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(e.Description) > MaxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if e.SpentAt.IsZero() {
		return ErrMissingSpentAt
	}
	return nil
}
