package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"tally/internal/amqp"
)

// DefaultScanDescription is used when the extraction pipeline produced no
// usable description.
const DefaultScanDescription = "Scanned receipt"

// IngestService creates expenses from receipt-scan (OCR) events. It runs
// the same validation and create path as an interactive request; records
// it creates are distinguished only by their provenance fields.
type IngestService struct {
	expenses *ExpenseService
}

func NewIngestService(expenses *ExpenseService) *IngestService {
	return &IngestService{expenses: expenses}
}

// HandleReceiptScan creates an expense from one scan event. Errors are
// returned for the consumer to log; the consumer never retries or
// surfaces them to an interactive caller.
func (s *IngestService) HandleReceiptScan(ctx context.Context, msg *amqp.ReceiptScanMessage) error {
	if msg.UserID == "" {
		return fmt.Errorf("receipt scan event without user id (job %s)", msg.JobID)
	}

	amount, err := decimal.NewFromString(msg.Amount)
	if err != nil {
		return fmt.Errorf("parse scanned amount %q: %w", msg.Amount, err)
	}

	description := msg.Description
	if description == "" {
		description = DefaultScanDescription
	}

	created, err := s.expenses.Create(ctx, msg.UserID, CreateExpenseInput{
		Description:    description,
		Amount:         amount,
		Category:       msg.Category,
		SpentAt:        msg.SpentAt,
		FromScan:       true,
		ScanConfidence: msg.Confidence,
		ScanJobID:      msg.JobID,
	})
	if err != nil {
		return fmt.Errorf("create expense from scan job %s: %w", msg.JobID, err)
	}

	slog.InfoContext(ctx, "Created expense from receipt scan",
		"id", created.ID,
		"job_id", msg.JobID,
		"user_id", msg.UserID,
		"confidence", msg.Confidence)

	return nil
}
