package http

import (
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/services"
)

// expenseResponse is the wire projection of an expense. Amounts are
// serialized as decimal strings so values survive the round trip exactly.
type expenseResponse struct {
	ID             string          `json:"id"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	Category       string          `json:"category,omitempty"`
	SpentAt        time.Time       `json:"spentAt"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	FromScan       bool            `json:"fromScan,omitempty"`
	ScanConfidence float64         `json:"scanConfidence,omitempty"`
	ScanJobID      string          `json:"scanJobId,omitempty"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:             e.ID,
		Description:    e.Description,
		Amount:         e.Amount,
		Category:       e.Category,
		SpentAt:        e.SpentAt,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
		FromScan:       e.FromScan,
		ScanConfidence: e.ScanConfidence,
		ScanJobID:      e.ScanJobID,
	}
}

func toExpenseResponses(expenses []core.Expense) []expenseResponse {
	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e))
	}
	return out
}

type listMeta struct {
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"totalPages"`
	Timestamp  time.Time `json:"timestamp"`
}

type listResponse struct {
	Data []expenseResponse `json:"data"`
	Meta listMeta          `json:"meta"`
}

func toListResponse(res services.ListResult) listResponse {
	return listResponse{
		Data: toExpenseResponses(res.Expenses),
		Meta: listMeta{
			Total:      res.Meta.Total,
			Page:       res.Meta.Page,
			Limit:      res.Meta.Limit,
			TotalPages: res.Meta.TotalPages,
			Timestamp:  time.Now().UTC(),
		},
	}
}

type categoryTotalResponse struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

type periodTotalResponse struct {
	Period string          `json:"period"`
	Total  decimal.Decimal `json:"total"`
	Count  int             `json:"count"`
}

type summaryResponse struct {
	Total      decimal.Decimal         `json:"total"`
	Count      int                     `json:"count"`
	ByCategory []categoryTotalResponse `json:"byCategory"`
	ByPeriod   []periodTotalResponse   `json:"byPeriod,omitempty"`
}

func toSummaryResponse(res services.SummaryResult) summaryResponse {
	out := summaryResponse{
		Total:      res.Total,
		Count:      res.Count,
		ByCategory: make([]categoryTotalResponse, 0, len(res.ByCategory)),
	}
	for _, ct := range res.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryTotalResponse(ct))
	}
	if res.ByPeriod != nil {
		out.ByPeriod = make([]periodTotalResponse, 0, len(res.ByPeriod))
		for _, pt := range res.ByPeriod {
			out.ByPeriod = append(out.ByPeriod, periodTotalResponse(pt))
		}
	}
	return out
}

type categoryResponse struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// createExpenseRequest is the POST body. Amount accepts either a JSON
// number or a numeric string; decimal parses both without passing
// through a float.
type createExpenseRequest struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	SpentAt     string          `json:"spentAt"`
}

func (req createExpenseRequest) toInput() (services.CreateExpenseInput, error) {
	spentAt, err := parseDate(req.SpentAt)
	if err != nil {
		return services.CreateExpenseInput{}, err
	}
	return services.CreateExpenseInput{
		Description: req.Description,
		Amount:      req.Amount,
		Category:    req.Category,
		SpentAt:     spentAt,
	}, nil
}

// updateExpenseRequest is the PATCH body. Absent fields stay nil and
// leave the stored value untouched; category set to "" clears it.
type updateExpenseRequest struct {
	Description *string          `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
	Category    *string          `json:"category"`
	SpentAt     *string          `json:"spentAt"`
}

func (req updateExpenseRequest) toInput() (services.UpdateExpenseInput, error) {
	in := services.UpdateExpenseInput{
		Description: req.Description,
		Amount:      req.Amount,
		Category:    req.Category,
	}
	if req.SpentAt != nil {
		spentAt, err := parseDate(*req.SpentAt)
		if err != nil {
			return in, err
		}
		in.SpentAt = &spentAt
	}
	return in, nil
}
