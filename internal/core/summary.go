package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Uncategorized is the bucket label for expenses without a category.
const Uncategorized = "uncategorized"

// Granularity selects the time bucket for period rollups.
type Granularity string

const (
	ByDay   Granularity = "day"
	ByWeek  Granularity = "week"
	ByMonth Granularity = "month"
	ByYear  Granularity = "year"
)

// ParseGranularity maps a request value to a Granularity. The empty string
// means no period rollup was requested and is reported via ok=false.
func ParseGranularity(s string) (g Granularity, ok bool, err error) {
	switch Granularity(s) {
	case "":
		return "", false, nil
	case ByDay, ByWeek, ByMonth, ByYear:
		return Granularity(s), true, nil
	default:
		return "", false, fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
	}
}

type (
	// CategoryTotal is one per-category rollup row.
	CategoryTotal struct {
		Category string
		Total    decimal.Decimal
		Count    int
	}

	// PeriodTotal is one time-bucket rollup row.
	PeriodTotal struct {
		Period string
		Total  decimal.Decimal
		Count  int
	}

	// Summary aggregates a matching record set.
	Summary struct {
		Total      decimal.Decimal
		Count      int
		ByCategory []CategoryTotal
	}
)

// Summarize computes the grand total, record count, and per-category
// rollup of a record set. Every record lands in exactly one category
// bucket, so the grand total always equals the sum of the bucket totals.
// Buckets are ordered by total descending; equal totals fall back to slug
// ascending so the order is stable across runs.
func Summarize(expenses []Expense) Summary {
	s := Summary{Total: decimal.Zero}
	byCat := make(map[string]*CategoryTotal)

	for _, e := range expenses {
		s.Total = s.Total.Add(e.Amount)
		s.Count++

		slug := e.Category
		if slug == "" {
			slug = Uncategorized
		}
		ct, exists := byCat[slug]
		if !exists {
			ct = &CategoryTotal{Category: slug, Total: decimal.Zero}
			byCat[slug] = ct
		}
		ct.Total = ct.Total.Add(e.Amount)
		ct.Count++
	}

	s.ByCategory = make([]CategoryTotal, 0, len(byCat))
	for _, ct := range byCat {
		s.ByCategory = append(s.ByCategory, *ct)
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		a, b := s.ByCategory[i], s.ByCategory[j]
		if !a.Total.Equal(b.Total) {
			return a.Total.GreaterThan(b.Total)
		}
		return a.Category < b.Category
	})

	return s
}

// SummarizeByPeriod buckets a record set by the calendar period of each
// expense's spent-at timestamp. Rows are ordered by bucket key ascending;
// plain string comparison is correct because every key format is
// zero-padded and date-ordered left to right.
func SummarizeByPeriod(expenses []Expense, g Granularity) []PeriodTotal {
	byPeriod := make(map[string]*PeriodTotal)

	for _, e := range expenses {
		key := PeriodKey(e.SpentAt, g)
		pt, exists := byPeriod[key]
		if !exists {
			pt = &PeriodTotal{Period: key, Total: decimal.Zero}
			byPeriod[key] = pt
		}
		pt.Total = pt.Total.Add(e.Amount)
		pt.Count++
	}

	out := make([]PeriodTotal, 0, len(byPeriod))
	for _, pt := range byPeriod {
		out = append(out, *pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

// PeriodKey derives the canonical bucket key for a timestamp. The key is
// built from the stored instant's own calendar fields; no timezone
// re-localization happens here. Week buckets start on Sunday: the key is
// the date of the Sunday on or before t.
func PeriodKey(t time.Time, g Granularity) string {
	switch g {
	case ByWeek:
		sunday := t.AddDate(0, 0, -int(t.Weekday()))
		return sunday.Format("2006-01-02")
	case ByMonth:
		return t.Format("2006-01")
	case ByYear:
		return t.Format("2006")
	default:
		return t.Format("2006-01-02")
	}
}
