package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"tally/internal/core"
	"tally/internal/services"
)

const dateOnlyLayout = "2006-01-02"

// parseDate accepts either a full RFC 3339 timestamp or a bare calendar
// date, which is treated as midnight UTC.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateOnlyLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected RFC 3339 or YYYY-MM-DD", value)
	}
	return t, nil
}

func parseOptionalDate(query map[string][]string, key string) (time.Time, error) {
	values, ok := query[key]
	if !ok || len(values) == 0 || values[0] == "" {
		return time.Time{}, nil
	}
	return parseDate(values[0])
}

// parseListQuery reads pagination and filter parameters for the listing
// endpoint. Out-of-range page and limit values are normalised later by
// core.NewPage rather than rejected here.
func parseListQuery(r *http.Request) (services.ListInput, error) {
	query := r.URL.Query()
	in := services.ListInput{
		Page:     1,
		Limit:    core.DefaultPageSize,
		Category: query.Get("category"),
	}

	if raw := query.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return in, fmt.Errorf("invalid page %q", raw)
		}
		in.Page = page
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return in, fmt.Errorf("invalid limit %q", raw)
		}
		in.Limit = limit
	}

	var err error
	if in.From, err = parseOptionalDate(query, "from"); err != nil {
		return in, err
	}
	if in.To, err = parseOptionalDate(query, "to"); err != nil {
		return in, err
	}
	return in, nil
}

// parseSummaryQuery reads the date window and optional groupBy for the
// summary endpoint. An unknown groupBy value is a client error.
func parseSummaryQuery(r *http.Request) (services.SummaryInput, error) {
	query := r.URL.Query()
	var in services.SummaryInput

	var err error
	if in.From, err = parseOptionalDate(query, "from"); err != nil {
		return in, err
	}
	if in.To, err = parseOptionalDate(query, "to"); err != nil {
		return in, err
	}

	granularity, grouped, err := core.ParseGranularity(query.Get("groupBy"))
	if err != nil {
		return in, err
	}
	in.GroupBy = granularity
	in.Grouped = grouped
	return in, nil
}
