package core

import "time"

// Filter narrows expense queries. OwnerID always comes from the
// authenticated caller and is never taken from request input. A zero From
// or To means that bound is absent. From > To is not an error: such a
// range simply matches nothing.
type Filter struct {
	OwnerID  string
	From     time.Time
	To       time.Time
	Category string
}

// NewFilter returns a filter scoped to the given owner.
func NewFilter(ownerID string) Filter {
	return Filter{OwnerID: ownerID}
}

// WithRange adds inclusive spent-at bounds. Zero values leave the
// corresponding bound open.
func (f Filter) WithRange(from, to time.Time) Filter {
	f.From = from
	f.To = to
	return f
}

// WithCategory adds an equality constraint on the category slug.
func (f Filter) WithCategory(slug string) Filter {
	f.Category = slug
	return f
}

func (f Filter) HasFrom() bool { return !f.From.IsZero() }
func (f Filter) HasTo() bool   { return !f.To.IsZero() }

// Match reports whether an expense satisfies the filter. The SQLite
// repository translates the filter to a WHERE clause; Match is the
// reference semantics used by in-memory fakes.
func (f Filter) Match(e Expense) bool {
	if e.OwnerID != f.OwnerID {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.HasFrom() && e.SpentAt.Before(f.From) {
		return false
	}
	if f.HasTo() && e.SpentAt.After(f.To) {
		return false
	}
	return true
}
