package core

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page is a caller-facing pagination window.
type Page struct {
	Number int
	Size   int
}

// NewPage normalizes page parameters: the number is floored at 1 and the
// size is clamped to [1, MaxPageSize]. Zero values select the defaults.
func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	if size == 0 {
		size = DefaultPageSize
	}
	if size < 1 {
		size = 1
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return Page{Number: number, Size: size}
}

// Offset returns the row offset for this page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// PageMeta describes a paginated result set.
type PageMeta struct {
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// NewPageMeta computes listing metadata. totalPages is ceil(total/limit),
// zero when there are no rows.
func NewPageMeta(total int, p Page) PageMeta {
	pages := 0
	if total > 0 {
		pages = (total + p.Size - 1) / p.Size
	}
	return PageMeta{
		Total:      total,
		Page:       p.Number,
		Limit:      p.Size,
		TotalPages: pages,
	}
}
