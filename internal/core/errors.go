package core

import "errors"

var (
	ErrNotFound  = errors.New("expense not found")
	ErrForbidden = errors.New("expense belongs to another user")

	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 500 characters)")
	ErrMissingSpentAt     = errors.New("spent_at is required")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrUnknownGranularity = errors.New("unknown group_by granularity")
)

// IsValidation reports whether err is a client input problem rather than a
// lookup, ownership, or storage failure.
func IsValidation(err error) bool {
	for _, v := range []error{
		ErrInvalidAmount,
		ErrEmptyDescription,
		ErrDescriptionTooLong,
		ErrMissingSpentAt,
		ErrUnknownCategory,
		ErrUnknownGranularity,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
