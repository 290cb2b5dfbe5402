package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func zero() time.Time { return time.Time{} }

func TestFilterMatch(t *testing.T) {
	e := Expense{OwnerID: "user-a", Category: "food", SpentAt: spent("2024-01-15"), Amount: amt("10")}

	tests := []struct {
		name string
		f    Filter
		want bool
	}{
		{"owner only", NewFilter("user-a"), true},
		{"other owner", NewFilter("user-b"), false},
		{"matching category", NewFilter("user-a").WithCategory("food"), true},
		{"other category", NewFilter("user-a").WithCategory("transport"), false},
		{"inside range", NewFilter("user-a").WithRange(spent("2024-01-01"), spent("2024-01-31")), true},
		{"on lower bound", NewFilter("user-a").WithRange(spent("2024-01-15"), spent("2024-01-31")), true},
		{"on upper bound", NewFilter("user-a").WithRange(spent("2024-01-01"), spent("2024-01-15")), true},
		{"before range", NewFilter("user-a").WithRange(spent("2024-02-01"), spent("2024-02-28")), false},
		{"open lower bound", NewFilter("user-a").WithRange(zero(), spent("2024-01-31")), true},
		{"open upper bound", NewFilter("user-a").WithRange(spent("2024-01-01"), zero()), true},
		// Inverted ranges degrade to an empty result set, not an error.
		{"from after to matches nothing", NewFilter("user-a").WithRange(spent("2024-02-01"), spent("2024-01-01")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.f.Match(e))
		})
	}
}
