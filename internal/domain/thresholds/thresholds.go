// Package thresholds holds the static milestone threshold table.
//
// The table is loaded once at startup and immutable for the process lifetime.
// Each category maps to a strictly increasing list of counter values; a
// milestone fires when a counter becomes exactly equal to one of them.
package thresholds

import (
	"sort"

	"github.com/celebratehub/confetti/internal/domain/model"
)

// Table maps categories to their ordered milestone values.
type Table struct {
	byCategory map[model.Category][]int
}

// Defaults returns the stock threshold table used by the dashboard.
func Defaults() *Table {
	t, _ := New(map[model.Category][]int{
		model.CategoryPullRequest:      {1, 5, 10, 25, 50, 100},
		model.CategoryStar:             {1, 10, 25, 50, 100, 500, 1000},
		model.CategoryIssue:            {1, 5, 10, 25, 50},
		model.CategoryCommit:           {10, 50, 100, 500, 1000},
		model.CategoryContributionDays: {7, 30, 90, 180, 365},
	})
	return t
}

// New validates and builds a table. Every list must be non-empty, strictly
// ascending, and contain only positive values; unknown categories are
// rejected so config typos fail at startup rather than silently never firing.
func New(m map[model.Category][]int) (*Table, error) {
	known := make(map[model.Category]struct{}, len(model.Categories()))
	for _, c := range model.Categories() {
		known[c] = struct{}{}
	}

	byCategory := make(map[model.Category][]int, len(m))
	for cat, values := range m {
		if _, ok := known[cat]; !ok {
			return nil, NewKind("thresholds.new", ErrUnknownCategory, string(cat))
		}
		if len(values) == 0 {
			return nil, NewKind("thresholds.new", ErrEmptyThresholds, string(cat))
		}
		prev := 0
		for _, v := range values {
			if v <= prev {
				return nil, NewKind("thresholds.new", ErrUnorderedThresholds, string(cat))
			}
			prev = v
		}
		byCategory[cat] = append([]int(nil), values...)
	}
	return &Table{byCategory: byCategory}, nil
}

// Match reports whether value equals one of the category's thresholds.
// The match is exact: a counter that jumps past a threshold in a single
// batched event skips it.
func (t *Table) Match(cat model.Category, value int) (int, bool) {
	values := t.byCategory[cat]
	i := sort.SearchInts(values, value)
	if i < len(values) && values[i] == value {
		return values[i], true
	}
	return 0, false
}

// For returns the configured thresholds for a category, ascending.
func (t *Table) For(cat model.Category) []int {
	return append([]int(nil), t.byCategory[cat]...)
}
