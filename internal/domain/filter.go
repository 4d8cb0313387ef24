package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidFilter is returned for a filter index outside the fixed filter list.
var ErrInvalidFilter = errors.New("invalid filter")

// FilterOption pairs an issue state value with its display label.
type FilterOption struct {
	Value string
	Label string
}

var filters = [...]FilterOption{
	{Value: "all", Label: "All"},
	{Value: "open", Label: "Open"},
	{Value: "closed", Label: "Closed"},
}

// DefaultFilter is the index of the "open" filter used on first display.
const DefaultFilter = 1

// Filters returns the fixed filter list.
func Filters() []FilterOption {
	out := make([]FilterOption, len(filters))
	copy(out, filters[:])
	return out
}

// Filter returns the option at index i.
func Filter(i int) (FilterOption, error) {
	if i < 0 || i >= len(filters) {
		return FilterOption{}, fmt.Errorf("%w: index %d", ErrInvalidFilter, i)
	}
	return filters[i], nil
}

// FilterIndex returns the index of the option whose value is v.
func FilterIndex(v string) (int, error) {
	for i, f := range filters {
		if f.Value == v {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidFilter, v)
}
