package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDirection is returned for a page direction other than back or next.
	ErrInvalidDirection = errors.New("invalid page direction")
	// ErrInvalidPage is returned for a page number below 1.
	ErrInvalidPage = errors.New("invalid page")
)

// Direction selects the neighbouring page.
type Direction string

const (
	Back Direction = "back"
	Next Direction = "next"
)

// ParseDirection converts user input into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Back, Next:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// ViewState is everything the repository view renders.
// Transitions return a new value and never mutate the receiver's issue list.
type ViewState struct {
	SelectedFilter int
	Page           int
	Loading        bool
	// Generation is bumped by Begin for every fetch; only the latest fetch's result is applied.
	Generation uint64
	Repository RepositoryInfo
	Issues     []Issue
}

// NewViewState returns the state of a view that has not loaded yet.
func NewViewState() ViewState {
	return ViewState{
		SelectedFilter: DefaultFilter,
		Page:           1,
		Loading:        true,
	}
}

// Filter returns the active filter option.
func (s ViewState) Filter() FilterOption {
	return filters[s.SelectedFilter]
}

// Filters returns the filter list for rendering.
func (s ViewState) Filters() []FilterOption {
	return Filters()
}

// HasPrevious reports whether a previous page exists.
func (s ViewState) HasPrevious() bool {
	return s.Page > 1
}

// SelectFilter switches the filter. The page is kept.
func (s ViewState) SelectFilter(i int) (ViewState, error) {
	if _, err := Filter(i); err != nil {
		return s, err
	}
	s.SelectedFilter = i
	return s, nil
}

// ChangePage moves one page in direction d. There is no floor: going back from
// page 1 lands on page 0, which GitHub serves as its first page. Front ends
// guard with HasPrevious. An unknown direction is reported as false.
func (s ViewState) ChangePage(d Direction) (ViewState, bool) {
	switch d {
	case Back:
		s.Page--
	case Next:
		s.Page++
	default:
		return s, false
	}
	return s, true
}

// Begin stamps a new fetch generation, superseding any fetch in flight.
func (s ViewState) Begin() ViewState {
	s.Generation++
	return s
}

// Query returns the issues request for the current filter and page.
func (s ViewState) Query() IssueQuery {
	return IssueQuery{
		State:   s.Filter().Value,
		PerPage: IssuesPerPage,
		Page:    s.Page,
	}
}

// InitialQuery is Query for the first load, leaving out the page on page 1.
func (s ViewState) InitialQuery() IssueQuery {
	q := s.Query()
	if q.Page == 1 {
		q.Page = 0
	}
	return q
}

// WithPage jumps directly to page n.
func (s ViewState) WithPage(n int) (ViewState, error) {
	if n < 1 {
		return s, fmt.Errorf("%w: %d", ErrInvalidPage, n)
	}
	s.Page = n
	return s, nil
}

// Rollback returns to the filter and page of applied, the state whose issues
// are on display. Used when a fetch for a newer filter or page fails.
func (s ViewState) Rollback(applied ViewState) ViewState {
	s.SelectedFilter = applied.SelectedFilter
	s.Page = applied.Page
	return s
}

// ApplyLoaded stores the result of the initial load and leaves the loading state.
// The repository is always kept; the issues only when gen is still current,
// which is reported as the second result.
func (s ViewState) ApplyLoaded(gen uint64, repo RepositoryInfo, issues []Issue) (ViewState, bool) {
	s.Repository = repo
	s.Loading = false
	if gen != s.Generation {
		return s, false
	}
	s.Issues = issues
	return s, true
}

// ApplyIssues replaces the issue list with the result of fetch generation gen.
func (s ViewState) ApplyIssues(gen uint64, issues []Issue) (ViewState, bool) {
	if gen != s.Generation {
		return s, false
	}
	s.Issues = issues
	return s, true
}
