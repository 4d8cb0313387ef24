package tui

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/repo-issues/internal/domain"
	"github.com/naka-gawa/repo-issues/internal/usecase"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchRepository(ctx context.Context, ref domain.RepositoryRef) (*domain.RepositoryInfo, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RepositoryInfo), args.Error(1)
}

func (m *mockFetcher) FetchIssues(ctx context.Context, ref domain.RepositoryRef, q domain.IssueQuery) ([]domain.Issue, error) {
	args := m.Called(ctx, ref, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Issue), args.Error(1)
}

var react = domain.RepositoryRef{Owner: "facebook", Name: "react"}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T, fetcher *mockFetcher) Model {
	t.Helper()
	view, err := usecase.NewRepositoryView(fetcher, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	return New(context.Background(), view, "facebook%2Freact")
}

// loaded runs the initial load and feeds its message back into the model.
func loaded(t *testing.T, fetcher *mockFetcher) Model {
	t.Helper()
	fetcher.On("FetchRepository", mock.Anything, react).Return(&domain.RepositoryInfo{
		Name:        "react",
		Description: "UI library",
		Owner:       domain.Account{Login: "facebook"},
	}, nil).Once()
	fetcher.On("FetchIssues", mock.Anything, react, domain.IssueQuery{State: "open", PerPage: 5}).Return([]domain.Issue{
		{ID: 1, Title: "Bug in hooks", User: domain.Account{Login: "alice"}, Labels: []domain.Label{{ID: 7, Name: "bug"}}},
	}, nil).Once()

	m := newTestModel(t, fetcher)
	msg := m.load()()
	next, cmd := m.Update(msg)
	assert.Nil(t, cmd)
	return next.(Model)
}

// step sends msg and feeds the resulting command's message back.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd == nil {
		return m
	}
	next, _ = m.Update(cmd())
	return next.(Model)
}

func TestModel_LoadingView(t *testing.T) {
	m := newTestModel(t, new(mockFetcher))
	assert.Contains(t, m.View(), "Loading")
	assert.NotNil(t, m.Init())
}

func TestModel_InitialLoad(t *testing.T) {
	fetcher := new(mockFetcher)
	m := loaded(t, fetcher)

	assert.False(t, m.state.Loading)
	view := m.View()
	assert.Contains(t, view, "react")
	assert.Contains(t, view, "UI library")
	assert.Contains(t, view, "Bug in hooks")
	assert.Contains(t, view, "alice")
	assert.Contains(t, view, "bug")
	assert.Contains(t, view, "page 1")
	fetcher.AssertExpectations(t)
}

func TestModel_FailedLoadStaysLoading(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("FetchRepository", mock.Anything, react).Return(nil, domain.ErrNotFound)
	fetcher.On("FetchIssues", mock.Anything, react, mock.Anything).Return([]domain.Issue{}, nil)

	m := newTestModel(t, fetcher)
	next, _ := m.Update(m.load()())
	m = next.(Model)

	assert.True(t, m.state.Loading)
	assert.ErrorIs(t, m.err, domain.ErrNotFound)
	assert.Contains(t, m.View(), "Failed to load facebook%2Freact")

	// Keys other than quit are ignored until loaded.
	_, cmd := m.Update(runes("3"))
	assert.Nil(t, cmd)
}

func TestModel_SelectFilter(t *testing.T) {
	fetcher := new(mockFetcher)
	m := loaded(t, fetcher)
	fetcher.On("FetchIssues", mock.Anything, react, domain.IssueQuery{State: "closed", PerPage: 5, Page: 1}).
		Return([]domain.Issue{{ID: 2, Title: "Closed thing", User: domain.Account{Login: "bob"}}}, nil).Once()

	m = step(t, m, runes("3"))

	assert.Equal(t, 2, m.state.SelectedFilter)
	assert.Equal(t, 0, m.pending)
	assert.Contains(t, m.View(), "Closed thing")
	fetcher.AssertExpectations(t)
}

func TestModel_TabCyclesFilters(t *testing.T) {
	fetcher := new(mockFetcher)
	m := loaded(t, fetcher)
	fetcher.On("FetchIssues", mock.Anything, react, domain.IssueQuery{State: "closed", PerPage: 5, Page: 1}).Return([]domain.Issue{}, nil).Once()
	fetcher.On("FetchIssues", mock.Anything, react, domain.IssueQuery{State: "all", PerPage: 5, Page: 1}).Return([]domain.Issue{}, nil).Once()

	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 2, m.state.SelectedFilter)
	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 0, m.state.SelectedFilter)
	assert.Contains(t, m.View(), "No issues on this page.")
	fetcher.AssertExpectations(t)
}

func TestModel_Paging(t *testing.T) {
	fetcher := new(mockFetcher)
	m := loaded(t, fetcher)

	// Back on the first page does nothing.
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	assert.Nil(t, cmd)
	assert.Equal(t, 1, next.(Model).state.Page)

	fetcher.On("FetchIssues", mock.Anything, react, domain.IssueQuery{State: "open", PerPage: 5, Page: 2}).Return([]domain.Issue{}, nil).Once()
	m = step(t, m, runes("l"))
	assert.Equal(t, 2, m.state.Page)
	assert.Contains(t, m.View(), "page 2")

	fetcher.On("FetchIssues", mock.Anything, react, domain.IssueQuery{State: "open", PerPage: 5, Page: 1}).Return([]domain.Issue{{ID: 1, Title: "Bug in hooks"}}, nil).Once()
	m = step(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, 1, m.state.Page)
	fetcher.AssertExpectations(t)
}

func TestModel_OutOfOrderMessagesAreDropped(t *testing.T) {
	fetcher := new(mockFetcher)
	m := loaded(t, fetcher)

	older := m.state
	older.Generation = 2
	older.Issues = []domain.Issue{{ID: 20, Title: "Older snapshot"}}
	newer := m.state
	newer.Generation = 3
	newer.Issues = []domain.Issue{{ID: 30, Title: "Newer snapshot"}}
	m.pending = 2

	next, _ := m.Update(issuesMsg{state: newer})
	m = next.(Model)
	next, _ = m.Update(issuesMsg{state: older})
	m = next.(Model)

	assert.Equal(t, uint64(3), m.state.Generation)
	assert.Equal(t, 0, m.pending)
	assert.Contains(t, m.View(), "Newer snapshot")
	assert.NotContains(t, m.View(), "Older snapshot")
}

func TestModel_RefreshErrorIsShown(t *testing.T) {
	fetcher := new(mockFetcher)
	m := loaded(t, fetcher)
	fetcher.On("FetchIssues", mock.Anything, react, domain.IssueQuery{State: "open", PerPage: 5, Page: 1}).Return(nil, errors.New("boom")).Once()

	m = step(t, m, runes("r"))

	assert.EqualError(t, m.err, "boom")
	assert.Contains(t, m.View(), "Error: boom")
	assert.Contains(t, m.View(), "Bug in hooks", "a failed refresh keeps the last issues")
}

func TestModel_FailedFilterSwitchKeepsHighlight(t *testing.T) {
	fetcher := new(mockFetcher)
	m := loaded(t, fetcher)
	fetcher.On("FetchIssues", mock.Anything, react, domain.IssueQuery{State: "closed", PerPage: 5, Page: 1}).Return(nil, domain.ErrRateLimited).Once()

	m = step(t, m, runes("3"))

	assert.ErrorIs(t, m.err, domain.ErrRateLimited)
	assert.Equal(t, 1, m.state.SelectedFilter, "the open filter stays selected over the open issues")
	assert.Contains(t, m.View(), "Bug in hooks")
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(t, new(mockFetcher))
	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
