// Package tui is the interactive terminal front end of the repository view.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naka-gawa/repo-issues/internal/domain"
	"github.com/naka-gawa/repo-issues/internal/usecase"
)

// loadedMsg is sent when the initial load finishes.
type loadedMsg struct {
	state domain.ViewState
	err   error
}

// issuesMsg is sent when a filter, page or refresh action finishes.
type issuesMsg struct {
	state domain.ViewState
	err   error
}

// Model is the bubbletea model of the repository view.
// Fetches run as commands; the RepositoryView drops superseded results.
type Model struct {
	ctx        context.Context
	view       *usecase.RepositoryView
	identifier string

	state   domain.ViewState
	err     error
	pending int

	keys    KeyMap
	styles  Styles
	spinner spinner.Model
	help    help.Model
}

// New creates the model for the repository identified by the URL-encoded identifier.
func New(ctx context.Context, view *usecase.RepositoryView, identifier string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return Model{
		ctx:        ctx,
		view:       view,
		identifier: identifier,
		state:      view.State(),
		keys:       DefaultKeyMap(),
		styles:     DefaultStyles(),
		spinner:    s,
		help:       help.New(),
	}
}

// Init starts the spinner and the initial load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load())
}

func (m Model) load() tea.Cmd {
	ctx, view, identifier := m.ctx, m.view, m.identifier
	return func() tea.Msg {
		err := view.Initialize(ctx, identifier)
		return loadedMsg{state: view.State(), err: err}
	}
}

func (m Model) run(action func(context.Context) error) tea.Cmd {
	ctx, view := m.ctx, m.view
	return func() tea.Msg {
		err := action(ctx)
		return issuesMsg{state: view.State(), err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		m.state = msg.state
		m.err = msg.err
		return m, nil

	case issuesMsg:
		m.pending = max(m.pending-1, 0)
		// Commands finish in any order; a snapshot older than the one shown is dropped.
		if msg.state.Generation < m.state.Generation {
			return m, nil
		}
		m.state = msg.state
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	// Nothing but the loading indicator is shown until the first load completes.
	if m.state.Loading {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.All):
		return m.selectFilter(0)
	case key.Matches(msg, m.keys.Open):
		return m.selectFilter(1)
	case key.Matches(msg, m.keys.Closed):
		return m.selectFilter(2)
	case key.Matches(msg, m.keys.NextFilter):
		return m.selectFilter((m.state.SelectedFilter + 1) % len(domain.Filters()))
	case key.Matches(msg, m.keys.PrevPage):
		return m.changePage(domain.Back)
	case key.Matches(msg, m.keys.NextPage):
		return m.changePage(domain.Next)
	case key.Matches(msg, m.keys.Refresh):
		m.pending++
		return m, m.run(m.view.RefreshIssues)
	}
	return m, nil
}

func (m Model) selectFilter(i int) (tea.Model, tea.Cmd) {
	next, err := m.state.SelectFilter(i)
	if err != nil {
		return m, nil
	}
	m.state = next
	m.pending++
	return m, m.run(func(ctx context.Context) error {
		return m.view.SelectFilter(ctx, i)
	})
}

func (m Model) changePage(d domain.Direction) (tea.Model, tea.Cmd) {
	if d == domain.Back && !m.state.HasPrevious() {
		return m, nil
	}
	next, moved := m.state.ChangePage(d)
	if !moved {
		return m, nil
	}
	m.state = next
	m.pending++
	return m, m.run(func(ctx context.Context) error {
		return m.view.ChangePage(ctx, d)
	})
}

// View renders the repository view.
func (m Model) View() string {
	if m.state.Loading {
		if m.err != nil {
			return m.styles.Error.Render(fmt.Sprintf("Failed to load %s: %v", m.identifier, m.err)) + "\n"
		}
		return fmt.Sprintf("%s Loading\n", m.spinner.View())
	}

	var b strings.Builder
	repo := m.state.Repository
	b.WriteString(m.styles.Owner.Render(repo.Owner.Login+" /") + " " + m.styles.Title.Render(repo.Name) + "\n")
	if repo.Description != "" {
		b.WriteString(m.styles.Description.Render(repo.Description) + "\n")
	}
	b.WriteString("\n")

	filters := make([]string, 0, 3)
	for i, f := range m.state.Filters() {
		style := m.styles.Filter
		if i == m.state.SelectedFilter {
			style = m.styles.ActiveFilter
		}
		filters = append(filters, style.Render(f.Label))
	}
	b.WriteString(strings.Join(filters, " ") + "\n\n")

	if len(m.state.Issues) == 0 {
		b.WriteString(m.styles.Author.Render("  No issues on this page.") + "\n")
	}
	for _, issue := range m.state.Issues {
		line := "• " + m.styles.IssueTitle.Render(issue.Title)
		for _, label := range issue.Labels {
			line += " " + m.styles.Label.Render(label.Name)
		}
		b.WriteString(line + "\n")
		b.WriteString("  " + m.styles.Author.Render(issue.User.Login) + "\n")
	}
	b.WriteString("\n")

	prev := m.styles.Pager.Render("‹ Previous")
	if !m.state.HasPrevious() {
		prev = m.styles.Disabled.Render("‹ Previous")
	}
	b.WriteString(fmt.Sprintf("%s  page %d  %s", prev, m.state.Page, m.styles.Pager.Render("Next ›")))
	if m.pending > 0 {
		b.WriteString("  " + m.spinner.View())
	}
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(m.styles.Error.Render("Error: "+m.err.Error()) + "\n")
	}
	b.WriteString("\n" + m.help.View(m.keys) + "\n")
	return b.String()
}
