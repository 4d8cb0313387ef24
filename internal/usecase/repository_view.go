// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"errors"
	"log"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/repo-issues/internal/domain"
	"github.com/naka-gawa/repo-issues/internal/gateway"
)

// ErrNotAttached is returned when issues are requested before a repository is bound to the view.
var ErrNotAttached = errors.New("no repository attached to the view")

// Option seeds the initial state of a RepositoryView.
type Option func(domain.ViewState) (domain.ViewState, error)

// WithFilter starts the view on filter index i instead of "open".
func WithFilter(i int) Option {
	return func(s domain.ViewState) (domain.ViewState, error) {
		return s.SelectFilter(i)
	}
}

// WithPage starts the view on page n.
func WithPage(n int) Option {
	return func(s domain.ViewState) (domain.ViewState, error) {
		return s.WithPage(n)
	}
}

// RepositoryView is the use case behind the repository page.
// It owns the view state; every fetch is stamped with a generation and
// results of superseded fetches are dropped. Safe for concurrent use.
type RepositoryView struct {
	fetcher gateway.Fetcher
	logger  *log.Logger

	mu     sync.Mutex
	ref    domain.RepositoryRef
	bound  bool
	state  domain.ViewState
	// shown is the state whose issue list is on display.
	shown  domain.ViewState
	cancel context.CancelFunc
}

// NewRepositoryView creates a new RepositoryView instance in the loading state.
func NewRepositoryView(fetcher gateway.Fetcher, logger *log.Logger, opts ...Option) (*RepositoryView, error) {
	state := domain.NewViewState()
	for _, opt := range opts {
		var err error
		if state, err = opt(state); err != nil {
			return nil, err
		}
	}
	return &RepositoryView{
		fetcher: fetcher,
		logger:  logger,
		state:   state,
		shown:   state,
	}, nil
}

// Attach decodes identifier and binds the view to that repository without fetching anything.
func (v *RepositoryView) Attach(identifier string) (domain.RepositoryRef, error) {
	ref, err := domain.ParseRepositoryRef(identifier)
	if err != nil {
		return domain.RepositoryRef{}, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ref = ref
	v.bound = true
	return ref, nil
}

// Initialize loads the repository metadata and the first issues page concurrently.
// Both requests must succeed before the view leaves the loading state.
func (v *RepositoryView) Initialize(ctx context.Context, identifier string) error {
	ref, err := v.Attach(identifier)
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.state = v.state.Begin()
	gen := v.state.Generation
	q := v.state.InitialQuery()
	v.mu.Unlock()

	v.logger.Printf("Usecase: Loading %s...", ref)
	var repo *domain.RepositoryInfo
	var issues []domain.Issue

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		repo, err = v.fetcher.FetchRepository(egCtx, ref)
		return err
	})
	eg.Go(func() error {
		var err error
		issues, err = v.fetcher.FetchIssues(egCtx, ref, q)
		return err
	})
	if err := eg.Wait(); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	var applied bool
	v.state, applied = v.state.ApplyLoaded(gen, *repo, issues)
	if !applied {
		v.logger.Printf("Usecase: Dropped initial issues of %s, a newer fetch is in flight.", ref)
	} else {
		v.shown = v.state
	}
	v.logger.Println("Usecase: Load complete.")
	return nil
}

// RefreshIssues fetches the issues for the current filter and page and replaces the list.
// A refresh still in flight is cancelled. When this refresh is itself superseded
// before it completes, its result is dropped and nil is returned. When it fails,
// filter and page return to those of the issues still on display.
func (v *RepositoryView) RefreshIssues(ctx context.Context) error {
	v.mu.Lock()
	if !v.bound {
		v.state = v.state.Rollback(v.shown)
		v.mu.Unlock()
		return ErrNotAttached
	}
	if v.cancel != nil {
		v.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	v.cancel = cancel
	v.state = v.state.Begin()
	gen := v.state.Generation
	q := v.state.Query()
	ref := v.ref
	v.mu.Unlock()

	issues, err := v.fetcher.FetchIssues(ctx, ref, q)

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.state.Generation {
		v.logger.Printf("Usecase: Dropped stale %s issues page %d of %s.", q.State, q.Page, ref)
		return nil
	}
	v.cancel = nil
	if err != nil {
		v.state = v.state.Rollback(v.shown)
		return err
	}
	v.state, _ = v.state.ApplyIssues(gen, issues)
	v.shown = v.state
	return nil
}

// SelectFilter switches to filter index i, keeping the current page, and refreshes the issues.
func (v *RepositoryView) SelectFilter(ctx context.Context, i int) error {
	v.mu.Lock()
	next, err := v.state.SelectFilter(i)
	if err != nil {
		v.mu.Unlock()
		return err
	}
	v.state = next
	v.mu.Unlock()
	return v.RefreshIssues(ctx)
}

// ChangePage moves one page back or forward and refreshes the issues.
// Going back is not floored; callers offer it only when State().HasPrevious().
func (v *RepositoryView) ChangePage(ctx context.Context, d domain.Direction) error {
	if _, err := domain.ParseDirection(string(d)); err != nil {
		return err
	}
	v.mu.Lock()
	v.state, _ = v.state.ChangePage(d)
	v.mu.Unlock()
	return v.RefreshIssues(ctx)
}

// State returns a copy of the current view state.
func (v *RepositoryView) State() domain.ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.state
	s.Issues = slices.Clone(s.Issues)
	return s
}

// Ref returns the attached repository.
func (v *RepositoryView) Ref() domain.RepositoryRef {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ref
}
