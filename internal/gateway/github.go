// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/naka-gawa/repo-issues/internal/domain"
)

// Fetcher defines the behavior of a gateway for fetching repository data from GitHub.
type Fetcher interface {
	FetchRepository(ctx context.Context, ref domain.RepositoryRef) (*domain.RepositoryInfo, error)
	FetchIssues(ctx context.Context, ref domain.RepositoryRef, q domain.IssueQuery) ([]domain.Issue, error)
}

// GitHubGateway is the REST implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient *github.Client
	logger     *log.Logger
}

// NewHTTPClient builds the transport shared by the REST and GraphQL gateways:
// a secondary rate limit waiter, wrapped in a token transport when token is set.
func NewHTTPClient(token string) (*http.Client, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Minute, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	if token == "" {
		return &http.Client{Transport: rateLimitWaiter}, nil
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}, nil
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
// apiURL overrides the REST base URL (GitHub Enterprise); empty means api.github.com.
func NewGitHubGateway(httpClient *http.Client, apiURL string, logger *log.Logger) (*GitHubGateway, error) {
	restClient := github.NewClient(httpClient)
	if apiURL != "" {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		baseURL, err := url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("invalid API URL %q: %w", apiURL, err)
		}
		restClient.BaseURL = baseURL
	}
	return &GitHubGateway{
		restClient: restClient,
		logger:     logger,
	}, nil
}

func (g *GitHubGateway) FetchRepository(ctx context.Context, ref domain.RepositoryRef) (*domain.RepositoryInfo, error) {
	g.logger.Printf("Fetching repository %s...", ref)
	repo, _, err := g.restClient.Repositories.Get(ctx, ref.Owner, ref.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to get repository %s: %w", ref, classifyRESTError(err))
	}
	return &domain.RepositoryInfo{
		Name:        repo.GetName(),
		Description: repo.GetDescription(),
		Owner: domain.Account{
			Login:     repo.GetOwner().GetLogin(),
			AvatarURL: repo.GetOwner().GetAvatarURL(),
		},
	}, nil
}

func (g *GitHubGateway) FetchIssues(ctx context.Context, ref domain.RepositoryRef, q domain.IssueQuery) ([]domain.Issue, error) {
	g.logger.Printf("Fetching %s issues of %s (page %d)...", q.State, ref, q.Page)
	opts := &github.IssueListByRepoOptions{
		State: q.State,
		ListOptions: github.ListOptions{
			// Page 0 and below leave the parameter out, which GitHub serves as page 1.
			Page:    max(q.Page, 0),
			PerPage: q.PerPage,
		},
	}
	issues, _, err := g.restClient.Issues.ListByRepo(ctx, ref.Owner, ref.Name, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues of %s: %w", ref, classifyRESTError(err))
	}
	result := make([]domain.Issue, 0, len(issues))
	for _, issue := range issues {
		labels := make([]domain.Label, 0, len(issue.Labels))
		for _, label := range issue.Labels {
			labels = append(labels, domain.Label{
				ID:     label.GetID(),
				NodeID: label.GetNodeID(),
				Name:   label.GetName(),
			})
		}
		result = append(result, domain.Issue{
			ID:      issue.GetID(),
			Title:   issue.GetTitle(),
			HTMLURL: issue.GetHTMLURL(),
			User: domain.Account{
				Login:     issue.GetUser().GetLogin(),
				AvatarURL: issue.GetUser().GetAvatarURL(),
			},
			Labels: labels,
		})
	}
	g.logger.Printf("Fetched %d issues.", len(result))
	return result, nil
}

// classifyRESTError marks go-github errors with the matching domain sentinel.
func classifyRESTError(err error) error {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	}
	return err
}
