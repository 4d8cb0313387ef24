package gateway

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/repo-issues/internal/domain"
)

// setupTestGateway creates a GitHubGateway that communicates with a mock HTTP server.
func setupTestGateway(t *testing.T, handler http.Handler) (*GitHubGateway, *httptest.Server) {
	server := httptest.NewServer(handler)

	// Setup REST client to point to the mock server.
	restClient := github.NewClient(server.Client())
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	restClient.BaseURL = baseURL

	gateway := &GitHubGateway{
		restClient: restClient,
		logger:     log.New(io.Discard, "", 0),
	}
	return gateway, server
}

var react = domain.RepositoryRef{Owner: "facebook", Name: "react"}

func TestGitHubGateway_FetchRepository(t *testing.T) {
	testCases := []struct {
		name           string
		handlerFunc    func(w http.ResponseWriter, r *http.Request)
		expected       *domain.RepositoryInfo
		expectedErr    error
		expectedErrMsg string
	}{
		{
			name: "happy path - repository metadata",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/repos/facebook/react", r.URL.Path)
				fmt.Fprint(w, `{"name":"react","description":"The library for web and native user interfaces.","owner":{"login":"facebook","avatar_url":"https://avatars.example/fb.png"}}`)
			},
			expected: &domain.RepositoryInfo{
				Name:        "react",
				Description: "The library for web and native user interfaces.",
				Owner:       domain.Account{Login: "facebook", AvatarURL: "https://avatars.example/fb.png"},
			},
		},
		{
			name: "null description becomes empty",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"name":"react","description":null,"owner":{"login":"facebook"}}`)
			},
			expected: &domain.RepositoryInfo{Name: "react", Owner: domain.Account{Login: "facebook"}},
		},
		{
			name: "error case - repository does not exist",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"message": "Not Found"}`)
			},
			expectedErr:    domain.ErrNotFound,
			expectedErrMsg: "failed to get repository facebook/react",
		},
		{
			name: "error case - rate limit exhausted",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-RateLimit-Limit", "60")
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.WriteHeader(http.StatusForbidden)
				fmt.Fprint(w, `{"message": "API rate limit exceeded for 127.0.0.1."}`)
			},
			expectedErr:    domain.ErrRateLimited,
			expectedErrMsg: "failed to get repository",
		},
		{
			name: "error case - GitHub API returns an error",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprint(w, `{"message": "Internal Server Error"}`)
			},
			expectedErrMsg: "failed to get repository",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gateway, server := setupTestGateway(t, http.HandlerFunc(tc.handlerFunc))
			defer server.Close()
			repo, err := gateway.FetchRepository(context.Background(), react)
			if tc.expectedErrMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedErrMsg)
				if tc.expectedErr != nil {
					assert.ErrorIs(t, err, tc.expectedErr)
				} else {
					assert.NotErrorIs(t, err, domain.ErrNotFound)
					assert.NotErrorIs(t, err, domain.ErrRateLimited)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, repo)
		})
	}
}

func TestGitHubGateway_FetchIssues(t *testing.T) {
	testCases := []struct {
		name          string
		query         domain.IssueQuery
		expectedQuery url.Values
	}{
		{
			name:          "first load leaves out the page",
			query:         domain.IssueQuery{State: "open", PerPage: 5},
			expectedQuery: url.Values{"state": {"open"}, "per_page": {"5"}},
		},
		{
			name:          "explicit page",
			query:         domain.IssueQuery{State: "closed", PerPage: 5, Page: 3},
			expectedQuery: url.Values{"state": {"closed"}, "per_page": {"5"}, "page": {"3"}},
		},
		{
			name:          "page below one is left out",
			query:         domain.IssueQuery{State: "all", PerPage: 5, Page: -1},
			expectedQuery: url.Values{"state": {"all"}, "per_page": {"5"}},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/repos/facebook/react/issues", r.URL.Path)
				assert.Equal(t, tc.expectedQuery, r.URL.Query())
				fmt.Fprint(w, `[
					{"id": 11, "title": "Bug in hooks", "html_url": "https://github.com/facebook/react/issues/1",
					 "user": {"login": "alice", "avatar_url": "https://avatars.example/alice.png"},
					 "labels": [{"id": 7, "node_id": "LA_7", "name": "Type: Bug"}]},
					{"id": 12, "title": "Docs", "html_url": "https://github.com/facebook/react/issues/2",
					 "user": {"login": "bob"}, "labels": []}
				]`)
			}
			gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
			defer server.Close()

			issues, err := gateway.FetchIssues(context.Background(), react, tc.query)
			require.NoError(t, err)
			assert.Equal(t, []domain.Issue{
				{
					ID:      11,
					Title:   "Bug in hooks",
					HTMLURL: "https://github.com/facebook/react/issues/1",
					User:    domain.Account{Login: "alice", AvatarURL: "https://avatars.example/alice.png"},
					Labels:  []domain.Label{{ID: 7, NodeID: "LA_7", Name: "Type: Bug"}},
				},
				{
					ID:      12,
					Title:   "Docs",
					HTMLURL: "https://github.com/facebook/react/issues/2",
					User:    domain.Account{Login: "bob"},
					Labels:  []domain.Label{},
				},
			}, issues)
		})
	}
}

func TestGitHubGateway_FetchIssuesEmptyPage(t *testing.T) {
	gateway, server := setupTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	issues, err := gateway.FetchIssues(context.Background(), react, domain.IssueQuery{State: "all", PerPage: 5, Page: 40})
	require.NoError(t, err)
	assert.NotNil(t, issues)
	assert.Empty(t, issues)
}

func TestNewGitHubGateway(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	httpClient, err := NewHTTPClient("token")
	require.NoError(t, err)

	gateway, err := NewGitHubGateway(httpClient, "", logger)
	require.NoError(t, err)
	assert.Equal(t, "https://api.github.com/", gateway.restClient.BaseURL.String())

	gateway, err = NewGitHubGateway(httpClient, "https://ghe.example.com/api/v3", logger)
	require.NoError(t, err)
	assert.Equal(t, "https://ghe.example.com/api/v3/", gateway.restClient.BaseURL.String())

	_, err = NewGitHubGateway(httpClient, "://bad", logger)
	assert.Error(t, err)
}
