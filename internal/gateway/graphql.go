package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/shurcooL/githubv4"

	"github.com/naka-gawa/repo-issues/internal/domain"
)

// ErrTokenRequired is returned when the GraphQL gateway is created without a token.
var ErrTokenRequired = errors.New("the GraphQL API requires a token")

// GraphQLGateway implements Fetcher on top of the GitHub GraphQL API.
// GraphQL pages by cursor, so page n costs n round trips.
type GraphQLGateway struct {
	graphqlClient *githubv4.Client
	logger        *log.Logger
}

type repositoryQuery struct {
	Repository struct {
		Name        string
		Description string
		Owner       struct {
			Login     string
			AvatarURL string `graphql:"avatarUrl"`
		}
	} `graphql:"repository(owner: $owner, name: $name)"`
}

type issuesQuery struct {
	Repository struct {
		Issues struct {
			PageInfo struct {
				HasNextPage bool
				EndCursor   githubv4.String
			}
			Nodes []struct {
				DatabaseID int64  `graphql:"databaseId"`
				Title      string
				URL        string `graphql:"url"`
				Author     struct {
					Login     string
					AvatarURL string `graphql:"avatarUrl"`
				}
				Labels struct {
					Nodes []struct {
						ID   string
						Name string
					}
				} `graphql:"labels(first: 20)"`
			}
		} `graphql:"issues(first: $perPage, after: $cursor, states: $states, orderBy: {field: CREATED_AT, direction: DESC})"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// NewGraphQLGateway creates a GraphQLGateway. endpoint overrides the GraphQL URL;
// empty means api.github.com.
func NewGraphQLGateway(httpClient *http.Client, token, endpoint string, logger *log.Logger) (*GraphQLGateway, error) {
	if token == "" {
		return nil, ErrTokenRequired
	}
	client := githubv4.NewClient(httpClient)
	if endpoint != "" {
		client = githubv4.NewEnterpriseClient(endpoint, httpClient)
	}
	return &GraphQLGateway{graphqlClient: client, logger: logger}, nil
}

func (g *GraphQLGateway) FetchRepository(ctx context.Context, ref domain.RepositoryRef) (*domain.RepositoryInfo, error) {
	g.logger.Printf("Fetching repository %s using GraphQL API...", ref)
	var q repositoryQuery
	variables := map[string]interface{}{
		"owner": githubv4.String(ref.Owner),
		"name":  githubv4.String(ref.Name),
	}
	if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
		return nil, fmt.Errorf("failed to execute GraphQL query for repository %s: %w", ref, classifyGraphQLError(err))
	}
	return &domain.RepositoryInfo{
		Name:        q.Repository.Name,
		Description: q.Repository.Description,
		Owner: domain.Account{
			Login:     q.Repository.Owner.Login,
			AvatarURL: q.Repository.Owner.AvatarURL,
		},
	}, nil
}

func (g *GraphQLGateway) FetchIssues(ctx context.Context, ref domain.RepositoryRef, q domain.IssueQuery) ([]domain.Issue, error) {
	states, err := issueStates(q.State)
	if err != nil {
		return nil, err
	}
	page := max(q.Page, 1)
	g.logger.Printf("Fetching %s issues of %s (page %d) using GraphQL API...", q.State, ref, page)

	variables := map[string]interface{}{
		"owner":   githubv4.String(ref.Owner),
		"name":    githubv4.String(ref.Name),
		"perPage": githubv4.Int(q.PerPage),
		"states":  states,
		"cursor":  (*githubv4.String)(nil),
	}
	for current := 1; ; current++ {
		var query issuesQuery
		if err := g.graphqlClient.Query(ctx, &query, variables); err != nil {
			return nil, fmt.Errorf("failed to execute GraphQL query for issues of %s: %w", ref, classifyGraphQLError(err))
		}
		issues := query.Repository.Issues
		if current == page {
			result := make([]domain.Issue, 0, len(issues.Nodes))
			for _, node := range issues.Nodes {
				labels := make([]domain.Label, 0, len(node.Labels.Nodes))
				for _, label := range node.Labels.Nodes {
					labels = append(labels, domain.Label{NodeID: label.ID, Name: label.Name})
				}
				result = append(result, domain.Issue{
					ID:      node.DatabaseID,
					Title:   node.Title,
					HTMLURL: node.URL,
					User: domain.Account{
						Login:     node.Author.Login,
						AvatarURL: node.Author.AvatarURL,
					},
					Labels: labels,
				})
			}
			return result, nil
		}
		if !issues.PageInfo.HasNextPage {
			// Past the last page, like the REST API.
			return []domain.Issue{}, nil
		}
		variables["cursor"] = githubv4.NewString(issues.PageInfo.EndCursor)
		g.logger.Println("  Skipping to next page of issues...")
	}
}

func issueStates(state string) ([]githubv4.IssueState, error) {
	switch state {
	case "all", "":
		return []githubv4.IssueState{githubv4.IssueStateOpen, githubv4.IssueStateClosed}, nil
	case "open":
		return []githubv4.IssueState{githubv4.IssueStateOpen}, nil
	case "closed":
		return []githubv4.IssueState{githubv4.IssueStateClosed}, nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrInvalidFilter, state)
}

// classifyGraphQLError recognizes the GraphQL error messages GitHub uses for
// missing repositories and exhausted rate limits.
func classifyGraphQLError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Could not resolve to a Repository"):
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case strings.Contains(msg, "API rate limit exceeded"):
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	}
	return err
}
