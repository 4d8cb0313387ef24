package domain

// IssuesPerPage is the fixed page size of every issues request.
const IssuesPerPage = 5

// Label is a label attached to an issue.
// NodeID is the GraphQL global ID; the REST API fills both IDs.
type Label struct {
	ID     int64  `json:"id"`
	NodeID string `json:"node_id,omitempty"`
	Name   string `json:"name"`
}

// Issue is a read-only snapshot of a single issue. A fetch replaces the whole list.
type Issue struct {
	ID      int64   `json:"id"`
	Title   string  `json:"title"`
	HTMLURL string  `json:"html_url"`
	User    Account `json:"user"`
	Labels  []Label `json:"labels"`
}

// IssueQuery describes one issues request.
type IssueQuery struct {
	State   string
	PerPage int
	// Page is 1-based. Zero leaves the page to the server default (the first page).
	Page int
}
