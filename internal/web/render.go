// Package web serves the repository view as server-rendered HTML.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/naka-gawa/repo-issues/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageModel is what the repository templates render.
type PageModel struct {
	Ref   domain.RepositoryRef
	State domain.ViewState
}

// FilterHref links to the view with filter i selected.
func (m PageModel) FilterHref(i int) string {
	s, err := m.State.SelectFilter(i)
	if err != nil {
		return m.href(m.State)
	}
	return m.href(s)
}

// PrevHref links to the previous page.
func (m PageModel) PrevHref() string {
	s, _ := m.State.ChangePage(domain.Back)
	return m.href(s)
}

// NextHref links to the next page.
func (m PageModel) NextHref() string {
	s, _ := m.State.ChangePage(domain.Next)
	return m.href(s)
}

func (m PageModel) href(s domain.ViewState) string {
	q := url.Values{}
	q.Set("filter", strconv.Itoa(s.SelectedFilter))
	q.Set("page", strconv.Itoa(s.Page))
	return RepositoryPath(m.Ref) + "?" + q.Encode()
}

// RepositoryPath is the path of the repository page.
func RepositoryPath(ref domain.RepositoryRef) string {
	return "/repository/" + ref.Escaped()
}

// ErrorModel is what the error template renders.
type ErrorModel struct {
	Code    int
	Message string
}

// Status is the reason phrase of Code.
func (m ErrorModel) Status() string {
	return http.StatusText(m.Code)
}

// Renderer executes the embedded templates.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every page template together with the shared layout.
func NewRenderer() (*Renderer, error) {
	pages := make(map[string]*template.Template)
	for _, name := range []string{"index", "repository", "error"} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/issues.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{pages: pages}, nil
}

// Page renders the full repository document.
func (r *Renderer) Page(w io.Writer, m PageModel) error {
	return r.pages["repository"].ExecuteTemplate(w, "layout", m)
}

// Fragment renders the repository view without the surrounding document.
func (r *Renderer) Fragment(w io.Writer, m PageModel) error {
	return r.pages["repository"].ExecuteTemplate(w, "content", m)
}

// Issues renders only the filter bar, the issue list and the pager.
func (r *Renderer) Issues(w io.Writer, m PageModel) error {
	return r.pages["repository"].ExecuteTemplate(w, "issues", m)
}

// Index renders the repository picker.
func (r *Renderer) Index(w io.Writer) error {
	return r.pages["index"].ExecuteTemplate(w, "layout", nil)
}

// Error renders an error document.
func (r *Renderer) Error(w io.Writer, m ErrorModel) error {
	return r.pages["error"].ExecuteTemplate(w, "layout", m)
}
