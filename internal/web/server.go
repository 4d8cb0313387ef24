package web

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/naka-gawa/repo-issues/internal/domain"
	"github.com/naka-gawa/repo-issues/internal/gateway"
	"github.com/naka-gawa/repo-issues/internal/usecase"
)

// Server renders repository views fetched through a gateway.Fetcher.
type Server struct {
	fetcher  gateway.Fetcher
	renderer *Renderer
	limiter  *RateLimiter
	logger   *log.Logger
}

// NewServer creates a Server. A nil limiter disables rate limiting.
func NewServer(fetcher gateway.Fetcher, renderer *Renderer, limiter *RateLimiter, logger *log.Logger) *Server {
	return &Server{
		fetcher:  fetcher,
		renderer: renderer,
		limiter:  limiter,
		logger:   logger,
	}
}

// Handler returns the routed and wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /go", s.handleGo)
	mux.HandleFunc("GET /repository/{repository}", s.handleRepository)
	mux.HandleFunc("GET /repository/{repository}/issues", s.handleIssues)
	return s.withLog(s.withRateLimit(mux))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.renderer.Index(&buf); err != nil {
		s.fail(w, r, err)
		return
	}
	s.write(w, http.StatusOK, &buf)
}

// handleGo turns the index form's owner/name into the repository path.
func (s *Server) handleGo(w http.ResponseWriter, r *http.Request) {
	ref, err := domain.ParseRepositoryRef(r.URL.Query().Get("repository"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, RepositoryPath(ref), http.StatusSeeOther)
}

func (s *Server) handleRepository(w http.ResponseWriter, r *http.Request) {
	view, err := s.newView(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := view.Initialize(r.Context(), identifier(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := s.renderer.Page(&buf, PageModel{Ref: view.Ref(), State: view.State()}); err != nil {
		s.fail(w, r, err)
		return
	}
	s.write(w, http.StatusOK, &buf)
}

func (s *Server) handleIssues(w http.ResponseWriter, r *http.Request) {
	view, err := s.newView(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := view.Attach(identifier(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := view.RefreshIssues(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := s.renderer.Issues(&buf, PageModel{Ref: view.Ref(), State: view.State()}); err != nil {
		s.fail(w, r, err)
		return
	}
	s.write(w, http.StatusOK, &buf)
}

// identifier re-escapes the decoded path value into the URL-encoded owner/name segment.
func identifier(r *http.Request) string {
	return url.PathEscape(r.PathValue("repository"))
}

// newView restores filter and page from the query string.
func (s *Server) newView(r *http.Request) (*usecase.RepositoryView, error) {
	opts, err := ViewOptions(r.URL.Query())
	if err != nil {
		return nil, err
	}
	return usecase.NewRepositoryView(s.fetcher, s.logger, opts...)
}

// ViewOptions reads the filter (index or value) and page parameters.
func ViewOptions(q url.Values) ([]usecase.Option, error) {
	var opts []usecase.Option
	if f := q.Get("filter"); f != "" {
		i, err := strconv.Atoi(f)
		if err != nil {
			if i, err = domain.FilterIndex(f); err != nil {
				return nil, err
			}
		}
		opts = append(opts, usecase.WithFilter(i))
	}
	if p := q.Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, errors.Join(domain.ErrInvalidPage, err)
		}
		opts = append(opts, usecase.WithPage(n))
	}
	return opts, nil
}

// StatusCode maps an error to the HTTP status reported to the client.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRepository),
		errors.Is(err, domain.ErrInvalidFilter),
		errors.Is(err, domain.ErrInvalidPage):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusCode(err)
	s.logger.Printf("%s %s failed: %v", r.Method, r.URL.Path, err)
	var buf bytes.Buffer
	if rerr := s.renderer.Error(&buf, ErrorModel{Code: code, Message: err.Error()}); rerr != nil {
		s.logger.Printf("Failed to render error page: %v", rerr)
		http.Error(w, http.StatusText(code), code)
		return
	}
	s.write(w, code, &buf)
}

func (s *Server) write(w http.ResponseWriter, code int, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Printf("Failed to write response: %v", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (s *Server) withLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Printf("%s %s %d %s", r.Method, r.URL.RequestURI(), rec.status, time.Since(start).Round(time.Millisecond))
	})
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(s.limiter.ClientIP(r)) {
			var buf bytes.Buffer
			code := http.StatusTooManyRequests
			if err := s.renderer.Error(&buf, ErrorModel{Code: code, Message: "Too many requests, slow down."}); err != nil {
				http.Error(w, http.StatusText(code), code)
				return
			}
			s.write(w, code, &buf)
			return
		}
		next.ServeHTTP(w, r)
	})
}
