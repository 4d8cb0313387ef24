// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrInvalidRepository is returned when a repository identifier cannot be decoded into owner/name.
	ErrInvalidRepository = errors.New("invalid repository identifier")
	// ErrNotFound marks errors caused by GitHub answering 404.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited marks errors caused by GitHub rate limiting.
	ErrRateLimited = errors.New("rate limited")
)

// Account is the owner of a repository or the author of an issue.
type Account struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

// RepositoryInfo is a read-only snapshot of a repository's metadata.
type RepositoryInfo struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Owner       Account `json:"owner"`
}

// RepositoryRef identifies a repository on GitHub.
type RepositoryRef struct {
	Owner string
	Name  string
}

// ParseRepositoryRef decodes a URL-encoded "owner/name" path segment.
func ParseRepositoryRef(identifier string) (RepositoryRef, error) {
	decoded, err := url.PathUnescape(identifier)
	if err != nil {
		return RepositoryRef{}, fmt.Errorf("%w: %q: %v", ErrInvalidRepository, identifier, err)
	}
	owner, name, ok := strings.Cut(decoded, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return RepositoryRef{}, fmt.Errorf("%w: %q", ErrInvalidRepository, decoded)
	}
	return RepositoryRef{Owner: owner, Name: name}, nil
}

// String returns the "owner/name" form of the reference.
func (r RepositoryRef) String() string {
	return r.Owner + "/" + r.Name
}

// Escaped returns the reference as a single URL path segment, the inverse of ParseRepositoryRef.
func (r RepositoryRef) Escaped() string {
	return url.PathEscape(r.String())
}
