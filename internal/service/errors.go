package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"moviecat/internal/repository"
)

var (
	// ErrNotFound covers missing rows and rows owned by someone else.
	ErrNotFound = repository.ErrNotFound
	// ErrConflict is returned when a unique field is already taken.
	ErrConflict = repository.ErrConflict
	// ErrForbidden indicates the caller is authenticated but may not act on the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated is returned for missing, malformed or expired tokens.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ValidationError lists the rejected input fields with a message for each.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s %s", name, e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

// orNil returns e as an error, or a nil interface when nothing was rejected.
func (e *ValidationError) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}
