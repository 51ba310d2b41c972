package storage

import (
	"context"
	"io"
	"net/url"
	"path"
	"strings"
)

// Service stores movie images in remote object storage.
type Service interface {
	// PutFile uploads body under a key derived from name and returns its public URL.
	PutFile(ctx context.Context, name, contentType string, body io.Reader) (string, error)
	DeleteFile(ctx context.Context, key string) error
}

// KeyFromURL derives the object key from an image URL: its last path segment.
func KeyFromURL(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		p = u.Path
	}
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	key := path.Base(p)
	if unescaped, err := url.PathUnescape(key); err == nil {
		key = unescaped
	}
	return key
}
