// Package events carries domain events from the services that emit them to
// the consumers that act on them.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrClosed is returned by Publish once the publisher has shut down.
var ErrClosed = errors.New("event publisher closed")

// MovieScheduled is emitted after a movie with a future release date is
// committed. It carries everything the consumer needs to notify the owner
// without querying the store.
type MovieScheduled struct {
	MovieID     string    `json:"movie_id"`
	Title       string    `json:"title"`
	ReleaseDate string    `json:"release_date"`
	OwnerID     string    `json:"owner_id"`
	OwnerEmail  string    `json:"owner_email"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher hands events to a transport.
type Publisher interface {
	Publish(ctx context.Context, event MovieScheduled) error
}

// Handler consumes a single event.
type Handler func(ctx context.Context, event MovieScheduled) error

func decodeMovieScheduled(body []byte) (MovieScheduled, error) {
	var ev MovieScheduled
	if err := json.Unmarshal(body, &ev); err != nil {
		return MovieScheduled{}, fmt.Errorf("unmarshal movie scheduled: %w", err)
	}
	if ev.MovieID == "" || ev.OwnerEmail == "" {
		return MovieScheduled{}, fmt.Errorf("movie scheduled event missing movie id or owner email")
	}
	return ev, nil
}
