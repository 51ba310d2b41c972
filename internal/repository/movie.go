package repository

import (
	"context"

	"moviecat/internal/domain"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// MovieFilter narrows a movie listing. Zero values mean "no constraint".
type MovieFilter struct {
	// Search matches title, original title or any category name.
	Search      string
	CategoryID  string
	MinDuration *int
	MaxDuration *int
	// StartDate and EndDate are inclusive YYYY-MM-DD bounds on the release date.
	StartDate *string
	EndDate   *string
}

// MovieQuery is a paginated listing of one owner's movies.
type MovieQuery struct {
	OwnerID string
	Page    int
	Limit   int
	Filter  MovieFilter
}

// Normalize fills in default paging values.
func (q MovieQuery) Normalize() MovieQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	return q
}

// Offset is the number of rows skipped before the current page.
func (q MovieQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Page is one slice of a listing plus the total row count.
type Page[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// NewPage computes TotalPages as ceil(total/limit).
func NewPage[T any](data []T, total, page, limit int) Page[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Page[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}

// MovieRepository exposes persistence operations for Movie aggregates.
type MovieRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, movie *domain.Movie) error
	Get(ctx context.Context, id string) (*domain.Movie, error)
	List(ctx context.Context, q MovieQuery) (Page[domain.Movie], error)
	// Update writes every movie column. When replaceCategories is true the
	// category links are replaced wholesale by movie.Categories.
	Update(ctx context.Context, movie *domain.Movie, replaceCategories bool) error
	Delete(ctx context.Context, id, ownerID string) error
	SetImageURL(ctx context.Context, id string, imageURL *string) error
	ListReleasingOn(ctx context.Context, day string) ([]ReleasingMovie, error)
	MarkReleaseNotified(ctx context.Context, id, day string) error
}

// ReleasingMovie pairs a movie with its owner's address for notifications.
type ReleasingMovie struct {
	Movie      domain.Movie
	OwnerEmail string
}
