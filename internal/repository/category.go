package repository

import (
	"context"

	"moviecat/internal/domain"
)

// CategoryRepository is a read-mostly lookup of categories.
type CategoryRepository interface {
	Init(ctx context.Context) error
	Seed(ctx context.Context, categories []domain.Category) error
	List(ctx context.Context) ([]domain.Category, error)
	Get(ctx context.Context, id string) (*domain.Category, error)
}
