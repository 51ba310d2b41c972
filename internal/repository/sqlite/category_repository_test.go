package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviecat/internal/domain"
	"moviecat/internal/repository"
)

func TestCategoryRepositorySeedIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seed := []domain.Category{
		{Name: "Drama", Description: "Serious stories"},
		{Name: "Action", Description: "Explosions"},
	}
	require.NoError(t, s.categories.Seed(ctx, seed))
	first, err := s.categories.List(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "Action", first[0].Name)

	require.NoError(t, s.categories.Seed(ctx, seed))
	second, err := s.categories.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCategoryRepositoryGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := s.category(t, "cat-1", "Comedy")
	assert.Equal(t, "Comedy", c.Name)

	_, err := s.categories.Get(ctx, "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
