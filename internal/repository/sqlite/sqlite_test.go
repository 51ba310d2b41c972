package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"moviecat/internal/domain"
	"moviecat/internal/repository"
)

type testStore struct {
	db         *sql.DB
	users      repository.UserRepository
	categories repository.CategoryRepository
	movies     repository.MovieRepository
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "moviecat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := &testStore{
		db:         db,
		users:      NewUserRepository(db),
		categories: NewCategoryRepository(db),
		movies:     NewMovieRepository(db),
	}
	ctx := context.Background()
	require.NoError(t, s.users.Init(ctx))
	require.NoError(t, s.categories.Init(ctx))
	require.NoError(t, s.movies.Init(ctx))
	return s
}

func (s *testStore) user(t *testing.T, email string) *domain.User {
	t.Helper()
	u := &domain.User{Username: email, Email: email, PasswordHash: "x", Role: domain.RoleUser}
	require.NoError(t, s.users.Create(context.Background(), u))
	return u
}

func (s *testStore) category(t *testing.T, id, name string) domain.Category {
	t.Helper()
	c := domain.Category{ID: id, Name: name}
	require.NoError(t, s.categories.Seed(context.Background(), []domain.Category{c}))
	got, err := s.categories.Get(context.Background(), id)
	require.NoError(t, err)
	return *got
}

func (s *testStore) movie(t *testing.T, owner string, title string, mutate func(*domain.Movie), categories ...domain.Category) *domain.Movie {
	t.Helper()
	m := &domain.Movie{
		Title:         title,
		OriginalTitle: title,
		ReleaseDate:   "2024-05-01",
		UserID:        owner,
		Categories:    categories,
	}
	if mutate != nil {
		mutate(m)
	}
	require.NoError(t, s.movies.Create(context.Background(), m))
	return m
}

func ptr[T any](v T) *T { return &v }
