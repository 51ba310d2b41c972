package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"moviecat/internal/auth"
	"moviecat/internal/domain"
	"moviecat/internal/events"
	"moviecat/internal/repository"
	"moviecat/internal/repository/sqlite"
)

type fakeStorage struct {
	mu        sync.Mutex
	puts      []string
	deletes   []string
	deleteErr error
	// afterPut runs once an upload has been stored.
	afterPut func()
}

func (f *fakeStorage) PutFile(_ context.Context, name, _ string, body io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	f.puts = append(f.puts, name)
	if f.afterPut != nil {
		f.afterPut()
	}
	return "https://cdn.example.com/movies/" + name, nil
}

func (f *fakeStorage) DeleteFile(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, key)
	return f.deleteErr
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.MovieScheduled
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.MovieScheduled) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

type testEnv struct {
	users      repository.UserRepository
	categories repository.CategoryRepository
	movies     repository.MovieRepository
	signer     *auth.Signer
	storage    *fakeStorage
	publisher  *recordingPublisher

	userSvc  UserService
	authSvc  AuthService
	movieSvc *movieService
}

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "moviecat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		users:      sqlite.NewUserRepository(db),
		categories: sqlite.NewCategoryRepository(db),
		movies:     sqlite.NewMovieRepository(db),
		signer:     auth.NewSigner("test-secret", time.Hour),
		storage:    &fakeStorage{},
		publisher:  &recordingPublisher{},
	}
	ctx := context.Background()
	require.NoError(t, env.users.Init(ctx))
	require.NoError(t, env.categories.Init(ctx))
	require.NoError(t, env.movies.Init(ctx))
	require.NoError(t, env.categories.Seed(ctx, []domain.Category{
		{ID: "action", Name: "Action"},
		{ID: "drama", Name: "Drama"},
		{ID: "war", Name: "War"},
	}))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	env.userSvc = NewUserService(env.users, env.signer, bcrypt.MinCost)
	env.authSvc = NewAuthService(env.users, env.signer)
	env.movieSvc = NewMovieService(env.movies, env.categories, env.users, env.storage, env.publisher, logger).(*movieService)
	env.movieSvc.now = func() time.Time { return fixedNow }
	return env
}

// register creates a user and returns its id.
func (e *testEnv) register(t *testing.T, email string) string {
	t.Helper()
	token, err := e.userSvc.Register(context.Background(), RegisterInput{
		Username: "user",
		Email:    email,
		Password: "password123",
	})
	require.NoError(t, err)
	claims, err := e.signer.Parse(token)
	require.NoError(t, err)
	return claims.UserID()
}

func (e *testEnv) createMovie(t *testing.T, ownerID, title, releaseDate string, categoryIDs ...string) *domain.Movie {
	t.Helper()
	if len(categoryIDs) == 0 {
		categoryIDs = []string{"action"}
	}
	movie, err := e.movieSvc.Create(context.Background(), ownerID, CreateMovieInput{
		Title:         title,
		OriginalTitle: title,
		ReleaseDate:   releaseDate,
		CategoryIDs:   categoryIDs,
	})
	require.NoError(t, err)
	return movie
}

func requireValidation(t *testing.T, err error, fields ...string) {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
	for _, f := range fields {
		require.Contains(t, verr.Fields, f)
	}
}

func ptr[T any](v T) *T { return &v }
