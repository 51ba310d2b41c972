package notify

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviecat/internal/domain"
	"moviecat/internal/events"
	"moviecat/internal/mail"
	"moviecat/internal/repository"
	"moviecat/internal/repository/sqlite"
)

type fakeSender struct {
	mu     sync.Mutex
	sent   []mail.Message
	failTo map[string]bool
}

func (f *fakeSender) Send(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTo[msg.To] {
		return errors.New("mailbox unavailable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fixture struct {
	users  repository.UserRepository
	movies repository.MovieRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "moviecat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{users: sqlite.NewUserRepository(db), movies: sqlite.NewMovieRepository(db)}
	categories := sqlite.NewCategoryRepository(db)
	ctx := context.Background()
	require.NoError(t, f.users.Init(ctx))
	require.NoError(t, categories.Init(ctx))
	require.NoError(t, f.movies.Init(ctx))
	require.NoError(t, categories.Seed(ctx, []domain.Category{{ID: "drama", Name: "Drama"}}))
	return f
}

func (f *fixture) owner(t *testing.T, email string) string {
	t.Helper()
	u := &domain.User{Username: email, Email: email, PasswordHash: "x", Role: domain.RoleUser}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u.ID
}

func (f *fixture) movie(t *testing.T, owner, title, releaseDate string) string {
	t.Helper()
	m := &domain.Movie{
		Title:         title,
		OriginalTitle: title,
		ReleaseDate:   releaseDate,
		UserID:        owner,
		Categories:    []domain.Category{{ID: "drama"}},
	}
	require.NoError(t, f.movies.Create(context.Background(), m))
	return m.ID
}

func TestNotifierSendsScheduledNotice(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, quietLogger())

	err := n.HandleMovieScheduled(context.Background(), events.MovieScheduled{
		MovieID:     "m1",
		Title:       "Dune: Part Three",
		ReleaseDate: "2026-12-18",
		OwnerEmail:  "owner@example.com",
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "owner@example.com", sender.sent[0].To)
	assert.Equal(t, "Movie scheduled", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].Text, "Dune: Part Three")
	assert.Contains(t, sender.sent[0].Text, "2026-12-18")

	sender.failTo = map[string]bool{"owner@example.com": true}
	assert.Error(t, n.HandleMovieScheduled(context.Background(), events.MovieScheduled{MovieID: "m2", OwnerEmail: "owner@example.com"}))
}

func TestReleaseJobRun(t *testing.T) {
	f := newFixture(t)
	alice := f.owner(t, "alice@example.com")
	bob := f.owner(t, "bob@example.com")

	f.movie(t, alice, "Opening Night", "2025-03-10")
	f.movie(t, bob, "Bounced", "2025-03-10")
	f.movie(t, alice, "Next Week", "2025-03-17")

	sender := &fakeSender{failTo: map[string]bool{"bob@example.com": true}}
	loc := time.FixedZone("UTC-3", -3*60*60)
	job, err := NewReleaseJob(f.movies, sender, quietLogger(), "", loc)
	require.NoError(t, err)
	// 01:30 UTC on the 11th is still the 10th three hours west
	job.now = func() time.Time { return time.Date(2025, 3, 11, 1, 30, 0, 0, time.UTC) }

	summary, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReleaseSummary{Sent: 1, Failed: 1}, summary)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "alice@example.com", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Text, "Opening Night")

	// second run the same day only retries the failed send
	sender.failTo = nil
	summary, err = job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReleaseSummary{Sent: 1, Skipped: 1}, summary)
	require.Len(t, sender.sent, 2)
	assert.Equal(t, "bob@example.com", sender.sent[1].To)
}

func TestReleaseJobStopsOnCancelledContext(t *testing.T) {
	f := newFixture(t)
	owner := f.owner(t, "owner@example.com")
	f.movie(t, owner, "Cancelled", "2025-03-10")

	sender := &fakeSender{}
	job, err := NewReleaseJob(f.movies, sender, quietLogger(), DefaultReleaseSpec, time.UTC)
	require.NoError(t, err)
	job.now = func() time.Time { return time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC) }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = job.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sender.sent)
}

func TestReleaseJobSchedule(t *testing.T) {
	f := newFixture(t)

	_, err := NewReleaseJob(f.movies, &fakeSender{}, quietLogger(), "not a cron", time.UTC)
	assert.Error(t, err)

	job, err := NewReleaseJob(f.movies, &fakeSender{}, quietLogger(), "30 7 * * *", time.UTC)
	require.NoError(t, err)
	require.NoError(t, job.Start(context.Background()))
	require.NoError(t, job.Start(context.Background()))

	entries := job.cron.Entries()
	require.Len(t, entries, 1)
	next := entries[0].Next
	assert.Equal(t, 7, next.Hour())
	assert.Equal(t, 30, next.Minute())

	job.Stop()
	job.Stop()
	assert.Nil(t, job.cron)
}
