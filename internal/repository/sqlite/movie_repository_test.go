package sqlite

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviecat/internal/domain"
	"moviecat/internal/repository"
)

func titles(movies []domain.Movie) []string {
	out := make([]string, len(movies))
	for i := range movies {
		out[i] = movies[i].Title
	}
	return out
}

func TestMovieRepositoryCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := s.user(t, "a@example.com")
	drama := s.category(t, "drama", "Drama")
	scifi := s.category(t, "scifi", "Sci-Fi")

	m := s.movie(t, owner.ID, "Arrival", func(m *domain.Movie) {
		m.Description = ptr("Linguist meets heptapods")
		m.Duration = ptr(116)
		m.Rating = ptr(7.9)
		m.Budget = ptr(int64(47000000))
	}, drama, scifi)

	got, err := s.movies.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Arrival", got.Title)
	assert.Equal(t, "2024-05-01", got.ReleaseDate)
	assert.Equal(t, 116, *got.Duration)
	assert.InDelta(t, 7.9, *got.Rating, 0.0001)
	assert.Equal(t, int64(47000000), *got.Budget)
	assert.Nil(t, got.Studio)
	assert.Nil(t, got.ImageURL)
	assert.ElementsMatch(t, []string{"drama", "scifi"}, got.CategoryIDs())

	_, err = s.movies.Get(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMovieRepositoryCreateRejectsUnknownCategory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := s.user(t, "a@example.com")

	m := &domain.Movie{
		Title:         "Ghost",
		OriginalTitle: "Ghost",
		ReleaseDate:   "2024-01-01",
		UserID:        owner.ID,
		Categories:    []domain.Category{{ID: "does-not-exist"}},
	}
	require.Error(t, s.movies.Create(ctx, m))

	page, err := s.movies.List(ctx, repository.MovieQuery{OwnerID: owner.ID})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestMovieRepositoryListScopedToOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := s.user(t, "alice@example.com")
	bob := s.user(t, "bob@example.com")

	s.movie(t, alice.ID, "Alice One", nil)
	s.movie(t, alice.ID, "Alice Two", nil)
	s.movie(t, bob.ID, "Bob One", nil)

	page, err := s.movies.List(ctx, repository.MovieQuery{OwnerID: bob.ID, Filter: repository.MovieFilter{Search: "alice"}})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Empty(t, page.Data)

	page, err = s.movies.List(ctx, repository.MovieQuery{OwnerID: alice.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, []string{"Alice Two", "Alice One"}, titles(page.Data))
}

func TestMovieRepositoryListPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := s.user(t, "p@example.com")
	for i := 1; i <= 7; i++ {
		s.movie(t, owner.ID, fmt.Sprintf("Movie %d", i), nil)
	}

	tests := []struct {
		page, limit   int
		wantLen       int
		wantPages     int
		wantFirst     string
		wantPageLimit int
	}{
		{page: 1, limit: 3, wantLen: 3, wantPages: 3, wantFirst: "Movie 7", wantPageLimit: 3},
		{page: 3, limit: 3, wantLen: 1, wantPages: 3, wantFirst: "Movie 1", wantPageLimit: 3},
		{page: 4, limit: 3, wantLen: 0, wantPages: 3, wantPageLimit: 3},
		{page: 1, limit: 7, wantLen: 7, wantPages: 1, wantFirst: "Movie 7", wantPageLimit: 7},
		{page: 0, limit: 0, wantLen: 7, wantPages: 1, wantFirst: "Movie 7", wantPageLimit: 10},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("page=%d,limit=%d", tt.page, tt.limit), func(t *testing.T) {
			page, err := s.movies.List(ctx, repository.MovieQuery{OwnerID: owner.ID, Page: tt.page, Limit: tt.limit})
			require.NoError(t, err)
			assert.Len(t, page.Data, tt.wantLen)
			assert.LessOrEqual(t, len(page.Data), page.Limit)
			assert.Equal(t, 7, page.Total)
			assert.Equal(t, tt.wantPages, page.TotalPages)
			assert.Equal(t, tt.wantPageLimit, page.Limit)
			if tt.wantFirst != "" {
				assert.Equal(t, tt.wantFirst, page.Data[0].Title)
			}
		})
	}
}

func TestMovieRepositoryListSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := s.user(t, "s@example.com")
	war := s.category(t, "war", "War")
	comedy := s.category(t, "comedy", "Comedy")

	s.movie(t, owner.ID, "Star Wars", nil, comedy)
	s.movie(t, owner.ID, "Estrelas", func(m *domain.Movie) { m.OriginalTitle = "Wars of Stars" }, comedy)
	s.movie(t, owner.ID, "Dunkirk", nil, war)
	s.movie(t, owner.ID, "Paddington", nil, comedy)
	s.movie(t, owner.ID, "100% Pure", nil, comedy)

	page, err := s.movies.List(ctx, repository.MovieQuery{OwnerID: owner.ID, Filter: repository.MovieFilter{Search: "WAR"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Star Wars", "Estrelas", "Dunkirk"}, titles(page.Data))
	assert.Equal(t, 3, page.Total)

	page, err = s.movies.List(ctx, repository.MovieQuery{OwnerID: owner.ID, Filter: repository.MovieFilter{Search: "wars"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Star Wars", "Estrelas"}, titles(page.Data))

	page, err = s.movies.List(ctx, repository.MovieQuery{OwnerID: owner.ID, Filter: repository.MovieFilter{Search: "0%"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"100% Pure"}, titles(page.Data))

	page, err = s.movies.List(ctx, repository.MovieQuery{OwnerID: owner.ID, Filter: repository.MovieFilter{Search: "war", CategoryID: "comedy"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Star Wars", "Estrelas"}, titles(page.Data))
}

func TestMovieRepositoryListSearchFoldsUnicode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := s.user(t, "u@example.com")
	drama := s.category(t, "drama", "Ópera")

	s.movie(t, owner.ID, "Élite", nil, drama)
	s.movie(t, owner.ID, "Ödön", func(m *domain.Movie) { m.OriginalTitle = "ÄRGER IM PARADIES" }, drama)
	s.movie(t, owner.ID, "Amélie", nil)

	search := func(q string) []string {
		page, err := s.movies.List(ctx, repository.MovieQuery{OwnerID: owner.ID, Filter: repository.MovieFilter{Search: q}})
		require.NoError(t, err)
		return titles(page.Data)
	}

	assert.Equal(t, []string{"Élite"}, search("Élite"))
	assert.Equal(t, []string{"Élite"}, search("élite"))
	assert.Equal(t, []string{"Élite"}, search("ÉLITE"))
	assert.Equal(t, []string{"Ödön"}, search("ärger"))
	assert.ElementsMatch(t, []string{"Élite", "Ödön"}, search("ópera"))
	assert.ElementsMatch(t, []string{"Élite", "Amélie"}, search("É"))
}

func TestMovieRepositoryListCategoryDurationAndDates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := s.user(t, "f@example.com")
	drama := s.category(t, "drama", "Drama")
	horror := s.category(t, "horror", "Horror")

	s.movie(t, owner.ID, "Short", func(m *domain.Movie) { m.Duration = ptr(89); m.ReleaseDate = "2023-12-31" }, drama)
	s.movie(t, owner.ID, "Middle", func(m *domain.Movie) { m.Duration = ptr(100); m.ReleaseDate = "2024-01-01" }, drama, horror)
	s.movie(t, owner.ID, "Edge", func(m *domain.Movie) { m.Duration = ptr(120); m.ReleaseDate = "2024-06-30" }, horror)
	s.movie(t, owner.ID, "Long", func(m *domain.Movie) { m.Duration = ptr(121); m.ReleaseDate = "2024-07-01" }, drama)
	s.movie(t, owner.ID, "Unknown", nil, drama)

	list := func(f repository.MovieFilter) []string {
		page, err := s.movies.List(ctx, repository.MovieQuery{OwnerID: owner.ID, Limit: 50, Filter: f})
		require.NoError(t, err)
		return titles(page.Data)
	}

	assert.ElementsMatch(t, []string{"Middle", "Edge"}, list(repository.MovieFilter{MinDuration: ptr(90), MaxDuration: ptr(120)}))
	assert.ElementsMatch(t, []string{"Edge", "Long"}, list(repository.MovieFilter{MinDuration: ptr(120)}))
	assert.ElementsMatch(t, []string{"Short"}, list(repository.MovieFilter{MaxDuration: ptr(89)}))
	assert.Len(t, list(repository.MovieFilter{MinDuration: ptr(0)}), 5)
	assert.Len(t, list(repository.MovieFilter{MinDuration: ptr(0), MaxDuration: ptr(0)}), 5)
	assert.ElementsMatch(t, []string{"Middle", "Edge"}, list(repository.MovieFilter{CategoryID: "horror"}))
	assert.ElementsMatch(t, []string{"Middle", "Edge"}, list(repository.MovieFilter{StartDate: ptr("2024-01-01"), EndDate: ptr("2024-06-30")}))
	assert.ElementsMatch(t, []string{"Short"}, list(repository.MovieFilter{EndDate: ptr("2023-12-31")}))
	assert.ElementsMatch(t, []string{"Middle"}, list(repository.MovieFilter{CategoryID: "drama", MinDuration: ptr(90), StartDate: ptr("2024-01-01"), EndDate: ptr("2024-06-30")}))
}

func TestMovieRepositoryUpdateCategories(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := s.user(t, "u@example.com")
	a := s.category(t, "a", "Alpha")
	b := s.category(t, "b", "Beta")
	c := s.category(t, "c", "Gamma")

	m := s.movie(t, owner.ID, "Before", nil, a, b)

	m.Title = "After"
	m.Categories = nil
	require.NoError(t, s.movies.Update(ctx, m, false))
	got, err := s.movies.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "After", got.Title)
	assert.ElementsMatch(t, []string{"a", "b"}, got.CategoryIDs())

	got.Categories = []domain.Category{c}
	require.NoError(t, s.movies.Update(ctx, got, true))
	got, err = s.movies.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, got.CategoryIDs())

	missing := &domain.Movie{ID: "nope", Title: "x", OriginalTitle: "x", ReleaseDate: "2024-01-01"}
	assert.ErrorIs(t, s.movies.Update(ctx, missing, false), repository.ErrNotFound)
}

func TestMovieRepositoryDeleteScopedToOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := s.user(t, "alice@example.com")
	bob := s.user(t, "bob@example.com")
	m := s.movie(t, alice.ID, "Mine", nil)

	assert.ErrorIs(t, s.movies.Delete(ctx, m.ID, bob.ID), repository.ErrNotFound)
	_, err := s.movies.Get(ctx, m.ID)
	require.NoError(t, err)

	require.NoError(t, s.movies.Delete(ctx, m.ID, alice.ID))
	_, err = s.movies.Get(ctx, m.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMovieRepositoryImageURL(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := s.user(t, "i@example.com")
	m := s.movie(t, owner.ID, "Poster", nil)

	require.NoError(t, s.movies.SetImageURL(ctx, m.ID, ptr("https://cdn.example.com/posters/1-a.png")))
	got, err := s.movies.Get(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ImageURL)
	assert.Equal(t, "https://cdn.example.com/posters/1-a.png", *got.ImageURL)

	require.NoError(t, s.movies.SetImageURL(ctx, m.ID, nil))
	got, err = s.movies.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ImageURL)
}

func TestMovieRepositoryReleaseNotifications(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := s.user(t, "rel@example.com")

	today := s.movie(t, owner.ID, "Today", func(m *domain.Movie) { m.ReleaseDate = "2025-03-10" })
	s.movie(t, owner.ID, "Tomorrow", func(m *domain.Movie) { m.ReleaseDate = "2025-03-11" })

	releasing, err := s.movies.ListReleasingOn(ctx, "2025-03-10")
	require.NoError(t, err)
	require.Len(t, releasing, 1)
	assert.Equal(t, "Today", releasing[0].Movie.Title)
	assert.Equal(t, "rel@example.com", releasing[0].OwnerEmail)
	assert.Nil(t, releasing[0].Movie.ReleaseNotifiedOn)

	require.NoError(t, s.movies.MarkReleaseNotified(ctx, today.ID, "2025-03-10"))
	got, err := s.movies.Get(ctx, today.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ReleaseNotifiedOn)
	assert.Equal(t, "2025-03-10", *got.ReleaseNotifiedOn)

	got.Title = "Today (renamed)"
	require.NoError(t, s.movies.Update(ctx, got, false))
	got, err = s.movies.Get(ctx, today.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.ReleaseNotifiedOn, "mark kept while release date is unchanged")

	got.ReleaseDate = "2025-04-01"
	require.NoError(t, s.movies.Update(ctx, got, false))
	got, err = s.movies.Get(ctx, today.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ReleaseNotifiedOn, "mark cleared when release date moves")
}
