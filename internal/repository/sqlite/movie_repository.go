package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"moviecat/internal/domain"
	"moviecat/internal/repository"
)

const createMoviesTable = `
CREATE TABLE IF NOT EXISTS movies (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	original_title TEXT NOT NULL,
	description TEXT NULL,
	release_date TEXT NOT NULL,
	recommended_age INTEGER NULL,
	budget INTEGER NULL,
	box_office INTEGER NULL,
	studio TEXT NULL,
	duration INTEGER NULL,
	rating REAL NULL,
	image_url TEXT NULL,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	release_notified_on TEXT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_movies_user_created ON movies(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_movies_release_date ON movies(release_date);
CREATE TABLE IF NOT EXISTS movie_categories (
	movie_id TEXT NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
	category_id TEXT NOT NULL REFERENCES categories(id),
	PRIMARY KEY (movie_id, category_id)
);
CREATE INDEX IF NOT EXISTS idx_movie_categories_category ON movie_categories(category_id);
`

const movieColumns = `m.id, m.title, m.original_title, m.description, m.release_date, m.recommended_age, m.budget, m.box_office, m.studio, m.duration, m.rating, m.image_url, m.user_id, m.release_notified_on, m.created_at, m.updated_at`

type MovieRepository struct {
	db *sql.DB
}

func NewMovieRepository(db *sql.DB) repository.MovieRepository {
	return &MovieRepository{db: db}
}

// Init creates the movie tables. Users and categories must exist first.
func (r *MovieRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createMoviesTable); err != nil {
		return fmt.Errorf("create movies table: %w", err)
	}
	return nil
}

func (r *MovieRepository) Create(ctx context.Context, movie *domain.Movie) error {
	now := time.Now().UTC()
	if movie.ID == "" {
		movie.ID = uuid.NewString()
	}
	movie.CreatedAt = now
	movie.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO movies (id, title, original_title, description, release_date, recommended_age, budget, box_office, studio, duration, rating, image_url, user_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		movie.ID,
		movie.Title,
		movie.OriginalTitle,
		nullString(movie.Description),
		movie.ReleaseDate,
		nullInt(movie.RecommendedAge),
		nullInt64(movie.Budget),
		nullInt64(movie.BoxOffice),
		nullString(movie.Studio),
		nullInt(movie.Duration),
		nullFloat(movie.Rating),
		nullString(movie.ImageURL),
		movie.UserID,
		movie.CreatedAt,
		movie.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert movie: %w", err)
	}

	if err := insertMovieCategories(ctx, tx, movie.ID, movie.Categories); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit movie insert: %w", err)
	}
	return nil
}

func (r *MovieRepository) Get(ctx context.Context, id string) (*domain.Movie, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies m WHERE m.id = ?`, id)
	movie, err := scanMovie(row)
	if err != nil {
		return nil, err
	}

	byMovie, err := loadCategories(ctx, r.db, []string{movie.ID})
	if err != nil {
		return nil, err
	}
	movie.Categories = byMovie[movie.ID]
	return movie, nil
}

func (r *MovieRepository) List(ctx context.Context, q repository.MovieQuery) (repository.Page[domain.Movie], error) {
	q = q.Normalize()
	where := buildMovieWhere(q)

	var total int
	countSQL := `SELECT COUNT(*) FROM movies m WHERE ` + where.clause
	if err := r.db.QueryRowContext(ctx, countSQL, where.args...).Scan(&total); err != nil {
		return repository.Page[domain.Movie]{}, fmt.Errorf("count movies: %w", err)
	}

	dataSQL := `SELECT ` + movieColumns + `
FROM movies m
WHERE ` + where.clause + `
ORDER BY m.created_at DESC, m.seq DESC
LIMIT ? OFFSET ?`
	args := append(append([]any{}, where.args...), q.Limit, q.Offset())

	rows, err := r.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return repository.Page[domain.Movie]{}, fmt.Errorf("query movies: %w", err)
	}
	defer rows.Close()

	movies := make([]domain.Movie, 0, q.Limit)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return repository.Page[domain.Movie]{}, err
		}
		movies = append(movies, *movie)
	}
	if err := rows.Err(); err != nil {
		return repository.Page[domain.Movie]{}, fmt.Errorf("iterate movies: %w", err)
	}
	rows.Close()

	ids := make([]string, len(movies))
	for i := range movies {
		ids[i] = movies[i].ID
	}
	byMovie, err := loadCategories(ctx, r.db, ids)
	if err != nil {
		return repository.Page[domain.Movie]{}, err
	}
	for i := range movies {
		movies[i].Categories = byMovie[movies[i].ID]
	}

	return repository.NewPage(movies, total, q.Page, q.Limit), nil
}

func (r *MovieRepository) Update(ctx context.Context, movie *domain.Movie, replaceCategories bool) error {
	movie.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// SET expressions see the old row, so the notification mark survives
	// only when the release date is unchanged.
	res, err := tx.ExecContext(ctx, `
UPDATE movies
SET title=?, original_title=?, description=?,
	release_notified_on=CASE WHEN release_date = ? THEN release_notified_on ELSE NULL END,
	release_date=?, recommended_age=?, budget=?, box_office=?, studio=?, duration=?, rating=?, updated_at=?
WHERE id=?`,
		movie.Title,
		movie.OriginalTitle,
		nullString(movie.Description),
		movie.ReleaseDate,
		movie.ReleaseDate,
		nullInt(movie.RecommendedAge),
		nullInt64(movie.Budget),
		nullInt64(movie.BoxOffice),
		nullString(movie.Studio),
		nullInt(movie.Duration),
		nullFloat(movie.Rating),
		movie.UpdatedAt,
		movie.ID,
	)
	if err != nil {
		return fmt.Errorf("update movie: %w", err)
	}
	if err := requireAffected(res, "movie"); err != nil {
		return err
	}

	if replaceCategories {
		if _, err := tx.ExecContext(ctx, `DELETE FROM movie_categories WHERE movie_id=?`, movie.ID); err != nil {
			return fmt.Errorf("clear movie categories: %w", err)
		}
		if err := insertMovieCategories(ctx, tx, movie.ID, movie.Categories); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit movie update: %w", err)
	}
	return nil
}

func (r *MovieRepository) Delete(ctx context.Context, id, ownerID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM movies WHERE id=? AND user_id=?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete movie: %w", err)
	}
	return requireAffected(res, "movie")
}

func (r *MovieRepository) SetImageURL(ctx context.Context, id string, imageURL *string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE movies
SET image_url=?, updated_at=?
WHERE id=?`,
		nullString(imageURL),
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("set movie image: %w", err)
	}
	return requireAffected(res, "movie")
}

func (r *MovieRepository) ListReleasingOn(ctx context.Context, day string) ([]repository.ReleasingMovie, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+movieColumns+`, u.email
FROM movies m
JOIN users u ON u.id = m.user_id
WHERE m.release_date = ?
ORDER BY m.seq ASC`, day)
	if err != nil {
		return nil, fmt.Errorf("query releasing movies: %w", err)
	}
	defer rows.Close()

	var out []repository.ReleasingMovie
	for rows.Next() {
		var email string
		movie, err := scanMovie(rows, &email)
		if err != nil {
			return nil, err
		}
		out = append(out, repository.ReleasingMovie{Movie: *movie, OwnerEmail: email})
	}
	return out, rows.Err()
}

func (r *MovieRepository) MarkReleaseNotified(ctx context.Context, id, day string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE movies SET release_notified_on=? WHERE id=?`, day, id)
	if err != nil {
		return fmt.Errorf("mark release notified: %w", err)
	}
	return requireAffected(res, "movie")
}

func insertMovieCategories(ctx context.Context, tx *sql.Tx, movieID string, categories []domain.Category) error {
	for _, c := range categories {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO movie_categories (movie_id, category_id)
VALUES (?, ?)
ON CONFLICT DO NOTHING`,
			movieID,
			c.ID,
		); err != nil {
			return fmt.Errorf("link category %s: %w", c.ID, err)
		}
	}
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// loadCategories fetches the categories of the given movies keyed by movie id.
func loadCategories(ctx context.Context, q queryer, movieIDs []string) (map[string][]domain.Category, error) {
	out := make(map[string][]domain.Category, len(movieIDs))
	if len(movieIDs) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(movieIDs))
	args := make([]any, len(movieIDs))
	for i, id := range movieIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
SELECT mc.movie_id, c.id, c.name, c.description
FROM movie_categories mc
JOIN categories c ON c.id = mc.category_id
WHERE mc.movie_id IN (%s)
ORDER BY c.name ASC`, strings.Join(placeholders, ","))

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query movie categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			movieID string
			c       domain.Category
		)
		if err := rows.Scan(&movieID, &c.ID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("scan movie category: %w", err)
		}
		out[movieID] = append(out[movieID], c)
	}
	return out, rows.Err()
}

func scanMovie(row scanner, extra ...any) (*domain.Movie, error) {
	var (
		movie          domain.Movie
		description    sql.NullString
		recommendedAge sql.NullInt64
		budget         sql.NullInt64
		boxOffice      sql.NullInt64
		studio         sql.NullString
		duration       sql.NullInt64
		rating         sql.NullFloat64
		imageURL       sql.NullString
		notifiedOn     sql.NullString
	)

	dest := []any{
		&movie.ID,
		&movie.Title,
		&movie.OriginalTitle,
		&description,
		&movie.ReleaseDate,
		&recommendedAge,
		&budget,
		&boxOffice,
		&studio,
		&duration,
		&rating,
		&imageURL,
		&movie.UserID,
		&notifiedOn,
		&movie.CreatedAt,
		&movie.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("movie %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan movie: %w", err)
	}

	movie.Description = stringPtr(description)
	movie.RecommendedAge = intPtr(recommendedAge)
	movie.Budget = int64Ptr(budget)
	movie.BoxOffice = int64Ptr(boxOffice)
	movie.Studio = stringPtr(studio)
	movie.Duration = intPtr(duration)
	movie.ImageURL = stringPtr(imageURL)
	movie.ReleaseNotifiedOn = stringPtr(notifiedOn)
	if rating.Valid {
		v := rating.Float64
		movie.Rating = &v
	}
	return &movie, nil
}
