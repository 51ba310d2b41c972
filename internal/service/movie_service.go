package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"moviecat/internal/domain"
	"moviecat/internal/events"
	"moviecat/internal/repository"
	"moviecat/internal/storage"
)

const publishTimeout = 5 * time.Second

// MovieService coordinates movie queries and mutations for a single owner.
type MovieService interface {
	List(ctx context.Context, ownerID string, in ListMoviesInput) (repository.Page[domain.Movie], error)
	// FindOne reports movies owned by someone else as ErrNotFound.
	FindOne(ctx context.Context, id, ownerID string) (*domain.Movie, error)
	Create(ctx context.Context, ownerID string, in CreateMovieInput) (*domain.Movie, error)
	Update(ctx context.Context, id, ownerID string, in UpdateMovieInput) (*domain.Movie, error)
	Remove(ctx context.Context, id, ownerID string) error
	AttachImage(ctx context.Context, id, imageURL string) error
	DetachImage(ctx context.Context, id string) error
	// UploadImage stores the file and attaches its URL to an owned movie.
	UploadImage(ctx context.Context, id, ownerID string, file ImageFile) (string, error)
	// DeleteImage detaches the image of an owned movie.
	DeleteImage(ctx context.Context, id, ownerID string) error
}

// ImageFile is an uploaded image waiting to be stored.
type ImageFile struct {
	Name        string
	ContentType string
	Body        io.Reader
}

type movieService struct {
	movies     repository.MovieRepository
	categories repository.CategoryRepository
	users      repository.UserRepository
	storage    storage.Service
	publisher  events.Publisher
	logger     *logrus.Logger
	now        func() time.Time
}

func NewMovieService(
	movies repository.MovieRepository,
	categories repository.CategoryRepository,
	users repository.UserRepository,
	store storage.Service,
	publisher events.Publisher,
	logger *logrus.Logger,
) MovieService {
	return &movieService{
		movies:     movies,
		categories: categories,
		users:      users,
		storage:    store,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *movieService) List(ctx context.Context, ownerID string, in ListMoviesInput) (repository.Page[domain.Movie], error) {
	if err := in.Validate(); err != nil {
		return repository.Page[domain.Movie]{}, err
	}

	return s.movies.List(ctx, repository.MovieQuery{
		OwnerID: ownerID,
		Page:    in.Page,
		Limit:   in.Limit,
		Filter: repository.MovieFilter{
			Search:      in.Search,
			CategoryID:  in.Category,
			MinDuration: in.MinDuration,
			MaxDuration: in.MaxDuration,
			StartDate:   in.StartDate,
			EndDate:     in.EndDate,
		},
	}.Normalize())
}

func (s *movieService) FindOne(ctx context.Context, id, ownerID string) (*domain.Movie, error) {
	movie, err := s.movies.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if movie.UserID != ownerID {
		return nil, fmt.Errorf("movie %s: %w", id, ErrNotFound)
	}
	return movie, nil
}

func (s *movieService) Create(ctx context.Context, ownerID string, in CreateMovieInput) (*domain.Movie, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	categories, err := s.resolveCategories(ctx, in.CategoryIDs)
	if err != nil {
		return nil, err
	}

	movie := &domain.Movie{
		Title:          in.Title,
		OriginalTitle:  in.OriginalTitle,
		Description:    in.Description,
		ReleaseDate:    in.ReleaseDate,
		RecommendedAge: in.RecommendedAge,
		Budget:         in.Budget,
		BoxOffice:      in.BoxOffice,
		Studio:         in.Studio,
		Duration:       in.Duration,
		Rating:         in.Rating,
		UserID:         ownerID,
		Categories:     categories,
	}
	if err := s.movies.Create(ctx, movie); err != nil {
		return nil, err
	}

	s.announceIfScheduled(ctx, movie)
	return movie, nil
}

// announceIfScheduled publishes MovieScheduled for movies releasing after
// now. Failures are logged and never undo the create.
func (s *movieService) announceIfScheduled(ctx context.Context, movie *domain.Movie) {
	release, err := movie.ReleaseTime()
	if err != nil || !release.After(s.now()) {
		return
	}

	log := s.logger.WithFields(logrus.Fields{"movie_id": movie.ID, "owner_id": movie.UserID})
	owner, err := s.users.GetByID(ctx, movie.UserID)
	if err != nil {
		log.WithError(err).Warn("movie scheduled: load owner")
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err = s.publisher.Publish(pubCtx, events.MovieScheduled{
		MovieID:     movie.ID,
		Title:       movie.Title,
		ReleaseDate: movie.ReleaseDate,
		OwnerID:     owner.ID,
		OwnerEmail:  owner.Email,
		OccurredAt:  s.now().UTC(),
	})
	if err != nil {
		log.WithError(err).Warn("movie scheduled: publish event")
	}
}

func (s *movieService) Update(ctx context.Context, id, ownerID string, in UpdateMovieInput) (*domain.Movie, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	movie, err := s.movies.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if movie.UserID != ownerID {
		return nil, fmt.Errorf("movie %s: %w", id, ErrForbidden)
	}

	replaceCategories := len(in.CategoryIDs) > 0
	if replaceCategories {
		categories, err := s.resolveCategories(ctx, in.CategoryIDs)
		if err != nil {
			return nil, err
		}
		movie.Categories = categories
	}

	applyMovieUpdate(movie, in)
	if err := s.movies.Update(ctx, movie, replaceCategories); err != nil {
		return nil, err
	}
	return s.movies.Get(ctx, id)
}

func applyMovieUpdate(movie *domain.Movie, in UpdateMovieInput) {
	if in.Title != nil {
		movie.Title = *in.Title
	}
	if in.OriginalTitle != nil {
		movie.OriginalTitle = *in.OriginalTitle
	}
	if in.Description != nil {
		movie.Description = in.Description
	}
	if in.ReleaseDate != nil {
		movie.ReleaseDate = *in.ReleaseDate
	}
	if in.RecommendedAge != nil {
		movie.RecommendedAge = in.RecommendedAge
	}
	if in.Budget != nil {
		movie.Budget = in.Budget
	}
	if in.BoxOffice != nil {
		movie.BoxOffice = in.BoxOffice
	}
	if in.Studio != nil {
		movie.Studio = in.Studio
	}
	if in.Duration != nil {
		movie.Duration = in.Duration
	}
	if in.Rating != nil {
		movie.Rating = in.Rating
	}
}

func (s *movieService) Remove(ctx context.Context, id, ownerID string) error {
	movie, err := s.FindOne(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if err := s.movies.Delete(ctx, id, ownerID); err != nil {
		return err
	}
	if movie.ImageURL != nil {
		s.deleteObject(ctx, id, *movie.ImageURL)
	}
	return nil
}

func (s *movieService) AttachImage(ctx context.Context, id, imageURL string) error {
	return s.movies.SetImageURL(ctx, id, &imageURL)
}

func (s *movieService) DetachImage(ctx context.Context, id string) error {
	movie, err := s.movies.Get(ctx, id)
	if err != nil {
		return err
	}
	if movie.ImageURL == nil {
		return nil
	}

	key := storage.KeyFromURL(*movie.ImageURL)
	if err := s.storage.DeleteFile(ctx, key); err != nil {
		return fmt.Errorf("delete image %s: %w", key, err)
	}
	return s.movies.SetImageURL(ctx, id, nil)
}

func (s *movieService) UploadImage(ctx context.Context, id, ownerID string, file ImageFile) (string, error) {
	movie, err := s.FindOne(ctx, id, ownerID)
	if err != nil {
		return "", err
	}

	url, err := s.storage.PutFile(ctx, file.Name, file.ContentType, file.Body)
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	if err := s.AttachImage(ctx, id, url); err != nil {
		s.deleteObject(ctx, id, url)
		return "", err
	}

	// the replaced object is no longer referenced
	if movie.ImageURL != nil && *movie.ImageURL != url {
		s.deleteObject(ctx, id, *movie.ImageURL)
	}
	return url, nil
}

func (s *movieService) DeleteImage(ctx context.Context, id, ownerID string) error {
	if _, err := s.FindOne(ctx, id, ownerID); err != nil {
		return err
	}
	return s.DetachImage(ctx, id)
}

func (s *movieService) deleteObject(ctx context.Context, movieID, imageURL string) {
	key := storage.KeyFromURL(imageURL)
	if err := s.storage.DeleteFile(ctx, key); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{"movie_id": movieID, "key": key}).Warn("delete orphaned image")
	}
}

// resolveCategories looks up every id and fails on the first unknown one.
func (s *movieService) resolveCategories(ctx context.Context, ids []string) ([]domain.Category, error) {
	seen := make(map[string]struct{}, len(ids))
	categories := make([]domain.Category, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		category, err := s.categories.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *category)
	}
	return categories, nil
}
