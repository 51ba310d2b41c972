package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"moviecat/internal/domain"
	"moviecat/internal/repository"
	"moviecat/internal/service"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type MovieResponse struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	OriginalTitle  string            `json:"originalTitle"`
	Description    *string           `json:"description"`
	ReleaseDate    string            `json:"releaseDate"`
	RecommendedAge *int              `json:"recommendedAge"`
	Budget         *int64            `json:"budget"`
	BoxOffice      *int64            `json:"boxOffice"`
	Studio         *string           `json:"studio"`
	Duration       *int              `json:"duration"`
	Rating         *float64          `json:"rating"`
	ImageURL       *string           `json:"imageUrl"`
	UserID         string            `json:"userId"`
	CreatedAt      string            `json:"createdAt"`
	UpdatedAt      string            `json:"updatedAt"`
	Categories     []domain.Category `json:"categories"`
}

func movieToResponse(m domain.Movie) MovieResponse {
	categories := m.Categories
	if categories == nil {
		categories = []domain.Category{}
	}
	return MovieResponse{
		ID:             m.ID,
		Title:          m.Title,
		OriginalTitle:  m.OriginalTitle,
		Description:    m.Description,
		ReleaseDate:    m.ReleaseDate,
		RecommendedAge: m.RecommendedAge,
		Budget:         m.Budget,
		BoxOffice:      m.BoxOffice,
		Studio:         m.Studio,
		Duration:       m.Duration,
		Rating:         m.Rating,
		ImageURL:       m.ImageURL,
		UserID:         m.UserID,
		CreatedAt:      m.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      m.UpdatedAt.UTC().Format(time.RFC3339),
		Categories:     categories,
	}
}

func (h *Handler) listMovies(c *gin.Context) {
	var in service.ListMoviesInput
	if err := c.ShouldBindQuery(&in); err != nil {
		badRequest(c, err.Error())
		return
	}

	page, err := h.movies.List(c.Request.Context(), identityFrom(c).UserID, in)
	if err != nil {
		h.writeError(c, err)
		return
	}

	data := make([]MovieResponse, len(page.Data))
	for i := range page.Data {
		data[i] = movieToResponse(page.Data[i])
	}
	c.JSON(http.StatusOK, repository.NewPage(data, page.Total, page.Page, page.Limit))
}

func (h *Handler) getMovie(c *gin.Context) {
	movie, err := h.movies.FindOne(c.Request.Context(), c.Param("id"), identityFrom(c).UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, movieToResponse(*movie))
}

func (h *Handler) createMovie(c *gin.Context) {
	var in service.CreateMovieInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}

	movie, err := h.movies.Create(c.Request.Context(), identityFrom(c).UserID, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, movieToResponse(*movie))
}

func (h *Handler) updateMovie(c *gin.Context) {
	var in service.UpdateMovieInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}

	movie, err := h.movies.Update(c.Request.Context(), c.Param("id"), identityFrom(c).UserID, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, movieToResponse(*movie))
}

func (h *Handler) deleteMovie(c *gin.Context) {
	if err := h.movies.Remove(c.Request.Context(), c.Param("id"), identityFrom(c).UserID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// uploadImage takes a multipart "file" plus "movieId" and attaches the stored
// image to the caller's movie.
func (h *Handler) uploadImage(c *gin.Context) {
	limit := h.opts.MaxUploadBytes
	// room for the multipart envelope and the movieId field
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+(1<<20))

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		badRequest(c, "file is required")
		return
	}
	if header.Size > limit {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if !allowedImageTypes[contentType] {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "only jpeg, png, gif and webp images are accepted"})
		return
	}

	movieID := strings.TrimSpace(c.PostForm("movieId"))
	if movieID == "" {
		badRequest(c, "movieId is required")
		return
	}

	file, err := header.Open()
	if err != nil {
		badRequest(c, "unreadable file")
		return
	}
	defer file.Close()

	url, err := h.movies.UploadImage(c.Request.Context(), movieID, identityFrom(c).UserID, service.ImageFile{
		Name:        header.Filename,
		ContentType: contentType,
		Body:        file,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imageUrl": url})
}

func (h *Handler) deleteImage(c *gin.Context) {
	if err := h.movies.DeleteImage(c.Request.Context(), c.Param("id"), identityFrom(c).UserID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
