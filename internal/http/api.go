package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"moviecat/internal/service"
)

// DefaultMaxUploadBytes caps image uploads at 10 MiB.
const DefaultMaxUploadBytes int64 = 10 << 20

// Options tunes the HTTP surface.
type Options struct {
	CORSOrigins    []string
	MaxUploadBytes int64
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	auth       service.AuthService
	users      service.UserService
	movies     service.MovieService
	categories service.CategoryService
	logger     *logrus.Logger
	opts       Options
}

func NewHandler(
	authSvc service.AuthService,
	users service.UserService,
	movies service.MovieService,
	categories service.CategoryService,
	logger *logrus.Logger,
	opts Options,
) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{
		auth:       authSvc,
		users:      users,
		movies:     movies,
		categories: categories,
		logger:     logger,
		opts:       opts,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(h.requestLogger(), corsMiddleware(h.opts.CORSOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})
	router.POST("/auth/login", h.login)
	router.POST("/users", h.register)

	authed := router.Group("", h.authenticate())
	{
		authed.GET("/auth/me", h.me)

		authed.GET("/movies", h.listMovies)
		authed.POST("/movies", h.createMovie)
		authed.POST("/movies/upload", h.uploadImage)
		authed.GET("/movies/:id", h.getMovie)
		authed.PUT("/movies/:id", h.updateMovie)
		authed.DELETE("/movies/:id", h.deleteMovie)
		authed.DELETE("/movies/:id/image", h.deleteImage)

		authed.GET("/category", h.listCategories)
		authed.GET("/category/:id", h.getCategory)

		authed.GET("/users", requireAdmin(), h.listUsers)
		self := authed.Group("/users/:id", requireSelfOrAdmin("id"))
		self.GET("", h.getUser)
		self.PATCH("", h.updateUser)
		self.DELETE("", h.deleteUser)
	}
}

// writeError maps service errors onto status codes. Unknown errors are
// logged and reported as 500 without detail.
func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "fields": verr.Fields})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, service.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
