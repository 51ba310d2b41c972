package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"moviecat/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their json names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CreateMovieInput is the payload for creating a movie.
type CreateMovieInput struct {
	Title          string   `json:"title" validate:"required"`
	OriginalTitle  string   `json:"originalTitle" validate:"required"`
	Description    *string  `json:"description"`
	ReleaseDate    string   `json:"releaseDate" validate:"required"`
	RecommendedAge *int     `json:"recommendedAge" validate:"omitempty,gte=0"`
	Budget         *int64   `json:"budget" validate:"omitempty,gte=0"`
	BoxOffice      *int64   `json:"boxOffice" validate:"omitempty,gte=0"`
	Studio         *string  `json:"studio"`
	Duration       *int     `json:"duration" validate:"omitempty,gte=0"`
	Rating         *float64 `json:"rating" validate:"omitempty,gte=0"`
	CategoryIDs    []string `json:"categoryIds" validate:"required,min=1,dive,required"`
}

// Validate trims the input, normalizes the release date to YYYY-MM-DD and
// returns a *ValidationError listing every rejected field.
func (in *CreateMovieInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.OriginalTitle = strings.TrimSpace(in.OriginalTitle)
	in.CategoryIDs = trimAll(in.CategoryIDs)

	verr := structErrors(in)
	if in.ReleaseDate != "" {
		day, ok := parseDate(in.ReleaseDate)
		if !ok {
			verr.add("releaseDate", "must be a date (YYYY-MM-DD or RFC 3339)")
		} else {
			in.ReleaseDate = day
		}
	}
	return verr.orNil()
}

// ListMoviesInput carries the listing query string. Zero Page and Limit fall
// back to the repository defaults.
type ListMoviesInput struct {
	Page        int     `form:"page" json:"page" validate:"gte=0"`
	Limit       int     `form:"limit" json:"limit" validate:"gte=0"`
	Search      string  `form:"search" json:"search"`
	Category    string  `form:"category" json:"category"`
	MinDuration *int    `form:"minDuration" json:"minDuration" validate:"omitempty,gte=0"`
	MaxDuration *int    `form:"maxDuration" json:"maxDuration" validate:"omitempty,gte=0"`
	StartDate   *string `form:"startDate" json:"startDate"`
	EndDate     *string `form:"endDate" json:"endDate"`
}

func (in *ListMoviesInput) Validate() error {
	in.Search = strings.TrimSpace(in.Search)
	in.Category = strings.TrimSpace(in.Category)

	verr := structErrors(in)
	in.StartDate = optionalDate(verr, "startDate", in.StartDate)
	in.EndDate = optionalDate(verr, "endDate", in.EndDate)
	return verr.orNil()
}

// UpdateMovieInput is a partial update: nil fields are left unchanged and an
// empty CategoryIDs keeps the current categories.
type UpdateMovieInput struct {
	Title          *string  `json:"title"`
	OriginalTitle  *string  `json:"originalTitle"`
	Description    *string  `json:"description"`
	ReleaseDate    *string  `json:"releaseDate"`
	RecommendedAge *int     `json:"recommendedAge" validate:"omitempty,gte=0"`
	Budget         *int64   `json:"budget" validate:"omitempty,gte=0"`
	BoxOffice      *int64   `json:"boxOffice" validate:"omitempty,gte=0"`
	Studio         *string  `json:"studio"`
	Duration       *int     `json:"duration" validate:"omitempty,gte=0"`
	Rating         *float64 `json:"rating" validate:"omitempty,gte=0"`
	CategoryIDs    []string `json:"categoryIds" validate:"omitempty,dive,required"`
}

func (in *UpdateMovieInput) Validate() error {
	in.CategoryIDs = trimAll(in.CategoryIDs)

	verr := structErrors(in)
	requireNotBlank(verr, "title", in.Title)
	requireNotBlank(verr, "originalTitle", in.OriginalTitle)
	in.ReleaseDate = optionalDate(verr, "releaseDate", in.ReleaseDate)
	return verr.orNil()
}

// RegisterInput is the self-service sign-up payload. Registered users always
// get the USER role.
type RegisterInput struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (in *RegisterInput) Validate() error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	return structErrors(in).orNil()
}

type UpdateUserInput struct {
	Username *string `json:"username"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=8"`
}

func (in *UpdateUserInput) Validate() error {
	if in.Username != nil {
		v := strings.TrimSpace(*in.Username)
		in.Username = &v
	}
	if in.Email != nil {
		v := normalizeEmail(*in.Email)
		in.Email = &v
	}

	verr := structErrors(in)
	requireNotBlank(verr, "username", in.Username)
	requireNotBlank(verr, "email", in.Email)
	requireNotBlank(verr, "password", in.Password)
	return verr.orNil()
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (in *LoginInput) Validate() error {
	in.Email = normalizeEmail(in.Email)
	return structErrors(in).orNil()
}

func structErrors(in any) *ValidationError {
	verr := &ValidationError{}
	err := validate.Struct(in)
	if err == nil {
		return verr
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.add("body", err.Error())
		return verr
	}
	for _, fe := range fieldErrs {
		verr.add(fe.Field(), fieldMessage(fe))
	}
	return verr
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		switch fe.Kind() {
		case reflect.Slice:
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		case reflect.String:
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	}
	return "is invalid"
}

func requireNotBlank(verr *ValidationError, field string, v *string) {
	if v != nil && strings.TrimSpace(*v) == "" {
		verr.add(field, "must not be blank")
	}
}

// optionalDate normalizes a non-nil date. Blank values are treated as absent.
func optionalDate(verr *ValidationError, field string, raw *string) *string {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	day, ok := parseDate(*raw)
	if !ok {
		verr.add(field, "must be a date (YYYY-MM-DD or RFC 3339)")
		return raw
	}
	return &day
}

// parseDate accepts a calendar date or an RFC 3339 timestamp and returns the
// calendar date as written.
func parseDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(domain.DateLayout, raw); err == nil {
		return t.Format(domain.DateLayout), true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Format(domain.DateLayout), true
	}
	return "", false
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}
