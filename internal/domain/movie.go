package domain

import "time"

// DateLayout is the calendar-date form used for release dates.
const DateLayout = "2006-01-02"

// Movie is a catalog entry owned by exactly one user.
type Movie struct {
	ID             string
	Title          string
	OriginalTitle  string
	Description    *string
	ReleaseDate    string
	RecommendedAge *int
	Budget         *int64
	BoxOffice      *int64
	Studio         *string
	Duration       *int
	Rating         *float64
	ImageURL       *string
	UserID         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Categories     []Category

	// ReleaseNotifiedOn holds the day a release email was last sent.
	ReleaseNotifiedOn *string
}

// CategoryIDs returns the ids of the attached categories in order.
func (m *Movie) CategoryIDs() []string {
	ids := make([]string, len(m.Categories))
	for i := range m.Categories {
		ids[i] = m.Categories[i].ID
	}
	return ids
}

// ReleaseTime returns the release date as midnight UTC.
func (m *Movie) ReleaseTime() (time.Time, error) {
	return time.Parse(DateLayout, m.ReleaseDate)
}
