package domain

// Category is read-mostly reference data attached to movies.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
