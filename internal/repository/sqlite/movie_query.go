package sqlite

import (
	"strings"

	"moviecat/internal/repository"
)

// movieWhere is a WHERE clause over the "m" alias of movies plus its bound args.
type movieWhere struct {
	clause string
	args   []any
}

// buildMovieWhere translates a MovieQuery into SQL. The owner predicate is
// always first; every other predicate is ANDed, and only the three search
// branches are ORed together.
func buildMovieWhere(q repository.MovieQuery) movieWhere {
	where := []string{"m.user_id = ?"}
	args := []any{q.OwnerID}
	f := q.Filter

	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := likePattern(search)
		where = append(where, `(fold(m.title) LIKE ? ESCAPE '\'
	OR fold(m.original_title) LIKE ? ESCAPE '\'
	OR EXISTS (
		SELECT 1 FROM movie_categories mc
		JOIN categories c ON c.id = mc.category_id
		WHERE mc.movie_id = m.id AND fold(c.name) LIKE ? ESCAPE '\'
	))`)
		args = append(args, pattern, pattern, pattern)
	}

	if f.CategoryID != "" {
		where = append(where, `EXISTS (
	SELECT 1 FROM movie_categories mc
	WHERE mc.movie_id = m.id AND mc.category_id = ?
)`)
		args = append(args, f.CategoryID)
	}

	// zero duration bounds are treated as unset
	if f.MinDuration != nil && *f.MinDuration > 0 {
		where = append(where, "m.duration >= ?")
		args = append(args, *f.MinDuration)
	}
	if f.MaxDuration != nil && *f.MaxDuration > 0 {
		where = append(where, "m.duration <= ?")
		args = append(args, *f.MaxDuration)
	}

	if f.StartDate != nil {
		where = append(where, "m.release_date >= ?")
		args = append(args, *f.StartDate)
	}
	if f.EndDate != nil {
		where = append(where, "m.release_date <= ?")
		args = append(args, *f.EndDate)
	}

	return movieWhere{
		clause: strings.Join(where, "\nAND "),
		args:   args,
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a "contains" pattern, folded like the fold SQL function,
// with LIKE metacharacters escaped.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
