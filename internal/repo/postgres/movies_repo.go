package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/cinereview/internal/domain/movie"
	"github.com/geocoder89/cinereview/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// a review write re-reads and retries once before giving up
const maxReviewAttempts = 2

const movieColumns = `id, title, description, poster, genres, director, year, duration,
	reviews, average_rating, num_reviews, version, created_at, updated_at`

type MoviesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewMoviesRepo(pool *pgxpool.Pool, prom *observability.Prom) *MoviesRepo {
	return &MoviesRepo{pool: pool, prom: prom}
}

func (r *MoviesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *MoviesRepo) Create(ctx context.Context, m movie.Movie) error {
	reviews, err := encodeReviews(m.Reviews)
	if err != nil {
		return err
	}

	return r.observe("movies.create", func() error {
		_, err := r.pool.Exec(ctx, `
		INSERT INTO movies (id, title, description, poster, genres, director, year, duration,
			reviews, average_rating, num_reviews, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,0,$12,$13)
		`,
			m.ID, m.Title, m.Description, m.Poster, movie.GenresToStrings(m.Genres), m.Director, m.Year, m.Duration,
			reviews, m.AverageRating, m.NumReviews, m.CreatedAt, m.UpdatedAt,
		)
		return err
	})
}

func (r *MoviesRepo) GetByID(ctx context.Context, id string) (movie.Movie, error) {
	m, _, err := r.getVersioned(ctx, id)
	return m, err
}

func (r *MoviesRepo) getVersioned(ctx context.Context, id string) (movie.Movie, int64, error) {
	var (
		m       movie.Movie
		version int64
	)

	err := r.observe("movies.get_by_id", func() error {
		row := r.pool.QueryRow(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = $1`, id)

		var err error
		m, version, err = scanMovie(row)
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return movie.Movie{}, 0, movie.ErrNotFound
		}
		return movie.Movie{}, 0, err
	}
	return m, version, nil
}

func (r *MoviesRepo) List(ctx context.Context, f movie.ListFilter) ([]movie.Movie, int, error) {
	query := `SELECT ` + movieColumns + `, COUNT(*) OVER() AS total FROM movies`

	var args []any
	argsPosition := 1

	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		query += fmt.Sprintf(` WHERE title ILIKE $%d ESCAPE '\'`, argsPosition)
		args = append(args, "%"+escapeLike(kw)+"%")
		argsPosition++
	}

	// stable ordering for pagination
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)
	args = append(args, f.Limit, f.Offset)

	out := make([]movie.Movie, 0, f.Limit)
	total := 0

	err := r.observe("movies.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			m, _, t, err := scanMovieWithTotal(rows)
			if err != nil {
				return err
			}
			total = t
			out = append(out, m)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	// a page past the end has no rows to carry the window count
	if len(out) == 0 && f.Offset > 0 {
		err = r.observe("movies.count", func() error {
			countQuery := `SELECT COUNT(*) FROM movies`
			var countArgs []any
			if kw := strings.TrimSpace(f.Keyword); kw != "" {
				countQuery += ` WHERE title ILIKE $1 ESCAPE '\'`
				countArgs = append(countArgs, "%"+escapeLike(kw)+"%")
			}
			return r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total)
		})
		if err != nil {
			return nil, 0, err
		}
	}

	return out, total, nil
}

// Update writes the catalog fields only. Reviews and the derived rating
// columns belong to MutateReviews.
func (r *MoviesRepo) Update(ctx context.Context, m movie.Movie) (movie.Movie, error) {
	var out movie.Movie

	err := r.observe("movies.update", func() error {
		row := r.pool.QueryRow(ctx, `
		UPDATE movies
			SET title = $2,
				description = $3,
				poster = $4,
				genres = $5,
				director = $6,
				year = $7,
				duration = $8,
				updated_at = NOW()
		WHERE id = $1
		RETURNING `+movieColumns,
			m.ID, m.Title, m.Description, m.Poster, movie.GenresToStrings(m.Genres), m.Director, m.Year, m.Duration,
		)

		var err error
		out, _, err = scanMovie(row)
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return movie.Movie{}, movie.ErrNotFound
		}
		return movie.Movie{}, err
	}
	return out, nil
}

func (r *MoviesRepo) Delete(ctx context.Context, id string) error {
	var affected int64

	err := r.observe("movies.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM movies WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return err
	}
	if affected == 0 {
		return movie.ErrNotFound
	}
	return nil
}

// MutateReviews applies fn to a fresh read of the movie and writes the
// reviews back only if nobody else wrote in between. A lost race is
// retried once; a second loss is reported as movie.ErrConcurrentUpdate.
func (r *MoviesRepo) MutateReviews(ctx context.Context, id string, fn func(m *movie.Movie) error) (movie.Movie, error) {
	for attempt := 0; attempt < maxReviewAttempts; attempt++ {
		if attempt > 0 {
			r.prom.ObserveRetry()
		}

		m, version, err := r.getVersioned(ctx, id)
		if err != nil {
			return movie.Movie{}, err
		}

		if err := fn(&m); err != nil {
			return movie.Movie{}, err
		}

		saved, err := r.writeReviews(ctx, m, version)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return movie.Movie{}, err
		}
	}

	// the row may have been deleted rather than updated
	if _, _, err := r.getVersioned(ctx, id); err != nil {
		return movie.Movie{}, err
	}
	return movie.Movie{}, movie.ErrConcurrentUpdate
}

func (r *MoviesRepo) writeReviews(ctx context.Context, m movie.Movie, version int64) (movie.Movie, error) {
	reviews, err := encodeReviews(m.Reviews)
	if err != nil {
		return movie.Movie{}, err
	}

	var out movie.Movie

	err = r.observe("movies.write_reviews", func() error {
		row := r.pool.QueryRow(ctx, `
		UPDATE movies
			SET reviews = $2,
				average_rating = $3,
				num_reviews = $4,
				version = version + 1,
				updated_at = NOW()
		WHERE id = $1 AND version = $5
		RETURNING `+movieColumns,
			m.ID, reviews, m.AverageRating, m.NumReviews, version,
		)

		var err error
		out, _, err = scanMovie(row)
		return err
	})

	return out, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovie(row rowScanner) (movie.Movie, int64, error) {
	var (
		m       movie.Movie
		genres  []string
		reviews []byte
		version int64
	)

	err := row.Scan(
		&m.ID, &m.Title, &m.Description, &m.Poster, &genres, &m.Director, &m.Year, &m.Duration,
		&reviews, &m.AverageRating, &m.NumReviews, &version, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return movie.Movie{}, 0, err
	}

	return finishMovie(m, genres, reviews, version)
}

func scanMovieWithTotal(row rowScanner) (movie.Movie, int64, int, error) {
	var (
		m       movie.Movie
		genres  []string
		reviews []byte
		version int64
		total   int
	)

	err := row.Scan(
		&m.ID, &m.Title, &m.Description, &m.Poster, &genres, &m.Director, &m.Year, &m.Duration,
		&reviews, &m.AverageRating, &m.NumReviews, &version, &m.CreatedAt, &m.UpdatedAt, &total,
	)
	if err != nil {
		return movie.Movie{}, 0, 0, err
	}

	m, version, err = finishMovie(m, genres, reviews, version)
	return m, version, total, err
}

func finishMovie(m movie.Movie, genres []string, reviews []byte, version int64) (movie.Movie, int64, error) {
	m.Genres = movie.GenresFromStrings(genres)
	m.Reviews = []movie.Review{}

	if len(reviews) > 0 {
		if err := json.Unmarshal(reviews, &m.Reviews); err != nil {
			return movie.Movie{}, 0, fmt.Errorf("decode reviews of movie %s: %w", m.ID, err)
		}
	}
	return m, version, nil
}

func encodeReviews(reviews []movie.Review) ([]byte, error) {
	stored := make([]movie.Review, len(reviews))
	copy(stored, reviews)
	for i := range stored {
		stored[i].User = nil
	}
	return json.Marshal(stored)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
