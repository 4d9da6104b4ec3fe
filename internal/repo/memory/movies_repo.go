package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/cinereview/internal/domain/movie"
)

// MoviesRepo keeps movies in process. Review mutations are serialized with
// one mutex per movie id, held for the whole read-modify-write.
type MoviesRepo struct {
	mu    sync.RWMutex
	items map[string]movie.Movie

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewMoviesRepo() *MoviesRepo {
	return &MoviesRepo{
		items: make(map[string]movie.Movie),
		locks: make(map[string]*sync.Mutex),
	}
}

func (r *MoviesRepo) lockFor(id string) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()

	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	return l
}

func (r *MoviesRepo) dropLock(id string) {
	r.locksMu.Lock()
	delete(r.locks, id)
	r.locksMu.Unlock()
}

func (r *MoviesRepo) Create(ctx context.Context, m movie.Movie) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.items[m.ID] = m.Clone()
	r.mu.Unlock()

	return nil
}

func (r *MoviesRepo) GetByID(ctx context.Context, id string) (movie.Movie, error) {
	if err := ctx.Err(); err != nil {
		return movie.Movie{}, err
	}

	r.mu.RLock()
	m, ok := r.items[id]
	r.mu.RUnlock()

	if !ok {
		return movie.Movie{}, movie.ErrNotFound
	}
	return m.Clone(), nil
}

func (r *MoviesRepo) List(ctx context.Context, f movie.ListFilter) ([]movie.Movie, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	keyword := strings.ToLower(strings.TrimSpace(f.Keyword))

	r.mu.RLock()
	matched := make([]movie.Movie, 0, len(r.items))
	for _, m := range r.items {
		if keyword == "" || strings.Contains(strings.ToLower(m.Title), keyword) {
			matched = append(matched, m)
		}
	}
	r.mu.RUnlock()

	// newest first, id breaks ties so pages are stable
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)

	start := f.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := start + f.Limit
	if f.Limit <= 0 || end > total {
		end = total
	}

	out := make([]movie.Movie, 0, end-start)
	for _, m := range matched[start:end] {
		out = append(out, m.Clone())
	}
	return out, total, nil
}

// Update writes the catalog fields of m. Reviews and aggregates stay as stored.
func (r *MoviesRepo) Update(ctx context.Context, m movie.Movie) (movie.Movie, error) {
	if err := ctx.Err(); err != nil {
		return movie.Movie{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.items[m.ID]
	if !ok {
		return movie.Movie{}, movie.ErrNotFound
	}

	cur.Title = m.Title
	cur.Description = m.Description
	cur.Poster = m.Poster
	cur.Genres = append([]movie.Genre(nil), m.Genres...)
	cur.Director = m.Director
	cur.Year = m.Year
	cur.Duration = m.Duration
	cur.UpdatedAt = time.Now().UTC()

	r.items[m.ID] = cur
	return cur.Clone(), nil
}

func (r *MoviesRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	_, ok := r.items[id]
	delete(r.items, id)
	r.mu.Unlock()

	if !ok {
		return movie.ErrNotFound
	}
	r.dropLock(id)
	return nil
}

// MutateReviews runs fn on a private copy of the movie while holding the
// movie's lock and stores the result only if fn succeeds.
func (r *MoviesRepo) MutateReviews(ctx context.Context, id string, fn func(m *movie.Movie) error) (movie.Movie, error) {
	l := r.lockFor(id)
	l.Lock()
	defer l.Unlock()

	m, err := r.GetByID(ctx, id)
	if errors.Is(err, movie.ErrNotFound) {
		// ids are never reused, so the lock of a missing movie is garbage
		r.dropLock(id)
	}
	if err != nil {
		return movie.Movie{}, err
	}

	if err := fn(&m); err != nil {
		return movie.Movie{}, err
	}

	if err := ctx.Err(); err != nil {
		return movie.Movie{}, err
	}

	m.UpdatedAt = time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	// deleted while we were working: do not resurrect it
	if _, ok := r.items[id]; !ok {
		return movie.Movie{}, movie.ErrNotFound
	}
	r.items[id] = m.Clone()

	return m.Clone(), nil
}
