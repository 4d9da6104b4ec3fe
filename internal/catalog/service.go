package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/geocoder89/cinereview/internal/apperr"
	"github.com/geocoder89/cinereview/internal/cache"
	"github.com/geocoder89/cinereview/internal/domain/movie"
	"github.com/geocoder89/cinereview/internal/observability"
	"github.com/geocoder89/cinereview/internal/rating"
	"github.com/geocoder89/cinereview/internal/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultStoreTimeout = 3 * time.Second

// maxPage keeps the list offset inside int.
const maxPage = math.MaxInt/movie.PageSize + 1

type MovieStore interface {
	Create(ctx context.Context, m movie.Movie) error
	GetByID(ctx context.Context, id string) (movie.Movie, error)
	List(ctx context.Context, f movie.ListFilter) ([]movie.Movie, int, error)
	Update(ctx context.Context, m movie.Movie) (movie.Movie, error)
	Delete(ctx context.Context, id string) error
	MutateReviews(ctx context.Context, id string, fn func(m *movie.Movie) error) (movie.Movie, error)
}

// NameResolver looks up current display names of review authors.
type NameResolver interface {
	NamesByIDs(ctx context.Context, ids []string) (map[string]string, error)
}

type Service struct {
	movies  MovieStore
	names   NameResolver
	cache   cache.Store
	prom    *observability.Prom
	log     *slog.Logger
	timeout time.Duration
	tracer  trace.Tracer

	// listGen changes on every invalidation. A page read under an older
	// generation is never written to the cache. listMu orders that check
	// and the cache write against the invalidation itself.
	listMu  sync.RWMutex
	listGen atomic.Uint64
}

type Option func(*Service)

func WithCache(c cache.Store) Option {
	return func(s *Service) { s.cache = c }
}

func WithMetrics(p *observability.Prom) Option {
	return func(s *Service) { s.prom = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithStoreTimeout bounds every store call made on behalf of a request.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewService(movies MovieStore, names NameResolver, opts ...Option) *Service {
	s := &Service{
		movies:  movies,
		names:   names,
		log:     slog.Default(),
		timeout: defaultStoreTimeout,
		tracer:  otel.Tracer("github.com/geocoder89/cinereview/internal/catalog"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type AddReviewInput struct {
	MovieID string
	UserID  string
	Name    string
	Rating  float64
	Body    string
}

type ReviewResult struct {
	Review        movie.Review
	AverageRating float64
	NumReviews    int
}

type ReviewList struct {
	Reviews       []movie.Review `json:"reviews"`
	NumReviews    int            `json:"numReviews"`
	AverageRating float64        `json:"averageRating"`
}

func (s *Service) CreateMovie(ctx context.Context, req movie.CreateMovieRequest) (movie.Movie, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.CreateMovie")
	defer span.End()

	if err := movie.ValidateStruct(req); err != nil {
		return movie.Movie{}, err
	}

	m := movie.NewFromCreateRequest(req)

	err := s.withStore(ctx, func(ctx context.Context) error {
		return s.movies.Create(ctx, m)
	})
	if err != nil {
		return movie.Movie{}, s.fail(span, err)
	}

	s.invalidateLists(ctx)
	return m, nil
}

func (s *Service) GetMovie(ctx context.Context, id string) (movie.Movie, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.GetMovie", trace.WithAttributes(attribute.String("movie.id", id)))
	defer span.End()

	var m movie.Movie
	err := s.withStore(ctx, func(ctx context.Context) error {
		var err error
		m, err = s.movies.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return movie.Movie{}, s.fail(span, err)
	}

	if err := s.enrich(ctx, &m); err != nil {
		return movie.Movie{}, s.fail(span, err)
	}
	return m, nil
}

// UpdateMovie applies a partial update to the catalog fields. Reviews and
// the rating aggregates are never touched on this path.
func (s *Service) UpdateMovie(ctx context.Context, id string, req movie.UpdateMovieRequest) (movie.Movie, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.UpdateMovie", trace.WithAttributes(attribute.String("movie.id", id)))
	defer span.End()

	if err := movie.ValidateStruct(req); err != nil {
		return movie.Movie{}, err
	}

	var out movie.Movie
	err := s.withStore(ctx, func(ctx context.Context) error {
		m, err := s.movies.GetByID(ctx, id)
		if err != nil {
			return err
		}

		m.Apply(req)

		out, err = s.movies.Update(ctx, m)
		return err
	})
	if err != nil {
		return movie.Movie{}, s.fail(span, err)
	}

	s.invalidateLists(ctx)

	if err := s.enrich(ctx, &out); err != nil {
		return movie.Movie{}, s.fail(span, err)
	}
	return out, nil
}

func (s *Service) DeleteMovie(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "catalog.DeleteMovie", trace.WithAttributes(attribute.String("movie.id", id)))
	defer span.End()

	err := s.withStore(ctx, func(ctx context.Context) error {
		return s.movies.Delete(ctx, id)
	})
	if err != nil {
		return s.fail(span, err)
	}

	s.invalidateLists(ctx)
	return nil
}

func (s *Service) ListMovies(ctx context.Context, q movie.ListQuery) (movie.Page, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.ListMovies")
	defer span.End()

	page := q.Page
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}

	key := utils.BuildMoviesListCacheKey(q.Keyword, page)
	gen := s.listGen.Load()

	if p, ok := s.cachedPage(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		if err := s.enrich(ctx, pointers(p.Movies)...); err != nil {
			return movie.Page{}, s.fail(span, err)
		}
		return p, nil
	}

	var (
		items []movie.Movie
		total int
	)
	err := s.withStore(ctx, func(ctx context.Context) error {
		var err error
		items, total, err = s.movies.List(ctx, movie.ListFilter{
			Keyword: q.Keyword,
			Limit:   movie.PageSize,
			Offset:  (page - 1) * movie.PageSize,
		})
		return err
	})
	if err != nil {
		return movie.Page{}, s.fail(span, err)
	}

	p := movie.Page{
		Movies: items,
		Page:   page,
		Pages:  (total + movie.PageSize - 1) / movie.PageSize,
		Total:  total,
	}
	s.storePage(ctx, key, gen, p)

	if err := s.enrich(ctx, pointers(p.Movies)...); err != nil {
		return movie.Page{}, s.fail(span, err)
	}
	return p, nil
}

// AddReview attaches the caller's review and recomputes the aggregates in
// the same store mutation. A user reviewing twice gets
// movie.ErrAlreadyReviewed and the stored review is left as it was.
func (s *Service) AddReview(ctx context.Context, in AddReviewInput) (ReviewResult, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.AddReview", trace.WithAttributes(attribute.String("movie.id", in.MovieID)))
	defer span.End()

	var added movie.Review
	var saved movie.Movie

	err := s.withStore(ctx, func(ctx context.Context) error {
		var err error
		saved, err = s.movies.MutateReviews(ctx, in.MovieID, func(m *movie.Movie) error {
			if m.ReviewIndex(in.UserID) >= 0 {
				return movie.ErrAlreadyReviewed
			}
			if err := movie.ValidateReview(in.Rating, in.Body); err != nil {
				return err
			}

			added = movie.NewReview(in.UserID, in.Name, int(in.Rating), in.Body)
			m.Reviews = append(m.Reviews, added)
			rating.Apply(m)
			return nil
		})
		return err
	})

	s.prom.ObserveReviewMutation("add", outcome(err))
	if err != nil {
		return ReviewResult{}, s.fail(span, err)
	}

	s.invalidateLists(ctx)

	return ReviewResult{
		Review:        added,
		AverageRating: saved.AverageRating,
		NumReviews:    saved.NumReviews,
	}, nil
}

// RemoveReview deletes the review written by userID. The caller's own id is
// the only selector, so nobody can remove another user's review here.
func (s *Service) RemoveReview(ctx context.Context, movieID, userID string) (rating.Summary, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.RemoveReview", trace.WithAttributes(attribute.String("movie.id", movieID)))
	defer span.End()

	var saved movie.Movie

	err := s.withStore(ctx, func(ctx context.Context) error {
		var err error
		saved, err = s.movies.MutateReviews(ctx, movieID, func(m *movie.Movie) error {
			i := m.ReviewIndex(userID)
			if i < 0 {
				return movie.ErrReviewNotFound
			}

			m.Reviews = append(m.Reviews[:i], m.Reviews[i+1:]...)
			rating.Apply(m)
			return nil
		})
		return err
	})

	s.prom.ObserveReviewMutation("remove", outcome(err))
	if err != nil {
		return rating.Summary{}, s.fail(span, err)
	}

	s.invalidateLists(ctx)

	return rating.Summary{Average: saved.AverageRating, Count: saved.NumReviews}, nil
}

// ListReviews returns the stored aggregates as they are; nothing is
// recomputed on read.
func (s *Service) ListReviews(ctx context.Context, movieID string) (ReviewList, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.ListReviews", trace.WithAttributes(attribute.String("movie.id", movieID)))
	defer span.End()

	var m movie.Movie
	err := s.withStore(ctx, func(ctx context.Context) error {
		var err error
		m, err = s.movies.GetByID(ctx, movieID)
		return err
	})
	if err != nil {
		return ReviewList{}, s.fail(span, err)
	}

	if err := s.enrich(ctx, &m); err != nil {
		return ReviewList{}, s.fail(span, err)
	}

	return ReviewList{
		Reviews:       m.Reviews,
		NumReviews:    m.NumReviews,
		AverageRating: m.AverageRating,
	}, nil
}

// withStore runs fn under the store timeout derived from ctx.
func (s *Service) withStore(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return fn(ctx)
}

// enrich attaches the current author name to every review it can resolve.
func (s *Service) enrich(ctx context.Context, movies ...*movie.Movie) error {
	if s.names == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, m := range movies {
		for _, r := range m.Reviews {
			if _, ok := seen[r.UserID]; ok {
				continue
			}
			seen[r.UserID] = struct{}{}
			ids = append(ids, r.UserID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	var names map[string]string
	err := s.withStore(ctx, func(ctx context.Context) error {
		var err error
		names, err = s.names.NamesByIDs(ctx, ids)
		return err
	})
	if err != nil {
		return err
	}

	for _, m := range movies {
		for i := range m.Reviews {
			r := &m.Reviews[i]
			if name, ok := names[r.UserID]; ok {
				r.User = &movie.Reviewer{ID: r.UserID, Name: name}
			}
		}
	}
	return nil
}

func (s *Service) cachedPage(ctx context.Context, key string) (movie.Page, bool) {
	if s.cache == nil {
		return movie.Page{}, false
	}

	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.prom.ObserveCache("error")
		s.log.WarnContext(ctx, "movie list cache read failed", "key", key, "err", err)
		return movie.Page{}, false
	}
	if !ok {
		s.prom.ObserveCache("miss")
		return movie.Page{}, false
	}

	var p movie.Page
	if err := json.Unmarshal(raw, &p); err != nil {
		s.prom.ObserveCache("error")
		s.log.WarnContext(ctx, "movie list cache entry is corrupt", "key", key, "err", err)
		return movie.Page{}, false
	}

	s.prom.ObserveCache("hit")
	return p, true
}

// storePage caches p unless a write invalidated the lists after gen was read.
func (s *Service) storePage(ctx context.Context, key string, gen uint64, p movie.Page) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(p)
	if err != nil {
		s.log.WarnContext(ctx, "movie list cache encode failed", "err", err)
		return
	}

	s.listMu.RLock()
	defer s.listMu.RUnlock()

	if s.listGen.Load() != gen {
		return
	}
	if err := s.cache.Set(ctx, key, raw); err != nil {
		s.log.WarnContext(ctx, "movie list cache write failed", "key", key, "err", err)
	}
}

func (s *Service) invalidateLists(ctx context.Context) {
	if s.cache == nil {
		return
	}

	s.listMu.Lock()
	defer s.listMu.Unlock()

	s.listGen.Add(1)
	if err := s.cache.DeletePrefix(ctx, utils.MoviesListCachePrefix); err != nil {
		s.log.WarnContext(ctx, "movie list cache invalidation failed", "err", err)
	}
}

// fail records err on the span and classifies it. Anything the domain did
// not classify is a store failure.
func (s *Service) fail(span trace.Span, err error) error {
	err = apperr.Unavailable(err)

	if errors.Is(err, apperr.ErrStoreUnavailable) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store unavailable")
	}
	return err
}

func outcome(err error) string {
	switch apperr.Kind(err) {
	case nil:
		if err != nil {
			return "error"
		}
		return "ok"
	case apperr.ErrNotFound:
		return "not_found"
	case apperr.ErrConflict:
		return "conflict"
	case apperr.ErrInvalidInput:
		return "invalid"
	default:
		return "error"
	}
}

func pointers(ms []movie.Movie) []*movie.Movie {
	out := make([]*movie.Movie, len(ms))
	for i := range ms {
		out[i] = &ms[i]
	}
	return out
}
