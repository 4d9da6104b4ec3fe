package movie

import (
	"fmt"
	"time"

	"github.com/geocoder89/cinereview/internal/apperr"
)

// Movie is the aggregate root. It owns its reviews; AverageRating and
// NumReviews are derived from them and only written by the review path.
type Movie struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Poster        string    `json:"poster"`
	Genres        []Genre   `json:"genres"`
	Director      string    `json:"director"`
	Year          int       `json:"year"`
	Duration      int       `json:"duration"`
	Reviews       []Review  `json:"reviews"`
	AverageRating float64   `json:"averageRating"`
	NumReviews    int       `json:"numReviews"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Review struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Body      string    `json:"reviewText"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// User is filled at read time from the identity store; it is never persisted.
	User *Reviewer `json:"user,omitempty"`
}

type Reviewer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

const (
	MinRating = 1
	MaxRating = 5

	MinYear      = 1900
	MaxYearAhead = 5

	PageSize = 10

	MaxReviewLength = 2000
)

var (
	ErrNotFound         = fmt.Errorf("movie not found: %w", apperr.ErrNotFound)
	ErrReviewNotFound   = fmt.Errorf("review not found: %w", apperr.ErrNotFound)
	ErrAlreadyReviewed  = fmt.Errorf("movie already reviewed by this user: %w", apperr.ErrConflict)
	ErrConcurrentUpdate = fmt.Errorf("movie was modified concurrently: %w", apperr.ErrConflict)
)

// ReviewIndex returns the position of userID's review, or -1.
func (m *Movie) ReviewIndex(userID string) int {
	for i, r := range m.Reviews {
		if r.UserID == userID {
			return i
		}
	}
	return -1
}

// Clone returns a copy whose review slice can be mutated independently.
func (m Movie) Clone() Movie {
	out := m
	out.Genres = append([]Genre(nil), m.Genres...)
	out.Reviews = make([]Review, len(m.Reviews))
	copy(out.Reviews, m.Reviews)
	for i := range out.Reviews {
		out.Reviews[i].User = nil
	}
	return out
}

// with pointers if optional, it will be nil
type CreateMovieRequest struct {
	Title       string  `json:"title" binding:"required,notblank,max=200"`
	Description string  `json:"description" binding:"required,notblank,max=5000"`
	Poster      string  `json:"poster" binding:"required,notblank,max=2048"`
	Genres      []Genre `json:"genres" binding:"required,min=1,dive,genre"`
	Director    string  `json:"director" binding:"required,notblank,max=200"`
	Year        int     `json:"year" binding:"required,releaseyear"`
	Duration    int     `json:"duration" binding:"required,min=1,max=1000"`
}

// a partial update payload: only provided fields are applied.
type UpdateMovieRequest struct {
	Title       *string `json:"title" binding:"omitempty,notblank,max=200"`
	Description *string `json:"description" binding:"omitempty,notblank,max=5000"`
	Poster      *string `json:"poster" binding:"omitempty,notblank,max=2048"`
	Genres      []Genre `json:"genres" binding:"omitempty,min=1,dive,genre"`
	Director    *string `json:"director" binding:"omitempty,notblank,max=200"`
	Year        *int    `json:"year" binding:"omitempty,releaseyear"`
	Duration    *int    `json:"duration" binding:"omitempty,min=1,max=1000"`
}

// CreateReviewRequest carries no binding rules: a review is checked inside
// the store mutation, after the movie and duplicate checks. Rating decodes
// any JSON number so a fractional one reaches that check too.
type CreateReviewRequest struct {
	Rating float64 `json:"rating"`
	Body   string  `json:"reviewText"`
}

type ListQuery struct {
	Keyword string
	Page    int
}

type ListFilter struct {
	Keyword string
	Limit   int
	Offset  int
}

type Page struct {
	Movies []Movie `json:"movies"`
	Page   int     `json:"page"`
	Pages  int     `json:"pages"`
	Total  int     `json:"total"`
}
