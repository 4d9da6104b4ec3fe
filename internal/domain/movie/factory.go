package movie

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(req CreateMovieRequest) Movie {
	now := time.Now().UTC()

	return Movie{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Poster:      strings.TrimSpace(req.Poster),
		Genres:      append([]Genre(nil), req.Genres...),
		Director:    strings.TrimSpace(req.Director),
		Year:        req.Year,
		Duration:    req.Duration,
		Reviews:     []Review{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Apply copies the provided catalog fields onto m. Reviews and the derived
// rating fields are never touched here.
func (m *Movie) Apply(req UpdateMovieRequest) {
	if req.Title != nil {
		m.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		m.Description = strings.TrimSpace(*req.Description)
	}
	if req.Poster != nil {
		m.Poster = strings.TrimSpace(*req.Poster)
	}
	if req.Genres != nil {
		m.Genres = append([]Genre(nil), req.Genres...)
	}
	if req.Director != nil {
		m.Director = strings.TrimSpace(*req.Director)
	}
	if req.Year != nil {
		m.Year = *req.Year
	}
	if req.Duration != nil {
		m.Duration = *req.Duration
	}
	m.UpdatedAt = time.Now().UTC()
}

func NewReview(userID, name string, rating int, body string) Review {
	now := time.Now().UTC()

	return Review{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Rating:    rating,
		Body:      strings.TrimSpace(body),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
