package movie

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/cinereview/internal/apperr"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func validCreate() CreateMovieRequest {
	return CreateMovieRequest{
		Title:       "Heat",
		Description: "A group of professional bank robbers.",
		Poster:      "https://example.com/heat.jpg",
		Genres:      []Genre{Crime, Thriller},
		Director:    "Michael Mann",
		Year:        1995,
		Duration:    170,
	}
}

func TestValidateStruct_Create(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *CreateMovieRequest)
		wantTag string
	}{
		{name: "valid"},
		{name: "unknown_genre", mutate: func(r *CreateMovieRequest) { r.Genres = []Genre{"Musical"} }, wantTag: "genre"},
		{name: "no_genres", mutate: func(r *CreateMovieRequest) { r.Genres = []Genre{} }, wantTag: "min"},
		{name: "year_too_old", mutate: func(r *CreateMovieRequest) { r.Year = 1899 }, wantTag: "releaseyear"},
		{name: "year_too_far", mutate: func(r *CreateMovieRequest) { r.Year = time.Now().Year() + 6 }, wantTag: "releaseyear"},
		{name: "zero_duration", mutate: func(r *CreateMovieRequest) { r.Duration = 0 }, wantTag: "required"},
		{name: "blank_title", mutate: func(r *CreateMovieRequest) { r.Title = "   " }, wantTag: "notblank"},
		{name: "missing_director", mutate: func(r *CreateMovieRequest) { r.Director = "" }, wantTag: "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreate()
			if tt.mutate != nil {
				tt.mutate(&req)
			}

			err := ValidateStruct(req)

			if tt.wantTag == "" {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, apperr.ErrInvalidInput)

			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs), "expected validation errors, got %T", err)
			assert.Equal(t, tt.wantTag, verrs[0].Tag())
		})
	}
}

func TestValidateStruct_UpdateIsPartial(t *testing.T) {
	assert.NoError(t, ValidateStruct(UpdateMovieRequest{}))
	assert.Error(t, ValidateStruct(UpdateMovieRequest{Year: ptr(1800)}))
	assert.Error(t, ValidateStruct(UpdateMovieRequest{Genres: []Genre{Drama, "Opera"}}))
}

func TestValidateReview(t *testing.T) {
	for _, r := range []float64{0, 6, -1, 4.5, 0.999} {
		assert.ErrorIs(t, ValidateReview(r, "fine"), apperr.ErrInvalidInput, "rating %v", r)
	}

	assert.ErrorIs(t, ValidateReview(3, " \n\t "), apperr.ErrInvalidInput)
	assert.ErrorIs(t, ValidateReview(4, strings.Repeat("é", MaxReviewLength+1)), apperr.ErrInvalidInput)
	assert.NoError(t, ValidateReview(5, strings.Repeat("é", MaxReviewLength)))
}

func TestApplyLeavesReviewsAlone(t *testing.T) {
	m := NewFromCreateRequest(validCreate())
	m.Reviews = []Review{NewReview("u1", "Sam", 4, "good")}
	m.AverageRating = 4
	m.NumReviews = 1

	m.Apply(UpdateMovieRequest{Title: ptr("  Heat (1995) "), Genres: []Genre{Drama}})

	assert.Equal(t, "Heat (1995)", m.Title)
	assert.Equal(t, []Genre{Drama}, m.Genres)
	assert.Equal(t, 1, m.NumReviews)
	assert.Equal(t, 4.0, m.AverageRating)
	assert.Len(t, m.Reviews, 1)
}

func TestCloneDetachesReviews(t *testing.T) {
	m := NewFromCreateRequest(validCreate())
	m.Reviews = []Review{NewReview("u1", "Sam", 4, "good")}
	m.Reviews[0].User = &Reviewer{ID: "u1", Name: "Sam"}

	c := m.Clone()
	c.Reviews[0].Rating = 1
	c.Reviews = append(c.Reviews, NewReview("u2", "Ana", 2, "meh"))

	assert.Equal(t, 4, m.Reviews[0].Rating, "clone aliased the original")
	assert.Len(t, m.Reviews, 1)
	assert.Nil(t, c.Reviews[0].User, "clone should drop read-time enrichment")
}

func TestReviewIndex(t *testing.T) {
	m := Movie{Reviews: []Review{{UserID: "a"}, {UserID: "b"}}}
	assert.Equal(t, 1, m.ReviewIndex("b"))
	assert.Equal(t, -1, m.ReviewIndex("c"))
}
