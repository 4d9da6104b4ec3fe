// Package rating computes the derived rating fields of a movie.
package rating

import (
	"math"

	"github.com/geocoder89/cinereview/internal/domain/movie"
)

type Summary struct {
	Average float64
	Count   int
}

// Aggregate recomputes the summary from the full review set. It is never
// updated incrementally so repeated mutations cannot accumulate float drift.
func Aggregate(reviews []movie.Review) Summary {
	if len(reviews) == 0 {
		return Summary{}
	}

	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}

	return Summary{
		Average: Round1(float64(sum) / float64(len(reviews))),
		Count:   len(reviews),
	}
}

// Apply overwrites m's derived fields from its current reviews.
func Apply(m *movie.Movie) Summary {
	s := Aggregate(m.Reviews)
	m.AverageRating = s.Average
	m.NumReviews = s.Count
	return s
}

// Round1 rounds to one decimal place, halves away from zero.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
