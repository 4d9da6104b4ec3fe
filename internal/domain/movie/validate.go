package movie

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/geocoder89/cinereview/internal/apperr"
	"github.com/go-playground/validator/v10"
)

// The same rules back gin's request binding and the catalog service, so
// they read the "binding" struct tag.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")

	if err := RegisterValidations(v); err != nil {
		panic(err)
	}

	return v
}

// RegisterValidations installs the catalog rules (genre, releaseyear,
// notblank) on v.
func RegisterValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("genre", func(fl validator.FieldLevel) bool {
		return Genre(fl.Field().String()).IsValid()
	}); err != nil {
		return err
	}

	if err := v.RegisterValidation("releaseyear", func(fl validator.FieldLevel) bool {
		return YearInRange(int(fl.Field().Int()), time.Now())
	}); err != nil {
		return err
	}

	return v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

func YearInRange(year int, now time.Time) bool {
	return year >= MinYear && year <= now.Year()+MaxYearAhead
}

// ValidateStruct runs the binding rules on a request. Failures wrap both
// apperr.ErrInvalidInput and the validator.ValidationErrors.
func ValidateStruct(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w: %w", apperr.ErrInvalidInput, err)
}

// ValidateReview checks a review submission.
func ValidateReview(rating float64, body string) error {
	if rating < MinRating || rating > MaxRating || rating != math.Trunc(rating) {
		return apperr.InvalidInput("rating must be an integer between %d and %d", MinRating, MaxRating)
	}

	if strings.TrimSpace(body) == "" {
		return apperr.InvalidInput("reviewText must not be empty")
	}

	if utf8.RuneCountInString(body) > MaxReviewLength {
		return apperr.InvalidInput("reviewText must be at most %d characters", MaxReviewLength)
	}

	return nil
}
