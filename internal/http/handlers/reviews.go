package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/cinereview/internal/catalog"
	"github.com/geocoder89/cinereview/internal/domain/movie"
	"github.com/geocoder89/cinereview/internal/http/middlewares"
	"github.com/geocoder89/cinereview/internal/rating"
	"github.com/geocoder89/cinereview/internal/utils"
	"github.com/gin-gonic/gin"
)

type ReviewService interface {
	AddReview(ctx context.Context, in catalog.AddReviewInput) (catalog.ReviewResult, error)
	RemoveReview(ctx context.Context, movieID, userID string) (rating.Summary, error)
	ListReviews(ctx context.Context, movieID string) (catalog.ReviewList, error)
}

type ReviewsHandler struct {
	svc ReviewService
}

func NewReviewsHandler(svc ReviewService) *ReviewsHandler {
	return &ReviewsHandler{svc: svc}
}

func (h *ReviewsHandler) ListReviews(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondInvalidID(ctx)
		return
	}

	list, err := h.svc.ListReviews(ctx.Request.Context(), id)
	if err != nil {
		RespondAppError(ctx, err, "Could not list reviews")
		return
	}

	ctx.JSON(http.StatusOK, list)
}

func (h *ReviewsHandler) AddReview(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondInvalidID(ctx)
		return
	}

	identity, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Not authorized")
		return
	}

	var req movie.CreateReviewRequest

	if !BindJSON(ctx, &req) {
		return
	}

	res, err := h.svc.AddReview(ctx.Request.Context(), catalog.AddReviewInput{
		MovieID: id,
		UserID:  identity.UserID,
		Name:    identity.Name,
		Rating:  req.Rating,
		Body:    req.Body,
	})
	if err != nil {
		RespondAppError(ctx, err, "Could not add review")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message":       "Review added",
		"review":        res.Review,
		"averageRating": res.AverageRating,
		"numReviews":    res.NumReviews,
	})
}

// RemoveReview deletes the caller's own review; there is no way to name
// somebody else's.
func (h *ReviewsHandler) RemoveReview(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondInvalidID(ctx)
		return
	}

	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Not authorized")
		return
	}

	sum, err := h.svc.RemoveReview(ctx.Request.Context(), id, userID)
	if err != nil {
		RespondAppError(ctx, err, "Could not remove review")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":       "Review removed",
		"averageRating": sum.Average,
		"numReviews":    sum.Count,
	})
}
