package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/geocoder89/cinereview/internal/domain/movie"
	"github.com/geocoder89/cinereview/internal/utils"
	"github.com/gin-gonic/gin"
)

type MovieService interface {
	CreateMovie(ctx context.Context, req movie.CreateMovieRequest) (movie.Movie, error)
	GetMovie(ctx context.Context, id string) (movie.Movie, error)
	UpdateMovie(ctx context.Context, id string, req movie.UpdateMovieRequest) (movie.Movie, error)
	DeleteMovie(ctx context.Context, id string) error
	ListMovies(ctx context.Context, q movie.ListQuery) (movie.Page, error)
}

type MoviesHandler struct {
	svc MovieService
}

func NewMoviesHandler(svc MovieService) *MoviesHandler {
	return &MoviesHandler{svc: svc}
}

func (h *MoviesHandler) ListMovies(ctx *gin.Context) {
	// unparsable pages fall back to the first one
	page, err := strconv.Atoi(ctx.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}

	p, err := h.svc.ListMovies(ctx.Request.Context(), movie.ListQuery{
		Keyword: ctx.Query("keyword"),
		Page:    page,
	})
	if err != nil {
		RespondAppError(ctx, err, "Could not list movies")
		return
	}

	ctx.JSON(http.StatusOK, p)
}

func (h *MoviesHandler) GetMovie(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondInvalidID(ctx)
		return
	}

	m, err := h.svc.GetMovie(ctx.Request.Context(), id)
	if err != nil {
		RespondAppError(ctx, err, "Could not fetch movie")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, m)
}

func (h *MoviesHandler) CreateMovie(ctx *gin.Context) {
	var req movie.CreateMovieRequest

	if !BindJSON(ctx, &req) {
		return
	}

	m, err := h.svc.CreateMovie(ctx.Request.Context(), req)
	if err != nil {
		RespondAppError(ctx, err, "Could not create movie")
		return
	}

	ctx.JSON(http.StatusCreated, m)
}

func (h *MoviesHandler) UpdateMovie(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondInvalidID(ctx)
		return
	}

	var req movie.UpdateMovieRequest

	if !BindJSON(ctx, &req) {
		return
	}

	m, err := h.svc.UpdateMovie(ctx.Request.Context(), id, req)
	if err != nil {
		RespondAppError(ctx, err, "Could not update movie")
		return
	}

	ctx.JSON(http.StatusOK, m)
}

func (h *MoviesHandler) DeleteMovie(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondInvalidID(ctx)
		return
	}

	if err := h.svc.DeleteMovie(ctx.Request.Context(), id); err != nil {
		RespondAppError(ctx, err, "Could not delete movie")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Movie removed"})
}
