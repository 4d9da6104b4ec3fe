package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/geocoder89/cinereview/internal/apperr"
	"github.com/geocoder89/cinereview/internal/domain/movie"
	"github.com/geocoder89/cinereview/internal/domain/user"
	"github.com/geocoder89/cinereview/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get(middlewares.CtxRequestID)

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

func RespondUnAuthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondInvalidID(ctx *gin.Context) {
	RespondError(ctx, http.StatusBadRequest, "invalid_id", "Invalid resource id", nil)
}

// error codes for the domain errors clients are expected to branch on
var errorCodes = []struct {
	err  error
	code string
}{
	{movie.ErrAlreadyReviewed, "already_reviewed"},
	{movie.ErrConcurrentUpdate, "concurrent_update"},
	{movie.ErrReviewNotFound, "review_not_found"},
	{user.ErrEmailTaken, "email_taken"},
}

// RespondAppError renders a classified error with the status its kind maps
// to. Unclassified and store errors are logged by the request logger and
// shown to the client only as fallback.
func RespondAppError(ctx *gin.Context, err error, fallback string) {
	status := apperr.HTTPStatus(err)
	kind := apperr.Kind(err)

	if status == http.StatusInternalServerError {
		_ = ctx.Error(err)
		RespondInternal(ctx, fallback)
		return
	}

	code := kindCode(kind)
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			code = c.code
			break
		}
	}

	RespondError(ctx, status, code, publicMessage(err, kind), nil)
}

func kindCode(kind error) string {
	switch kind {
	case apperr.ErrNotFound:
		return "not_found"
	case apperr.ErrConflict:
		return "conflict"
	case apperr.ErrUnauthorized:
		return "unauthorized"
	case apperr.ErrForbidden:
		return "forbidden"
	default:
		return "invalid_request"
	}
}

// publicMessage strips the kind from the error text: "movie not found: not
// found" reads "movie not found", "invalid input: rating must be..." reads
// "rating must be...".
func publicMessage(err error, kind error) string {
	msg := err.Error()
	if kind == nil {
		return msg
	}

	msg = strings.TrimPrefix(msg, kind.Error()+": ")
	msg = strings.TrimSuffix(msg, ": "+kind.Error())
	return msg
}
