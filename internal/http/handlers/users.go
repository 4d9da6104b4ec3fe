package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/cinereview/internal/apperr"
	"github.com/geocoder89/cinereview/internal/domain/user"
	"github.com/geocoder89/cinereview/internal/utils"
	"github.com/gin-gonic/gin"
)

type UserAdminStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
	Delete(ctx context.Context, id string) error
}

type UsersHandler struct {
	users   UserAdminStore
	timeout time.Duration
}

func NewUsersHandler(users UserAdminStore, timeout time.Duration) *UsersHandler {
	return &UsersHandler{users: users, timeout: timeout}
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	users, err := h.users.List(cctx)
	if err != nil {
		RespondAppError(ctx, apperr.Unavailable(err), "Could not list users")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}

// DeleteUser removes a plain user account. Admin accounts cannot be
// removed over the API. Reviews the user wrote stay on
// their movies under the name recorded at write time.
func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondInvalidID(ctx)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	target, err := h.users.GetByID(cctx, id)
	if err != nil {
		RespondAppError(ctx, apperr.Unavailable(err), "Could not delete user")
		return
	}

	if target.Role == user.RoleAdmin {
		RespondError(ctx, http.StatusBadRequest, "cannot_delete_admin", "Cannot delete an admin user", nil)
		return
	}

	if err := h.users.Delete(cctx, id); err != nil {
		RespondAppError(ctx, apperr.Unavailable(err), "Could not delete user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "User removed"})
}
