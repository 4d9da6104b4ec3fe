package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/cinereview/internal/apperr"
	"github.com/geocoder89/cinereview/internal/auth"
	"github.com/geocoder89/cinereview/internal/config"
	"github.com/geocoder89/cinereview/internal/domain/user"
	"github.com/geocoder89/cinereview/internal/http/middlewares"
	"github.com/geocoder89/cinereview/internal/security"
	"github.com/gin-gonic/gin"
)

type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Update(ctx context.Context, id string, p user.ProfileUpdate) (user.User, error)
}

type SessionIssuer interface {
	Issue(userID string) (auth.Credential, error)
	Revoke() auth.Credential
}

type AuthHandler struct {
	users    UserStore
	sessions SessionIssuer
	cfg      config.Config
}

func NewAuthHandler(users UserStore, sessions SessionIssuer, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Role is deliberately absent: every self-registered account is a plain user.
type SignUpRequest struct {
	Name     string `json:"name" binding:"required,notblank,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type UpdateProfileRequest struct {
	Name            *string `json:"name" binding:"omitempty,notblank,max=100"`
	Email           *string `json:"email" binding:"omitempty,email"`
	CurrentPassword string  `json:"currentPassword"`
	NewPassword     string  `json:"newPassword" binding:"omitempty,min=6,max=72"`
	ConfirmPassword string  `json:"confirmPassword" binding:"omitempty,eqfield=NewPassword"`
}

type sessionResponse struct {
	user.User
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *AuthHandler) storeCtx(ctx *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), h.cfg.StoreTimeout)
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		h.respondHashError(ctx, err, "Could not create user")
		return
	}

	u, err := user.New(req.Name, req.Email, hash, user.RoleUser)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	cctx, cancel := h.storeCtx(ctx)
	defer cancel()

	u, err = h.users.Create(cctx, u)

	if err != nil {
		RespondAppError(ctx, apperr.Unavailable(err), "Could not create user")
		return
	}

	h.startSession(ctx, http.StatusCreated, u)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := h.storeCtx(ctx)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			RespondAppError(ctx, apperr.Unavailable(err), "Could not log in")
			return
		}
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	h.startSession(ctx, http.StatusOK, foundUser)
}

// Logout only clears the client's cookie; credentials are stateless and
// stay valid until they expire.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	cred := h.sessions.Revoke()
	h.setSessionCookie(ctx, cred.Token, -1)

	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *AuthHandler) Profile(ctx *gin.Context) {
	u, ok := h.currentUser(ctx)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *AuthHandler) UpdateProfile(ctx *gin.Context) {
	var req UpdateProfileRequest

	if !BindJSON(ctx, &req) {
		return
	}

	u, ok := h.currentUser(ctx)
	if !ok {
		return
	}

	update := user.ProfileUpdate{Name: req.Name, Email: req.Email}

	passwordChanged := req.NewPassword != ""
	if passwordChanged {
		if req.CurrentPassword == "" {
			RespondBadRequest(ctx, "Current password is required to set a new password", nil)
			return
		}
		if req.ConfirmPassword != req.NewPassword {
			RespondBadRequest(ctx, "New passwords do not match", nil)
			return
		}
		if err := security.CheckPassword(u.PasswordHash, req.CurrentPassword); err != nil {
			RespondUnAuthorized(ctx, "invalid_credentials", "Current password is incorrect.")
			return
		}

		hash, err := security.HashPassword(req.NewPassword)
		if err != nil {
			h.respondHashError(ctx, err, "Could not update profile")
			return
		}
		update.PasswordHash = &hash
	}

	cctx, cancel := h.storeCtx(ctx)
	defer cancel()

	updated, err := h.users.Update(cctx, u.ID, update)
	if err != nil {
		RespondAppError(ctx, apperr.Unavailable(err), "Could not update profile")
		return
	}

	if passwordChanged {
		h.startSession(ctx, http.StatusOK, updated)
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

func (h *AuthHandler) CheckRole(ctx *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Not authorized")
		return
	}

	isAdmin := identity.Role == user.RoleAdmin

	ctx.JSON(http.StatusOK, gin.H{
		"id":   identity.UserID,
		"name": identity.Name,
		"role": identity.Role,
		"permissions": gin.H{
			"isAdmin":          isAdmin,
			"canCreateMovies":  isAdmin,
			"canEditMovies":    isAdmin,
			"canDeleteMovies":  isAdmin,
			"canViewUsers":     isAdmin,
			"canCreateReviews": true,
		},
	})
}

// Helper functions

func (h *AuthHandler) currentUser(ctx *gin.Context) (user.User, bool) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Not authorized")
		return user.User{}, false
	}

	cctx, cancel := h.storeCtx(ctx)
	defer cancel()

	u, err := h.users.GetByID(cctx, userID)
	if err != nil {
		RespondAppError(ctx, apperr.Unavailable(err), "Could not load profile")
		return user.User{}, false
	}
	return u, true
}

func (h *AuthHandler) respondHashError(ctx *gin.Context, err error, fallback string) {
	if errors.Is(err, security.ErrPasswordTooLong) {
		RespondBadRequest(ctx, "Password must be at most 72 bytes", nil)
		return
	}
	RespondInternal(ctx, fallback)
}

func (h *AuthHandler) startSession(ctx *gin.Context, status int, u user.User) {
	cred, err := h.sessions.Issue(u.ID)

	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.setSessionCookie(ctx, cred.Token, int(time.Until(cred.ExpiresAt).Seconds()))

	ctx.JSON(status, sessionResponse{User: u, Token: cred.Token, ExpiresAt: cred.ExpiresAt})
}

func (h *AuthHandler) setSessionCookie(ctx *gin.Context, raw string, maxAge int) {
	secure := h.cfg.Env == "prod"

	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(
		middlewares.CookieName,
		raw,
		maxAge,
		"/",
		"",
		secure,
		true, // HttpOnly.
	)
}
