package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/cinereview/internal/actorctx"
	"github.com/geocoder89/cinereview/internal/auth"
	"github.com/geocoder89/cinereview/internal/domain/user"
	"github.com/geocoder89/cinereview/internal/policy"
	"github.com/gin-gonic/gin"
)

// CookieName is the cookie that carries the session credential.
const CookieName = "jwt"

// Keep these interfaces small so tests can fake them easily.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type IdentityLookup interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type AuthMiddleware struct {
	tokens  TokenVerifier
	users   IdentityLookup
	timeout time.Duration
}

func NewAuthMiddleware(tokens TokenVerifier, users IdentityLookup, timeout time.Duration) *AuthMiddleware {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &AuthMiddleware{tokens: tokens, users: users, timeout: timeout}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return m.Require(policy.Authenticated)
}

// Require resolves the caller from the request credential and lets the
// request through only if the access policy allows it.
func (m *AuthMiddleware) Require(required policy.Requirement) gin.HandlerFunc {
	return func(c *gin.Context) {
		if required == policy.Public {
			c.Next()
			return
		}

		raw := credentialFrom(c)

		var identity *policy.Identity
		if raw != "" {
			userID, err := m.tokens.Verify(raw)
			if err != nil {
				code, msg := "invalid_token", "Not authorized, token failed"
				if errors.Is(err, auth.ErrExpiredToken) {
					code, msg = "token_expired", "Not authorized, token expired"
				}
				abort(c, http.StatusUnauthorized, code, msg)
				return
			}

			ctx, cancel := context.WithTimeout(c.Request.Context(), m.timeout)
			u, err := m.users.GetByID(ctx, userID)
			cancel()

			if err != nil {
				if errors.Is(err, user.ErrNotFound) {
					abort(c, http.StatusUnauthorized, "unauthorized", "Not authorized, user not found")
					return
				}
				abort(c, http.StatusInternalServerError, "internal_error", "Could not resolve identity")
				return
			}

			identity = &policy.Identity{UserID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
		}

		if err := policy.Authorize(identity, required); err != nil {
			if errors.Is(err, policy.ErrForbidden) {
				abort(c, http.StatusForbidden, "forbidden", "Not authorized, "+required.String()+" required")
				return
			}
			abort(c, http.StatusUnauthorized, "unauthorized", "Not authorized, no token")
			return
		}

		SetIdentity(c, identity)

		c.Next()
	}
}

// SetIdentity stashes the caller for handlers and the request logger.
func SetIdentity(c *gin.Context, identity *policy.Identity) {
	c.Set(ctxIdentity, identity)
	c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), identity.UserID))
}

// credentialFrom prefers the Authorization header over the cookie.
func credentialFrom(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		if raw := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); raw != "" {
			return raw
		}
	}

	if raw, err := c.Cookie(CookieName); err == nil {
		return strings.TrimSpace(raw)
	}
	return ""
}

func abort(c *gin.Context, status int, code, message string) {
	reqID, _ := c.Get(CtxRequestID)
	id, _ := reqID.(string)

	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":      code,
			"message":   message,
			"requestId": id,
		},
	})
}

// Optional helpers so handlers don't need to know the magic keys.

func IdentityFromContext(c *gin.Context) (*policy.Identity, bool) {
	v, ok := c.Get(ctxIdentity)
	if !ok {
		return nil, false
	}
	id, ok := v.(*policy.Identity)
	return id, ok && id != nil
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	id, ok := IdentityFromContext(c)
	if !ok {
		return "", false
	}
	return id.UserID, id.UserID != ""
}
