package middlewares

import (
	"github.com/geocoder89/cinereview/internal/policy"
	"github.com/gin-gonic/gin"
)

// RequireRole admits only callers whose role is exactly required.
func (m *AuthMiddleware) RequireRole(required string) gin.HandlerFunc {
	return m.Require(policy.Role(required))
}
