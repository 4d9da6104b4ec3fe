package handlers_test

import (
	"github.com/geocoder89/cinereview/internal/http/handlers"
	"github.com/geocoder89/cinereview/internal/http/middlewares"
	"github.com/geocoder89/cinereview/internal/policy"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Make sure Gin does not spam the console during the test
func init() {
	gin.SetMode(gin.TestMode)

	if err := handlers.RegisterValidators(); err != nil {
		panic(err)
	}
}

func newUUID() string {
	return uuid.NewString()
}

// small helper function which returns the gin engine to mount one handler per test
func setupRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.RequestID())

	r.Handle(method, path, h)

	return r
}

// asUser mounts h behind a stand-in for the auth middleware that admits
// identity unconditionally.
func asUser(method, path string, identity *policy.Identity, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.RequestID())

	r.Handle(method, path, func(c *gin.Context) {
		middlewares.SetIdentity(c, identity)
		c.Next()
	}, h)

	return r
}
