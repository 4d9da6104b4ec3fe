package http

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/cinereview/internal/auth"
	"github.com/geocoder89/cinereview/internal/catalog"
	"github.com/geocoder89/cinereview/internal/config"
	"github.com/geocoder89/cinereview/internal/domain/user"
	"github.com/geocoder89/cinereview/internal/http/handlers"
	"github.com/geocoder89/cinereview/internal/http/middlewares"
	"github.com/geocoder89/cinereview/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20

// UserStore is everything the HTTP layer needs from the identity store.
type UserStore interface {
	handlers.UserStore
	handlers.UserAdminStore
}

// Deps are the collaborators the router wires into handlers. Prom, Gatherer
// and Ping are optional.
type Deps struct {
	Users    UserStore
	Catalog  *catalog.Service
	Sessions *auth.Manager
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
	Ping     func(ctx context.Context) error
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := handlers.RegisterValidators(); err != nil {
		panic(fmt.Sprintf("register validators: %v", err))
	}

	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(otelgin.Middleware("cinereview-api"))
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders(cfg.Env))
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())

	r.NoRoute(func(ctx *gin.Context) {
		handlers.RespondNotFound(ctx, "Route not found")
	})

	// health
	h := handlers.NewHealthHandler(deps.Ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// docs
	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	// wire up handlers
	authMW := middlewares.NewAuthMiddleware(deps.Sessions, deps.Users, cfg.StoreTimeout)
	authHandler := handlers.NewAuthHandler(deps.Users, deps.Sessions, cfg)
	usersHandler := handlers.NewUsersHandler(deps.Users, cfg.StoreTimeout)
	moviesHandler := handlers.NewMoviesHandler(deps.Catalog)
	reviewsHandler := handlers.NewReviewsHandler(deps.Catalog)

	// credential guessing and review spam are throttled separately
	authLimiter := middlewares.NewRateLimiter(10, time.Minute)
	reviewLimiter := middlewares.NewRateLimiter(20, time.Minute)

	api := r.Group("/api")

	users := api.Group("/users")
	users.POST("", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.SignUp)
	users.POST("/auth", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)
	users.POST("/logout", authHandler.Logout)
	users.GET("/profile", authMW.RequireAuth(), authHandler.Profile)
	users.PUT("/profile", authMW.RequireAuth(), authHandler.UpdateProfile)
	users.GET("/check-role", authMW.RequireAuth(), authHandler.CheckRole)
	users.GET("/all", authMW.RequireRole(user.RoleAdmin), usersHandler.ListUsers)
	users.DELETE("/:id", authMW.RequireRole(user.RoleAdmin), usersHandler.DeleteUser)

	movies := api.Group("/movies")
	movies.GET("", moviesHandler.ListMovies)
	movies.GET("/:id", moviesHandler.GetMovie)
	movies.POST("", authMW.RequireRole(user.RoleAdmin), moviesHandler.CreateMovie)
	movies.PUT("/:id", authMW.RequireRole(user.RoleAdmin), moviesHandler.UpdateMovie)
	movies.DELETE("/:id", authMW.RequireRole(user.RoleAdmin), moviesHandler.DeleteMovie)

	// reviews
	movies.GET("/:id/reviews", reviewsHandler.ListReviews)
	movies.POST("/:id/reviews", authMW.RequireAuth(), reviewLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP), reviewsHandler.AddReview)
	movies.DELETE("/:id/reviews", authMW.RequireAuth(), reviewsHandler.RemoveReview)

	return r
}
