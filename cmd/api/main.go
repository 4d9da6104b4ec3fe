package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/cinereview/internal/auth"
	"github.com/geocoder89/cinereview/internal/cache"
	"github.com/geocoder89/cinereview/internal/catalog"
	"github.com/geocoder89/cinereview/internal/config"
	"github.com/geocoder89/cinereview/internal/db"
	httpx "github.com/geocoder89/cinereview/internal/http"
	"github.com/geocoder89/cinereview/internal/observability"
	"github.com/geocoder89/cinereview/internal/redisclient"
	"github.com/geocoder89/cinereview/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	log = log.With("service", "cinereview-api")
	slog.SetDefault(log)

	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName: "cinereview-api",
		Env:         cfg.Env,
		Endpoint:    cfg.OtelEndpoint,
		SampleRatio: cfg.OtelSampleRatio,
	})
	if err != nil {
		log.Error("failed to init tracer", "err", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(ctx, cfg.DBURL, int32(cfg.DBMaxConns))
	if err != nil {
		log.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(cfg.DBURL); err != nil {
			log.Error("failed to run migrations", "err", err)
			os.Exit(1)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(pool, prom)
	moviesRepo := postgres.NewMoviesRepo(pool, prom)

	seedCtx, cancelSeed := context.WithTimeout(ctx, 10*time.Second)
	created, err := db.EnsureAdminUser(seedCtx, usersRepo, cfg)
	cancelSeed()
	if err != nil {
		log.Error("failed to seed admin user", "err", err)
		os.Exit(1)
	}
	if created {
		log.Info("admin user created", "email", cfg.AdminEmail)
	}

	// list cache: redis when configured so replicas share invalidation
	var listCache cache.Store = cache.New(cfg.CacheTTL)
	if cfg.RedisAddr != "" {
		rc := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rc.Close()

		pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
		err := rc.Ping(pingCtx)
		cancelPing()
		if err != nil {
			log.Warn("redis unreachable, using in-process cache", "addr", cfg.RedisAddr, "err", err)
		} else {
			listCache = cache.NewRedis(rc.Raw(), cfg.CacheTTL)
		}
	}

	svc := catalog.NewService(moviesRepo, usersRepo,
		catalog.WithCache(listCache),
		catalog.WithMetrics(prom),
		catalog.WithLogger(log),
		catalog.WithStoreTimeout(cfg.StoreTimeout),
	)

	router := httpx.NewRouter(log, cfg, httpx.Deps{
		Users:    usersRepo,
		Catalog:  svc,
		Sessions: auth.NewManager(cfg.JWTSecret, cfg.JWTTTL()),
		Prom:     prom,
		Gatherer: reg,
		Ping:     pool.Ping,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
