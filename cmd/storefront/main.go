package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bayt-storefront/internal/cache"
	"bayt-storefront/internal/catalog"
	"bayt-storefront/internal/config"
	"bayt-storefront/internal/handler"
	"bayt-storefront/internal/middleware"
	"bayt-storefront/internal/model"
	"bayt-storefront/internal/notify"
	"bayt-storefront/internal/router"
	"bayt-storefront/internal/service"
	"bayt-storefront/internal/store"
	"bayt-storefront/internal/view"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Bayt storefront...")

	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	storage, err := openStorage(&cfg.Cache)
	if err != nil {
		log.Fatalf("Failed to initialize %s cache storage: %v", cfg.Cache.Storage, err)
	}
	defer storage.Close()

	pages := cache.NewExpiringCache[model.CatalogPage](storage)
	client := catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout)
	log.Printf("Catalog API: %s", client.BaseURL())

	// Each session gets its own store and notifications; cache and client are shared.
	registry := view.NewRegistry(func(sessionID string) *view.View {
		return view.New(
			client,
			pages,
			store.New(),
			notify.NewQueue(sessionID, cfg.Notify.TTL, cfg.Notify.Max),
			view.Options{
				Name:                sessionID,
				CacheTTL:            cfg.Cache.TTL,
				Placeholders:        cfg.View.Placeholders,
				AllowStaleResponses: cfg.View.AllowStaleResponses,
			},
		)
	}).WithMaxSessions(cfg.View.MaxSessions)

	scheduler := service.NewCleanupScheduler(
		service.Job{
			Name:     service.JobCacheSweep,
			Interval: cfg.Cache.SweepInterval,
			Run: func(ctx context.Context) (int64, error) {
				return pages.PurgeExpired(ctx, model.CacheKeyPrefix)
			},
		},
		service.Job{
			Name:     service.JobSessionSweep,
			Interval: cfg.View.SessionSweep,
			Run: func(ctx context.Context) (int64, error) {
				return registry.ExpireIdle(cfg.View.SessionIdleTimeout), nil
			},
		},
	)
	scheduler.Start()

	r := router.New(router.Config{
		Handler:           handler.New(cfg.App.Version, storage),
		StorefrontHandler: handler.NewStorefrontHandler(registry, cfg.Catalog.Timeout+5*time.Second),
		AdminHandler:      handler.NewAdminHandler(storage, cfg.Cache.Storage, registry, scheduler),
		AdminMiddleware:   middleware.NewLoginKeyMiddleware(cfg.App.LoginKey),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	scheduler.Stop()
	registry.Close()

	log.Println("Server stopped")
	fmt.Println("Goodbye!")
}

// openStorage selects the cache backend named in config.
func openStorage(cfg *config.CacheConfig) (cache.Storage, error) {
	switch cfg.Storage {
	case "memory":
		log.Println("Using in-memory cache storage (not persistent)")
		return cache.NewMemoryStorage(), nil
	case "redis":
		return cache.NewRedisStorage(cache.RedisConfig{
			Addr:      cfg.RedisAddress(),
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisPrefix,
		})
	case "postgres", "postgresql":
		return cache.NewPostgresStorage(cfg.PostgresDSN())
	case "mysql":
		return cache.NewMySQLStorage(cfg.MySQLDSN())
	case "mongodb", "mongo":
		return cache.NewMongoDBStorage(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	case "sqlite", "":
		return cache.NewSQLiteStorage(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown cache storage %q", cfg.Storage)
	}
}
