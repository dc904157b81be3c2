package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"Quillpad/internal/api/middleware"
	"Quillpad/internal/api/routes"
	"Quillpad/internal/auth"
	"Quillpad/internal/config"
	"Quillpad/internal/core/attachments"
	"Quillpad/internal/core/posts"
	"Quillpad/internal/core/users"
	"Quillpad/internal/db/memory"
	"Quillpad/internal/db/migrations"
	postgresRepo "Quillpad/internal/db/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	slog.SetDefault(cfg.NewLogger())

	userRepo, postRepo, closeStore, err := openStores(cfg)
	if err != nil {
		log.Fatal("Failed to open store:", err)
	}
	defer closeStore()

	// Initialize services
	issuer, err := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL)
	if err != nil {
		log.Fatal("Failed to create token issuer:", err)
	}
	userService := users.NewUserService(userRepo, users.NewBcryptHasher(cfg.BcryptCost), issuer)

	attachmentService, err := attachments.NewService(
		attachments.NewProcessor(),
		newUploader(cfg),
		attachments.Limit(cfg.AttachmentMaxWidth, cfg.AttachmentMaxHeight),
	)
	if err != nil {
		log.Fatal("Failed to create attachment service:", err)
	}

	postService, err := posts.NewPostService(postRepo, attachmentService)
	if err != nil {
		log.Fatal("Failed to create post service:", err)
	}

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	// Bounds every request, including the attachment upload inside create/update
	r.Use(chiMiddleware.Timeout(cfg.RequestTimeout))
	r.Use(routes.CORSMiddleware(cfg.CORSAllowedOrigins))

	rateLimiter, err := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, middleware.DefaultMaxClients)
	if err != nil {
		log.Fatal("Failed to create rate limiter:", err)
	}
	r.Use(rateLimiter.Middleware)

	routes.RegisterHealthRoute(r)
	if err := routes.RegisterAuthRoutes(r, userService); err != nil {
		log.Fatal("Failed to register auth routes:", err)
	}
	routes.RegisterPostRoutes(r, postService, middleware.NewBearerAuthMiddleware(userService))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Quillpad API starting",
			"port", cfg.Port,
			"store", cfg.StoreDriver,
			"uploads_enabled", cfg.Cloudinary.Enabled(),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed:", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}

// openStores connects the configured store driver and runs migrations for Postgres
func openStores(cfg config.Config) (users.UserRepository, posts.Repository, func(), error) {
	if cfg.StoreDriver == config.DriverMemory {
		slog.Warn("using in-memory store; data is lost on restart")
		return memory.NewUserRepository(), memory.NewPostRepository(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}

	if err := db.Ping(); err != nil {
		closeDB()
		return nil, nil, nil, err
	}
	slog.Info("Connected to database")

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		closeDB()
		return nil, nil, nil, err
	}
	if err := goose.Up(db, "."); err != nil {
		closeDB()
		return nil, nil, nil, err
	}
	slog.Info("Migrations completed successfully")

	return postgresRepo.NewUserRepository(db), postgresRepo.NewPostRepository(db), closeDB, nil
}

// newUploader returns the Cloudinary uploader, or one that rejects every
// attachment when no credentials are configured
func newUploader(cfg config.Config) attachments.Uploader {
	if !cfg.Cloudinary.Enabled() {
		slog.Warn("image host not configured; posts with images will be rejected")
		return attachments.DisabledUploader{}
	}

	uploader, err := attachments.NewCloudinaryUploader(attachments.CloudinaryConfig{
		APIBase:   cfg.Cloudinary.APIBase,
		CloudName: cfg.Cloudinary.CloudName,
		APIKey:    cfg.Cloudinary.APIKey,
		APISecret: cfg.Cloudinary.APISecret,
		Timeout:   cfg.UploadTimeout,
	})
	if err != nil {
		log.Fatal("Failed to create image uploader:", err)
	}
	return uploader
}
