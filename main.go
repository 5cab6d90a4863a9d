package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kevinaaaquil/bookstore/config"
	"github.com/kevinaaaquil/bookstore/handlers"
	"github.com/kevinaaaquil/bookstore/middleware"
	"github.com/kevinaaaquil/bookstore/models"
	"github.com/kevinaaaquil/bookstore/service"
	"github.com/kevinaaaquil/bookstore/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		fatal("config", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal("config", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName, cfg.MongoUseTransactions)
	if err != nil {
		fatal("mongodb", err)
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			slog.Error("mongodb disconnect", "error", err)
		}
	}()
	if err := db.EnsureIndexes(ctx); err != nil {
		fatal("mongodb indexes", err)
	}

	accounts := service.NewAccountService(db)
	if cfg.AdminEmail != "" {
		created, err := accounts.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			fatal("seed admin", err)
		}
		if created {
			slog.Info("admin account created", "email", cfg.AdminEmail)
		}
	}

	covers := &service.CoverService{Books: db}
	if cfg.StorageEnabled() {
		s3Store, err := service.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3AccessKeyID, cfg.S3SecretKey)
		if err != nil {
			fatal("s3", err)
		}
		covers.Objects = s3Store
	} else {
		slog.Warn("AWS_S3_BUCKET not set; cover uploads disabled")
	}

	var notifier service.Notifier = service.LogNotifier{Logger: logger.With("component", "notifier")}
	if cfg.MailEnabled() {
		notifier = service.NewMailNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	} else {
		slog.Warn("SMTP_HOST not set; rental notices will only be logged")
	}

	rentals := service.NewRentalService(db)
	hour, minute, _ := cfg.SweepTime()
	sweeper := service.NewSweeper(db, rentals, notifier, service.Schedule{Hour: hour, Minute: minute, Interval: cfg.SweepInterval}, logger)
	if cfg.SweepEnabled {
		sweeper.Start(ctx)
		defer sweeper.Stop()
	}

	analytics := middleware.NewAnalytics(cfg.PostHogAPIKey, cfg.PostHogEndpoint, logger)
	defer analytics.Close()

	authLimiter, err := middleware.NewIPLimiter(cfg.AuthRateLimit)
	if err != nil {
		fatal("AUTH_RATE_LIMIT", err)
	}

	validate := handlers.NewValidator()
	authHandler := &handlers.AuthHandler{
		Accounts:  accounts,
		Validate:  validate,
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.JWTExpiry,
	}
	booksHandler := &handlers.BooksHandler{
		Catalog:        db,
		Covers:         covers,
		Metadata:       service.NewMetadataClient(),
		Validate:       validate,
		MaxUploadBytes: cfg.MaxUploadBytes(),
	}
	profileHandler := &handlers.ProfileHandler{
		Accounts: accounts,
		Rentals:  rentals,
		Validate: validate,
	}
	adminHandler := &handlers.AdminHandler{
		Dashboard: service.NewAdminService(db),
		Rentals:   rentals,
		Sweeper:   sweeper,
		Validate:  validate,
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORSOrigin))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(authLimiter))
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)
		})

		r.Get("/books", booksHandler.List)
		r.Get("/books/meta/filters", booksHandler.Filters)
		r.Get("/books/{id}", booksHandler.Get)
		r.Get("/books/{id}/cover", booksHandler.Cover)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))
			r.Use(middleware.Track(analytics))
			r.Get("/profile", profileHandler.Profile)
			r.Post("/profile/rent/{bookId}", profileHandler.Rent)
			r.Post("/profile/purchase/{bookId}", profileHandler.Purchase)
			r.Post("/profile/return/{transactionId}", profileHandler.Return)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))
			r.Use(middleware.RequireRole(models.RoleAdmin))
			r.Post("/books", booksHandler.Create)
			r.Post("/books/import", booksHandler.Import)
			r.Put("/books/{id}", booksHandler.Update)
			r.Delete("/books/{id}", booksHandler.Delete)
			r.Put("/books/{id}/cover", booksHandler.UploadCover)

			r.Get("/admin/transactions", adminHandler.Transactions)
			r.Patch("/admin/transactions/{id}/status", adminHandler.UpdateStatus)
			r.Get("/admin/overdue", adminHandler.Overdue)
			r.Get("/admin/stats", adminHandler.Stats)
			r.Get("/admin/notifications", adminHandler.Notifications)
			r.Post("/admin/sweep", adminHandler.Sweep)
		})
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("http server", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
