package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/shuttlehq/federation-system/config"
	"github.com/shuttlehq/federation-system/db"
	"github.com/shuttlehq/federation-system/events"
	"github.com/shuttlehq/federation-system/handlers"
	"github.com/shuttlehq/federation-system/repositories"
	api "github.com/shuttlehq/federation-system/routes"
	"github.com/shuttlehq/federation-system/services"
	"github.com/shuttlehq/federation-system/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	if err := db.Migrate(dbConn); err != nil {
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("migrations applied")

	// Snapshot publishing is optional; without an R2 account the engine
	// runs with live websocket updates only.
	var snapshotPublisher storage.SnapshotPublisher
	if cfg.R2AccountID != "" {
		snapshotPublisher, err = storage.NewCloudflareR2Publisher(storage.CloudflareR2PublisherConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 publisher", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 snapshot publisher initialized")
	} else {
		logger.Info("snapshot publishing disabled, R2_ACCOUNT_ID not set")
	}

	wsHub := events.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub started")

	txRunner := repositories.NewTxRunner(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository()
	categoryRepo := repositories.NewPostgresCategoryRepository()
	bracketRepo := repositories.NewPostgresBracketRepository()
	matchRepo := repositories.NewPostgresMatchRepository()
	eventRepo := repositories.NewPostgresEventRepository()
	logger.Info("repositories initialized")

	tournamentService := services.NewTournamentService(txRunner, tournamentRepo, logger)
	categoryService := services.NewCategoryService(txRunner, categoryRepo, logger)
	bracketService := services.NewBracketService(
		txRunner,
		categoryRepo,
		bracketRepo,
		matchRepo,
		eventRepo,
		wsHub,
		snapshotPublisher,
		logger,
	)
	matchService := services.NewMatchService(
		txRunner,
		matchRepo,
		bracketRepo,
		categoryRepo,
		eventRepo,
		wsHub,
		bracketService,
		logger,
	)
	logger.Info("services initialized")

	tournamentHandler := handlers.NewTournamentHandler(tournamentService, categoryService)
	bracketHandler := handlers.NewBracketHandler(bracketService)
	matchHandler := handlers.NewMatchHandler(matchService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, logger)
	logger.Info("HTTP handlers initialized")

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		tournamentHandler,
		bracketHandler,
		matchHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if err := server.Close(); err != nil {
				logger.Error("forced shutdown failed", slog.Any("error", err))
			}
		}
		logger.Info("server stopped")
	}
}
