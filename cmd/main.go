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

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/config"
	"github.com/Dosada05/tournament-engine/db"
	"github.com/Dosada05/tournament-engine/handlers"
	"github.com/Dosada05/tournament-engine/repositories"
	api "github.com/Dosada05/tournament-engine/routes"
	"github.com/Dosada05/tournament-engine/services"
	"github.com/Dosada05/tournament-engine/storage"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
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

	// Архив итоговых таблиц (Cloudflare R2); опционален.
	var uploader storage.FileUploader
	if cfg.ArchiveConfigured() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2Bucket,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("standings archive disabled: R2 not configured")
	}

	// Инициализация WebSocket Hub
	wsHub := brackets.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Кеш состояний на конец раунда и движок пересчета
	cache := brackets.NewEndOfRoundCache(cfg.CacheEnabled).
		WithLimits(cfg.CacheMaxKeys, cfg.CacheIdleEvict)
	engine := brackets.NewEngine(cache)

	// Инициализация репозиториев
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	seedingRepo := repositories.NewPostgresSeedingRepository(dbConn)
	actionRepo := repositories.NewPostgresAdminActionRepository(dbConn)
	resultRepo := repositories.NewPostgresResultRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	authService := services.NewAuthService(cfg.AdminPasswordHash, cfg.JWTSecretKey, cfg.TokenTTL)
	tournamentService := services.NewTournamentService(tournamentRepo, seedingRepo)
	adminService := services.NewAdminService(tournamentRepo, seedingRepo, actionRepo, resultRepo, uploader)
	scheduleService := services.NewScheduleService(
		engine,
		tournamentRepo,
		seedingRepo,
		actionRepo,
		resultRepo,
		wsHub,
		uploader,
		logger,
	)
	logger.Info("Services initialized")

	// Инициализация обработчиков HTTP
	authHandler := handlers.NewAuthHandler(authService)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService, scheduleService, adminService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, tournamentService)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, authHandler, tournamentHandler, webSocketHandler, cfg.JWTSecretKey)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
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

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
