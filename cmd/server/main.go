package main

import (
	"NewsBlog/internal/assets"
	"NewsBlog/internal/config"
	"NewsBlog/internal/handlers"
	"NewsBlog/internal/middleware"
	"NewsBlog/internal/repo"
	"NewsBlog/internal/service"
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	cfg := config.NewConfig()

	// создаём предустановленный регистратор zap
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gormDB, err := repo.InitDB(cfg.DatabaseDSN)
	if err != nil {
		sugar.Fatalw("failed to initialize database", "error", err)
	}

	am, err := assets.NewManager(cfg.StaticDir, sugar)
	if err != nil {
		sugar.Fatalw("failed to prepare static dir", "dir", cfg.StaticDir, "error", err)
	}

	store := repo.NewStore(gormDB)
	userService := service.NewUserService(store.Users)
	if cfg.BcryptCost > 0 {
		userService = userService.WithCost(cfg.BcryptCost)
	}
	content := service.NewContentService(store, userService, am, sugar)

	h := handlers.NewHandler(content, userService, sugar, cfg)

	addr := cfg.BaseURL

	sugar.Infow(
		"Starting server",
		"addr", addr,
		"url", cfg.ServerURL,
	)

	sugar.Infow("Config",
		"BaseURL", cfg.BaseURL,
		"EnableHTTPS", cfg.EnableHTTPS,
		"DatabaseDSN", cfg.DatabaseDSN,
		"StaticDir", cfg.StaticDir,
		"UploadMaxSizeMB", cfg.UploadMaxSizeMB,
	)

	srv := &http.Server{Addr: addr, Handler: h.Router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			sugar.Errorw("Server shutdown failed", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Fatalw("Server failed", "error", err)
	}
	sugar.Infow("Server stopped")
}
