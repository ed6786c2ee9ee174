// @title           Todo API
// @version         2.0.0
// @description     Todo CRUD API with health and info endpoints.
// @BasePath        /
package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Jeremieon/todo-api-cicd/internal/app"
	"github.com/Jeremieon/todo-api-cicd/internal/config"
	"github.com/Jeremieon/todo-api-cicd/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf(".env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	slog.SetDefault(lg)
	lg.Info("config loaded",
		"environment", cfg.App.Env,
		"version", cfg.App.Version,
		"db_driver", cfg.DB.Driver,
		"cache", cfg.Redis.Enabled(),
	)

	application, err := app.New(cfg, lg)
	if err != nil {
		lg.Error("app init failed", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.HTTP.Port,
		Handler:      application.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout.Duration(),
		WriteTimeout: cfg.HTTP.WriteTimeout.Duration(),
		IdleTimeout:  cfg.HTTP.IdleTimeout.Duration(),
	}

	go func() {
		lg.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	lg.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		lg.Error("http shutdown", "error", err)
	}
	if err := application.Close(ctx); err != nil {
		lg.Error("app close", "error", err)
	}
}
