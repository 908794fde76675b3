package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lesson_video/internal/api"
	"lesson_video/internal/app"
	"lesson_video/internal/config"
	"lesson_video/internal/engine"
	"lesson_video/internal/logger"
)

func main() {
	cfg, envLoaded := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if !envLoaded {
		log.Warn("No .env file found, using environment variables")
	}
	if err := engine.ValidateFFmpegInstalled(); err != nil {
		log.Fatal("ffmpeg check failed", "error", err)
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		log.Fatal("Failed to create output directory", "dir", cfg.OutputDir, "error", err)
	}

	a, err := app.New(cfg, log)
	if err != nil {
		log.Fatal("Failed to wire services", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	j, err := a.NewJobs(connectCtx)
	cancel()
	if err != nil {
		log.Fatal("Failed to wire jobs", "error", err)
	}

	server := api.NewServer(j.Manager, a.Exporter, log.With("component", "api")).
		WithPublicBaseURL(cfg.PublicBaseURL)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Lesson video API server starting", "port", cfg.Port, "output_dir", cfg.OutputDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown failed", "error", err)
	}
	if err := j.Close(); err != nil {
		log.Warn("closing job services failed", "error", err)
	}
	log.Info("Server exited")
}
