// Package main is the entrypoint for the ResumeForge render worker.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/resumeforge/resumeforge/internal/cache"
	"github.com/resumeforge/resumeforge/internal/config"
	"github.com/resumeforge/resumeforge/internal/render"
	"github.com/resumeforge/resumeforge/internal/storage"
	"github.com/resumeforge/resumeforge/internal/store"
	"github.com/resumeforge/resumeforge/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "bucket", cfg.Storage.Bucket)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	artifacts, err := storage.NewGCSStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("create artifact store: %w", err)
	}
	defer artifacts.Close()
	slog.Info("artifact store initialized", "bucket", cfg.Storage.Bucket)

	pgStore := store.NewPostgresStore(pool)

	poller := worker.New(pgStore, artifacts, render.NewPDFRenderer(), redisCache, logger, worker.Config{
		IdleInterval:  cfg.Worker.IdleInterval,
		ErrorBackoff:  cfg.Worker.ErrorBackoff,
		RenderTimeout: cfg.Worker.RenderTimeout,
		ResumeExpiry:  cfg.Resume.Expiry,
	})

	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("poller: %w", err)
	}

	slog.Info("worker stopped gracefully")
	return nil
}
