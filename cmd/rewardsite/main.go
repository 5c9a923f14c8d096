// Package main запускает HTTP-сервер сайта наград.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/rewards-site/internal/alert"
	"github.com/mmeshcher/rewards-site/internal/config"
	"github.com/mmeshcher/rewards-site/internal/handler"
	"github.com/mmeshcher/rewards-site/internal/reward"
	"github.com/mmeshcher/rewards-site/internal/service"
	"github.com/mmeshcher/rewards-site/internal/session"
	"github.com/mmeshcher/rewards-site/internal/site"
	"github.com/mmeshcher/rewards-site/internal/storage"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	if cfg.BackendAddress == "" {
		sugar.Warn("backend address is not set, remote operations will fail")
	}

	store, err := storage.Open(storage.Options{
		DatabaseURI:   cfg.DatabaseURI,
		RedisAddress:  cfg.RedisAddress,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		RedisTTL:      cfg.SessionTTL,
		Dir:           cfg.StorageDir,
	})
	if err != nil {
		sugar.Fatalw("storage initialization error", "error", err.Error())
	}

	svc := service.NewService(site.NewClient(cfg.BackendAddress), store, logger)
	defer svc.Close()

	registry := session.NewRegistry(cfg.SessionTTL, alert.NewLogNotifier(logger.Named("alerts"))).WithLimit(cfg.SessionLimit)

	h, err := handler.NewHandler(svc, logger, registry, reward.NewStatic(cfg.RewardPool), cfg.SessionSecret)
	if err != nil {
		sugar.Fatalw("handler initialization error", "error", err.Error())
	}

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Фоновое обновление таблиц лидеров и очистка простаивающих сессий
	g.Go(func() error {
		svc.StartWinnersRefresh(ctx, registry, cfg.WinnersRefreshInterval)
		registry.StartSweeper(ctx, time.Minute)
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting rewards site", "addr", cfg.RunAddress, "backend", cfg.BackendAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
