// Package main запускает HTTP-сервер программы лояльности кофейни.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/cafe-loyalty/internal/config"
	"github.com/mmeshcher/cafe-loyalty/internal/handler"
	"github.com/mmeshcher/cafe-loyalty/internal/logger"
	"github.com/mmeshcher/cafe-loyalty/internal/metrics"
	"github.com/mmeshcher/cafe-loyalty/internal/middleware"
	"github.com/mmeshcher/cafe-loyalty/internal/notify"
	"github.com/mmeshcher/cafe-loyalty/internal/repository"
	"github.com/mmeshcher/cafe-loyalty/internal/service"
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	sugar := log.Sugar()

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	notifier, closeNotifier := newNotifier(cfg, log)
	dispatcher := notify.NewDispatcher(notifier, log, 0)

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(metrics.New(prometheus.DefaultRegisterer)),
	}
	if cfg.AdvisoryBalanceCheck {
		opts = append(opts, service.WithAdvisoryBalanceCheck())
	}
	svc := service.NewService(repo, dispatcher, opts...)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	if cfg.AuthSecret == "" {
		sugar.Warn("AUTH_SECRET is empty, access tokens will not survive a restart")
	}
	h := handler.NewHandler(svc, log, authMiddleware, middleware.NewRateLimiter(cfg.RateLimitRPM), cfg.TrustProxyHeaders)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Фоновый сбор отчётных показателей
	g.Go(func() error {
		svc.RunHousekeeping(ctx, cfg.HousekeepingInterval)
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting loyalty server", "addr", cfg.RunAddress)
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

		dispatcher.Wait()
		if err := closeNotifier(); err != nil {
			sugar.Warnw("notifier close error", "error", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

// newNotifier выбирает канал уведомлений: Kafka, webhook или только лог.
func newNotifier(cfg *config.Config, log *zap.Logger) (notify.Notifier, func() error) {
	switch {
	case len(cfg.KafkaBrokers) > 0:
		log.Info("notifications via kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.NotifyTopic))
		n := notify.NewKafkaNotifier(notify.NewKafkaWriter(cfg.KafkaBrokers, cfg.NotifyTopic))
		return n, n.Close
	case cfg.NotifyWebhookURL != "":
		log.Info("notifications via webhook", zap.String("url", cfg.NotifyWebhookURL))
		return notify.NewWebhookNotifier(cfg.NotifyWebhookURL), func() error { return nil }
	default:
		return notify.NewLogNotifier(log), func() error { return nil }
	}
}
