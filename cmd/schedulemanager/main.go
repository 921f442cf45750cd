package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"schedule-manager/internal/auth"
	"schedule-manager/internal/bot"
	"schedule-manager/internal/cache"
	"schedule-manager/internal/config"
	"schedule-manager/internal/handlers"
	"schedule-manager/internal/logger"
	"schedule-manager/internal/repository"
	"schedule-manager/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.Log.Development)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("schedule manager stopped", zap.Error(err))
	}
	zl.Info("shutdown complete")
}

func run(ctx context.Context, cfg config.Config, zl *zap.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := repository.NewDB(cfg.Database.URL, zl)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	opts := []service.Option{service.WithLogger(zl.Named("service"))}
	health := func(ctx context.Context) error { return repository.Ping(ctx, db) }

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			zl.Warn("redis unavailable, stats cache will miss", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		opts = append(opts, service.WithStatsCache(cache.NewStatsCache(rdb, cfg.Redis.TTL)))
		zl.Info("stats cache enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.TTL))
	}

	categorySvc := service.NewCategoryService(categoryRepo, userRepo, opts...)
	userSvc := service.NewUserService(userRepo, auth.NewBcryptHasher(cfg.Auth.BcryptCost), categorySvc, opts...)
	taskSvc := service.NewTaskService(taskRepo, categoryRepo, userRepo, opts...)
	statsSvc := service.NewStatsService(taskSvc, categorySvc, opts...)
	reportSvc := service.NewReportService(taskSvc, statsSvc)

	h := handlers.New(userSvc, categorySvc, taskSvc, statsSvc, health, zl.Named("http"))
	srv := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      h.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 2)
	go func() {
		zl.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if cfg.Telegram.Token != "" {
		telegramBot, err := bot.New(cfg.Telegram.Token, bot.Services{
			Users:      userSvc,
			Categories: categorySvc,
			Tasks:      taskSvc,
			Stats:      statsSvc,
			Reports:    reportSvc,
			Directory:  userRepo,
		}, loc, zl.Named("bot"))
		if err != nil {
			return err
		}

		scheduler := service.NewSchedulerService(loc, zl)
		entry, err := scheduleReports(scheduler, cfg.Report, telegramBot, zl)
		if err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
		zl.Info("reports scheduled", zap.Time("next", scheduler.Next(entry)))

		go func() {
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
			}
		}()
	} else {
		zl.Info("TELEGRAM_TOKEN is empty, bot disabled")
	}

	return awaitShutdown(ctx, errCh, srv.Shutdown, zl)
}

// awaitShutdown blocks until ctx is done or a component fails, then stops the
// server. A component failure is returned together with any shutdown error.
func awaitShutdown(ctx context.Context, errCh <-chan error, shutdown func(context.Context) error, zl *zap.Logger) error {
	var failure error
	select {
	case <-ctx.Done():
	case failure = <-errCh:
		zl.Error("component failed", zap.Error(failure))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(failure, shutdown(shutdownCtx))
}

func scheduleReports(scheduler *service.SchedulerService, cfg config.ReportConfig, telegramBot *bot.Bot, zl *zap.Logger) (cron.EntryID, error) {
	job := func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := telegramBot.SendDailyReports(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			zl.Error("send daily reports", zap.Error(err))
		}
	}
	if cfg.Interval > 0 {
		return scheduler.ScheduleInterval(cfg.Interval, job)
	}
	return scheduler.ScheduleDaily(cfg.Time, job)
}
