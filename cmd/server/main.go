package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/d60-Lab/hotfeed/config"
	"github.com/d60-Lab/hotfeed/internal/api"
	"github.com/d60-Lab/hotfeed/internal/api/handler"
	"github.com/d60-Lab/hotfeed/internal/cache"
	"github.com/d60-Lab/hotfeed/internal/model"
	"github.com/d60-Lab/hotfeed/internal/repository"
	"github.com/d60-Lab/hotfeed/internal/service"
	"github.com/d60-Lab/hotfeed/pkg/database"
	"github.com/d60-Lab/hotfeed/pkg/logger"
	"github.com/d60-Lab/hotfeed/pkg/tracing"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Server.Mode); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx := context.Background()
	if cfg.Tracing.Enabled {
		shutdown, err := tracing.Init(ctx, cfg.Tracing.Endpoint, "hotfeed")
		if err != nil {
			logger.Warn("tracing init failed", zap.Error(err))
		} else {
			defer func() {
				c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(c)
			}()
		}
	}

	db, err := database.NewPostgres(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	if err := db.AutoMigrate(&model.Post{}, &model.Like{}); err != nil {
		logger.Fatal("migrate schema", zap.Error(err))
	}

	rdb, err := database.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		// 缓存只是优化，读路径会按请求降级为直查
		logger.Warn("redis unavailable at startup, feed reads degrade to direct queries", zap.Error(err))
	}
	feedCache := cache.New(rdb, cache.Options{
		Namespace: cfg.Cache.Namespace,
		TTL:       cfg.Cache.TTL,
		LockTTL:   cfg.Cache.LockTTL,
	})

	postRepo := repository.NewPostRepository(db)
	likeRepo := repository.NewLikeRepository(db)

	postService := service.NewPostService(postRepo, feedCache)
	likeService := service.NewLikeService(db, postRepo, likeRepo, feedCache)
	feedService := service.NewFeedService(postRepo, feedCache,
		service.WithWaitTimeout(cfg.Cache.WaitTimeout),
		service.WithPollInterval(cfg.Cache.PollInterval),
	)

	h := handler.New(postService, likeService, feedService)
	router := api.NewRouter(cfg, h)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
