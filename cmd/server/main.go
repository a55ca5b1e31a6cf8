package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/nickhealDD/ghas-jira-sync/common/id"
	"github.com/nickhealDD/ghas-jira-sync/common/logger"
	"github.com/nickhealDD/ghas-jira-sync/common/otel"
	"github.com/nickhealDD/ghas-jira-sync/core/config"
	"github.com/nickhealDD/ghas-jira-sync/internal/http/handler/webhook"
	"github.com/nickhealDD/ghas-jira-sync/internal/http/middleware"
	httprouter "github.com/nickhealDD/ghas-jira-sync/internal/http/router"
	"github.com/nickhealDD/ghas-jira-sync/internal/runlock"
	"github.com/nickhealDD/ghas-jira-sync/internal/service"
	"github.com/nickhealDD/ghas-jira-sync/internal/worker"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer, config.Overrides{})
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "ghas sync server starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	var (
		locker     = runlock.NewNoopLocker()
		deliveries = webhook.NewMemoryDeliveries(webhook.DeliveryWindow)
	)
	if cfg.Redis.Enabled() {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
			os.Exit(1)
		}

		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		slog.InfoContext(ctx, "redis connected")

		locker = runlock.NewRedisLocker(redisClient, cfg.Redis.LockTTL)
		deliveries = webhook.NewRedisDeliveries(redisClient, webhook.DeliveryWindow)
	}

	syncer, err := service.NewSyncerFromConfig(cfg, locker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build syncer", "error", err)
		os.Exit(1)
	}

	params := service.ParamsFromConfig(cfg)
	syncWorker := worker.New(syncer, params)
	go func() {
		if err := syncWorker.Run(ctx); err != nil {
			slog.ErrorContext(ctx, "worker exited", "error", err)
		}
	}()
	syncWorker.Trigger("startup")

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, syncWorker, deliveries, params.Repository.String())
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	// Waits for a running sync to finish.
	syncWorker.Stop()

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, trigger webhook.Trigger, deliveries webhook.DeliveryTracker, repository string) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, trigger, deliveries, httprouter.RouterConfig{
		Repository:    repository,
		WebhookSecret: cfg.Server.WebhookSecret,
	})

	return router
}

const banner = `
  ____ _   _    _    ____    ______   ___   _  ____
 / ___| | | |  / \  / ___|  / ___\ \ / / \ | |/ ___|
| |  _| |_| | / _ \ \___ \  \___ \ V /|  \| | |
| |_| |  _  |/ ___ \ ___) |  ___) || | | |\  | |___
 \____|_| |_/_/   \_\____/  |____/ |_| |_| \_|\____|
`
