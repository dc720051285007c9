//go:generate swag init -d ../../ -g internal/interfaces/http/handler.go -o ../../docs

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/apurbab29/futu-options/docs"
	"github.com/apurbab29/futu-options/internal/app"
	"github.com/apurbab29/futu-options/internal/config"
	infrahttp "github.com/apurbab29/futu-options/internal/interfaces/http"
	"github.com/apurbab29/futu-options/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bootstrap := logrus.New()
	bootstrap.SetFormatter(&logrus.JSONFormatter{})

	if err := config.LoadDotEnv(); err != nil {
		bootstrap.Fatalf("failed to load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		bootstrap.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		bootstrap.Fatalf("failed to init logger: %v", err)
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Host = cfg.HTTP.Addr()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("failed to init chain service: %v", err)
	}
	defer application.Close()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	cacheTTL := time.Duration(cfg.Cache.TTLSeconds) * time.Second
	handler := infrahttp.NewHandler(application.Service, redisClient, cacheTTL, logger,
		infrahttp.WithExportOnRun(cfg.Export.OnRun),
	)

	server := infrahttp.NewServer(cfg.HTTP.Addr(), handler, logger)
	if err := server.Run(ctx); err != nil {
		logger.Errorf("http server error: %v", err)
	}
}
