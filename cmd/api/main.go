package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"resumeRender/internal/api"
	"resumeRender/internal/cache"
	"resumeRender/internal/config"
	"resumeRender/internal/database"
	"resumeRender/internal/render"
	"resumeRender/internal/scan"
	"resumeRender/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env loaded: %v", err)
	}
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	engine, err := render.NewEngine(cfg.Render)
	if err != nil {
		log.Fatalf("init render engine: %v", err)
	}
	renderer, err := render.NewHTMLRenderer(engine, logger)
	if err != nil {
		log.Fatalf("init renderer: %v", err)
	}
	log.Printf("render engine ready: %s (timeout %s)", engine.Name(), cfg.Render.Timeout)

	var scanner scan.Scanner
	if s := scan.NewClamdScanner(cfg.Clamd.Addr); s != nil {
		scanner = s
		log.Printf("photo scanning enabled via %s", cfg.Clamd.Addr)
	}

	routes := api.Routes{
		MaxBodyBytes: cfg.API.MaxBodyBytes,
		RatePerMin:   cfg.RateLimit.PerMinute,
	}

	var redisClient *redis.Client
	if cfg.NeedsRedis() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error("close redis client failed", slog.Any("error", err))
			}
		}()
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("ping redis: %v", err)
		}
		log.Printf("redis connection ready: %s", cfg.Redis.Addr())
		if cfg.RateLimit.PerMinute > 0 {
			routes.RateCounter = redisClient
		}
	}

	var documentCache api.DocumentCache
	if cfg.Cache.Enabled {
		documentCache = cache.NewDocumentCache(redisClient, cfg.Cache.TTL)
		log.Printf("document cache enabled, ttl=%s", cfg.Cache.TTL)
	}
	routes.Documents = api.NewDocumentHandler(renderer, scanner, documentCache)

	if cfg.Jobs.Enabled {
		db, err := database.InitDatabase(cfg.Database)
		if err != nil {
			log.Fatalf("init database: %v", err)
		}
		log.Printf("database ready: host=%s port=%d db=%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)

		storageClient, err := storage.NewClient(context.Background(), cfg.MinIO)
		if err != nil {
			log.Fatalf("init storage client: %v", err)
		}
		log.Printf("storage client ready, bucket=%s", cfg.MinIO.Bucket)

		asynqClient := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := asynqClient.Close(); err != nil {
				logger.Error("close asynq client failed", slog.Any("error", err))
			}
		}()

		routes.Jobs = api.NewJobHandler(
			database.NewJobStore(db),
			asynqClient,
			storageClient,
			scanner,
			cfg.Jobs.LinkTTL,
			cfg.Jobs.MaxRetry,
		)
	}

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, routes)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("api listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start api server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down api server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Render.Timeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
}
