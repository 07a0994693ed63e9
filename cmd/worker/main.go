package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"resumeRender/internal/config"
	"resumeRender/internal/database"
	"resumeRender/internal/metrics"
	"resumeRender/internal/render"
	"resumeRender/internal/storage"
	"resumeRender/internal/tasks"
	"resumeRender/internal/worker"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env loaded: %v", err)
	}
	cfg := config.MustLoad()
	if !cfg.Jobs.Enabled {
		log.Fatalf("worker requires JOBS_ENABLED=true")
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	log.Println("database connection ready for worker")

	storageClient, err := storage.NewClient(context.Background(), cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	log.Printf("storage client ready, bucket=%s", cfg.MinIO.Bucket)

	redisClient := redis.NewClient(&redis.Options{
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

	engine, err := render.NewEngine(cfg.Render)
	if err != nil {
		log.Fatalf("init render engine: %v", err)
	}
	renderer, err := render.NewHTMLRenderer(engine, logger)
	if err != nil {
		log.Fatalf("init renderer: %v", err)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Jobs.Concurrency,
		Logger:      newAsynqLogger(logger),
	})

	renderHandler := worker.NewRenderTaskHandler(
		database.NewJobStore(db),
		renderer,
		storageClient,
		worker.NewRedisNotifier(redisClient),
		logger,
	)

	if cfg.Jobs.MetricsAddr != "" {
		metricsSrv := metrics.Serve(cfg.Jobs.MetricsAddr)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", slog.Any("error", err))
			}
		}()
		defer func() {
			_ = metricsSrv.Close()
		}()
	}

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypeRenderDocument, renderHandler)

	logger.Info("worker service started",
		slog.String("redis_addr", cfg.Redis.Addr()),
		slog.String("engine", engine.Name()),
		slog.Int("concurrency", cfg.Jobs.Concurrency),
	)
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
