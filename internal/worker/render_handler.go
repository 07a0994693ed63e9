package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"

	"resumeRender/internal/database"
	"resumeRender/internal/render"
	"resumeRender/internal/resume"
	"resumeRender/internal/storage"
	"resumeRender/internal/tasks"
)

// JobRepository 是 worker 需要的任务持久化操作。
type JobRepository interface {
	Get(ctx context.Context, id string) (*database.RenderJob, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, objectKey string) error
	MarkFailed(ctx context.Context, id, reason string) error
}

// DocumentUploader 保存渲染好的 PDF，状态无法落库时负责清理。
type DocumentUploader interface {
	UploadDocument(ctx context.Context, objectKey string, data []byte) (*minio.UploadInfo, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

// RenderTaskHandler 负责消费 resume:render 任务。
type RenderTaskHandler struct {
	jobs     JobRepository
	renderer render.Renderer
	uploader DocumentUploader
	notifier Notifier
	logger   *slog.Logger

	finalAttempt func(ctx context.Context) bool
}

// NewRenderTaskHandler 创建任务处理器，notifier 可为 nil。
func NewRenderTaskHandler(
	jobs JobRepository,
	renderer render.Renderer,
	uploader DocumentUploader,
	notifier Notifier,
	logger *slog.Logger,
) *RenderTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RenderTaskHandler{
		jobs:         jobs,
		renderer:     renderer,
		uploader:     uploader,
		notifier:     notifier,
		logger:       logger,
		finalAttempt: isFinalAsynqAttempt,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *RenderTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	payload, err := tasks.ParseRenderPayload(t)
	if err != nil {
		log.Error("parse task payload failed", slog.Any("error", err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("job_id", payload.JobID),
	)
	log.Info("Starting PDF render task...")

	job, err := h.jobs.Get(ctx, payload.JobID)
	if err != nil {
		if errors.Is(err, database.ErrJobNotFound) {
			log.Warn("render job not found, skipping task")
			return nil
		}
		log.Error("query render job failed", slog.Any("error", err))
		return err
	}
	if job.Terminal() {
		log.Info("render job already finished, skipping task", slog.String("status", string(job.Status)))
		return nil
	}

	failed := false
	fail := func(reason error) {
		failed = true
		message := strings.TrimSpace(reason.Error())
		if err := h.jobs.MarkFailed(ctx, job.ID, message); err != nil {
			log.Error("mark render job failed", slog.Any("error", err))
		}
		h.notify(ctx, log, JobEvent{
			JobID:         job.ID,
			Status:        database.JobFailed,
			CorrelationID: payload.CorrelationID,
			ErrorMessage:  message,
		})
	}
	defer func() {
		if retErr == nil || failed || !h.finalAttempt(ctx) {
			return
		}
		fail(retErr)
	}()

	if err := h.jobs.MarkProcessing(ctx, job.ID); err != nil {
		log.Error("mark render job processing failed", slog.Any("error", err))
		return err
	}

	var req resume.Request
	if err := json.Unmarshal(job.Payload, &req); err != nil {
		err = fmt.Errorf("decode stored payload: %w", err)
		log.Error("stored payload is not a resume", slog.Any("error", err))
		fail(err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	pdf, err := h.renderer.Render(ctx, req)
	if err != nil {
		log.Error("render pdf failed", slog.Any("error", err))
		return err
	}

	objectKey := storage.DocumentObjectKey(job.ID)
	if _, err := h.uploader.UploadDocument(ctx, objectKey, pdf); err != nil {
		log.Error("upload pdf to minio failed", slog.Any("error", err))
		return err
	}

	if err := h.jobs.MarkCompleted(ctx, job.ID, objectKey); err != nil {
		log.Error("update render job failed", slog.Any("error", err))
		if delErr := h.uploader.DeleteObject(ctx, objectKey); delErr != nil {
			log.Warn("remove orphaned pdf failed", slog.String("object_key", objectKey), slog.Any("error", delErr))
		}
		return err
	}

	h.notify(ctx, log, JobEvent{
		JobID:         job.ID,
		Status:        database.JobCompleted,
		CorrelationID: payload.CorrelationID,
	})

	log.Info("PDF render task completed successfully.", slog.Int("bytes", len(pdf)))
	return nil
}

func (h *RenderTaskHandler) notify(ctx context.Context, log *slog.Logger, event JobEvent) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.Notify(ctx, event); err != nil {
		log.Warn("publish job event failed", slog.Any("error", err))
	}
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
