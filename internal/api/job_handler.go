package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/datatypes"

	"resumeRender/internal/api/middleware"
	"resumeRender/internal/database"
	"resumeRender/internal/errcode"
	"resumeRender/internal/scan"
	"resumeRender/internal/storage"
	"resumeRender/internal/tasks"
)

// JobStore 是异步任务接口需要的持久化操作。
type JobStore interface {
	Create(ctx context.Context, job *database.RenderJob) error
	Get(ctx context.Context, id string) (*database.RenderJob, error)
	MarkFailed(ctx context.Context, id, reason string) error
}

// TaskEnqueuer 由 *asynq.Client 实现。
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// DownloadSigner 确认 PDF 仍在存储中并签发下载链接，由 *storage.Client 实现。
type DownloadSigner interface {
	StatObject(ctx context.Context, objectKey string) (*storage.ObjectMeta, error)
	PresignDownload(ctx context.Context, objectKey string, ttl time.Duration, filename string) (string, error)
}

const missingDocumentMessage = "generated document is no longer available"

// JobHandler 提供异步渲染任务的创建与查询。
type JobHandler struct {
	store    JobStore
	queue    TaskEnqueuer
	signer   DownloadSigner
	scanner  scan.Scanner
	linkTTL  time.Duration
	maxRetry int
}

func NewJobHandler(store JobStore, queue TaskEnqueuer, signer DownloadSigner, scanner scan.Scanner, linkTTL time.Duration, maxRetry int) *JobHandler {
	return &JobHandler{
		store:    store,
		queue:    queue,
		signer:   signer,
		scanner:  scanner,
		linkTTL:  linkTTL,
		maxRetry: maxRetry,
	}
}

type jobResponse struct {
	JobID        string             `json:"job_id"`
	Status       database.JobStatus `json:"status"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty"`
	DownloadURL  string             `json:"download_url,omitempty"`
	ExpiresAt    *time.Time         `json:"expires_at,omitempty"`
}

// CreateJob 校验简历、落库并投递 resume:render 任务。
func (h *JobHandler) CreateJob(c *gin.Context) {
	req, ok := readResume(c, h.scanner)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	log := middleware.LoggerFromContext(c)
	correlationID := middleware.GetCorrelationID(c)

	payload, err := json.Marshal(req)
	if err != nil {
		log.Error("marshal resume payload failed", slog.Any("error", err))
		Internal(c, "Failed to create job")
		return
	}

	job := &database.RenderJob{
		ID:            uuid.NewString(),
		Status:        database.JobPending,
		Payload:       datatypes.JSON(payload),
		CorrelationID: correlationID,
	}
	if err := h.store.Create(ctx, job); err != nil {
		log.Error("create render job failed", slog.Any("error", err))
		Internal(c, "Failed to create job")
		return
	}

	task, err := tasks.NewRenderTask(job.ID, correlationID)
	if err != nil {
		log.Error("build render task failed", slog.Any("error", err))
		h.abandon(ctx, log, job.ID)
		Internal(c, "Failed to create job")
		return
	}

	info, err := h.queue.EnqueueContext(ctx, task, asynq.MaxRetry(h.maxRetry), asynq.TaskID(job.ID))
	if err != nil {
		log.Error("enqueue render task failed", slog.Any("error", err))
		h.abandon(ctx, log, job.ID)
		Internal(c, "Failed to enqueue job")
		return
	}

	log.Info("render job accepted", slog.String("job_id", job.ID), slog.String("queue", info.Queue))
	c.JSON(http.StatusAccepted, gin.H{
		"job_id": job.ID,
		"status": database.JobPending,
	})
}

func (h *JobHandler) abandon(ctx context.Context, log *slog.Logger, jobID string) {
	if err := h.store.MarkFailed(ctx, jobID, "enqueue failed"); err != nil {
		log.Error("mark abandoned job failed", slog.Any("error", err))
	}
}

// GetJob 返回任务状态；完成时附带限时下载链接。
func (h *JobHandler) GetJob(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		BadRequest(c, errcode.InvalidPayload, "Invalid job id")
		return
	}

	ctx := c.Request.Context()
	log := middleware.LoggerFromContext(c)

	job, err := h.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrJobNotFound) {
			NotFound(c, "Job not found")
			return
		}
		log.Error("query render job failed", slog.Any("error", err))
		Internal(c, "Failed to query job")
		return
	}

	resp := jobResponse{
		JobID:        job.ID,
		Status:       job.Status,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
		CompletedAt:  job.CompletedAt,
		ErrorMessage: job.ErrorMessage,
	}

	if job.Status == database.JobCompleted && job.ObjectKey != "" {
		if _, err := h.signer.StatObject(ctx, job.ObjectKey); err != nil {
			if !storage.IsNoSuchKey(err) {
				log.Error("stat generated document failed", slog.Any("error", err))
				Internal(c, "Failed to generate download link")
				return
			}
			// 对象已被清理：不再签发失效链接，任务转为失败。
			log.Warn("generated document missing from storage", slog.String("object_key", job.ObjectKey))
			if err := h.store.MarkFailed(ctx, job.ID, missingDocumentMessage); err != nil {
				log.Error("mark render job failed", slog.Any("error", err))
			}
			resp.Status = database.JobFailed
			resp.ErrorMessage = missingDocumentMessage
			c.JSON(http.StatusOK, resp)
			return
		}

		url, err := h.signer.PresignDownload(ctx, job.ObjectKey, h.linkTTL, "resume.pdf")
		if err != nil {
			log.Error("generate download link failed", slog.Any("error", err))
			Internal(c, "Failed to generate download link")
			return
		}
		expires := time.Now().UTC().Add(h.linkTTL)
		resp.DownloadURL = url
		resp.ExpiresAt = &expires
	}

	c.JSON(http.StatusOK, resp)
}
