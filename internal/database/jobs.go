package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrJobNotFound 表示任务不存在。
var ErrJobNotFound = errors.New("render job not found")

// maxErrorMessage 与 RenderJob.ErrorMessage 的列宽一致。
const maxErrorMessage = 1024

// JobStore 是 RenderJob 的 GORM 持久化实现，API 与 worker 共用。
type JobStore struct {
	db *gorm.DB
}

func NewJobStore(db *gorm.DB) *JobStore {
	return &JobStore{db: db}
}

func (s *JobStore) Create(ctx context.Context, job *RenderJob) error {
	if job.Status == "" {
		job.Status = JobPending
	}
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("create render job: %w", err)
	}
	return nil
}

func (s *JobStore) Get(ctx context.Context, id string) (*RenderJob, error) {
	var job RenderJob
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load render job %s: %w", id, err)
	}
	return &job, nil
}

func (s *JobStore) MarkProcessing(ctx context.Context, id string) error {
	return s.update(ctx, id, map[string]any{"status": JobProcessing})
}

func (s *JobStore) MarkCompleted(ctx context.Context, id, objectKey string) error {
	now := time.Now().UTC()
	return s.update(ctx, id, map[string]any{
		"status":        JobCompleted,
		"object_key":    objectKey,
		"error_message": "",
		"completed_at":  &now,
	})
}

func (s *JobStore) MarkFailed(ctx context.Context, id, reason string) error {
	if len(reason) > maxErrorMessage {
		reason = reason[:maxErrorMessage]
	}
	now := time.Now().UTC()
	return s.update(ctx, id, map[string]any{
		"status":        JobFailed,
		"error_message": reason,
		"completed_at":  &now,
	})
}

func (s *JobStore) update(ctx context.Context, id string, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&RenderJob{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update render job %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}
