package database

import (
	"time"

	"gorm.io/datatypes"
)

// JobStatus 表示异步渲染任务所处阶段。
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// RenderJob 记录一次异步 PDF 渲染请求。
// Payload 保存已校验的简历 JSON，worker 从这里读取而不是从队列消息中读取。
type RenderJob struct {
	ID            string         `gorm:"type:uuid;primaryKey"`
	Status        JobStatus      `gorm:"size:16;index"`
	Payload       datatypes.JSON `gorm:"type:jsonb"`
	ObjectKey     string         `gorm:"size:512"`
	ErrorMessage  string         `gorm:"size:1024"`
	CorrelationID string         `gorm:"size:64"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

// Terminal reports whether the job will not change any more.
func (j RenderJob) Terminal() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}
