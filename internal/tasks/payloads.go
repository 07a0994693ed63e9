package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeRenderDocument = "resume:render"
)

// RenderPayload 只携带任务 ID，简历内容从数据库读取。
type RenderPayload struct {
	JobID         string `json:"job_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewRenderTask 构造一个简历 PDF 渲染任务。
func NewRenderTask(jobID, correlationID string, opts ...asynq.Option) (*asynq.Task, error) {
	payload, err := json.Marshal(RenderPayload{
		JobID:         jobID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRenderDocument, payload, opts...), nil
}

// ParseRenderPayload 解析任务负载。
func ParseRenderPayload(task *asynq.Task) (RenderPayload, error) {
	var payload RenderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("unmarshal %s payload: %w", task.Type(), err)
	}
	if payload.JobID == "" {
		return payload, fmt.Errorf("%s payload missing job_id", task.Type())
	}
	return payload, nil
}
