package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"resumeRender/internal/database"
)

// JobEvent 是任务结束时通过 Redis Pub/Sub 广播的消息。
// 字段名与 GET /api/v1/resume/pdf/jobs/:id 的响应保持一致。
type JobEvent struct {
	JobID         string             `json:"job_id"`
	Status        database.JobStatus `json:"status"`
	CorrelationID string             `json:"correlation_id"`
	ErrorMessage  string             `json:"error_message,omitempty"`
}

// Notifier 发布任务状态变化。
type Notifier interface {
	Notify(ctx context.Context, event JobEvent) error
}

// JobChannel 返回任务对应的订阅频道。
func JobChannel(jobID string) string {
	return "render_job:" + jobID
}

// RedisNotifier 将事件发布到 render_job:<id> 频道。
type RedisNotifier struct {
	client redis.UniversalClient
}

func NewRedisNotifier(client redis.UniversalClient) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (n *RedisNotifier) Notify(ctx context.Context, event JobEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal job event: %w", err)
	}
	channel := JobChannel(event.JobID)
	if err := n.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish job event to %q: %w", channel, err)
	}
	return nil
}
