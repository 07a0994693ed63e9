// Package cache 缓存已渲染的 PDF，避免相同简历重复启动浏览器。
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"resumeRender/internal/metrics"
	"resumeRender/internal/resume"
)

const keyPrefix = "resume_pdf:"

// DocumentCache 以规范化后的简历 JSON 的 sha256 为键存储 PDF。
type DocumentCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewDocumentCache(client redis.UniversalClient, ttl time.Duration) *DocumentCache {
	return &DocumentCache{client: client, ttl: ttl}
}

// Key 对请求做规范化序列化后计算摘要；字段顺序固定，nil 与空切片等价。
func Key(req resume.Request) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal resume for cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return keyPrefix + hex.EncodeToString(sum[:]), nil
}

// Get 返回缓存内容；未命中时 ok 为 false 且 err 为 nil。
func (c *DocumentCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheMiss()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached document: %w", err)
	}
	metrics.CacheHit()
	return data, true, nil
}

func (c *DocumentCache) Set(ctx context.Context, key string, doc []byte) error {
	if err := c.client.Set(ctx, key, doc, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached document: %w", err)
	}
	return nil
}
