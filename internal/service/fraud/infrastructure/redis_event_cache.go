// internal/service/fraud/infrastructure/redis_event_cache.go
package infrastructure

import (
	"context"
	"time"

	"antifraud/internal/pkg/logger"
	pkgredis "antifraud/internal/pkg/redis"
)

const completedKeyPrefix = "antifraud:completed:"

// RedisCompletedEventCache 是 domain.CompletedEventCache 的 Redis 实现。
// 纯粹的尽力而为：读写失败只记日志，命不中就走 DB 认领路径，
// 正确性始终由台账的唯一约束兜底。
type RedisCompletedEventCache struct {
	client *pkgredis.Client
	ttl    time.Duration
}

func NewRedisCompletedEventCache(client *pkgredis.Client, ttl time.Duration) *RedisCompletedEventCache {
	return &RedisCompletedEventCache{client: client, ttl: ttl}
}

func (c *RedisCompletedEventCache) IsCompleted(ctx context.Context, eventID string) bool {
	n, err := c.client.GetClient().Exists(ctx, completedKeyPrefix+eventID).Result()
	if err != nil {
		logger.Ctx(ctx).Debug().Err(err).Str("event_id", eventID).Msg("completed-event cache lookup failed")
		return false
	}
	return n > 0
}

func (c *RedisCompletedEventCache) MarkCompleted(ctx context.Context, eventID string) {
	if err := c.client.GetClient().Set(ctx, completedKeyPrefix+eventID, "1", c.ttl).Err(); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("event_id", eventID).Msg("completed-event cache write failed")
	}
}
