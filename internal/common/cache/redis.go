package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	apperrors "askora/internal/common/errors"
	"askora/internal/common/logger"
	"askora/internal/common/metrics"
	"askora/internal/models"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "askora:answer:"

// RedisCache shares answers between instances. Keys are hashed because
// questions may be long and contain arbitrary bytes.
type RedisCache struct {
	client redis.Cmdable
	logger logger.Logger
}

func NewRedisCache(client redis.Cmdable, log logger.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "answer-cache"}),
	}
}

func RedisKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return redisKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *RedisCache) Get(ctx context.Context, key string) (*models.Answer, bool) {
	data, err := c.client.Get(ctx, RedisKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			metrics.CacheLookups.WithLabelValues("error").Inc()
			c.warn("answer cache read failed", err)
		}
		return nil, false
	}

	var answer models.Answer
	if err := json.Unmarshal(data, &answer); err != nil {
		c.logger.Warn("discarding corrupt cache entry", map[string]interface{}{"error": err.Error()})
		return nil, false
	}
	if answer.Sources == nil {
		answer.Sources = []models.Source{}
	}
	return &answer, true
}

func (c *RedisCache) Set(ctx context.Context, key string, answer *models.Answer, ttl time.Duration) {
	if answer == nil || ttl <= 0 {
		return
	}
	data, err := json.Marshal(answer)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, RedisKey(key), data, ttl).Err(); err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		c.warn("answer cache write failed", err)
	}
}

func (c *RedisCache) warn(msg string, err error) {
	stdErr := apperrors.NewCacheUnavailableError(err)
	c.logger.Warn(msg, map[string]interface{}{
		"errorCode": string(stdErr.Code),
		"error":     stdErr.Details,
	})
}
