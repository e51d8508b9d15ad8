package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisLongTermKey = "askora:memory:long"

// RedisStore keeps long-term memory in a capped list, newest first.
type RedisStore struct {
	client redis.Cmdable
	key    string
	now    func() time.Time
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client, key: redisLongTermKey, now: time.Now}
}

func (s *RedisStore) Find(ctx context.Context, query string) (*Entry, error) {
	q := foldQuery(query)
	if q == "" {
		return nil, nil
	}
	items, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis memory scan: %w", err)
	}
	for _, raw := range items {
		var entry Entry
		if json.Unmarshal([]byte(raw), &entry) != nil {
			continue
		}
		if matches(entry.Question, q) {
			return &entry, nil
		}
	}
	return nil, nil
}

func (s *RedisStore) Append(ctx context.Context, turn Turn) error {
	at := turn.At
	if at.IsZero() {
		at = s.now()
	}
	data, err := json.Marshal(Entry{Question: turn.Question, Answer: turn.Answer, At: at})
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.key, data)
	pipe.LTrim(ctx, s.key, 0, LongTermLimit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis memory append: %w", err)
	}
	return nil
}
