package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"askora/internal/common/logger"
	"askora/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAnswer() *models.Answer {
	return &models.Answer{
		Question:   "ما هي عاصمة فرنسا",
		Intent:     models.IntentDefine,
		AnswerText: "باريس",
		Sources:    []models.Source{{Title: "Paris", Link: "https://fr.wikipedia.org/wiki/Paris"}},
		Note:       "ai_generated:1/20",
	}
}

// ==========================
// MemoryCache
// ==========================

func TestMemoryCache_GetReturnsCopy(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	c.Set(ctx, "k", sampleAnswer(), time.Minute)

	first, ok := c.Get(ctx, "k")
	require.True(t, ok)
	first.Sources[0].Title = "mutated"
	first.Note = "cache_hit"

	second, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "Paris", second.Sources[0].Title)
	assert.Equal(t, "ai_generated:1/20", second.Note)
}

func TestMemoryCache_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.Local)
	c := NewMemoryCache().WithClock(func() time.Time { return now })
	ctx := context.Background()

	c.Set(ctx, "k", sampleAnswer(), DefaultTTL)
	_, ok := c.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(DefaultTTL)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_IgnoresNilAndZeroTTL(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	c.Set(ctx, "a", nil, time.Minute)
	c.Set(ctx, "b", sampleAnswer(), 0)
	assert.Equal(t, 0, c.Len())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "where|اين تقع الرياض", Key("where", "اين تقع الرياض"))
}

// ==========================
// RedisCache
// ==========================

func TestRedisCache_RoundTripWithMiniredis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewRedisCache(client, logger.NewTestLogger(t))
	ctx := context.Background()

	_, ok := c.Get(ctx, "define|x")
	assert.False(t, ok)

	c.Set(ctx, "define|x", sampleAnswer(), DefaultTTL)
	got, ok := c.Get(ctx, "define|x")
	require.True(t, ok)
	assert.Equal(t, "باريس", got.AnswerText)
	assert.Len(t, got.Sources, 1)

	mr.FastForward(DefaultTTL + time.Second)
	_, ok = c.Get(ctx, "define|x")
	assert.False(t, ok)
}

func TestRedisCache_ErrorsBehaveAsMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCache(client, logger.NewNoOpLogger())
	ctx := context.Background()

	mock.ExpectGet(RedisKey("k")).SetErr(errors.New("connection refused"))
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)

	mock.ExpectGet(RedisKey("k")).SetVal("{not json")
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_SetUsesTTL(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCache(client, logger.NewNoOpLogger())

	answer := sampleAnswer()
	data, err := json.Marshal(answer)
	require.NoError(t, err)

	mock.ExpectSet(RedisKey("k"), data, DefaultTTL).SetVal("OK")
	c.Set(context.Background(), "k", answer, DefaultTTL)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_NilSourcesNormalized(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCache(client, logger.NewNoOpLogger())

	mock.ExpectGet(RedisKey("k")).SetVal(`{"answer":"x","sources":null}`)
	got, ok := c.Get(context.Background(), "k")
	require.True(t, ok)
	assert.NotNil(t, got.Sources)
}
