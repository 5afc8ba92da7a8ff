package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"keramika/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisScheduleCache(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	cache := NewRedisScheduleCache(client)
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "k", []byte("v"), time.Hour))
		data, err := cache.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), data)
	})

	t.Run("MissReturnsNil", func(t *testing.T) {
		data, err := cache.Get(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, data)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "gone", []byte("v"), time.Hour))
		require.NoError(t, cache.Delete(ctx, "gone"))
		data, err := cache.Get(ctx, "gone")
		require.NoError(t, err)
		assert.Nil(t, data)
	})

	t.Run("TTLExpires", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "ttl", []byte("v"), time.Minute))
		s.FastForward(2 * time.Minute)
		data, err := cache.Get(ctx, "ttl")
		require.NoError(t, err)
		assert.Nil(t, data)
	})
}

func TestMemoryScheduleCache(t *testing.T) {
	cache := NewMemoryScheduleCache()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), time.Hour))
	data, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), data)

	require.NoError(t, cache.Set(ctx, "expired", []byte("v"), -time.Second))
	data, err = cache.Get(ctx, "expired")
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, cache.Delete(ctx, "k"))
	data, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, data)
}

type failingCache struct{}

func (failingCache) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("primary down")
}

func (failingCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return errors.New("primary down")
}

func (failingCache) Delete(ctx context.Context, keys ...string) error {
	return errors.New("primary down")
}

func TestFailoverScheduleCache(t *testing.T) {
	logger := zerolog.Nop()
	fallback := NewMemoryScheduleCache()
	failover := NewFailoverScheduleCache(failingCache{}, fallback, &logger)
	ctx := context.Background()

	// The primary fails; the write still lands in the fallback.
	require.NoError(t, failover.Set(ctx, "k", []byte("v"), time.Hour))
	data, err := failover.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), data)

	assert.True(t, failover.isDown.Load(), "primary marked down after first failure")
}

func TestFailoverScheduleCache_PrimaryPreferred(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	logger := zerolog.Nop()
	primary := NewRedisScheduleCache(client)
	fallback := NewMemoryScheduleCache()
	failover := NewFailoverScheduleCache(primary, fallback, &logger)
	ctx := context.Background()

	require.NoError(t, failover.Set(ctx, "k", []byte("v"), time.Hour))

	// The value is served from the healthy primary.
	data, err := primary.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), data)

	data, err = failover.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), data)
	assert.False(t, failover.isDown.Load())
}

type countingSource struct {
	rulesCalls int
}

func (c *countingSource) GetSchedulingRules(ctx context.Context) ([]models.SchedulingRule, error) {
	c.rulesCalls++
	return []models.SchedulingRule{{ID: 1, DayOfWeek: 6, Time: "10:00", Capacity: 6}}, nil
}

func (c *countingSource) GetSessionOverrides(ctx context.Context) (map[string]models.SessionOverride, error) {
	return map[string]models.SessionOverride{}, nil
}

func (c *countingSource) GetCourses(ctx context.Context) ([]models.Course, error) {
	return nil, nil
}

func TestCachedScheduleSource(t *testing.T) {
	logger := zerolog.Nop()
	source := &countingSource{}
	cached := NewCachedScheduleSource(source, NewMemoryScheduleCache(), time.Hour, &logger)
	ctx := context.Background()

	rules, err := cached.GetSchedulingRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	// Second read is served from the cache.
	rules, err = cached.GetSchedulingRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, 1, source.rulesCalls)

	// Invalidation forces the next read back to the source.
	cached.Invalidate(ctx)
	_, err = cached.GetSchedulingRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, source.rulesCalls)
}
