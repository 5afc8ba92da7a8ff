package repository

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// FailoverScheduleCache prefers the primary (Redis) cache and falls back to
// the in-memory cache when the primary errors, retrying the primary after a
// cooldown.
type FailoverScheduleCache struct {
	primary   ScheduleCache
	fallback  ScheduleCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64 // unix nanos
}

func NewFailoverScheduleCache(primary, fallback ScheduleCache, logger *zerolog.Logger) *FailoverScheduleCache {
	return &FailoverScheduleCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (f *FailoverScheduleCache) primaryUsable() bool {
	if !f.isDown.Load() {
		return true
	}
	// Try to recover after 1 minute
	if time.Since(time.Unix(0, f.lastCheck.Load())) > time.Minute {
		f.isDown.Store(false)
		return true
	}
	return false
}

func (f *FailoverScheduleCache) markDown(err error) {
	f.logger.Error().Err(err).Msg("Primary schedule cache failed, falling back to memory")
	f.isDown.Store(true)
	f.lastCheck.Store(time.Now().UnixNano())
}

func (f *FailoverScheduleCache) Get(ctx context.Context, key string) ([]byte, error) {
	if f.primaryUsable() {
		data, err := f.primary.Get(ctx, key)
		if err == nil {
			return data, nil
		}
		f.markDown(err)
	}
	return f.fallback.Get(ctx, key)
}

func (f *FailoverScheduleCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if f.primaryUsable() {
		if err := f.primary.Set(ctx, key, data, ttl); err != nil {
			f.markDown(err)
		}
	}
	return f.fallback.Set(ctx, key, data, ttl)
}

func (f *FailoverScheduleCache) Delete(ctx context.Context, keys ...string) error {
	if f.primaryUsable() {
		if err := f.primary.Delete(ctx, keys...); err != nil {
			f.markDown(err)
		}
	}
	return f.fallback.Delete(ctx, keys...)
}
