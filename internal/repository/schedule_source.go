package repository

import (
	"context"
	"encoding/json"
	"time"

	"keramika/internal/domain"
	"keramika/internal/models"

	"github.com/rs/zerolog"
)

const (
	keyRules     = "schedule:rules"
	keyOverrides = "schedule:overrides"
	keyCourses   = "schedule:courses"
)

// CachedScheduleSource serves schedule data through a cache. The schedule
// tables are read-mostly and admin-edited, so a short TTL plus explicit
// invalidation on mutation keeps queries cheap without serving stale data
// for long. Cache failures degrade to direct reads.
type CachedScheduleSource struct {
	src    domain.ScheduleSource
	cache  ScheduleCache
	ttl    time.Duration
	logger *zerolog.Logger
}

func NewCachedScheduleSource(src domain.ScheduleSource, cache ScheduleCache, ttl time.Duration, logger *zerolog.Logger) *CachedScheduleSource {
	if ttl <= 0 {
		ttl = models.ScheduleCacheTTL * time.Second
	}
	return &CachedScheduleSource{src: src, cache: cache, ttl: ttl, logger: logger}
}

func (c *CachedScheduleSource) GetSchedulingRules(ctx context.Context) ([]models.SchedulingRule, error) {
	var rules []models.SchedulingRule
	if c.lookup(ctx, keyRules, &rules) {
		return rules, nil
	}
	rules, err := c.src.GetSchedulingRules(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, keyRules, rules)
	return rules, nil
}

func (c *CachedScheduleSource) GetSessionOverrides(ctx context.Context) (map[string]models.SessionOverride, error) {
	var overrides map[string]models.SessionOverride
	if c.lookup(ctx, keyOverrides, &overrides) {
		return overrides, nil
	}
	overrides, err := c.src.GetSessionOverrides(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, keyOverrides, overrides)
	return overrides, nil
}

func (c *CachedScheduleSource) GetCourses(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	if c.lookup(ctx, keyCourses, &courses) {
		return courses, nil
	}
	courses, err := c.src.GetCourses(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, keyCourses, courses)
	return courses, nil
}

// Invalidate drops all cached schedule data. Call after any admin mutation
// of rules, overrides or courses.
func (c *CachedScheduleSource) Invalidate(ctx context.Context) {
	if err := c.cache.Delete(ctx, keyRules, keyOverrides, keyCourses); err != nil {
		c.logger.Warn().Err(err).Msg("schedule cache invalidation failed")
	}
}

func (c *CachedScheduleSource) lookup(ctx context.Context, key string, target interface{}) bool {
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("schedule cache read failed")
		return false
	}
	if data == nil {
		return false
	}
	if err := json.Unmarshal(data, target); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("schedule cache entry corrupted")
		return false
	}
	return true
}

func (c *CachedScheduleSource) store(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("schedule cache marshal failed")
		return
	}
	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("schedule cache write failed")
	}
}
