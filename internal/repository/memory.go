package repository

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

type MemoryScheduleCache struct {
	entries sync.Map
}

func NewMemoryScheduleCache() *MemoryScheduleCache {
	return &MemoryScheduleCache{}
}

func (m *MemoryScheduleCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, ok := m.entries.Load(key)
	if !ok {
		return nil, nil
	}
	entry := val.(memoryEntry)
	if time.Now().After(entry.expiresAt) {
		m.entries.Delete(key)
		return nil, nil
	}
	return entry.data, nil
}

func (m *MemoryScheduleCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	m.entries.Store(key, memoryEntry{data: data, expiresAt: time.Now().Add(ttl)})
	return nil
}

func (m *MemoryScheduleCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		m.entries.Delete(key)
	}
	return nil
}
