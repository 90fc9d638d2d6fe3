package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryCache is the in-process Cache used when no redis is configured.
type MemoryCache struct {
	mu          sync.Mutex
	entries     map[string]memoryEntry
	tags        map[string]map[string]struct{}
	generations map[string]int64
	now         func() time.Time
}

func NewMemory() *MemoryCache {
	return &MemoryCache{
		entries:     make(map[string]memoryEntry),
		tags:        make(map[string]map[string]struct{}),
		generations: make(map[string]int64),
		now:         time.Now,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	entry, ok := m.entries[key]
	if ok && !entry.expires.IsZero() && !m.now().Before(entry.expires) {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(entry.value, dest)
}

func (m *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration, tags ...string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeLocked(key, data, ttl, tags)
	return nil
}

func (m *MemoryCache) Generation(_ context.Context, tag string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generations[tag], nil
}

func (m *MemoryCache) SetIfGeneration(_ context.Context, key string, value interface{}, ttl time.Duration, tag string, generation int64) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generations[tag] != generation {
		return false, nil
	}
	m.storeLocked(key, data, ttl, []string{tag})
	return true, nil
}

func (m *MemoryCache) storeLocked(key string, data []byte, ttl time.Duration, tags []string) {
	entry := memoryEntry{value: data}
	if ttl > 0 {
		entry.expires = m.now().Add(ttl)
	}
	m.entries[key] = entry
	for _, tag := range tags {
		keys, ok := m.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			m.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
}

func (m *MemoryCache) InvalidateTag(_ context.Context, tag string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for key := range m.tags[tag] {
		if _, ok := m.entries[key]; ok {
			delete(m.entries, key)
			deleted++
		}
	}
	delete(m.tags, tag)
	m.generations[tag]++
	return deleted, nil
}
