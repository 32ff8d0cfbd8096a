package cache

import (
	"context"
	"encoding/json"
	"path"
	"sync"
	"time"
)

type memoryEntry struct {
	content    []byte
	expiration time.Time
}

// Memory is an in-process Cache. Values are stored JSON-encoded so callers
// observe the same copy semantics as with Redis.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// NewMemory creates a memory cache and starts its expiry sweeper.
func NewMemory() *Memory {
	m := &Memory{
		items: make(map[string]memoryEntry),
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go m.sweep(5 * time.Minute)
	return m
}

func (m *Memory) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	m.mu.RLock()
	entry, found := m.items[key]
	m.mu.RUnlock()

	if !found || !entry.expiration.After(m.now()) {
		return false, nil
	}
	if err := json.Unmarshal(entry.content, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	content, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.items[key] = memoryEntry{content: content, expiration: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

func (m *Memory) DeletePattern(_ context.Context, pattern string) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.items {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.items, k)
		}
	}
	return nil
}

func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

func (m *Memory) Stats(context.Context) Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{Backend: "memory", Items: int64(len(m.items))}
}

func (m *Memory) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.removeExpired()
		case <-m.stop:
			return
		}
	}
}

func (m *Memory) removeExpired() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, entry := range m.items {
		if !entry.expiration.After(now) {
			delete(m.items, k)
		}
	}
}
