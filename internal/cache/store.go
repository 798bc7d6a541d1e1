// Package cache implements the tag-indexed, TTL-based cache-aside
// layer: a key-value store boundary, a tag index, and the orchestration
// service used by the repositories.
package cache

import (
	"context"
	"path"
	"sync"
	"time"
)

// StoreStats is a snapshot of store-side resource usage.
type StoreStats struct {
	UsedMemory int64
	KeyCount   int
}

// Store is the boundary to the external key-value store. Implementations
// must be safe for concurrent use. KeysMatching is best effort and may
// be slow or unsupported; callers never depend on it for correctness.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	KeysMatching(ctx context.Context, pattern string) ([]string, error)
	ScanStats(ctx context.Context) (StoreStats, error)
}

// storeEntry is one TTL-bounded value in the in-process store.
type storeEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is the default in-process Store. A janitor goroutine
// sweeps expired entries; reads also check expiry so a stale entry is
// never returned between sweeps.
type MemoryStore struct {
	mu       sync.RWMutex
	items    map[string]storeEntry
	usedMem  int64
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore creates a MemoryStore and starts its cleanup janitor.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	s := &MemoryStore{
		items:  make(map[string]storeEntry),
		stopCh: make(chan struct{}),
	}
	go s.janitor(cleanupInterval)
	return s
}

// Get returns the value for key, or absent when missing or expired.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		if current, still := s.items[key]; still && time.Now().After(current.expiresAt) {
			s.removeLocked(key, current)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set stores value under key with the given TTL.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Minute
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.items[key]; ok {
		s.usedMem -= int64(len(old.value) + len(key))
	}
	s.items[key] = storeEntry{value: value, expiresAt: time.Now().Add(ttl)}
	s.usedMem += int64(len(value) + len(key))
	return nil
}

// Del removes key. Deleting an absent key is a no-op.
func (s *MemoryStore) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.items[key]; ok {
		s.removeLocked(key, entry)
	}
	return nil
}

// KeysMatching returns live keys matching the glob pattern.
func (s *MemoryStore) KeysMatching(_ context.Context, pattern string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	var keys []string
	for key, entry := range s.items {
		if now.After(entry.expiresAt) {
			continue
		}
		if ok, err := path.Match(pattern, key); err == nil && ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// ScanStats reports byte and key counts for live entries.
func (s *MemoryStore) ScanStats(_ context.Context) (StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StoreStats{UsedMemory: s.usedMem, KeyCount: len(s.items)}, nil
}

// Stop shuts down the janitor. Safe to call more than once.
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *MemoryStore) removeLocked(key string, entry storeEntry) {
	delete(s.items, key)
	s.usedMem -= int64(len(entry.value) + len(key))
}

func (s *MemoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, entry := range s.items {
		if now.After(entry.expiresAt) {
			s.removeLocked(key, entry)
		}
	}
}
