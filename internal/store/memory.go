package store

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// entry represents a stored value with expiration
type entry struct {
	data      []byte
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore is an in-memory LRU store with TTL support
type MemoryStore struct {
	cache *lru.Cache[string, *entry]
	ttl   time.Duration
	mu    sync.Mutex
	done  chan struct{}
	once  sync.Once
}

// NewMemoryStore creates a new in-memory store. A zero ttl keeps entries
// until they are evicted by size.
func NewMemoryStore(size int, ttl time.Duration) (*MemoryStore, error) {
	cache, err := lru.New[string, *entry](size)
	if err != nil {
		return nil, err
	}

	ms := &MemoryStore{
		cache: cache,
		ttl:   ttl,
		done:  make(chan struct{}),
	}

	if ttl > 0 {
		go ms.cleanupLoop()
	}

	return ms, nil
}

// Get retrieves a value from the store
func (ms *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.getLocked(key)
}

func (ms *MemoryStore) getLocked(key string) ([]byte, error) {
	e, ok := ms.cache.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	if e.expired(time.Now()) {
		ms.cache.Remove(key)
		return nil, ErrNotFound
	}
	return e.data, nil
}

// Set stores a value in the store
func (ms *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = ms.ttl
	}
	e := &entry{data: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}

	ms.mu.Lock()
	ms.cache.Add(key, e)
	ms.mu.Unlock()
	return nil
}

// Take retrieves and removes a value
func (ms *MemoryStore) Take(_ context.Context, key string) ([]byte, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	data, err := ms.getLocked(key)
	if err != nil {
		return nil, err
	}
	ms.cache.Remove(key)
	return data, nil
}

// Delete removes a value
func (ms *MemoryStore) Delete(_ context.Context, key string) error {
	ms.mu.Lock()
	ms.cache.Remove(key)
	ms.mu.Unlock()
	return nil
}

// Ping always succeeds
func (ms *MemoryStore) Ping(context.Context) error {
	return nil
}

// Len returns the number of stored entries, expired ones included
func (ms *MemoryStore) Len() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.cache.Len()
}

// Close stops the cleanup goroutine
func (ms *MemoryStore) Close() error {
	ms.once.Do(func() { close(ms.done) })
	return nil
}

// cleanupLoop periodically removes expired entries
func (ms *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(ms.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ms.done:
			return
		case <-ticker.C:
			ms.removeExpired()
		}
	}
}

// removeExpired removes all expired entries from the store
func (ms *MemoryStore) removeExpired() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	for _, key := range ms.cache.Keys() {
		e, ok := ms.cache.Peek(key)
		if ok && e.expired(now) {
			ms.cache.Remove(key)
		}
	}
}
