package session

import (
	"context"
	"slices"
	"sync"
	"time"

	shardedcache "github.com/simp-lee/cache"
)

const (
	memoryShards   = 8
	memoryCleanup  = time.Minute
	memoryMaxItems = 10000
)

// MemoryStore keeps sessions in process memory. Entries expire with their
// TTL; a background sweep drops the ones nobody loads again.
type MemoryStore struct {
	cache     shardedcache.CacheInterface
	closeOnce sync.Once
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: shardedcache.NewCache(shardedcache.Options{
		MaxSize:         memoryMaxItems / memoryShards,
		CleanupInterval: memoryCleanup,
		ShardCount:      memoryShards,
	})}
}

func (m *MemoryStore) Save(_ context.Context, id string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = shardedcache.NoExpiration
	}
	m.cache.SetWithExpiration(id, slices.Clone(data), ttl)
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) ([]byte, error) {
	data, ok := shardedcache.GetTyped[[]byte](m.cache, id)
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(data), nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.cache.Delete(id)
	return nil
}

// Len returns the number of stored entries not yet swept.
func (m *MemoryStore) Len() int { return m.cache.Count() }

func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close stops the background sweep. It is safe to call more than once.
func (m *MemoryStore) Close() error {
	m.closeOnce.Do(m.cache.Close)
	return nil
}
