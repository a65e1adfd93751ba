package credstore

import (
	"time"

	"github.com/ReneKroon/ttlcache"
)

// Backend is the single-key storage surface the store persists through,
// mirroring the per-tab browser storage the web client uses. Operations are
// atomic at single-key granularity; a zero ttl means the item never expires
// on its own.
type Backend interface {
	Get(key string) (string, bool)
	Set(key, value string, ttl time.Duration) error
	Delete(key string)
}

// MemoryBackend keeps credentials for the lifetime of the process, with
// per-item expiration and lazy eviction handled by the cache.
type MemoryBackend struct {
	cache *ttlcache.Cache
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	c := ttlcache.NewCache()
	// Expiration is absolute, not sliding: reading a credential must not
	// push its storage expiry out.
	c.SkipTtlExtensionOnHit(true)
	return &MemoryBackend{cache: c}
}

func (b *MemoryBackend) Get(key string) (string, bool) {
	v, ok := b.cache.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (b *MemoryBackend) Set(key, value string, ttl time.Duration) error {
	if ttl > 0 {
		b.cache.SetWithTTL(key, value, ttl)
		return nil
	}
	b.cache.Set(key, value)
	return nil
}

func (b *MemoryBackend) Delete(key string) {
	b.cache.Remove(key)
}
