package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ppiankov/resonance/internal/model"
)

// KeyPrefix namespaces every cache key
const KeyPrefix = "resonance:v1:"

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// ContentKey generates a cache key from a payload's bytes
func ContentKey(data []byte) string {
	hash := sha256.Sum256(data)
	return KeyPrefix + hex.EncodeToString(hash[:])
}

// ScopedKey generates a content key that only matches within namespace,
// so entries written for one store never answer for another
func ScopedKey(namespace string, data []byte) string {
	hash := sha256.Sum256(data)
	scope := sha256.Sum256([]byte(namespace))
	return KeyPrefix + hex.EncodeToString(scope[:8]) + ":" + hex.EncodeToString(hash[:])
}

// New builds the cache described by cfg. It returns nil when caching is
// disabled; a cache without a directory lives in memory only.
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Directory == "" {
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.Directory, cfg.DiskTTL)
}
