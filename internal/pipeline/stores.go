package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/ppiankov/resonance/internal/cache"
	"github.com/ppiankov/resonance/internal/model"
	"github.com/ppiankov/resonance/internal/store"
	"github.com/ppiankov/resonance/internal/worker"
)

// Stores is the persistence stack a pipeline writes through
type Stores struct {
	DB         *store.DB
	Persister  store.Persister
	Repository store.Repository
}

// OpenStores opens the SQLite database named by cfg and layers the blob
// store behind a rate limiter and, when enabled, a locator cache:
//
//	CachingPersister -> RateLimitedPersister -> SQLiteBlobStore
func OpenStores(cfg *model.Config) (*Stores, error) {
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	limiter := worker.NewLimiter(cfg.Store.RequestsPerSec, cfg.Store.Burst)
	var persister store.Persister = store.NewRateLimitedPersister(db.Blobs(), limiter, cfg.Store.Name)
	if c := cache.New(cfg.Cache); c != nil {
		persister = store.NewCachingPersister(persister, c, storeNamespace(cfg.Store), cfg.Cache.MemoryTTL)
	}

	return &Stores{
		DB:         db,
		Persister:  persister,
		Repository: db.Repository(),
	}, nil
}

// storeNamespace identifies the database a cached locator belongs to. The
// disk cache outlives any one database, so the path is part of it.
func storeNamespace(cfg model.StoreConfig) string {
	path, err := filepath.Abs(cfg.Path)
	if err != nil {
		path = filepath.Clean(cfg.Path)
	}
	return cfg.Name + "@" + path
}

// Close closes the underlying database
func (s *Stores) Close() error {
	return s.DB.Close()
}

// Options returns pipeline options writing through s
func (s *Stores) Options() Options {
	return Options{Persister: s.Persister, Repository: s.Repository}
}
