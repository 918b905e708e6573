package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/ppiankov/resonance/internal/model"
)

// MemoryRepository is an in-process Repository
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]model.FinalizedRecord
	order   []string
}

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]model.FinalizedRecord)}
}

// Save adds rec unless a record with the same master signature exists
func (r *MemoryRepository) Save(ctx context.Context, rec model.FinalizedRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.MasterSignature == "" {
		return fmt.Errorf("save record %s: master signature is required", rec.NodeID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[rec.MasterSignature]; exists {
		return nil
	}
	r.records[rec.MasterSignature] = rec
	r.order = append(r.order, rec.MasterSignature)
	return nil
}

// Get returns the record with the given master signature
func (r *MemoryRepository) Get(ctx context.Context, masterSignature string) (model.FinalizedRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.FinalizedRecord{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[masterSignature]
	if !ok {
		return model.FinalizedRecord{}, fmt.Errorf("record %s: %w", masterSignature, ErrNotFound)
	}
	return rec, nil
}

// List returns every record in insertion order
func (r *MemoryRepository) List(ctx context.Context) ([]model.FinalizedRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.FinalizedRecord, 0, len(r.order))
	for _, sig := range r.order {
		out = append(out, r.records[sig])
	}
	return out, nil
}

// Count returns the number of records
func (r *MemoryRepository) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order), nil
}

// MemoryBlobStore is an in-process content-addressed Persister
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryBlobStore creates an empty blob store
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string][]byte)}
}

// Persist stores data under its content address
func (s *MemoryBlobStore) Persist(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	locator := Locator(data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.blobs[locator]; !exists {
		s.blobs[locator] = append([]byte(nil), data...)
	}
	return locator, nil
}

// Blob returns the bytes stored under locator
func (s *MemoryBlobStore) Blob(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[locator]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", locator, ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}
