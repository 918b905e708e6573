// Package store holds finalized records and persists their canonical bytes.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/ppiankov/resonance/internal/model"
)

// LocatorPrefix prefixes content-addressed locators
const LocatorPrefix = "sha256:"

// ErrNotFound is returned when a record or blob does not exist
var ErrNotFound = errors.New("not found")

// Persister writes canonical record bytes somewhere durable and returns a
// locator for them
type Persister interface {
	Persist(ctx context.Context, data []byte) (string, error)
}

// Repository is a caller-owned set of finalized records keyed by master
// signature. Saving a record that is already present is a no-op; List
// returns records in first-insertion order.
type Repository interface {
	Save(ctx context.Context, rec model.FinalizedRecord) error
	Get(ctx context.Context, masterSignature string) (model.FinalizedRecord, error)
	List(ctx context.Context) ([]model.FinalizedRecord, error)
	Count(ctx context.Context) (int, error)
}

// Locator returns the content address of data
func Locator(data []byte) string {
	sum := sha256.Sum256(data)
	return LocatorPrefix + hex.EncodeToString(sum[:])
}
