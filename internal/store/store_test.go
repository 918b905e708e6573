package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/resonance/internal/cache"
	"github.com/ppiankov/resonance/internal/model"
	"github.com/ppiankov/resonance/internal/worker"
)

func record(node, sig string) model.FinalizedRecord {
	return model.FinalizedRecord{
		ClaimID:     "claim-" + node,
		NodeID:      node,
		Coordinates: model.Coordinates{Lat: 51.5074, Lon: -0.1278},
		Timestamp:   time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC),
		Harmonics:   []float64{1, 0.5, 1.0 / 3},
		Drift:       0.1,
		Scores:      model.ComponentScores{Spatial: 0.9, Temporal: 0.45, Harmonic: 0.8, DriftPenalty: -0.99},
		Composite:   81.25,
		NatiqScore:  0.6123,
		Status:      model.StatusVerified,
		Severity:    model.SeverityNone,
		Lock: model.LockedScore{
			Original:    0.6123,
			Locked:      0.6201,
			TimestampMs: 1772366400000,
			Signature:   "lock-" + sig,
		},
		Field:           model.ResonanceField{Strength: 0.7, Harmonics: -0.2, Stability: 0.01, Signature: "field-" + sig},
		FinalizedAt:     time.Date(2026, 3, 1, 12, 5, 0, 123456789, time.UTC),
		MasterSignature: sig,
	}
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "resonance.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func repositories(t *testing.T) map[string]Repository {
	return map[string]Repository{
		"memory": NewMemoryRepository(),
		"sqlite": openTestDB(t).Repository(),
	}
}

func TestRepository_SaveGetList(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			recs := []model.FinalizedRecord{record("n2", "s2"), record("n1", "s1"), record("n3", "s3")}
			for _, r := range recs {
				require.NoError(t, repo.Save(ctx, r))
			}

			got, err := repo.Get(ctx, "s1")
			require.NoError(t, err)
			if diff := cmp.Diff(recs[1], got); diff != "" {
				t.Errorf("record mismatch (-want +got):\n%s", diff)
			}

			list, err := repo.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 3)
			assert.Equal(t, []string{"s2", "s1", "s3"}, []string{list[0].MasterSignature, list[1].MasterSignature, list[2].MasterSignature})
		})
	}
}

func TestRepository_SaveIsIdempotent(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first := record("n1", "s1")
			again := record("n1-again", "s1")

			require.NoError(t, repo.Save(ctx, first))
			require.NoError(t, repo.Save(ctx, again))

			n, err := repo.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			got, err := repo.Get(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, "n1", got.NodeID)
		})
	}
}

func TestRepository_Errors(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := repo.Get(ctx, "missing")
			assert.True(t, errors.Is(err, ErrNotFound), "expected ErrNotFound, got %v", err)

			assert.Error(t, repo.Save(ctx, record("n1", "")))

			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			assert.ErrorIs(t, repo.Save(cancelled, record("n1", "s1")), context.Canceled)
		})
	}
}

func TestSQLiteRepository_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resonance.db")
	ctx := context.Background()

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Repository().Save(ctx, record("n1", "s1")))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	n, err := db.Repository().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

type blobStore interface {
	Persister
	Blob(ctx context.Context, locator string) ([]byte, error)
}

func TestBlobStores_ContentAddressed(t *testing.T) {
	stores := map[string]blobStore{
		"memory": NewMemoryBlobStore(),
		"sqlite": openTestDB(t).Blobs(),
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			data := []byte(`{"node_id":"n1"}`)

			loc, err := s.Persist(ctx, data)
			require.NoError(t, err)
			assert.Equal(t, Locator(data), loc)
			assert.Regexp(t, `^sha256:[0-9a-f]{64}$`, loc)

			again, err := s.Persist(ctx, data)
			require.NoError(t, err)
			assert.Equal(t, loc, again)

			got, err := s.Blob(ctx, loc)
			require.NoError(t, err)
			assert.Equal(t, data, got)

			_, err = s.Blob(ctx, "sha256:missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

// countingPersister counts calls to Persist
type countingPersister struct {
	calls int32
	err   error
}

func (p *countingPersister) Persist(ctx context.Context, data []byte) (string, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.err != nil {
		return "", p.err
	}
	return Locator(data), nil
}

func TestCachingPersister(t *testing.T) {
	next := &countingPersister{}
	p := NewCachingPersister(next, cache.NewMemoryCache(time.Hour, time.Minute), "local", 0)
	ctx := context.Background()

	a1, err := p.Persist(ctx, []byte("a"))
	require.NoError(t, err)
	a2, err := p.Persist(ctx, []byte("a"))
	require.NoError(t, err)
	_, err = p.Persist(ctx, []byte("b"))
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&next.calls))
}

func TestCachingPersister_ErrorNotCached(t *testing.T) {
	next := &countingPersister{err: errors.New("disk full")}
	p := NewCachingPersister(next, cache.NewMemoryCache(time.Hour, time.Minute), "local", 0)

	_, err := p.Persist(context.Background(), []byte("a"))
	assert.Error(t, err)
	_, err = p.Persist(context.Background(), []byte("a"))
	assert.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&next.calls))
}

func TestCachingPersister_ScopedByNamespace(t *testing.T) {
	shared := cache.NewMemoryCache(time.Hour, time.Minute)
	first := &countingPersister{}
	second := &countingPersister{}
	ctx := context.Background()

	_, err := NewCachingPersister(first, shared, "local@/data/a.db", 0).Persist(ctx, []byte("a"))
	require.NoError(t, err)
	_, err = NewCachingPersister(second, shared, "local@/data/b.db", 0).Persist(ctx, []byte("a"))
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&first.calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&second.calls), "a locator cached for one store must not answer for another")
}

func TestRateLimitedPersister(t *testing.T) {
	next := &countingPersister{}
	limiter := worker.NewLimiter(0.001, 1)
	p := NewRateLimitedPersister(next, limiter, "local")

	_, err := p.Persist(context.Background(), []byte("a"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Persist(ctx, []byte("b"))
	assert.Error(t, err, "expected the exhausted bucket to block past the deadline")
	assert.Equal(t, int32(1), atomic.LoadInt32(&next.calls))
}
