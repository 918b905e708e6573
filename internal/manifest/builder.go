// Package manifest aggregates finalized records into signed session manifests.
package manifest

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/resonance/internal/canon"
	"github.com/ppiankov/resonance/internal/model"
)

// Scheme is the manifest signature scheme
const Scheme = "resonance.manifest.v1"

// Builder creates manifests for one reference anchor
type Builder struct {
	anchor model.Anchor
	now    func() time.Time
	newID  func() string
}

// NewBuilder creates a builder stamping sessions with the wall clock and random UUIDs
func NewBuilder(anchor model.Anchor) *Builder {
	return &Builder{
		anchor: anchor,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// WithClock returns a copy of b using now for session timestamps
func (b *Builder) WithClock(now func() time.Time) *Builder {
	c := *b
	c.now = now
	return &c
}

// WithIDs returns a copy of b using newID for session IDs
func (b *Builder) WithIDs(newID func() string) *Builder {
	c := *b
	c.newID = newID
	return &c
}

// Build summarizes records, in order, into a signed manifest
func (b *Builder) Build(records []model.FinalizedRecord) (model.Manifest, error) {
	entries := make([]model.ManifestEntry, 0, len(records))
	var totalStrength, totalLocked float64
	for _, rec := range records {
		entries = append(entries, model.ManifestEntry{
			NodeID:        rec.NodeID,
			Coordinates:   rec.Coordinates,
			Signature:     rec.MasterSignature,
			LockedScore:   rec.Lock.Locked,
			FieldStrength: rec.Field.Strength,
			FinalizedAt:   rec.FinalizedAt,
		})
		totalStrength += rec.Field.Strength
		totalLocked += rec.Lock.Locked
	}

	stats := model.ManifestStats{
		Count:              len(entries),
		TotalFieldStrength: totalStrength,
	}
	if len(entries) > 0 {
		stats.MeanLockedScore = totalLocked / float64(len(entries))
	}

	m := model.Manifest{
		Session: model.ManifestSession{
			ID:        b.newID(),
			CreatedAt: b.now().UTC(),
			Count:     len(entries),
			Anchor:    b.anchor,
		},
		Entries: entries,
		Stats:   stats,
	}

	sig, err := Sign(m)
	if err != nil {
		return model.Manifest{}, err
	}
	m.Signature = sig
	return m, nil
}

// Sign computes the manifest signature over the declared-order tuple
// (session, entries, stats)
func Sign(m model.Manifest) (string, error) {
	entries := make([]canon.Object, 0, len(m.Entries))
	for _, e := range m.Entries {
		entries = append(entries, canon.Object{}.
			Set("node_id", e.NodeID).
			Set("coordinates", coordinates(e.Coordinates)).
			Set("signature", e.Signature).
			Set("locked_score", e.LockedScore).
			Set("field_strength", e.FieldStrength).
			Set("finalized_at", e.FinalizedAt))
	}

	tuple := canon.Object{}.
		Set("session", canon.Object{}.
			Set("id", m.Session.ID).
			Set("created_at", m.Session.CreatedAt).
			Set("count", m.Session.Count).
			Set("anchor", canon.Object{}.
				Set("name", m.Session.Anchor.Name).
				Set("coordinates", coordinates(m.Session.Anchor.Coordinates)))).
		Set("entries", entries).
		Set("stats", canon.Object{}.
			Set("count", m.Stats.Count).
			Set("total_field_strength", m.Stats.TotalFieldStrength).
			Set("mean_locked_score", m.Stats.MeanLockedScore))

	return canon.Sign(Scheme, tuple, canon.Declared)
}

// Verify recomputes the manifest signature and checks the session count
// and stats agree with the entries
func Verify(m model.Manifest) error {
	sig, err := Sign(m)
	if err != nil {
		return fmt.Errorf("verify manifest: %w", err)
	}
	if sig != m.Signature {
		return fmt.Errorf("manifest %s: signature: %w", m.Session.ID, model.ErrIntegrityMismatch)
	}
	if m.Session.Count != len(m.Entries) || m.Stats.Count != len(m.Entries) {
		return fmt.Errorf("manifest %s: count: %w", m.Session.ID, model.ErrIntegrityMismatch)
	}
	return nil
}

func coordinates(c model.Coordinates) canon.Object {
	return canon.Object{}.Set("lat", c.Lat).Set("lon", c.Lon)
}
