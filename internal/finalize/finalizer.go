// Package finalize turns verified claims into immutable signed records.
package finalize

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/resonance/internal/anchor"
	"github.com/ppiankov/resonance/internal/model"
	"github.com/ppiankov/resonance/internal/store"
)

// DefaultWorkers is the default number of nodes finalized concurrently
const DefaultWorkers = 4

// Finalizer anchors, locks, fields and signs verified claims
type Finalizer struct {
	compensator *anchor.Compensator
	now         func() time.Time
	persister   store.Persister
	workers     int
	logger      *zap.Logger
}

// Option configures a Finalizer
type Option func(*Finalizer)

// WithClock sets the clock used for finalize times
func WithClock(now func() time.Time) Option {
	return func(f *Finalizer) { f.now = now }
}

// WithPersister sets where batch finalization writes canonical record bytes
func WithPersister(p store.Persister) Option {
	return func(f *Finalizer) { f.persister = p }
}

// WithWorkers bounds how many nodes a batch finalizes at once
func WithWorkers(n int) Option {
	return func(f *Finalizer) {
		if n > 0 {
			f.workers = n
		}
	}
}

// WithLogger sets the logger for batch runs
func WithLogger(l *zap.Logger) Option {
	return func(f *Finalizer) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFinalizer creates a finalizer measuring drift against reference
func NewFinalizer(reference model.Anchor, opts ...Option) *Finalizer {
	f := &Finalizer{
		compensator: anchor.NewCompensator(reference),
		now:         time.Now,
		workers:     DefaultWorkers,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FinalizeNode builds the signed record for one verified claim. Claims with
// any other status fail at the gate stage.
func (f *Finalizer) FinalizeNode(claim model.ClassifiedClaim) (model.FinalizedRecord, error) {
	fail := func(stage string, err error) (model.FinalizedRecord, error) {
		return model.FinalizedRecord{}, &model.FinalizationError{NodeID: claim.NodeID, Stage: stage, Err: err}
	}

	if !claim.Verified() || claim.Scored == nil {
		return fail(model.StageGate, fmt.Errorf("claim %s has status %s, only verified claims finalize", claim.ClaimID, claim.Status))
	}
	scored := claim.Scored

	harmonicSig, compensation, err := f.compensator.Anchor(scored.Coordinates, scored.Timestamp, scored.NodeID)
	if err != nil {
		return fail(model.StageAnchor, err)
	}

	lock, err := LockScore(scored.NatiqScore, scored.Coordinates, scored.Timestamp.UnixMilli())
	if err != nil {
		return fail(model.StageLock, err)
	}

	finalizedAt := f.now().UTC()
	field, err := ResonanceField(FieldInput{
		NodeID:            scored.NodeID,
		Coordinates:       scored.Coordinates,
		Timestamp:         scored.Timestamp,
		BaseScore:         lock.Locked,
		DriftPenalty:      compensation.Penalty,
		HarmonicSignature: harmonicSig,
	}, finalizedAt)
	if err != nil {
		return fail(model.StageField, err)
	}

	harmonics := make([]float64, len(scored.Harmonics))
	copy(harmonics, scored.Harmonics)

	rec := model.FinalizedRecord{
		ClaimID:           scored.ClaimID,
		NodeID:            scored.NodeID,
		Coordinates:       scored.Coordinates,
		Timestamp:         scored.Timestamp.UTC(),
		Harmonics:         harmonics,
		Drift:             scored.Drift,
		Scores:            scored.Scores,
		Composite:         scored.Composite,
		NatiqScore:        scored.NatiqScore,
		Status:            claim.Status,
		Severity:          claim.Severity,
		HarmonicSignature: harmonicSig,
		Compensation:      compensation,
		Lock:              lock,
		Field:             field,
		FinalizedAt:       finalizedAt,
	}

	rec.MasterSignature, err = MasterSignature(rec)
	if err != nil {
		return fail(model.StageSign, err)
	}
	return rec, nil
}

// FinalizeAndPersist finalizes a claim and writes its canonical bytes
// through the configured persister
func (f *Finalizer) FinalizeAndPersist(ctx context.Context, claim model.ClassifiedClaim) (model.FinalizeSuccess, error) {
	rec, err := f.FinalizeNode(claim)
	if err != nil {
		return model.FinalizeSuccess{}, err
	}

	success := model.FinalizeSuccess{Record: rec}
	if f.persister == nil {
		return success, nil
	}

	data, err := CanonicalBytes(rec)
	if err != nil {
		return model.FinalizeSuccess{}, &model.FinalizationError{NodeID: rec.NodeID, Stage: model.StageSign, Err: err}
	}
	success.Locator, err = f.persister.Persist(ctx, data)
	if err != nil {
		return model.FinalizeSuccess{}, &model.FinalizationError{NodeID: rec.NodeID, Stage: model.StagePersist, Err: err}
	}
	return success, nil
}
