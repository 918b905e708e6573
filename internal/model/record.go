package model

import "time"

// DriftCompensation is a claim's geodesic offset from the reference anchor
type DriftCompensation struct {
	DistanceKm float64 `json:"distance_km"`
	Penalty    float64 `json:"penalty"` // [-1,0]
	Acceptable bool    `json:"acceptable"`
}

// LockedScore is a verification score perturbed by deterministic
// temporal and spatial terms and bound to its inputs by a signature
type LockedScore struct {
	Original         float64 `json:"original"`
	TemporalHarmonic float64 `json:"temporal_harmonic"`
	SpatialHarmonic  float64 `json:"spatial_harmonic"`
	Locked           float64 `json:"locked"`
	TimestampMs      int64   `json:"timestamp_ms"`
	Signature        string  `json:"lock_signature"`
}

// ResonanceField summarizes a finalized node's field metrics
type ResonanceField struct {
	Strength  float64 `json:"field_strength"`
	Harmonics float64 `json:"field_harmonics"`
	Stability float64 `json:"field_stability"`
	Signature string  `json:"field_signature"`
}

// FinalizedRecord is an immutable, signed record of a verified claim.
// Nothing mutates a record after the finalizer returns it.
type FinalizedRecord struct {
	ClaimID     string          `json:"claim_id"`
	NodeID      string          `json:"node_id"`
	Coordinates Coordinates     `json:"coordinates"`
	Timestamp   time.Time       `json:"timestamp"`
	Harmonics   []float64       `json:"harmonics"`
	Drift       float64         `json:"drift"`
	Scores      ComponentScores `json:"component_scores"`
	Composite   float64         `json:"composite_score"`
	NatiqScore  float64         `json:"natiq_score"`
	Status      Status          `json:"status"`
	Severity    Severity        `json:"severity"`

	HarmonicSignature string            `json:"harmonic_signature"`
	Compensation      DriftCompensation `json:"drift_compensation"`
	Lock              LockedScore       `json:"locked_score"`
	Field             ResonanceField    `json:"resonance_field"`
	FinalizedAt       time.Time         `json:"finalized_at"`

	MasterSignature string `json:"master_signature"`
}

// IntegrityReport is the result of recomputing a record's signatures
type IntegrityReport struct {
	CoordinatesAnchored bool `json:"coordinates_anchored"`
	ScoreLocked         bool `json:"score_locked"`
	FieldFinalized      bool `json:"field_finalized"`
	SignatureValid      bool `json:"signature_valid"`
	OverallValid        bool `json:"overall_valid"`
}

// Err returns ErrIntegrityMismatch when the record failed verification
func (r IntegrityReport) Err() error {
	if r.OverallValid {
		return nil
	}
	return ErrIntegrityMismatch
}

// FinalizeFailure records one node that could not be finalized
type FinalizeFailure struct {
	NodeID  string `json:"node_id"`
	ClaimID string `json:"claim_id"`
	Stage   string `json:"stage"`
	Error   string `json:"error"`
}

// FinalizeSuccess is a finalized record and where it was persisted
type FinalizeSuccess struct {
	Record  FinalizedRecord `json:"record"`
	Locator string          `json:"locator,omitempty"`
}

// FinalizeSummary aggregates a batch finalize run
type FinalizeSummary struct {
	Total       int     `json:"total"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"` // percentage
}

// FinalizeOutcome is the result of finalizing a batch. Per-node failures
// are collected here; they never abort sibling nodes.
type FinalizeOutcome struct {
	Successful []FinalizeSuccess `json:"successful"`
	Failed     []FinalizeFailure `json:"failed"`
	Summary    FinalizeSummary   `json:"summary"`
}
