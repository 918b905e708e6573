package model

import (
	"math"
	"time"
)

// Coordinates is a geographic position in degrees
type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat" mapstructure:"lat"`
	Lon float64 `json:"lon" yaml:"lon" mapstructure:"lon"`
}

// Slice returns the coordinates as [lat, lon]
func (c Coordinates) Slice() []float64 {
	return []float64{c.Lat, c.Lon}
}

// ComponentScoresInput carries optional precomputed component scores
type ComponentScoresInput struct {
	Spatial      *float64 `json:"spatial,omitempty"`
	Temporal     *float64 `json:"temporal,omitempty"`
	Harmonic     *float64 `json:"harmonic,omitempty"`
	DriftPenalty *float64 `json:"drift_penalty,omitempty"`
}

// ClaimInput is a claim as submitted. Every field is optional so that
// structural validation can report what is missing.
type ClaimInput struct {
	ClaimID         string                `json:"claim_id"`
	NodeID          string                `json:"node_id"`
	Coordinates     []float64             `json:"coordinates"`
	Timestamp       string                `json:"timestamp"`
	Harmonics       []float64             `json:"harmonics"`
	Drift           *float64              `json:"drift"`
	NatiqScore      *float64              `json:"natiq_score,omitempty"`
	ComponentScores *ComponentScoresInput `json:"component_scores,omitempty"`
}

// RawClaim is a structurally valid claim. Construct it with NewRawClaim.
type RawClaim struct {
	ClaimID     string      `json:"claim_id"`
	NodeID      string      `json:"node_id"`
	Coordinates Coordinates `json:"coordinates"`
	Timestamp   time.Time   `json:"timestamp"`
	Harmonics   []float64   `json:"harmonics"`
	Drift       float64     `json:"drift"`

	// precomputed overrides, nil when the submitter sent none
	natiq     *float64
	overrides *ComponentScoresInput
}

// NatiqOverride returns the submitter's precomputed NATIQ score, if any
func (r RawClaim) NatiqOverride() (float64, bool) {
	if r.natiq == nil {
		return 0, false
	}
	return *r.natiq, true
}

// ComponentOverrides returns the submitter's precomputed component scores, if any
func (r RawClaim) ComponentOverrides() *ComponentScoresInput {
	return r.overrides
}

// NewRawClaim promotes an input to a RawClaim, or returns the structural
// errors that prevent it.
func NewRawClaim(in ClaimInput) (RawClaim, []StructuralError) {
	if errs := CheckStructure(in); len(errs) > 0 {
		return RawClaim{}, errs
	}

	ts, _ := ParseTimestamp(in.Timestamp)
	harmonics := make([]float64, len(in.Harmonics))
	copy(harmonics, in.Harmonics)

	return RawClaim{
		ClaimID:     in.ClaimID,
		NodeID:      in.NodeID,
		Coordinates: Coordinates{Lat: in.Coordinates[0], Lon: in.Coordinates[1]},
		Timestamp:   ts,
		Harmonics:   harmonics,
		Drift:       *in.Drift,
		natiq:       in.NatiqScore,
		overrides:   in.ComponentScores,
	}, nil
}

// ParseTimestamp parses an ISO-8601 instant and normalizes it to UTC
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// CheckStructure reports every structural problem in a claim input.
// An empty result means the input can become a RawClaim.
func CheckStructure(in ClaimInput) []StructuralError {
	var errs []StructuralError
	add := func(field, reason string) {
		errs = append(errs, StructuralError{Field: field, Reason: reason})
	}

	if in.ClaimID == "" {
		add("claim_id", "missing")
	}
	if in.NodeID == "" {
		add("node_id", "missing")
	}

	switch {
	case in.Coordinates == nil:
		add("coordinates", "missing")
	case len(in.Coordinates) != 2:
		add("coordinates", "expected [lat, lon]")
	default:
		lat, lon := in.Coordinates[0], in.Coordinates[1]
		if !isFinite(lat) || lat < -90 || lat > 90 {
			add("coordinates", "latitude out of range [-90, 90]")
		}
		if !isFinite(lon) || lon < -180 || lon > 180 {
			add("coordinates", "longitude out of range [-180, 180]")
		}
	}

	if in.Timestamp == "" {
		add("timestamp", "missing")
	} else if _, err := ParseTimestamp(in.Timestamp); err != nil {
		add("timestamp", "not an ISO-8601 instant")
	}

	if len(in.Harmonics) == 0 {
		add("harmonics", "missing or empty")
	} else {
		for _, h := range in.Harmonics {
			if !isFinite(h) {
				add("harmonics", "contains a non-finite amplitude")
				break
			}
		}
	}

	if in.Drift == nil {
		add("drift", "missing")
	} else if !isFinite(*in.Drift) {
		add("drift", "not finite")
	}

	if in.NatiqScore != nil && !inRange(*in.NatiqScore, 0, 1) {
		add("natiq_score", "out of range [0, 1]")
	}

	if cs := in.ComponentScores; cs != nil {
		if cs.Spatial != nil && !inRange(*cs.Spatial, 0, 1) {
			add("component_scores.spatial", "out of range [0, 1]")
		}
		if cs.Temporal != nil && !inRange(*cs.Temporal, 0, 1) {
			add("component_scores.temporal", "out of range [0, 1]")
		}
		if cs.Harmonic != nil && !inRange(*cs.Harmonic, 0, 1) {
			add("component_scores.harmonic", "out of range [0, 1]")
		}
		if cs.DriftPenalty != nil && !inRange(*cs.DriftPenalty, -1, 0) {
			add("component_scores.drift_penalty", "out of range [-1, 0]")
		}
	}

	return errs
}

// ComponentScores are the per-component quality scores of a claim
type ComponentScores struct {
	Spatial      float64 `json:"spatial"`       // [0,1] coordinate alignment
	Temporal     float64 `json:"temporal"`      // [0,1] normalized drift
	Harmonic     float64 `json:"harmonic"`      // [0,1] weighted harmonics
	DriftPenalty float64 `json:"drift_penalty"` // [-1,0] distance from the anchor
}

// ScoredClaim is a RawClaim with its derived scores
type ScoredClaim struct {
	RawClaim
	Scores     ComponentScores `json:"component_scores"`
	Composite  float64         `json:"composite_score"` // NATIQ composite on [0,100]
	NatiqScore float64         `json:"natiq_score"`     // threshold-verification composite on [0,1]
	Signals    []Signal        `json:"signals,omitempty"`
}

// Status is the outcome of classification
type Status string

const (
	StatusVerified        Status = "verified"
	StatusFlagged         Status = "flagged"
	StatusCritical        Status = "critical"
	StatusStructuralError Status = "structural_error"
)

// Severity grades how far a claim falls short
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ClassifiedClaim is the verifier's verdict on one claim.
// Scored is nil when Status is StatusStructuralError.
type ClassifiedClaim struct {
	ClaimID          string            `json:"claim_id"`
	NodeID           string            `json:"node_id"`
	Scored           *ScoredClaim      `json:"scored,omitempty"`
	Status           Status            `json:"status"`
	Severity         Severity          `json:"severity"`
	Flags            []string          `json:"flags,omitempty"`
	StructuralErrors []StructuralError `json:"structural_errors,omitempty"`
}

// Verified reports whether the claim may be finalized
func (c ClassifiedClaim) Verified() bool {
	return c.Status == StatusVerified && c.Scored != nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func inRange(f, lo, hi float64) bool {
	return isFinite(f) && f >= lo && f <= hi
}
