package finalize

import (
	"math"

	"github.com/ppiankov/resonance/internal/anchor"
	"github.com/ppiankov/resonance/internal/canon"
	"github.com/ppiankov/resonance/internal/model"
)

// MasterSignature signs the sorted canonical encoding of every record
// field except the master signature itself
func MasterSignature(rec model.FinalizedRecord) (string, error) {
	return canon.Sign(SchemeMaster, recordObject(rec), canon.Sorted)
}

// CanonicalBytes is the sorted canonical encoding of the complete record,
// master signature included. It is what gets persisted.
func CanonicalBytes(rec model.FinalizedRecord) ([]byte, error) {
	return canon.Marshal(recordObject(rec).Set("master_signature", rec.MasterSignature), canon.Sorted)
}

func recordObject(rec model.FinalizedRecord) canon.Object {
	harmonics := rec.Harmonics
	if harmonics == nil {
		harmonics = []float64{}
	}

	return canon.Object{}.
		Set("claim_id", rec.ClaimID).
		Set("node_id", rec.NodeID).
		Set("coordinates", coordinatesObject(rec.Coordinates)).
		Set("timestamp", rec.Timestamp).
		Set("harmonics", harmonics).
		Set("drift", rec.Drift).
		Set("component_scores", canon.Object{}.
			Set("spatial", rec.Scores.Spatial).
			Set("temporal", rec.Scores.Temporal).
			Set("harmonic", rec.Scores.Harmonic).
			Set("drift_penalty", rec.Scores.DriftPenalty)).
		Set("composite_score", rec.Composite).
		Set("natiq_score", rec.NatiqScore).
		Set("status", string(rec.Status)).
		Set("severity", string(rec.Severity)).
		Set("harmonic_signature", rec.HarmonicSignature).
		Set("drift_compensation", canon.Object{}.
			Set("distance_km", rec.Compensation.DistanceKm).
			Set("penalty", rec.Compensation.Penalty).
			Set("acceptable", rec.Compensation.Acceptable)).
		Set("locked_score", canon.Object{}.
			Set("original", rec.Lock.Original).
			Set("temporal_harmonic", rec.Lock.TemporalHarmonic).
			Set("spatial_harmonic", rec.Lock.SpatialHarmonic).
			Set("locked", rec.Lock.Locked).
			Set("timestamp_ms", rec.Lock.TimestampMs).
			Set("lock_signature", rec.Lock.Signature)).
		Set("resonance_field", canon.Object{}.
			Set("field_strength", rec.Field.Strength).
			Set("field_harmonics", rec.Field.Harmonics).
			Set("field_stability", rec.Field.Stability).
			Set("field_signature", rec.Field.Signature)).
		Set("finalized_at", rec.FinalizedAt)
}

// VerifyIntegrity recomputes every signature and derived value of a record
// from its stored fields. Changing any field makes OverallValid false.
func VerifyIntegrity(rec model.FinalizedRecord) model.IntegrityReport {
	var report model.IntegrityReport

	// the reference anchor is not part of the record, so the distance is
	// checked for consistency and left to the master signature
	comp := rec.Compensation
	consistent := model.DriftCompensation{
		DistanceKm: comp.DistanceKm,
		Penalty:    anchor.DriftPenalty(comp.DistanceKm),
		Acceptable: comp.DistanceKm <= anchor.MaxAcceptableKm,
	}
	report.CoordinatesAnchored = finite(rec.Coordinates.Lat) && finite(rec.Coordinates.Lon) &&
		anchor.HarmonicSignature(rec.Coordinates, rec.Timestamp, rec.NodeID) == rec.HarmonicSignature &&
		comp == consistent

	lock, err := LockScore(rec.NatiqScore, rec.Coordinates, rec.Timestamp.UnixMilli())
	report.ScoreLocked = err == nil && lock == rec.Lock

	field, err := ResonanceField(FieldInput{
		NodeID:            rec.NodeID,
		Coordinates:       rec.Coordinates,
		Timestamp:         rec.Timestamp,
		BaseScore:         rec.Lock.Locked,
		DriftPenalty:      rec.Compensation.Penalty,
		HarmonicSignature: rec.HarmonicSignature,
	}, rec.FinalizedAt)
	report.FieldFinalized = err == nil && field == rec.Field

	master, err := MasterSignature(rec)
	report.SignatureValid = err == nil && master == rec.MasterSignature

	report.OverallValid = report.CoordinatesAnchored && report.ScoreLocked &&
		report.FieldFinalized && report.SignatureValid
	return report
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
