package finalize

import (
	"math"

	"github.com/ppiankov/resonance/internal/canon"
	"github.com/ppiankov/resonance/internal/model"
)

// Signature schemes
const (
	SchemeLock   = "resonance.lock.v1"
	SchemeField  = "resonance.field.v1"
	SchemeMaster = "resonance.master.v1"
)

// LockScore perturbs a [0,1] score by a temporal term sin(ms/1e6)*0.02 and a
// spatial term cos(lat*φ)*0.01, clamps it to [0,1] and signs the result
// together with its inputs.
func LockScore(original float64, coords model.Coordinates, timestampMs int64) (model.LockedScore, error) {
	if math.IsNaN(original) || math.IsInf(original, 0) {
		return model.LockedScore{}, model.InvalidInput("lockScore", "score must be finite, got %v", original)
	}

	temporal := math.Sin(float64(timestampMs)/1e6) * 0.02
	spatial := math.Cos(coords.Lat*math.Phi) * 0.01
	locked := clamp(original+temporal+spatial, 0, 1)

	sig, err := canon.Sign(SchemeLock, canon.Object{}.
		Set("original", original).
		Set("locked", locked).
		Set("timestamp_ms", timestampMs).
		Set("coordinates", coordinatesObject(coords)), canon.Sorted)
	if err != nil {
		return model.LockedScore{}, err
	}

	return model.LockedScore{
		Original:         original,
		TemporalHarmonic: temporal,
		SpatialHarmonic:  spatial,
		Locked:           locked,
		TimestampMs:      timestampMs,
		Signature:        sig,
	}, nil
}

func coordinatesObject(c model.Coordinates) canon.Object {
	return canon.Object{}.Set("lat", c.Lat).Set("lon", c.Lon)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
