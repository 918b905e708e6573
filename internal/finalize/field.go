package finalize

import (
	"math"
	"slices"
	"time"

	"github.com/ppiankov/resonance/internal/canon"
	"github.com/ppiankov/resonance/internal/model"
)

const (
	// RecencyWindow is how long after the claim the recency factor takes to reach zero
	RecencyWindow = 24 * time.Hour

	// maxHexEntropy is log2(16), the entropy of a uniform hex string
	maxHexEntropy = 4.0
)

// maxCoordinateMagnitude is the norm of (90, 180)
var maxCoordinateMagnitude = math.Hypot(90, 180)

// FieldInput is what the resonance field is computed from
type FieldInput struct {
	NodeID            string
	Coordinates       model.Coordinates
	Timestamp         time.Time
	BaseScore         float64 // locked score
	DriftPenalty      float64 // anchored penalty, not a submitted override
	HarmonicSignature string
}

// ResonanceField computes the field metrics of a node at finalizeTime and signs them
func ResonanceField(in FieldInput, finalizeTime time.Time) (model.ResonanceField, error) {
	lat, lon := in.Coordinates.Lat, in.Coordinates.Lon

	magnitude := clamp(math.Hypot(lat, lon)/maxCoordinateMagnitude, 0, 1)
	strength := 0.6*in.BaseScore + 0.2*magnitude + 0.2*Recency(in.Timestamp, finalizeTime)

	spiral := math.Cos(math.Atan2(lat, lon) * math.Phi)
	cross := math.Sin(radians(lat)) * math.Cos(radians(lon))
	harmonics := (spiral + cross) / 2

	stability := 1.0 + math.Min(0, in.DriftPenalty)
	stability = clamp(stability*HexEntropy(in.HarmonicSignature)/maxHexEntropy, 0, 1)

	sig, err := canon.Sign(SchemeField, canon.Object{}.
		Set("node_id", in.NodeID).
		Set("field_strength", strength).
		Set("field_harmonics", harmonics).
		Set("field_stability", stability).
		Set("finalized_at", finalizeTime), canon.Sorted)
	if err != nil {
		return model.ResonanceField{}, err
	}

	return model.ResonanceField{
		Strength:  strength,
		Harmonics: harmonics,
		Stability: stability,
		Signature: sig,
	}, nil
}

// Recency decays linearly from 1 at the claim timestamp to 0 after RecencyWindow.
// Claims stamped in the future count as fully recent.
func Recency(claimTime, at time.Time) float64 {
	age := at.Sub(claimTime)
	return clamp(1-float64(age)/float64(RecencyWindow), 0, 1)
}

// HexEntropy is the base-2 Shannon entropy of the characters of s
func HexEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}

	// sum in a fixed order so the result does not depend on map iteration
	var entropy float64
	for _, r := range sortedRunes(counts) {
		p := float64(counts[r]) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}

func sortedRunes(counts map[rune]int) []rune {
	runes := make([]rune, 0, len(counts))
	for r := range counts {
		runes = append(runes, r)
	}
	slices.Sort(runes)
	return runes
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
