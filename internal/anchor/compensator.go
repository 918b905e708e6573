// Package anchor measures claims against a fixed reference coordinate and
// derives their reproducible harmonic fingerprints.
package anchor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ppiankov/resonance/internal/model"
)

const (
	// EarthRadiusKm is the mean Earth radius used for great-circle distances
	EarthRadiusKm = 6371.0

	// MaxAcceptableKm is the distance at which the drift penalty saturates at -1
	MaxAcceptableKm = 5000.0

	// seedDelimiter joins the harmonic signature seed fields
	seedDelimiter = "|"
)

// Haversine returns the great-circle distance between two points in kilometers.
// It is symmetric in its arguments.
func Haversine(a, b model.Coordinates) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push h a hair past 1 for antipodal points
	h = math.Min(1, math.Max(0, h))

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DriftCompensation measures how far coords lie from the reference anchor
func DriftCompensation(coords, reference model.Coordinates) model.DriftCompensation {
	distance := Haversine(coords, reference)
	return model.DriftCompensation{
		DistanceKm: distance,
		Penalty:    DriftPenalty(distance),
		Acceptable: distance <= MaxAcceptableKm,
	}
}

// DriftPenalty maps a distance in km to [-1,0], saturating at MaxAcceptableKm
func DriftPenalty(distanceKm float64) float64 {
	return math.Max(-1, -(distanceKm / MaxAcceptableKm))
}

// FibonacciAlignment is cos(atan2(lat, lon) * φ)
func FibonacciAlignment(coords model.Coordinates) float64 {
	return math.Cos(math.Atan2(coords.Lat, coords.Lon) * math.Phi)
}

// HarmonicSeed is the canonical pre-image of a harmonic signature:
// lat and lon at 6 decimals, the timestamp, the node ID and the fibonacci
// alignment at 8 decimals, joined by "|".
func HarmonicSeed(coords model.Coordinates, timestamp time.Time, nodeID string) string {
	return strings.Join([]string{
		fmt.Sprintf("%.6f", coords.Lat),
		fmt.Sprintf("%.6f", coords.Lon),
		FormatTimestamp(timestamp),
		nodeID,
		fmt.Sprintf("%.8f", FibonacciAlignment(coords)),
	}, seedDelimiter)
}

// HarmonicSignature is the hex SHA-256 of the harmonic seed: 64 hex characters,
// identical for identical inputs.
func HarmonicSignature(coords model.Coordinates, timestamp time.Time, nodeID string) string {
	sum := sha256.Sum256([]byte(HarmonicSeed(coords, timestamp, nodeID)))
	return hex.EncodeToString(sum[:])
}

// FormatTimestamp renders an instant the way every signature input does
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Compensator anchors claims to one reference coordinate
type Compensator struct {
	reference model.Anchor
}

// NewCompensator creates a compensator for the given anchor
func NewCompensator(reference model.Anchor) *Compensator {
	return &Compensator{reference: reference}
}

// Reference returns the anchor this compensator measures against
func (c *Compensator) Reference() model.Anchor {
	return c.reference
}

// Anchor returns the harmonic signature and drift compensation for a claim
func (c *Compensator) Anchor(coords model.Coordinates, timestamp time.Time, nodeID string) (string, model.DriftCompensation, error) {
	if !finite(coords.Lat) || !finite(coords.Lon) {
		return "", model.DriftCompensation{}, model.InvalidInput("anchor", "coordinates must be finite")
	}
	return HarmonicSignature(coords, timestamp, nodeID), DriftCompensation(coords, c.reference.Coordinates), nil
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
