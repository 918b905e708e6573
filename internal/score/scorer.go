package score

import (
	"fmt"
	"math"

	"github.com/ppiankov/resonance/internal/anchor"
	"github.com/ppiankov/resonance/internal/model"
)

// Phi is the golden ratio used as the decay and scaling constant throughout scoring
const Phi = math.Phi

// minMagnitude floors the smaller coordinate of a pair so ratios stay finite
const minMagnitude = 1e-10

// NormalizeDrift maps a drift value to (0, 0.5] via 1 / (1 + e^(|drift|/φ)).
// Zero drift yields exactly 0.5.
func NormalizeDrift(drift float64) (float64, error) {
	if !isFinite(drift) {
		return 0, model.InvalidInput("normalizeDrift", "drift must be finite, got %v", drift)
	}
	return 1 / (1 + math.Exp(math.Abs(drift)/Phi)), nil
}

// Alignment scores how close every pair of coordinates is to a golden ratio.
// It accepts 2 to 4 finite coordinates and returns a value in [0,1].
func Alignment(coords []float64) (float64, error) {
	if len(coords) < 2 || len(coords) > 4 {
		return 0, model.InvalidInput("alignment", "expected 2-4 coordinates, got %d", len(coords))
	}
	for _, c := range coords {
		if !isFinite(c) {
			return 0, model.InvalidInput("alignment", "coordinates must be finite, got %v", c)
		}
	}

	var sum float64
	pairs := 0
	for i := 0; i < len(coords); i++ {
		for j := i + 1; j < len(coords); j++ {
			a, b := math.Abs(coords[i]), math.Abs(coords[j])
			if a == 0 && b == 0 {
				continue
			}
			larger, smaller := math.Max(a, b), math.Min(a, b)
			ratio := larger / math.Max(smaller, minMagnitude)
			sum += math.Exp(-math.Abs(ratio-Phi) * math.Log(Phi))
			pairs++
		}
	}
	if pairs == 0 {
		return 0, nil
	}

	// Hypot folds the norm without overflowing the squares
	var norm float64
	for _, c := range coords {
		norm = math.Hypot(norm, c)
	}
	bonus := 1.0
	if r := math.Mod(norm, Phi); isFinite(r) {
		bonus += 0.1 * math.Exp(-math.Abs(r)/Phi)
	}

	return math.Min(sum/float64(pairs)*bonus, 1), nil
}

// WeightHarmonics scores an ordered harmonic series in [0,1]. Amplitudes are
// normalized by the largest magnitude, the harmonic at position n (1-indexed)
// weighs e^(-n/φ), and closeness of each overtone to the natural ratio
// 1/(i+1) (0-indexed i) of the fundamental adds up to a 15% bonus.
func WeightHarmonics(harmonics []float64) (float64, error) {
	if len(harmonics) == 0 {
		return 0, model.InvalidInput("weightHarmonics", "harmonics must be non-empty")
	}
	var peak float64
	for _, h := range harmonics {
		if !isFinite(h) {
			return 0, model.InvalidInput("weightHarmonics", "harmonics must be finite, got %v", h)
		}
		peak = math.Max(peak, math.Abs(h))
	}
	if peak == 0 {
		return 0, nil
	}

	var weighted, totalWeight float64
	for i, h := range harmonics {
		w := math.Exp(-float64(i+1) / Phi)
		weighted += w * math.Abs(h) / peak
		totalWeight += w
	}
	base := weighted / totalWeight

	fundamental := math.Abs(harmonics[0])
	if len(harmonics) == 1 || fundamental == 0 {
		return math.Min(base, 1), nil
	}

	var closeness float64
	for i := 1; i < len(harmonics); i++ {
		ratio := math.Abs(harmonics[i]) / fundamental
		ideal := 1 / float64(i+1)
		closeness += math.Exp(-math.Abs(ratio-ideal) * Phi)
	}
	bonus := 0.15 * closeness / float64(len(harmonics)-1)

	return math.Min(base*(1+bonus), 1), nil
}

// ScoreComposite blends the harmonic, alignment and drift sub-scores into the
// NATIQ composite on [0,100], rounded to two decimals.
func ScoreComposite(harmonics []float64, coords []float64, drift float64) (float64, error) {
	h, err := WeightHarmonics(harmonics)
	if err != nil {
		return 0, err
	}
	g, err := Alignment(coords)
	if err != nil {
		return 0, err
	}
	d, err := NormalizeDrift(drift)
	if err != nil {
		return 0, err
	}
	return compose(h, g, d), nil
}

// compose applies the weighted blend and the uniform-strength amplifier
func compose(h, g, d float64) float64 {
	weighted := 0.4*h + 0.35*g + 0.25*d
	amplifier := 1 + 0.1*(math.Pow(Phi, math.Min(h, math.Min(g, d)))-1)
	return round(clamp(weighted*amplifier*100, 0, 100), 2)
}

// VerificationComposite is the [0,1] score compared against the NATIQ threshold.
// It is independent of ScoreComposite and must stay that way.
func VerificationComposite(s model.ComponentScores) float64 {
	v := 0.40*s.Harmonic + 0.30*s.Spatial + 0.30*s.Temporal + 0.20*s.DriftPenalty
	return round(clamp(v, 0, 1), 4)
}

// Scorer turns raw claims into scored claims relative to a reference anchor
type Scorer struct {
	anchor model.Coordinates
}

// NewScorer creates a new scorer
func NewScorer(ref model.Anchor) *Scorer {
	return &Scorer{anchor: ref.Coordinates}
}

// Score calculates component scores, both composites and transparent signals
func (s *Scorer) Score(claim model.RawClaim) (model.ScoredClaim, error) {
	var signals []model.Signal

	harmonic, err := WeightHarmonics(claim.Harmonics)
	if err != nil {
		return model.ScoredClaim{}, fmt.Errorf("harmonic score: %w", err)
	}
	signals = append(signals, model.Signal{
		Type:        model.SignalHarmonic,
		Description: fmt.Sprintf("Weighted harmonics over %d amplitudes: %.4f", len(claim.Harmonics), harmonic),
		Data: map[string]interface{}{
			"amplitudes": len(claim.Harmonics),
			"score":      harmonic,
			"formula":    "min(sum(e^(-n/phi)*|a_n|/max|a|)/sum(e^(-n/phi)) * (1 + 0.15*mean(e^(-|a_n/a_1 - 1/n|*phi))), 1)",
		},
	})

	spatial, err := Alignment(claim.Coordinates.Slice())
	if err != nil {
		return model.ScoredClaim{}, fmt.Errorf("alignment score: %w", err)
	}
	signals = append(signals, model.Signal{
		Type:        model.SignalAlignment,
		Description: fmt.Sprintf("Golden-ratio alignment of (%.6f, %.6f): %.4f", claim.Coordinates.Lat, claim.Coordinates.Lon, spatial),
		Data: map[string]interface{}{
			"score":   spatial,
			"formula": "min(mean(e^(-|ratio-phi|*ln(phi))) * (1 + 0.1*e^(-|R mod phi|/phi)), 1)",
		},
	})

	temporal, err := NormalizeDrift(claim.Drift)
	if err != nil {
		return model.ScoredClaim{}, fmt.Errorf("drift score: %w", err)
	}
	signals = append(signals, model.Signal{
		Type:        model.SignalDrift,
		Description: fmt.Sprintf("Normalized drift %.4f -> %.4f", claim.Drift, temporal),
		Data: map[string]interface{}{
			"drift":   claim.Drift,
			"score":   temporal,
			"formula": "1 / (1 + e^(|drift|/phi))",
		},
	})

	comp := anchor.DriftCompensation(claim.Coordinates, s.anchor)
	signals = append(signals, model.Signal{
		Type:        model.SignalAnchor,
		Description: fmt.Sprintf("Distance from anchor: %.1f km", comp.DistanceKm),
		Data: map[string]interface{}{
			"distance_km": comp.DistanceKm,
			"penalty":     comp.Penalty,
			"acceptable":  comp.Acceptable,
			"formula":     "max(-1, -(distance_km/5000))",
		},
	})

	scores := model.ComponentScores{
		Spatial:      spatial,
		Temporal:     temporal,
		Harmonic:     harmonic,
		DriftPenalty: comp.Penalty,
	}
	if o := claim.ComponentOverrides(); o != nil {
		applyOverrides(&scores, o)
		signals = append(signals, model.Signal{
			Type:        model.SignalOverride,
			Description: "Submitter supplied precomputed component scores",
		})
	}

	composite := compose(harmonic, spatial, temporal)
	signals = append(signals, model.Signal{
		Type:        model.SignalComposite,
		Description: fmt.Sprintf("NATIQ composite: %.2f/100", composite),
		Data: map[string]interface{}{
			"score":   composite,
			"formula": "round(clamp((0.4H + 0.35G + 0.25D) * (1 + 0.1*(phi^min(H,G,D) - 1)) * 100, 0, 100), 2)",
		},
	})

	natiq := VerificationComposite(scores)
	if v, ok := claim.NatiqOverride(); ok {
		natiq = v
	}
	signals = append(signals, model.Signal{
		Type:        model.SignalNatiq,
		Description: fmt.Sprintf("Verification composite: %.4f", natiq),
		Data: map[string]interface{}{
			"score":   natiq,
			"formula": "round(clamp(0.40*harmonic + 0.30*spatial + 0.30*temporal + 0.20*drift_penalty, 0, 1), 4)",
		},
	})

	return model.ScoredClaim{
		RawClaim:   claim,
		Scores:     scores,
		Composite:  composite,
		NatiqScore: natiq,
		Signals:    signals,
	}, nil
}

func applyOverrides(s *model.ComponentScores, o *model.ComponentScoresInput) {
	if o.Spatial != nil {
		s.Spatial = *o.Spatial
	}
	if o.Temporal != nil {
		s.Temporal = *o.Temporal
	}
	if o.Harmonic != nil {
		s.Harmonic = *o.Harmonic
	}
	if o.DriftPenalty != nil {
		s.DriftPenalty = *o.DriftPenalty
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
