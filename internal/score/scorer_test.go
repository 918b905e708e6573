package score

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/ppiankov/resonance/internal/model"
)

func TestNormalizeDrift_Zero(t *testing.T) {
	d, err := NormalizeDrift(0)
	if err != nil {
		t.Fatalf("NormalizeDrift failed: %v", err)
	}
	if d != 0.5 {
		t.Errorf("Expected exactly 0.5 at zero drift, got %v", d)
	}
}

// The drift narrative says zero drift approaches 1, but the formula peaks at
// 0.5 there. The formula is what ships; this pins it.
func TestNormalizeDrift_ZeroDoesNotApproachOne(t *testing.T) {
	d, _ := NormalizeDrift(0)
	if d > 0.5 {
		t.Errorf("Expected zero drift to score at most 0.5, got %v", d)
	}
	small, _ := NormalizeDrift(1e-9)
	if small > d {
		t.Errorf("Expected the score to fall as |drift| grows, got %v > %v", small, d)
	}
}

func TestNormalizeDrift_Symmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		x := (rng.Float64() - 0.5) * 200
		a, _ := NormalizeDrift(x)
		b, _ := NormalizeDrift(-x)
		if a != b {
			t.Fatalf("Expected NormalizeDrift(%v) == NormalizeDrift(%v), got %v and %v", x, -x, a, b)
		}
	}
}

func TestNormalizeDrift_NonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := NormalizeDrift(v)
		if !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("Expected ErrInvalidInput for %v, got %v", v, err)
		}
	}
}

func TestAlignment_GoldenPair(t *testing.T) {
	g, err := Alignment([]float64{1, Phi})
	if err != nil {
		t.Fatalf("Alignment failed: %v", err)
	}
	if g != 1.0 {
		t.Errorf("Expected alignment 1.0 for [1, phi], got %v", g)
	}
}

func TestAlignment_AllZero(t *testing.T) {
	g, err := Alignment([]float64{0, 0, 0})
	if err != nil {
		t.Fatalf("Alignment failed: %v", err)
	}
	if g != 0 {
		t.Errorf("Expected 0 when every pair is skipped, got %v", g)
	}
}

func TestAlignment_Arity(t *testing.T) {
	for _, coords := range [][]float64{nil, {1}, {1, 2, 3, 4, 5}} {
		_, err := Alignment(coords)
		if !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("Expected ErrInvalidInput for %d coordinates, got %v", len(coords), err)
		}
	}
	if _, err := Alignment([]float64{1, math.NaN()}); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for NaN coordinate, got %v", err)
	}
}

func TestAlignment_ZeroPartner(t *testing.T) {
	g, err := Alignment([]float64{0, 5})
	if err != nil {
		t.Fatalf("Alignment failed: %v", err)
	}
	if g > 1e-6 {
		t.Errorf("Expected near-zero alignment against a zero coordinate, got %v", g)
	}
}

func TestWeightHarmonics_Single(t *testing.T) {
	for _, a := range []float64{1, 0.25, -3, 1e6} {
		h, err := WeightHarmonics([]float64{a})
		if err != nil {
			t.Fatalf("WeightHarmonics failed: %v", err)
		}
		if math.Abs(h-1.0) > 1e-12 {
			t.Errorf("Expected 1.0 for single harmonic %v, got %v", a, h)
		}
	}
}

func TestWeightHarmonics_OrderMatters(t *testing.T) {
	a, _ := WeightHarmonics([]float64{1, 0.5})
	b, _ := WeightHarmonics([]float64{0.5, 1})
	if a == b {
		t.Errorf("Expected order to change the score, both were %v", a)
	}
	if a <= b {
		t.Errorf("Expected the natural series [1, 0.5] to outscore [0.5, 1], got %v <= %v", a, b)
	}
}

func TestWeightHarmonics_Invalid(t *testing.T) {
	if _, err := WeightHarmonics(nil); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty harmonics, got %v", err)
	}
	if _, err := WeightHarmonics([]float64{1, math.Inf(1)}); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for infinite harmonic, got %v", err)
	}
}

func TestWeightHarmonics_AllZero(t *testing.T) {
	h, err := WeightHarmonics([]float64{0, 0})
	if err != nil {
		t.Fatalf("WeightHarmonics failed: %v", err)
	}
	if h != 0 {
		t.Errorf("Expected 0 for silent harmonics, got %v", h)
	}
}

func TestScoreComposite_Reference(t *testing.T) {
	h, _ := WeightHarmonics([]float64{1})
	g, _ := Alignment([]float64{1, 1.618033988749895})
	d, _ := NormalizeDrift(0)
	if h != 1.0 || g != 1.0 || d != 0.5 {
		t.Fatalf("Expected sub-scores 1, 1, 0.5, got %v, %v, %v", h, g, d)
	}

	c, err := ScoreComposite([]float64{1}, []float64{1, 1.618033988749895}, 0)
	if err != nil {
		t.Fatalf("ScoreComposite failed: %v", err)
	}
	if math.Abs(c-89.9) > 0.5 {
		t.Errorf("Expected composite near 89.9, got %v", c)
	}
	if c != math.Round(c*100)/100 {
		t.Errorf("Expected composite rounded to 2 decimals, got %v", c)
	}
}

func TestScoreComposite_PropagatesInvalidInput(t *testing.T) {
	if _, err := ScoreComposite(nil, []float64{1, 2}, 0); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty harmonics, got %v", err)
	}
	if _, err := ScoreComposite([]float64{1}, []float64{1}, 0); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for one coordinate, got %v", err)
	}
	if _, err := ScoreComposite([]float64{1}, []float64{1, 2}, math.NaN()); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for NaN drift, got %v", err)
	}
}

func TestSubScores_Bounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	randReal := func() float64 {
		switch rng.Intn(6) {
		case 0:
			return 0
		case 1:
			return (rng.Float64() - 0.5) * 2
		case 2:
			return (rng.Float64() - 0.5) * 2e6
		case 3:
			return (rng.Float64()*2 - 1) * math.MaxFloat64
		case 4:
			return (rng.Float64()*2 - 1) * math.Pow(10, float64(rng.Intn(308)))
		default:
			return (rng.Float64() - 0.5) * 360
		}
	}

	for i := 0; i < 2000; i++ {
		harmonics := make([]float64, 1+rng.Intn(8))
		for j := range harmonics {
			harmonics[j] = randReal()
		}
		coords := make([]float64, 2+rng.Intn(3))
		for j := range coords {
			coords[j] = randReal()
		}
		drift := randReal()

		h, err := WeightHarmonics(harmonics)
		if err != nil || math.IsNaN(h) || h < 0 || h > 1 {
			t.Fatalf("WeightHarmonics(%v) = %v, %v; want [0,1]", harmonics, h, err)
		}
		g, err := Alignment(coords)
		if err != nil || math.IsNaN(g) || g < 0 || g > 1 {
			t.Fatalf("Alignment(%v) = %v, %v; want [0,1]", coords, g, err)
		}
		d, err := NormalizeDrift(drift)
		if err != nil || math.IsNaN(d) || d < 0 || d > 1 {
			t.Fatalf("NormalizeDrift(%v) = %v, %v; want [0,1]", drift, d, err)
		}
		c, err := ScoreComposite(harmonics, coords, drift)
		if err != nil || math.IsNaN(c) || c < 0 || c > 100 {
			t.Fatalf("ScoreComposite = %v, %v; want [0,100]", c, err)
		}
	}
}

func TestAlignment_HugeMagnitudes(t *testing.T) {
	inputs := [][]float64{
		{1e200, 1.6e200},
		{1e160, 1e160, 1e160},
		{-1.7e308, 1},
		{math.MaxFloat64, math.MaxFloat64, -math.MaxFloat64, math.MaxFloat64},
	}

	for _, coords := range inputs {
		g, err := Alignment(coords)
		if err != nil {
			t.Fatalf("Alignment(%v) failed: %v", coords, err)
		}
		if math.IsNaN(g) || g < 0 || g > 1 {
			t.Errorf("Expected Alignment(%v) in [0,1], got %v", coords, g)
		}

		c, err := ScoreComposite([]float64{1}, coords, 0)
		if err != nil {
			t.Fatalf("ScoreComposite(%v) failed: %v", coords, err)
		}
		if math.IsNaN(c) || c < 0 || c > 100 {
			t.Errorf("Expected ScoreComposite in [0,100] for %v, got %v", coords, c)
		}
	}
}

func TestAlignment_GoldenPairAtScale(t *testing.T) {
	// scaling does not change the ratio, so the pair stays fully aligned
	g, err := Alignment([]float64{1e200, 1e200 * Phi})
	if err != nil {
		t.Fatalf("Alignment failed: %v", err)
	}
	if math.Abs(g-1) > 1e-9 {
		t.Errorf("Expected alignment ~1 for a scaled golden pair, got %v", g)
	}
}

func TestVerificationComposite_Bounds(t *testing.T) {
	high := VerificationComposite(model.ComponentScores{Spatial: 1, Temporal: 1, Harmonic: 1, DriftPenalty: 0})
	if high != 1 {
		t.Errorf("Expected 1 for perfect components, got %v", high)
	}
	low := VerificationComposite(model.ComponentScores{DriftPenalty: -1})
	if low != 0 {
		t.Errorf("Expected clamp to 0, got %v", low)
	}
}

func TestScorer_Score(t *testing.T) {
	drift := 0.0
	raw, errs := model.NewRawClaim(model.ClaimInput{
		ClaimID:     "c1",
		NodeID:      "n1",
		Coordinates: []float64{1, Phi},
		Timestamp:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
		Harmonics:   []float64{1},
		Drift:       &drift,
	})
	if len(errs) > 0 {
		t.Fatalf("NewRawClaim failed: %v", errs)
	}

	scorer := NewScorer(model.DefaultAnchor())
	scored, err := scorer.Score(raw)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if scored.Scores.Harmonic != 1 || scored.Scores.Spatial != 1 || scored.Scores.Temporal != 0.5 {
		t.Errorf("Expected components 1/1/0.5, got %+v", scored.Scores)
	}
	if scored.Scores.DriftPenalty >= 0 || scored.Scores.DriftPenalty < -1 {
		t.Errorf("Expected a small negative drift penalty, got %v", scored.Scores.DriftPenalty)
	}
	want, _ := ScoreComposite([]float64{1}, []float64{1, Phi}, 0)
	if scored.Composite != want {
		t.Errorf("Expected composite %v, got %v", want, scored.Composite)
	}
	if scored.NatiqScore != VerificationComposite(scored.Scores) {
		t.Errorf("Expected NATIQ score from components, got %v", scored.NatiqScore)
	}
	if len(scored.Signals) != 6 {
		t.Errorf("Expected 6 signals, got %d", len(scored.Signals))
	}
	for _, s := range scored.Signals {
		if s.Data["formula"] == nil {
			t.Errorf("Expected formula data on %s signal", s.Type)
		}
	}
}

func TestScorer_Score_Overrides(t *testing.T) {
	drift := 0.3
	natiq := 0.91
	spatial := 0.12
	raw, errs := model.NewRawClaim(model.ClaimInput{
		ClaimID:         "c1",
		NodeID:          "n1",
		Coordinates:     []float64{10, 20},
		Timestamp:       "2026-01-01T00:00:00Z",
		Harmonics:       []float64{1, 0.5},
		Drift:           &drift,
		NatiqScore:      &natiq,
		ComponentScores: &model.ComponentScoresInput{Spatial: &spatial},
	})
	if len(errs) > 0 {
		t.Fatalf("NewRawClaim failed: %v", errs)
	}

	scored, err := NewScorer(model.DefaultAnchor()).Score(raw)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if scored.NatiqScore != natiq {
		t.Errorf("Expected NATIQ override %v, got %v", natiq, scored.NatiqScore)
	}
	if scored.Scores.Spatial != spatial {
		t.Errorf("Expected spatial override %v, got %v", spatial, scored.Scores.Spatial)
	}
	if scored.Scores.Harmonic == 0 {
		t.Error("Expected computed harmonic score to survive a partial override")
	}
}
