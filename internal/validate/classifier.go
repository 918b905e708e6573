package validate

import (
	"fmt"

	"github.com/ppiankov/resonance/internal/model"
)

const (
	// CriticalFloor is the NATIQ score below which a claim is critical
	CriticalFloor = 0.40

	// HighFloor is the NATIQ score below which a claim is at least high severity
	HighFloor = 0.55
)

// ValidateStructure reports missing or malformed claim fields.
// A non-empty result short-circuits classification.
func ValidateStructure(in model.ClaimInput) []model.StructuralError {
	return model.CheckStructure(in)
}

// Classify grades a scored claim against the five thresholds
func Classify(claim model.ScoredClaim, t model.Thresholds) model.ClassifiedClaim {
	s := claim.Scores
	var flags []string
	driftBreach := false

	if claim.NatiqScore < t.Natiq {
		flags = append(flags, fmt.Sprintf("NATIQ score %.4f below threshold %.4f", claim.NatiqScore, t.Natiq))
	}
	if s.Spatial < t.Spatial {
		flags = append(flags, fmt.Sprintf("spatial score %.4f below threshold %.4f", s.Spatial, t.Spatial))
	}
	if s.Temporal < t.Temporal {
		flags = append(flags, fmt.Sprintf("temporal score %.4f below threshold %.4f", s.Temporal, t.Temporal))
	}
	if s.Harmonic < t.Harmonic {
		flags = append(flags, fmt.Sprintf("harmonic score %.4f below threshold %.4f", s.Harmonic, t.Harmonic))
	}
	if s.DriftPenalty < t.Drift {
		driftBreach = true
		flags = append(flags, fmt.Sprintf("drift penalty %.4f below threshold %.4f", s.DriftPenalty, t.Drift))
	}

	severity := grade(claim.NatiqScore, len(flags) > 0, driftBreach)
	if severity == model.SeverityHigh && claim.NatiqScore < HighFloor && claim.NatiqScore >= t.Natiq {
		flags = append(flags, fmt.Sprintf("NATIQ score %.4f below high-severity floor %.2f", claim.NatiqScore, HighFloor))
	}

	scored := claim
	return model.ClassifiedClaim{
		ClaimID:  claim.ClaimID,
		NodeID:   claim.NodeID,
		Scored:   &scored,
		Status:   statusFor(severity),
		Severity: severity,
		Flags:    flags,
	}
}

// StructuralFailure builds the verdict for a claim that failed structural validation
func StructuralFailure(in model.ClaimInput, errs []model.StructuralError) model.ClassifiedClaim {
	flags := make([]string, len(errs))
	for i, e := range errs {
		flags[i] = "structural: " + e.String()
	}
	return model.ClassifiedClaim{
		ClaimID:          in.ClaimID,
		NodeID:           in.NodeID,
		Status:           model.StatusStructuralError,
		Severity:         model.SeverityCritical,
		Flags:            flags,
		StructuralErrors: errs,
	}
}

// grade maps the NATIQ score and flag state to a severity
func grade(natiq float64, flagged, driftBreach bool) model.Severity {
	switch {
	case natiq < CriticalFloor:
		return model.SeverityCritical
	case natiq < HighFloor:
		return model.SeverityHigh
	case flagged && driftBreach:
		return model.SeverityHigh
	case flagged:
		return model.SeverityMedium
	default:
		return model.SeverityNone
	}
}

func statusFor(s model.Severity) model.Status {
	switch s {
	case model.SeverityCritical:
		return model.StatusCritical
	case model.SeverityHigh, model.SeverityMedium:
		return model.StatusFlagged
	default:
		return model.StatusVerified
	}
}
