package model

// Signal represents a scoring signal with transparent formula data
type Signal struct {
	Type        SignalType             `json:"type"`           // Signal classification
	Description string                 `json:"description"`    // Human-readable description
	Data        map[string]interface{} `json:"data,omitempty"` // Transparent scoring data (formulas, inputs)
}

// SignalType classifies the type of scoring signal
type SignalType string

const (
	SignalHarmonic  SignalType = "harmonic"  // Weighted harmonic amplitude score
	SignalAlignment SignalType = "alignment" // Golden-ratio coordinate alignment
	SignalDrift     SignalType = "drift"     // Normalized drift
	SignalAnchor    SignalType = "anchor"    // Distance from the reference anchor
	SignalNatiq     SignalType = "natiq"     // Threshold-verification composite
	SignalComposite SignalType = "composite" // NATIQ composite on [0,100]
	SignalOverride  SignalType = "override"  // Submitter supplied precomputed scores
)

// BatchResult is the outcome of verifying a set of claims
type BatchResult struct {
	Total           int               `json:"total"`
	Results         []ClassifiedClaim `json:"results"` // input order
	Verified        []ClassifiedClaim `json:"verified"`
	Flagged         []ClassifiedClaim `json:"flagged"`
	Critical        []ClassifiedClaim `json:"critical"`
	StructuralError []ClassifiedClaim `json:"structural_error"`
	Rates           Rates             `json:"rates"`
}

// Rates are percentages of the batch total per status
type Rates struct {
	Verified        float64 `json:"verified"`
	Flagged         float64 `json:"flagged"`
	Critical        float64 `json:"critical"`
	StructuralError float64 `json:"structural_error"`
}
