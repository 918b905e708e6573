package model

import "time"

// Manifest is a signed summary of a finalization session.
// Its signature covers the full current entry set.
type Manifest struct {
	Session   ManifestSession `json:"session"`
	Entries   []ManifestEntry `json:"entries"`
	Stats     ManifestStats   `json:"stats"`
	Signature string          `json:"manifest_signature"`
}

// ManifestSession is the manifest header
type ManifestSession struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Count     int       `json:"count"`
	Anchor    Anchor    `json:"anchor"`
}

// ManifestEntry summarizes one finalized record
type ManifestEntry struct {
	NodeID        string      `json:"node_id"`
	Coordinates   Coordinates `json:"coordinates"`
	Signature     string      `json:"signature"`
	LockedScore   float64     `json:"locked_score"`
	FieldStrength float64     `json:"field_strength"`
	FinalizedAt   time.Time   `json:"finalized_at"`
}

// ManifestStats aggregates the entries
type ManifestStats struct {
	Count              int     `json:"count"`
	TotalFieldStrength float64 `json:"total_field_strength"`
	MeanLockedScore    float64 `json:"mean_locked_score"`
}
