package domain

import "time"

// Verification reasons. An event is verified automatically when an official
// source corroborates it or enough distinct sources agree; operators may
// also verify manually through the API.
const (
	ReasonOfficialSource = "official_source"
	ReasonMultiplePrefix = "multiple_sources_"
	ReasonManualOverride = "manual_override"
)

// BoundingBox is the axis-aligned envelope of an event's member
// coordinates, stored as [min_lon, min_lat, max_lon, max_lat].
type BoundingBox struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// Event is an aggregate of corroborating reports believed to describe the
// same real-world occurrence. All derived fields (centroid, bbox, cell,
// time bounds, counts, verification) are recomputed from the full member
// set on every membership change; nothing is maintained incrementally.
type Event struct {
	ID           string `json:"id"`
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`
	DisasterType string `json:"disaster_type,omitempty"`

	Centroid *Coordinate  `json:"centroid,omitempty"`
	BBox     *BoundingBox `json:"bbox,omitempty"`
	// Cell is the coarse hexagonal index of the centroid, used as the
	// prefilter key when matching new reports.
	Cell string `json:"cell,omitempty"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	ItemCount   int `json:"item_count"`
	SourceCount int `json:"source_count"`

	Verified           bool   `json:"is_verified"`
	VerificationReason string `json:"verification_reason,omitempty"`
	// ManualOverride marks verification state set by an operator rather
	// than the policy. Whether recomputation may clear it is a
	// configuration choice (see VerificationPolicy.StickyManualOverride).
	ManualOverride bool `json:"manual_override,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
