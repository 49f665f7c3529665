// Package domain holds the core types of the disaster information hub:
// ingested reports, aggregated events, and the pure functions that derive
// event state from report membership.
package domain

import "time"

// Well-known source tags. The set is open: ingestion may attach any tag,
// but these two are privileged as official sources for verification.
const (
	SourceUSGS    = "USGS"
	SourceGDACS   = "GDACS"
	SourceTwitter = "TWITTER"
	SourceReddit  = "REDDIT"
	SourceCitizen = "CITIZEN"
)

// Coordinate is a WGS84 position in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate is within WGS84 range.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Report is a single ingested disaster-related observation. Enrichment
// (language, disaster type, geolocation, credibility) happens before a
// report reaches the clustering core; the core treats all fields except
// event membership as read-only.
type Report struct {
	ID           string      `json:"id"`
	ExtID        string      `json:"ext_id,omitempty"`
	Source       string      `json:"source"`
	Text         string      `json:"text,omitempty"`
	Place        string      `json:"place,omitempty"`
	Language     string      `json:"language,omitempty"`
	DisasterType string      `json:"disaster_type,omitempty"`
	Magnitude    *float64    `json:"magnitude,omitempty"`
	Location     *Coordinate `json:"location,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// HasLocation reports whether the report carries usable coordinates.
func (r *Report) HasLocation() bool {
	return r.Location != nil && r.Location.Valid()
}

// Matchable reports whether the report qualifies for event matching:
// it needs both coordinates and a classified disaster type.
func (r *Report) Matchable() bool {
	return r.HasLocation() && r.DisasterType != ""
}
