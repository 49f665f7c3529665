// Package service contains the clustering domain services: incremental
// event matching and event aggregation.
package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sahaayak/disasterhub/internal/domain"
)

// DefaultTimeWindow bounds how far back candidate events are considered.
const DefaultTimeWindow = 24 * time.Hour

// CandidateFinder looks up events that could absorb a new report.
type CandidateFinder interface {
	// CandidateEvents returns events in the given cell with the given
	// disaster type whose start time is at or after since.
	CandidateEvents(ctx context.Context, cell, disasterType string, since time.Time) ([]domain.Event, error)
}

// Matcher finds the best existing event for an incoming report.
type Matcher struct {
	resolution int
	window     time.Duration
}

// NewMatcher creates a Matcher. A non-positive window falls back to
// DefaultTimeWindow.
func NewMatcher(resolution int, window time.Duration) *Matcher {
	if window <= 0 {
		window = DefaultTimeWindow
	}
	return &Matcher{resolution: resolution, window: window}
}

// Match returns the nearest candidate event for the report, or nil when
// no event qualifies. Reports without coordinates or a disaster type
// never match.
func (m *Matcher) Match(ctx context.Context, finder CandidateFinder, report domain.Report) (*domain.Event, error) {
	if !report.Matchable() {
		return nil, nil
	}

	cell := domain.CellOf(report.Location.Lat, report.Location.Lon, m.resolution)
	since := report.CreatedAt.Add(-m.window)

	candidates, err := finder.CandidateEvents(ctx, cell, report.DisasterType, since)
	if err != nil {
		return nil, fmt.Errorf("find candidate events: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	// Rank by great-circle distance to the event centroid. Events
	// without a centroid sort last but remain eligible.
	best := -1
	bestDist := math.Inf(1)
	for i, ev := range candidates {
		dist := math.Inf(1)
		if ev.Centroid != nil {
			dist = domain.DistanceKM(
				report.Location.Lat, report.Location.Lon,
				ev.Centroid.Lat, ev.Centroid.Lon,
			)
		}
		if dist < bestDist || best == -1 {
			best = i
			bestDist = dist
		}
	}

	out := candidates[best]
	return &out, nil
}
