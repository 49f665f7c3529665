package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/sahaayak/disasterhub/internal/domain"
)

// Aggregator derives an event's summary fields from its member reports.
type Aggregator struct {
	resolution int
	policy     domain.VerificationPolicy
}

// NewAggregator creates an Aggregator.
func NewAggregator(resolution int, policy domain.VerificationPolicy) *Aggregator {
	return &Aggregator{resolution: resolution, policy: policy}
}

// Recompute refreshes the event's geography, time bounds, counts and
// verification status from the full member set. The title and
// description are set once at creation and never regenerated here.
func (a *Aggregator) Recompute(e *domain.Event, members []domain.Report, now time.Time) {
	geo := domain.ComputeGeography(members, a.resolution)
	e.Centroid = geo.Centroid
	e.BBox = geo.BBox
	e.Cell = geo.Cell

	start, end := domain.TimeBounds(members)
	e.StartTime = start
	e.EndTime = end

	e.ItemCount = len(members)
	e.SourceCount = domain.DistinctSources(members)

	a.policy.Apply(e, members)

	e.UpdatedAt = now
}

// Initialize builds a new event from an initial member set. Returns nil
// when members is empty. Members without coordinates still form an
// event; its geography stays unset.
func (a *Aggregator) Initialize(members []domain.Report, now time.Time) *domain.Event {
	if len(members) == 0 {
		return nil
	}

	e := &domain.Event{
		ID:           uuid.Must(uuid.NewV7()).String(),
		DisasterType: members[0].DisasterType,
		CreatedAt:    now,
	}

	a.Recompute(e, members, now)
	domain.Summarize(e, members)
	return e
}
