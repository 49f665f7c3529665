package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sahaayak/disasterhub/internal/domain"
)

type stubFinder struct {
	events []domain.Event

	gotCell  string
	gotType  string
	gotSince time.Time
	err      error
}

func (f *stubFinder) CandidateEvents(_ context.Context, cell, disasterType string, since time.Time) ([]domain.Event, error) {
	f.gotCell = cell
	f.gotType = disasterType
	f.gotSince = since
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func coord(lat, lon float64) *domain.Coordinate {
	return &domain.Coordinate{Lat: lat, Lon: lon}
}

func TestMatcher_Match_PicksNearestCandidate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	report := domain.Report{
		ID:           "r1",
		Source:       domain.SourceTwitter,
		DisasterType: "earthquake",
		Location:     coord(34.05, -118.25),
		CreatedAt:    now,
	}

	finder := &stubFinder{events: []domain.Event{
		{ID: "far", DisasterType: "earthquake", Centroid: coord(34.50, -118.25)},
		{ID: "near", DisasterType: "earthquake", Centroid: coord(34.06, -118.26)},
	}}

	m := NewMatcher(domain.DefaultCellResolution, 24*time.Hour)
	got, err := m.Match(context.Background(), finder, report)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "near", got.ID)
}

func TestMatcher_Match_QueryArguments(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	report := domain.Report{
		ID:           "r1",
		Source:       domain.SourceUSGS,
		DisasterType: "flood",
		Location:     coord(10.0, 20.0),
		CreatedAt:    now,
	}

	finder := &stubFinder{}
	m := NewMatcher(domain.DefaultCellResolution, 24*time.Hour)
	_, err := m.Match(context.Background(), finder, report)
	require.NoError(t, err)

	require.Equal(t, domain.CellOf(10.0, 20.0, domain.DefaultCellResolution), finder.gotCell)
	require.Equal(t, "flood", finder.gotType)
	require.Equal(t, now.Add(-24*time.Hour), finder.gotSince)
}

func TestMatcher_Match_UnmatchableReport(t *testing.T) {
	tests := []struct {
		name   string
		report domain.Report
	}{
		{"no coordinates", domain.Report{DisasterType: "earthquake", Location: nil}},
		{"no disaster type", domain.Report{Location: coord(1, 2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finder := &stubFinder{events: []domain.Event{{ID: "e1"}}}
			m := NewMatcher(domain.DefaultCellResolution, 0)
			got, err := m.Match(context.Background(), finder, tt.report)
			require.NoError(t, err)
			require.Nil(t, got)
			// Finder must not even be queried.
			require.Empty(t, finder.gotType)
		})
	}
}

func TestMatcher_Match_NoCandidates(t *testing.T) {
	report := domain.Report{
		DisasterType: "wildfire",
		Location:     coord(40.0, -120.0),
		CreatedAt:    time.Now(),
	}

	m := NewMatcher(domain.DefaultCellResolution, 24*time.Hour)
	got, err := m.Match(context.Background(), &stubFinder{}, report)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestMatcher_Match_CentroidlessCandidateStillEligible(t *testing.T) {
	report := domain.Report{
		DisasterType: "flood",
		Location:     coord(10.0, 20.0),
		CreatedAt:    time.Now(),
	}

	finder := &stubFinder{events: []domain.Event{
		{ID: "no-centroid", DisasterType: "flood"},
	}}

	m := NewMatcher(domain.DefaultCellResolution, 24*time.Hour)
	got, err := m.Match(context.Background(), finder, report)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "no-centroid", got.ID)
}
