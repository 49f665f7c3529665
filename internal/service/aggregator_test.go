package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sahaayak/disasterhub/internal/domain"
)

func TestAggregator_Initialize_Empty(t *testing.T) {
	agg := NewAggregator(domain.DefaultCellResolution, domain.DefaultVerificationPolicy())
	require.Nil(t, agg.Initialize(nil, time.Now()))
}

func TestAggregator_Initialize_Singleton(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mag := 6.1
	members := []domain.Report{{
		ID:           "r1",
		Source:       domain.SourceUSGS,
		DisasterType: "earthquake",
		Place:        "Ridgecrest, CA",
		Magnitude:    &mag,
		Location:     coord(35.6, -117.6),
		CreatedAt:    now,
	}}

	agg := NewAggregator(domain.DefaultCellResolution, domain.DefaultVerificationPolicy())
	e := agg.Initialize(members, now)
	require.NotNil(t, e)

	require.NotEmpty(t, e.ID)
	require.Equal(t, "earthquake", e.DisasterType)
	require.Equal(t, "Earthquake in Ridgecrest, CA", e.Title)
	require.Equal(t, 1, e.ItemCount)
	require.Equal(t, 1, e.SourceCount)
	require.Equal(t, now, e.StartTime)
	require.Equal(t, now, e.EndTime)
	require.NotNil(t, e.Centroid)
	require.InDelta(t, 35.6, e.Centroid.Lat, 1e-9)
	require.InDelta(t, -117.6, e.Centroid.Lon, 1e-9)

	// USGS is an official source.
	require.True(t, e.Verified)
	require.Equal(t, domain.ReasonOfficialSource, e.VerificationReason)
}

func TestAggregator_Initialize_NoCoordinates(t *testing.T) {
	now := time.Now().UTC()
	members := []domain.Report{{
		ID:           "r1",
		Source:       domain.SourceTwitter,
		DisasterType: "flood",
		CreatedAt:    now,
	}}

	agg := NewAggregator(domain.DefaultCellResolution, domain.DefaultVerificationPolicy())
	e := agg.Initialize(members, now)
	require.NotNil(t, e)

	require.Nil(t, e.Centroid)
	require.Nil(t, e.BBox)
	require.Empty(t, e.Cell)
	require.Equal(t, 1, e.ItemCount)
	require.False(t, e.Verified)
}

func TestAggregator_Recompute_UpdatesCountsAndVerification(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	agg := NewAggregator(domain.DefaultCellResolution, domain.DefaultVerificationPolicy())

	members := []domain.Report{
		{ID: "r1", Source: domain.SourceTwitter, DisasterType: "flood", Location: coord(10.0, 20.0), CreatedAt: now},
	}
	e := agg.Initialize(members, now)
	require.False(t, e.Verified)
	originalTitle := e.Title

	members = append(members,
		domain.Report{ID: "r2", Source: domain.SourceReddit, DisasterType: "flood", Location: coord(10.1, 20.1), CreatedAt: now.Add(time.Hour)},
		domain.Report{ID: "r3", Source: domain.SourceCitizen, DisasterType: "flood", Location: coord(10.2, 20.2), CreatedAt: now.Add(2 * time.Hour)},
	)
	later := now.Add(3 * time.Hour)
	agg.Recompute(e, members, later)

	require.Equal(t, 3, e.ItemCount)
	require.Equal(t, 3, e.SourceCount)
	require.Equal(t, now, e.StartTime)
	require.Equal(t, now.Add(2*time.Hour), e.EndTime)
	require.Equal(t, later, e.UpdatedAt)

	// Three distinct non-official sources.
	require.True(t, e.Verified)
	require.Equal(t, "multiple_sources_3", e.VerificationReason)

	// Centroid is the mean of all member coordinates.
	require.InDelta(t, 10.1, e.Centroid.Lat, 1e-9)
	require.InDelta(t, 20.1, e.Centroid.Lon, 1e-9)
	require.Equal(t, 20.0, e.BBox.MinLon)
	require.Equal(t, 10.2, e.BBox.MaxLat)

	// Title is generated once at creation.
	require.Equal(t, originalTitle, e.Title)
}

func TestAggregator_Recompute_GeographyFollowsMembers(t *testing.T) {
	now := time.Now().UTC()
	agg := NewAggregator(domain.DefaultCellResolution, domain.DefaultVerificationPolicy())

	members := []domain.Report{
		{ID: "r1", Source: domain.SourceTwitter, DisasterType: "flood", Location: coord(10.0, 20.0), CreatedAt: now},
		{ID: "r2", Source: domain.SourceTwitter, DisasterType: "flood", CreatedAt: now},
	}
	e := agg.Initialize(members, now)
	require.NotNil(t, e.Centroid)

	// Geography skips members without coordinates.
	require.InDelta(t, 10.0, e.Centroid.Lat, 1e-9)
	require.Equal(t, 2, e.ItemCount)
	require.Equal(t, 1, e.SourceCount)
}
