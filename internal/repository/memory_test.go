package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sahaayak/disasterhub/internal/domain"
	apperrors "github.com/sahaayak/disasterhub/internal/pkg/errors"
)

func testReport(id, extID, source string, created time.Time) domain.Report {
	return domain.Report{
		ID:           id,
		ExtID:        extID,
		Source:       source,
		DisasterType: "earthquake",
		Location:     &domain.Coordinate{Lat: 35.0, Lon: -118.0},
		CreatedAt:    created,
	}
}

func testEvent(id, cell string, start time.Time) domain.Event {
	return domain.Event{
		ID:           id,
		DisasterType: "earthquake",
		Cell:         cell,
		StartTime:    start,
		EndTime:      start,
		CreatedAt:    start,
		UpdatedAt:    start,
	}
}

func TestMemory_CreateReport_DuplicateExtID(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now().UTC()

	require.NoError(t, m.CreateReport(ctx, testReport("r1", "us7000abcd", domain.SourceUSGS, now)))

	err := m.CreateReport(ctx, testReport("r2", "us7000abcd", domain.SourceUSGS, now))
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	require.Equal(t, apperrors.CodeDuplicateReport, appErr.Code)

	// Same external ID from a different source is a different report.
	require.NoError(t, m.CreateReport(ctx, testReport("r3", "us7000abcd", domain.SourceGDACS, now)))

	exists, err := m.ReportExists(ctx, "us7000abcd", domain.SourceUSGS)
	require.NoError(t, err)
	require.True(t, exists)
	exists, err = m.ReportExists(ctx, "nope", domain.SourceUSGS)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestMemory_CreateReport_EmptyExtIDNotDeduplicated(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now().UTC()

	require.NoError(t, m.CreateReport(ctx, testReport("r1", "", domain.SourceTwitter, now)))
	require.NoError(t, m.CreateReport(ctx, testReport("r2", "", domain.SourceTwitter, now)))
}

func TestMemory_GetReport_NotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.GetReport(context.Background(), "missing")
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	require.Equal(t, apperrors.CodeReportNotFound, appErr.Code)
}

func TestMemory_ListUnclustered(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now().UTC()

	require.NoError(t, m.CreateReport(ctx, testReport("r1", "", domain.SourceTwitter, now.Add(time.Hour))))
	require.NoError(t, m.CreateReport(ctx, testReport("r2", "", domain.SourceTwitter, now)))
	require.NoError(t, m.CreateReport(ctx, testReport("r3", "", domain.SourceTwitter, now.Add(2*time.Hour))))

	err := m.InTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.CreateEvent(ctx, testEvent("e1", "cell", now), []string{"r3"})
	})
	require.NoError(t, err)

	unclustered, err := m.ListUnclustered(ctx)
	require.NoError(t, err)
	require.Len(t, unclustered, 2)
	// Oldest first.
	require.Equal(t, "r2", unclustered[0].ID)
	require.Equal(t, "r1", unclustered[1].ID)
}

func TestMemory_EventMembership(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now().UTC()

	require.NoError(t, m.CreateReport(ctx, testReport("r1", "", domain.SourceTwitter, now)))
	require.NoError(t, m.CreateReport(ctx, testReport("r2", "", domain.SourceReddit, now)))

	err := m.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.CreateEvent(ctx, testEvent("e1", "cell", now), []string{"r1"}); err != nil {
			return err
		}
		return tx.AddMember(ctx, "e1", "r2")
	})
	require.NoError(t, err)

	members, err := m.EventMembers(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, members, 2)

	eventID, found, err := m.EventForReport(ctx, "r1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "e1", eventID)

	_, found, err = m.EventForReport(ctx, "unknown")
	require.NoError(t, err)
	require.False(t, found)
}

func TestMemory_AddMember_AlreadyClustered(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now().UTC()

	require.NoError(t, m.CreateReport(ctx, testReport("r1", "", domain.SourceTwitter, now)))

	err := m.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.CreateEvent(ctx, testEvent("e1", "cell", now), []string{"r1"}); err != nil {
			return err
		}
		if err := tx.CreateEvent(ctx, testEvent("e2", "cell", now), nil); err != nil {
			return err
		}
		return tx.AddMember(ctx, "e2", "r1")
	})
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	require.Equal(t, apperrors.CodeEventConflict, appErr.Code)
	require.True(t, appErr.Retryable)
}

func TestMemory_CandidateEvents(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now().UTC()

	err := m.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.CreateEvent(ctx, testEvent("recent", "cellA", now), nil); err != nil {
			return err
		}
		if err := tx.CreateEvent(ctx, testEvent("stale", "cellA", now.Add(-48*time.Hour)), nil); err != nil {
			return err
		}
		other := testEvent("other-cell", "cellB", now)
		if err := tx.CreateEvent(ctx, other, nil); err != nil {
			return err
		}
		flood := testEvent("other-type", "cellA", now)
		flood.DisasterType = "flood"
		return tx.CreateEvent(ctx, flood, nil)
	})
	require.NoError(t, err)

	got, err := m.CandidateEvents(ctx, "cellA", "earthquake", now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "recent", got[0].ID)
}

func TestMemory_ListEvents_Filters(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now().UTC()

	err := m.InTx(ctx, func(ctx context.Context, tx Tx) error {
		verified := testEvent("e1", "c", now)
		verified.Verified = true
		if err := tx.CreateEvent(ctx, verified, nil); err != nil {
			return err
		}
		flood := testEvent("e2", "c", now.Add(-time.Hour))
		flood.DisasterType = "flood"
		if err := tx.CreateEvent(ctx, flood, nil); err != nil {
			return err
		}
		return tx.CreateEvent(ctx, testEvent("e3", "c", now.Add(-72*time.Hour)), nil)
	})
	require.NoError(t, err)

	all, err := m.ListEvents(ctx, EventFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest first.
	require.Equal(t, "e1", all[0].ID)

	vt := true
	verified, err := m.ListEvents(ctx, EventFilter{Verified: &vt})
	require.NoError(t, err)
	require.Len(t, verified, 1)
	require.Equal(t, "e1", verified[0].ID)

	floods, err := m.ListEvents(ctx, EventFilter{DisasterType: "flood"})
	require.NoError(t, err)
	require.Len(t, floods, 1)

	recent, err := m.ListEvents(ctx, EventFilter{Since: now.Add(-2 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, recent, 2)

	paged, err := m.ListEvents(ctx, EventFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	require.Equal(t, "e2", paged[0].ID)
}

func TestMemory_SetVerification(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now().UTC()

	err := m.InTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.CreateEvent(ctx, testEvent("e1", "c", now), nil)
	})
	require.NoError(t, err)

	require.NoError(t, m.SetVerification(ctx, "e1", true, domain.ReasonManualOverride))

	e, err := m.GetEvent(ctx, "e1")
	require.NoError(t, err)
	require.True(t, e.Verified)
	require.Equal(t, domain.ReasonManualOverride, e.VerificationReason)
	require.True(t, e.ManualOverride)

	err = m.SetVerification(ctx, "nope", true, "x")
	require.Error(t, err)
}

func TestMemory_ClaimUnclustered(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now().UTC()

	require.NoError(t, m.CreateReport(ctx, testReport("r1", "", domain.SourceTwitter, now)))
	require.NoError(t, m.CreateReport(ctx, testReport("r2", "", domain.SourceTwitter, now)))

	err := m.InTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.CreateEvent(ctx, testEvent("e1", "c", now), []string{"r1"})
	})
	require.NoError(t, err)

	err = m.InTx(ctx, func(ctx context.Context, tx Tx) error {
		claimed, err := tx.ClaimUnclustered(ctx, []string{"r1", "r2", "ghost"})
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		require.Equal(t, "r2", claimed[0].ID)
		return nil
	})
	require.NoError(t, err)
}
