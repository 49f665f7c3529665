// Package repository provides persistence for reports and events.
//
// Two implementations exist: a PostgreSQL store backed by a shared pgx
// pool, and an in-memory store used by tests and the seed tool.
package repository

import (
	"context"
	"time"

	"github.com/sahaayak/disasterhub/internal/domain"
)

// EventFilter narrows event listings.
type EventFilter struct {
	DisasterType string
	Verified     *bool
	Since        time.Time
	Limit        int
	Offset       int
}

// Store is the persistence boundary for reports and events.
//
// All event mutations that depend on a membership snapshot go through
// InTx so that concurrent updates to the same event serialize.
type Store interface {
	// CreateReport inserts a report. Returns an ALREADY_EXISTS AppError
	// when (ext_id, source) is already present.
	CreateReport(ctx context.Context, r domain.Report) error
	GetReport(ctx context.Context, id string) (domain.Report, error)
	ListReports(ctx context.Context, limit, offset int) ([]domain.Report, error)
	// ReportExists reports whether a report with the given external ID
	// and source has been ingested before.
	ReportExists(ctx context.Context, extID, source string) (bool, error)
	// ListUnclustered returns reports that belong to no event, oldest first.
	ListUnclustered(ctx context.Context) ([]domain.Report, error)

	GetEvent(ctx context.Context, id string) (domain.Event, error)
	ListEvents(ctx context.Context, f EventFilter) ([]domain.Event, error)
	EventMembers(ctx context.Context, eventID string) ([]domain.Report, error)
	// EventForReport returns the ID of the event the report belongs to,
	// or found=false when the report is unclustered.
	EventForReport(ctx context.Context, reportID string) (eventID string, found bool, err error)
	CandidateEvents(ctx context.Context, cell, disasterType string, since time.Time) ([]domain.Event, error)
	// SetVerification applies a manual verification decision to an event.
	SetVerification(ctx context.Context, eventID string, verified bool, reason string) error

	// InTx runs fn inside a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx exposes the operations available inside a Store transaction.
// Row-locking reads serialize concurrent processing of the same report
// or event.
type Tx interface {
	// GetReportLocked loads a report with a row lock held until commit.
	GetReportLocked(ctx context.Context, id string) (domain.Report, error)
	EventForReport(ctx context.Context, reportID string) (eventID string, found bool, err error)
	// LockEvent loads an event with a row lock held until commit.
	LockEvent(ctx context.Context, eventID string) (domain.Event, error)
	EventMembers(ctx context.Context, eventID string) ([]domain.Report, error)
	CandidateEvents(ctx context.Context, cell, disasterType string, since time.Time) ([]domain.Event, error)
	// AddMember attaches a report to an event. A report belongs to at
	// most one event; attaching an already-clustered report fails.
	AddMember(ctx context.Context, eventID, reportID string) error
	UpdateEvent(ctx context.Context, e domain.Event) error
	// CreateEvent inserts an event together with its initial members.
	CreateEvent(ctx context.Context, e domain.Event, memberIDs []string) error
	// ClaimUnclustered locks and returns the subset of the given reports
	// that still belong to no event.
	ClaimUnclustered(ctx context.Context, reportIDs []string) ([]domain.Report, error)
}
