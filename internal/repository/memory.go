package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "github.com/sahaayak/disasterhub/internal/pkg/errors"

	"github.com/sahaayak/disasterhub/internal/domain"
)

// Memory is an in-memory Store. A single mutex serializes all access,
// so InTx callbacks run one at a time.
//
// Transactions do not roll back: a callback that fails mid-way may
// leave partial writes behind. Tests that exercise failure paths must
// not rely on rollback semantics.
type Memory struct {
	mu sync.Mutex

	reports     map[string]domain.Report
	reportOrder []string
	extKeys     map[extKey]struct{}

	events     map[string]domain.Event
	eventOrder []string
	memberOf   map[string]string   // report ID -> event ID
	members    map[string][]string // event ID -> report IDs
}

type extKey struct {
	extID  string
	source string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		reports:  make(map[string]domain.Report),
		extKeys:  make(map[extKey]struct{}),
		events:   make(map[string]domain.Event),
		memberOf: make(map[string]string),
		members:  make(map[string][]string),
	}
}

func (m *Memory) CreateReport(_ context.Context, r domain.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createReportLocked(r)
}

func (m *Memory) createReportLocked(r domain.Report) error {
	if _, ok := m.reports[r.ID]; ok {
		return apperrors.ErrDuplicateReportf("report %s already exists", r.ID)
	}
	if r.ExtID != "" {
		key := extKey{extID: r.ExtID, source: r.Source}
		if _, ok := m.extKeys[key]; ok {
			return apperrors.ErrDuplicateReportf("report %s from %s already ingested", r.ExtID, r.Source)
		}
		m.extKeys[key] = struct{}{}
	}
	m.reports[r.ID] = r
	m.reportOrder = append(m.reportOrder, r.ID)
	return nil
}

func (m *Memory) GetReport(_ context.Context, id string) (domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return domain.Report{}, apperrors.ErrReportNotFoundf("report %s not found", id)
	}
	return r, nil
}

func (m *Memory) ListReports(_ context.Context, limit, offset int) ([]domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Report, 0, len(m.reportOrder))
	for _, id := range m.reportOrder {
		out = append(out, m.reports[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, limit, offset), nil
}

func (m *Memory) ReportExists(_ context.Context, extID, source string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.extKeys[extKey{extID: extID, source: source}]
	return ok, nil
}

func (m *Memory) ListUnclustered(_ context.Context) ([]domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unclusteredLocked(), nil
}

func (m *Memory) unclusteredLocked() []domain.Report {
	var out []domain.Report
	for _, id := range m.reportOrder {
		if _, clustered := m.memberOf[id]; !clustered {
			out = append(out, m.reports[id])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (m *Memory) GetEvent(_ context.Context, id string) (domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return domain.Event{}, apperrors.ErrEventNotFoundf("event %s not found", id)
	}
	return e, nil
}

func (m *Memory) ListEvents(_ context.Context, f EventFilter) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Event, 0, len(m.eventOrder))
	for _, id := range m.eventOrder {
		e := m.events[id]
		if f.DisasterType != "" && e.DisasterType != f.DisasterType {
			continue
		}
		if f.Verified != nil && e.Verified != *f.Verified {
			continue
		}
		if !f.Since.IsZero() && e.StartTime.Before(f.Since) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})
	return paginate(out, f.Limit, f.Offset), nil
}

func (m *Memory) EventMembers(_ context.Context, eventID string) ([]domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[eventID]; !ok {
		return nil, apperrors.ErrEventNotFoundf("event %s not found", eventID)
	}
	return m.eventMembersLocked(eventID), nil
}

func (m *Memory) eventMembersLocked(eventID string) []domain.Report {
	ids := m.members[eventID]
	out := make([]domain.Report, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.reports[id])
	}
	return out
}

func (m *Memory) EventForReport(_ context.Context, reportID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	eventID, ok := m.memberOf[reportID]
	return eventID, ok, nil
}

func (m *Memory) CandidateEvents(_ context.Context, cell, disasterType string, since time.Time) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.candidatesLocked(cell, disasterType, since), nil
}

func (m *Memory) candidatesLocked(cell, disasterType string, since time.Time) []domain.Event {
	var out []domain.Event
	for _, id := range m.eventOrder {
		e := m.events[id]
		if e.Cell != cell || e.DisasterType != disasterType {
			continue
		}
		if e.StartTime.Before(since) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (m *Memory) SetVerification(_ context.Context, eventID string, verified bool, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[eventID]
	if !ok {
		return apperrors.ErrEventNotFoundf("event %s not found", eventID)
	}
	e.Verified = verified
	e.VerificationReason = reason
	e.ManualOverride = true
	e.UpdatedAt = time.Now().UTC()
	m.events[eventID] = e
	return nil
}

func (m *Memory) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, &memTx{m: m})
}

// memTx operates on the store with the global mutex already held.
type memTx struct {
	m *Memory
}

func (t *memTx) GetReportLocked(_ context.Context, id string) (domain.Report, error) {
	r, ok := t.m.reports[id]
	if !ok {
		return domain.Report{}, apperrors.ErrReportNotFoundf("report %s not found", id)
	}
	return r, nil
}

func (t *memTx) EventForReport(_ context.Context, reportID string) (string, bool, error) {
	eventID, ok := t.m.memberOf[reportID]
	return eventID, ok, nil
}

func (t *memTx) LockEvent(_ context.Context, eventID string) (domain.Event, error) {
	e, ok := t.m.events[eventID]
	if !ok {
		return domain.Event{}, apperrors.ErrEventNotFoundf("event %s not found", eventID)
	}
	return e, nil
}

func (t *memTx) EventMembers(_ context.Context, eventID string) ([]domain.Report, error) {
	if _, ok := t.m.events[eventID]; !ok {
		return nil, apperrors.ErrEventNotFoundf("event %s not found", eventID)
	}
	return t.m.eventMembersLocked(eventID), nil
}

func (t *memTx) CandidateEvents(_ context.Context, cell, disasterType string, since time.Time) ([]domain.Event, error) {
	return t.m.candidatesLocked(cell, disasterType, since), nil
}

func (t *memTx) AddMember(_ context.Context, eventID, reportID string) error {
	if _, ok := t.m.events[eventID]; !ok {
		return apperrors.ErrEventNotFoundf("event %s not found", eventID)
	}
	if _, ok := t.m.reports[reportID]; !ok {
		return apperrors.ErrReportNotFoundf("report %s not found", reportID)
	}
	if existing, ok := t.m.memberOf[reportID]; ok {
		return apperrors.ErrEventConflictf("report %s already belongs to event %s", reportID, existing)
	}
	t.m.memberOf[reportID] = eventID
	t.m.members[eventID] = append(t.m.members[eventID], reportID)
	return nil
}

func (t *memTx) UpdateEvent(_ context.Context, e domain.Event) error {
	if _, ok := t.m.events[e.ID]; !ok {
		return apperrors.ErrEventNotFoundf("event %s not found", e.ID)
	}
	t.m.events[e.ID] = e
	return nil
}

func (t *memTx) CreateEvent(_ context.Context, e domain.Event, memberIDs []string) error {
	if _, ok := t.m.events[e.ID]; ok {
		return apperrors.ErrEventConflictf("event %s already exists", e.ID)
	}
	t.m.events[e.ID] = e
	t.m.eventOrder = append(t.m.eventOrder, e.ID)
	for _, rid := range memberIDs {
		if err := t.AddMember(context.Background(), e.ID, rid); err != nil {
			return err
		}
	}
	return nil
}

func (t *memTx) ClaimUnclustered(_ context.Context, reportIDs []string) ([]domain.Report, error) {
	var out []domain.Report
	for _, id := range reportIDs {
		r, ok := t.m.reports[id]
		if !ok {
			continue
		}
		if _, clustered := t.m.memberOf[id]; clustered {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
