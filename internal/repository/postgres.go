package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sahaayak/disasterhub/internal/domain"
	apperrors "github.com/sahaayak/disasterhub/internal/pkg/errors"
)

//go:embed schema.sql
var schemaSQL string

const defaultListLimit = 100

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres is the PostgreSQL-backed Store. The pool is shared with
// River.
type Postgres struct {
	pool *pgxpool.Pool
	q    queries
}

// NewPostgres creates a Postgres store on an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, q: queries{db: pool}}
}

// Migrate applies the embedded schema. Statements are idempotent.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Postgres) CreateReport(ctx context.Context, r domain.Report) error {
	return s.q.insertReport(ctx, r)
}

func (s *Postgres) GetReport(ctx context.Context, id string) (domain.Report, error) {
	return s.q.getReport(ctx, id, false)
}

func (s *Postgres) ListReports(ctx context.Context, limit, offset int) ([]domain.Report, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+reportColumns+` FROM reports ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return collectReports(rows)
}

func (s *Postgres) ReportExists(ctx context.Context, extID, source string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reports WHERE ext_id = $1 AND source = $2)`,
		extID, source,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check report existence: %w", err)
	}
	return exists, nil
}

func (s *Postgres) ListUnclustered(ctx context.Context) ([]domain.Report, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+reportColumnsPrefixed+`
		 FROM reports r
		 LEFT JOIN event_members em ON em.report_id = r.id
		 WHERE em.report_id IS NULL
		 ORDER BY r.created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list unclustered reports: %w", err)
	}
	return collectReports(rows)
}

func (s *Postgres) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	return s.q.getEvent(ctx, id, false)
}

func (s *Postgres) ListEvents(ctx context.Context, f EventFilter) ([]domain.Event, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + eventColumns + ` FROM events WHERE 1=1`
	args := []any{}
	if f.DisasterType != "" {
		args = append(args, f.DisasterType)
		query += fmt.Sprintf(` AND disaster_type = $%d`, len(args))
	}
	if f.Verified != nil {
		args = append(args, *f.Verified)
		query += fmt.Sprintf(` AND is_verified = $%d`, len(args))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		query += fmt.Sprintf(` AND start_time >= $%d`, len(args))
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY start_time DESC NULLS LAST LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return collectEvents(rows)
}

func (s *Postgres) EventMembers(ctx context.Context, eventID string) ([]domain.Report, error) {
	if _, err := s.q.getEvent(ctx, eventID, false); err != nil {
		return nil, err
	}
	return s.q.eventMembers(ctx, eventID)
}

func (s *Postgres) EventForReport(ctx context.Context, reportID string) (string, bool, error) {
	return s.q.eventForReport(ctx, reportID)
}

func (s *Postgres) CandidateEvents(ctx context.Context, cell, disasterType string, since time.Time) ([]domain.Event, error) {
	return s.q.candidateEvents(ctx, cell, disasterType, since)
}

func (s *Postgres) SetVerification(ctx context.Context, eventID string, verified bool, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE events
		 SET is_verified = $2, verification_reason = $3, manual_override = TRUE, updated_at = now()
		 WHERE id = $1`,
		eventID, verified, reason,
	)
	if err != nil {
		return fmt.Errorf("set verification for event %s: %w", eventID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrEventNotFoundf("event %s not found", eventID)
	}
	return nil
}

func (s *Postgres) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{q: queries{db: tx}}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// pgTx implements Tx over a pgx transaction.
type pgTx struct {
	q queries
}

func (t *pgTx) GetReportLocked(ctx context.Context, id string) (domain.Report, error) {
	return t.q.getReport(ctx, id, true)
}

func (t *pgTx) EventForReport(ctx context.Context, reportID string) (string, bool, error) {
	return t.q.eventForReport(ctx, reportID)
}

func (t *pgTx) LockEvent(ctx context.Context, eventID string) (domain.Event, error) {
	return t.q.getEvent(ctx, eventID, true)
}

func (t *pgTx) EventMembers(ctx context.Context, eventID string) ([]domain.Report, error) {
	return t.q.eventMembers(ctx, eventID)
}

func (t *pgTx) CandidateEvents(ctx context.Context, cell, disasterType string, since time.Time) ([]domain.Event, error) {
	return t.q.candidateEvents(ctx, cell, disasterType, since)
}

func (t *pgTx) AddMember(ctx context.Context, eventID, reportID string) error {
	_, err := t.q.db.Exec(ctx,
		`INSERT INTO event_members (event_id, report_id) VALUES ($1, $2)`,
		eventID, reportID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperrors.ErrEventConflictf("report %s already belongs to an event", reportID)
		}
		return fmt.Errorf("add report %s to event %s: %w", reportID, eventID, err)
	}
	return nil
}

func (t *pgTx) UpdateEvent(ctx context.Context, e domain.Event) error {
	bbox, err := marshalBBox(e.BBox)
	if err != nil {
		return err
	}
	var lat, lon *float64
	if e.Centroid != nil {
		lat, lon = &e.Centroid.Lat, &e.Centroid.Lon
	}
	tag, err := t.q.db.Exec(ctx,
		`UPDATE events
		 SET title = $2, description = $3, disaster_type = $4,
		     centroid_lat = $5, centroid_lon = $6, bbox = $7, cell = $8,
		     start_time = $9, end_time = $10, item_count = $11, source_count = $12,
		     is_verified = $13, verification_reason = $14, manual_override = $15,
		     updated_at = $16
		 WHERE id = $1`,
		e.ID, e.Title, e.Description, e.DisasterType,
		lat, lon, bbox, e.Cell,
		nullableTime(e.StartTime), nullableTime(e.EndTime), e.ItemCount, e.SourceCount,
		e.Verified, e.VerificationReason, e.ManualOverride,
		e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update event %s: %w", e.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrEventNotFoundf("event %s not found", e.ID)
	}
	return nil
}

func (t *pgTx) CreateEvent(ctx context.Context, e domain.Event, memberIDs []string) error {
	bbox, err := marshalBBox(e.BBox)
	if err != nil {
		return err
	}
	var lat, lon *float64
	if e.Centroid != nil {
		lat, lon = &e.Centroid.Lat, &e.Centroid.Lon
	}
	_, err = t.q.db.Exec(ctx,
		`INSERT INTO events (
		     id, title, description, disaster_type,
		     centroid_lat, centroid_lon, bbox, cell,
		     start_time, end_time, item_count, source_count,
		     is_verified, verification_reason, manual_override,
		     created_at, updated_at
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		e.ID, e.Title, e.Description, e.DisasterType,
		lat, lon, bbox, e.Cell,
		nullableTime(e.StartTime), nullableTime(e.EndTime), e.ItemCount, e.SourceCount,
		e.Verified, e.VerificationReason, e.ManualOverride,
		e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperrors.ErrEventConflictf("event %s already exists", e.ID)
		}
		return fmt.Errorf("insert event %s: %w", e.ID, err)
	}

	for _, rid := range memberIDs {
		if err := t.AddMember(ctx, e.ID, rid); err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) ClaimUnclustered(ctx context.Context, reportIDs []string) ([]domain.Report, error) {
	if len(reportIDs) == 0 {
		return nil, nil
	}
	rows, err := t.q.db.Query(ctx,
		`SELECT `+reportColumnsPrefixed+`
		 FROM reports r
		 LEFT JOIN event_members em ON em.report_id = r.id
		 WHERE r.id = ANY($1) AND em.report_id IS NULL
		 ORDER BY r.created_at ASC
		 FOR UPDATE OF r`,
		reportIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("claim unclustered reports: %w", err)
	}
	return collectReports(rows)
}

// queries holds the statements shared between pool and transaction scope.
type queries struct {
	db querier
}

const reportColumns = `id, ext_id, source, content, place, language, disaster_type, magnitude, lat, lon, created_at`

const reportColumnsPrefixed = `r.id, r.ext_id, r.source, r.content, r.place, r.language, r.disaster_type, r.magnitude, r.lat, r.lon, r.created_at`

const eventColumns = `id, title, description, disaster_type, centroid_lat, centroid_lon, bbox, cell, start_time, end_time, item_count, source_count, is_verified, verification_reason, manual_override, created_at, updated_at`

func (q queries) insertReport(ctx context.Context, r domain.Report) error {
	var lat, lon *float64
	if r.Location != nil {
		lat, lon = &r.Location.Lat, &r.Location.Lon
	}
	_, err := q.db.Exec(ctx,
		`INSERT INTO reports (`+reportColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		r.ID, r.ExtID, r.Source, r.Text, r.Place, r.Language, r.DisasterType,
		r.Magnitude, lat, lon, r.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperrors.ErrDuplicateReportf("report %s from %s already ingested", r.ExtID, r.Source)
		}
		return fmt.Errorf("insert report %s: %w", r.ID, err)
	}
	return nil
}

func (q queries) getReport(ctx context.Context, id string, locked bool) (domain.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`
	if locked {
		query += ` FOR UPDATE`
	}
	r, err := scanReport(q.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Report{}, apperrors.ErrReportNotFoundf("report %s not found", id)
		}
		return domain.Report{}, fmt.Errorf("get report %s: %w", id, err)
	}
	return r, nil
}

func (q queries) getEvent(ctx context.Context, id string, locked bool) (domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	if locked {
		query += ` FOR UPDATE`
	}
	e, err := scanEvent(q.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Event{}, apperrors.ErrEventNotFoundf("event %s not found", id)
		}
		return domain.Event{}, fmt.Errorf("get event %s: %w", id, err)
	}
	return e, nil
}

func (q queries) eventMembers(ctx context.Context, eventID string) ([]domain.Report, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+reportColumnsPrefixed+`
		 FROM reports r
		 JOIN event_members em ON em.report_id = r.id
		 WHERE em.event_id = $1
		 ORDER BY r.created_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members of event %s: %w", eventID, err)
	}
	return collectReports(rows)
}

func (q queries) eventForReport(ctx context.Context, reportID string) (string, bool, error) {
	var eventID string
	err := q.db.QueryRow(ctx,
		`SELECT event_id FROM event_members WHERE report_id = $1`,
		reportID,
	).Scan(&eventID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("look up event of report %s: %w", reportID, err)
	}
	return eventID, true, nil
}

func (q queries) candidateEvents(ctx context.Context, cell, disasterType string, since time.Time) ([]domain.Event, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 WHERE cell = $1 AND disaster_type = $2 AND start_time >= $3`,
		cell, disasterType, since,
	)
	if err != nil {
		return nil, fmt.Errorf("find candidate events: %w", err)
	}
	return collectEvents(rows)
}

func collectReports(rows pgx.Rows) ([]domain.Report, error) {
	defer rows.Close()
	var out []domain.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func collectEvents(rows pgx.Rows) ([]domain.Event, error) {
	defer rows.Close()
	var out []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanReport(row pgx.Row) (domain.Report, error) {
	var (
		r        domain.Report
		lat, lon *float64
	)
	err := row.Scan(
		&r.ID, &r.ExtID, &r.Source, &r.Text, &r.Place, &r.Language,
		&r.DisasterType, &r.Magnitude, &lat, &lon, &r.CreatedAt,
	)
	if err != nil {
		return domain.Report{}, err
	}
	if lat != nil && lon != nil {
		r.Location = &domain.Coordinate{Lat: *lat, Lon: *lon}
	}
	return r, nil
}

func scanEvent(row pgx.Row) (domain.Event, error) {
	var (
		e          domain.Event
		lat, lon   *float64
		bbox       []byte
		start, end *time.Time
	)
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.DisasterType,
		&lat, &lon, &bbox, &e.Cell,
		&start, &end, &e.ItemCount, &e.SourceCount,
		&e.Verified, &e.VerificationReason, &e.ManualOverride,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return domain.Event{}, err
	}
	if lat != nil && lon != nil {
		e.Centroid = &domain.Coordinate{Lat: *lat, Lon: *lon}
	}
	if e.BBox, err = unmarshalBBox(bbox); err != nil {
		return domain.Event{}, err
	}
	if start != nil {
		e.StartTime = *start
	}
	if end != nil {
		e.EndTime = *end
	}
	return e, nil
}

// bbox is stored as a JSONB array [minLon, minLat, maxLon, maxLat].
func marshalBBox(b *domain.BoundingBox) ([]byte, error) {
	if b == nil {
		return nil, nil
	}
	data, err := json.Marshal([4]float64{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat})
	if err != nil {
		return nil, fmt.Errorf("marshal bbox: %w", err)
	}
	return data, nil
}

func unmarshalBBox(data []byte) (*domain.BoundingBox, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var arr [4]float64
	if err := json.Unmarshal(data, &arr); err != nil {
		return nil, fmt.Errorf("unmarshal bbox: %w", err)
	}
	return &domain.BoundingBox{MinLon: arr[0], MinLat: arr[1], MaxLon: arr[2], MaxLat: arr[3]}, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
