// Package usecase wires the clustering services to the store. Every
// mutation that depends on an event membership snapshot runs inside a
// single store transaction.
package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/sahaayak/disasterhub/internal/cluster"
	"github.com/sahaayak/disasterhub/internal/domain"
	"github.com/sahaayak/disasterhub/internal/observability"
	"github.com/sahaayak/disasterhub/internal/pkg/logger"
	"github.com/sahaayak/disasterhub/internal/repository"
	"github.com/sahaayak/disasterhub/internal/service"
)

// EventProcessor runs incremental and batch clustering over the store.
type EventProcessor struct {
	store   repository.Store
	matcher *service.Matcher
	agg     *service.Aggregator
	params  cluster.Params
	metrics *observability.Metrics
	clock   clockwork.Clock
}

// NewEventProcessor creates an EventProcessor.
func NewEventProcessor(
	store repository.Store,
	matcher *service.Matcher,
	agg *service.Aggregator,
	params cluster.Params,
	metrics *observability.Metrics,
	clock clockwork.Clock,
) *EventProcessor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &EventProcessor{
		store:   store,
		matcher: matcher,
		agg:     agg,
		params:  params,
		metrics: metrics,
		clock:   clock,
	}
}

// ProcessNewReport routes a stored report into an event: either the
// nearest matching event absorbs it, or it seeds a new singleton event.
// Processing an already-clustered report is a no-op returning its
// current event. The whole operation is atomic; on failure the report
// stays unclustered and a retry sees clean state.
func (p *EventProcessor) ProcessNewReport(ctx context.Context, reportID string) (string, error) {
	var eventID string

	err := p.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		report, err := tx.GetReportLocked(ctx, reportID)
		if err != nil {
			return err
		}

		// Idempotency: a report already in an event is left alone.
		if existing, found, err := tx.EventForReport(ctx, reportID); err != nil {
			return err
		} else if found {
			eventID = existing
			p.metrics.ReportsProcessed.WithLabelValues("skipped").Inc()
			return nil
		}

		matched, err := p.matcher.Match(ctx, tx, report)
		if err != nil {
			return err
		}

		if matched != nil {
			eventID, err = p.attach(ctx, tx, matched.ID, report)
			return err
		}

		e := p.agg.Initialize([]domain.Report{report}, p.clock.Now().UTC())
		if err := tx.CreateEvent(ctx, *e, []string{report.ID}); err != nil {
			return err
		}
		eventID = e.ID
		p.metrics.ReportsProcessed.WithLabelValues("created").Inc()
		p.recordVerification(false, e.Verified, e.VerificationReason)

		logger.Info("report seeded new event",
			zap.String("report_id", report.ID),
			zap.String("event_id", e.ID),
			zap.String("disaster_type", e.DisasterType),
		)
		return nil
	})
	if err != nil {
		p.metrics.ReportsProcessed.WithLabelValues("error").Inc()
		return "", fmt.Errorf("process report %s: %w", reportID, err)
	}
	return eventID, nil
}

// attach adds the report to an existing event and recomputes the
// event's derived fields from the full member set.
func (p *EventProcessor) attach(ctx context.Context, tx repository.Tx, eventID string, report domain.Report) (string, error) {
	e, err := tx.LockEvent(ctx, eventID)
	if err != nil {
		return "", err
	}
	wasVerified := e.Verified

	if err := tx.AddMember(ctx, e.ID, report.ID); err != nil {
		return "", err
	}
	members, err := tx.EventMembers(ctx, e.ID)
	if err != nil {
		return "", err
	}

	p.agg.Recompute(&e, members, p.clock.Now().UTC())
	if err := tx.UpdateEvent(ctx, e); err != nil {
		return "", err
	}

	p.metrics.ReportsProcessed.WithLabelValues("matched").Inc()
	p.recordVerification(wasVerified, e.Verified, e.VerificationReason)

	logger.Info("report matched existing event",
		zap.String("report_id", report.ID),
		zap.String("event_id", e.ID),
		zap.Int("item_count", e.ItemCount),
	)
	return e.ID, nil
}

func (p *EventProcessor) recordVerification(was, is bool, reason string) {
	if was || !is {
		return
	}
	label := reason
	if strings.HasPrefix(reason, domain.ReasonMultiplePrefix) {
		label = "multiple_sources"
	}
	p.metrics.EventsVerified.WithLabelValues(label).Inc()
}
