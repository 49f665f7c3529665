package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sahaayak/disasterhub/internal/domain"
	"github.com/sahaayak/disasterhub/internal/pkg/logger"
)

// VerifyEvent applies a manual verification decision. The decision is
// marked as an operator override; whether later membership changes
// preserve it depends on the sticky-verification setting.
func (p *EventProcessor) VerifyEvent(ctx context.Context, eventID string, verified bool) (domain.Event, error) {
	if err := p.store.SetVerification(ctx, eventID, verified, domain.ReasonManualOverride); err != nil {
		return domain.Event{}, fmt.Errorf("verify event %s: %w", eventID, err)
	}
	if verified {
		p.metrics.EventsVerified.WithLabelValues(domain.ReasonManualOverride).Inc()
	}

	e, err := p.store.GetEvent(ctx, eventID)
	if err != nil {
		return domain.Event{}, fmt.Errorf("load event %s after verification: %w", eventID, err)
	}

	logger.Info("event verification set manually",
		zap.String("event_id", eventID),
		zap.Bool("verified", verified),
	)
	return e, nil
}
