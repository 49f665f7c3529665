package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sahaayak/disasterhub/internal/cluster"
	"github.com/sahaayak/disasterhub/internal/domain"
	"github.com/sahaayak/disasterhub/internal/pkg/logger"
	"github.com/sahaayak/disasterhub/internal/repository"
)

// groupByDisasterType splits the pool into per-type groups, first-seen
// order preserved.
func groupByDisasterType(reports []domain.Report) [][]domain.Report {
	var order []string
	groups := make(map[string][]domain.Report)
	for _, r := range reports {
		if _, ok := groups[r.DisasterType]; !ok {
			order = append(order, r.DisasterType)
		}
		groups[r.DisasterType] = append(groups[r.DisasterType], r)
	}
	out := make([][]domain.Report, 0, len(order))
	for _, t := range order {
		out = append(out, groups[t])
	}
	return out
}

// Recluster runs a batch DBSCAN pass over all unclustered reports and
// creates one event per dense cluster. Each cluster commits in its own
// transaction, so cancellation between clusters keeps the events
// already created. Reports claimed by a concurrent incremental match
// while the batch was computing are silently dropped from their
// cluster.
func (p *EventProcessor) Recluster(ctx context.Context) (int, error) {
	p.metrics.ReclusterRunning.Set(1)
	defer p.metrics.ReclusterRunning.Set(0)
	start := p.clock.Now()

	reports, err := p.store.ListUnclustered(ctx)
	if err != nil {
		return 0, fmt.Errorf("list unclustered reports: %w", err)
	}

	// Density clustering runs per disaster type. A dense pocket of
	// mixed-type reports must never collapse into one event: every
	// member shares its event's type.
	var clusters [][]domain.Report
	for _, group := range groupByDisasterType(reports) {
		clusters = append(clusters, cluster.Partition(group, p.params)...)
	}
	logger.Info("batch recluster computed",
		zap.Int("unclustered", len(reports)),
		zap.Int("clusters", len(clusters)),
	)

	created := 0
	for _, members := range clusters {
		select {
		case <-ctx.Done():
			return created, ctx.Err()
		default:
		}

		ids := make([]string, len(members))
		for i := range members {
			ids[i] = members[i].ID
		}

		err := p.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			claimed, err := tx.ClaimUnclustered(ctx, ids)
			if err != nil {
				return err
			}
			// The cluster was computed outside the transaction; any
			// member grabbed since then is gone. An empty claim means
			// the whole cluster dissolved.
			if len(claimed) == 0 {
				return nil
			}

			e := p.agg.Initialize(claimed, p.clock.Now().UTC())
			claimedIDs := make([]string, len(claimed))
			for i := range claimed {
				claimedIDs[i] = claimed[i].ID
			}
			if err := tx.CreateEvent(ctx, *e, claimedIDs); err != nil {
				return err
			}
			created++
			p.recordVerification(false, e.Verified, e.VerificationReason)

			logger.Info("batch recluster created event",
				zap.String("event_id", e.ID),
				zap.String("disaster_type", e.DisasterType),
				zap.Int("item_count", e.ItemCount),
			)
			return nil
		})
		if err != nil {
			return created, fmt.Errorf("create cluster event: %w", err)
		}
	}

	p.metrics.ReclusterRuns.Inc()
	p.metrics.ReclusterEvents.Add(float64(created))
	p.metrics.ReclusterDuration.Observe(p.clock.Since(start).Seconds())
	return created, nil
}
