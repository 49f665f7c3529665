package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"github.com/sahaayak/disasterhub/internal/pkg/logger"
)

// Reclusterer runs a batch clustering pass over unclustered reports.
type Reclusterer interface {
	Recluster(ctx context.Context) (int, error)
}

// ReclusterArgs triggers one batch recluster pass.
type ReclusterArgs struct{}

// Kind returns the job kind identifier for batch reclustering.
func (ReclusterArgs) Kind() string { return "recluster" }

// InsertOpts deduplicates concurrent enqueues so overlapping passes
// cannot pile up.
func (ReclusterArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByArgs:  true,
			ByQueue: true,
		},
	}
}

// ReclusterWorker runs the batch pass. Partial progress survives
// cancellation: every created event commits in its own transaction.
type ReclusterWorker struct {
	river.WorkerDefaults[ReclusterArgs]
	processor Reclusterer
	timeout   time.Duration
}

// NewReclusterWorker creates a recluster worker. Non-positive timeout
// falls back to ten minutes.
func NewReclusterWorker(processor Reclusterer, timeout time.Duration) *ReclusterWorker {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &ReclusterWorker{processor: processor, timeout: timeout}
}

// Work runs one batch recluster pass.
func (w *ReclusterWorker) Work(ctx context.Context, _ *river.Job[ReclusterArgs]) error {
	if w == nil || w.processor == nil {
		return fmt.Errorf("recluster worker is not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	created, err := w.processor.Recluster(ctx)
	if err != nil {
		return fmt.Errorf("batch recluster: %w", err)
	}

	logger.Info("recluster job completed", zap.Int("events_created", created))
	return nil
}
