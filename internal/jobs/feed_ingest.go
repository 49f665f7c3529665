// Package jobs contains the River background jobs: periodic feed
// ingestion and batch reclustering.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"github.com/sahaayak/disasterhub/internal/ingest"
	"github.com/sahaayak/disasterhub/internal/pkg/logger"
)

// FeedIngestArgs triggers one pass over all configured external feeds.
type FeedIngestArgs struct{}

// Kind returns the job kind identifier for feed ingestion.
func (FeedIngestArgs) Kind() string { return "feed_ingest" }

// InsertOpts deduplicates concurrent enqueues: at most one feed pass is
// pending or running at a time.
func (FeedIngestArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 3,
		UniqueOpts: river.UniqueOpts{
			ByArgs:  true,
			ByQueue: true,
		},
	}
}

// FeedIngestWorker runs the ingestor over all configured feeds.
type FeedIngestWorker struct {
	river.WorkerDefaults[FeedIngestArgs]
	ingestor *ingest.Ingestor
	timeout  time.Duration
}

// NewFeedIngestWorker creates a feed ingestion worker. Non-positive
// timeout falls back to five minutes.
func NewFeedIngestWorker(ingestor *ingest.Ingestor, timeout time.Duration) *FeedIngestWorker {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &FeedIngestWorker{ingestor: ingestor, timeout: timeout}
}

// Work fetches all feeds and ingests the combined batch.
func (w *FeedIngestWorker) Work(ctx context.Context, _ *river.Job[FeedIngestArgs]) error {
	if w == nil || w.ingestor == nil {
		return fmt.Errorf("feed ingest worker is not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	res, err := w.ingestor.Run(ctx)
	if err != nil {
		return fmt.Errorf("feed ingestion pass: %w", err)
	}

	logger.Info("feed ingest job completed",
		zap.Int("fetched", res.Fetched),
		zap.Int("created", res.Created),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("errors", res.Errors),
	)
	return nil
}
