package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sahaayak/disasterhub/internal/domain"
	"github.com/sahaayak/disasterhub/internal/observability"
	apperrors "github.com/sahaayak/disasterhub/internal/pkg/errors"
	"github.com/sahaayak/disasterhub/internal/pkg/logger"
	"github.com/sahaayak/disasterhub/internal/pkg/worker"
	"github.com/sahaayak/disasterhub/internal/repository"
)

// Fetcher pulls reports from one external feed.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.Report, error)
}

// ReportProcessor routes a stored report into an event.
type ReportProcessor interface {
	ProcessNewReport(ctx context.Context, reportID string) (string, error)
}

// Result summarizes one ingestion pass.
type Result struct {
	Fetched    int
	Created    int
	Duplicates int
	Errors     int
}

// Ingestor runs feed fetches on the worker pool and pushes new reports
// through the clustering pipeline.
type Ingestor struct {
	fetchers  []Fetcher
	store     repository.Store
	processor ReportProcessor
	pool      *worker.Pool
	metrics   *observability.Metrics
}

// NewIngestor creates an Ingestor.
func NewIngestor(
	fetchers []Fetcher,
	store repository.Store,
	processor ReportProcessor,
	pool *worker.Pool,
	metrics *observability.Metrics,
) *Ingestor {
	return &Ingestor{
		fetchers:  fetchers,
		store:     store,
		processor: processor,
		pool:      pool,
		metrics:   metrics,
	}
}

// Run fetches all feeds concurrently, then ingests the combined batch.
// A failing feed is logged and skipped; the other feeds still ingest.
func (ing *Ingestor) Run(ctx context.Context) (Result, error) {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		fetched []domain.Report
	)

	for _, f := range ing.fetchers {
		f := f
		wg.Add(1)
		submit := func(ctx context.Context) {
			defer wg.Done()

			start := time.Now()
			reports, err := f.Fetch(ctx)
			ing.metrics.FeedFetchDuration.WithLabelValues(f.Name()).Observe(time.Since(start).Seconds())
			if err != nil {
				ing.metrics.FeedFetchErrors.WithLabelValues(f.Name()).Inc()
				logger.Warn("feed fetch failed",
					zap.String("feed", f.Name()),
					zap.Error(err),
				)
				return
			}

			mu.Lock()
			fetched = append(fetched, reports...)
			mu.Unlock()
		}

		if err := ing.pool.Submit(ctx, submit); err != nil {
			wg.Done()
			return Result{}, fmt.Errorf("submit fetch for feed %s: %w", f.Name(), err)
		}
	}
	wg.Wait()

	res := Result{Fetched: len(fetched)}
	for i := range fetched {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}
		ing.ingestOne(ctx, fetched[i], &res)
	}

	logger.Info("feed ingestion pass finished",
		zap.Int("fetched", res.Fetched),
		zap.Int("created", res.Created),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("errors", res.Errors),
	)
	return res, nil
}

// Ingest stores a single report and routes it into an event. Used by
// both the feed path and the manual API path.
func (ing *Ingestor) Ingest(ctx context.Context, r domain.Report) (string, error) {
	if r.Location != nil && !r.Location.Valid() {
		ing.metrics.ReportsIngested.WithLabelValues(r.Source, "invalid").Inc()
		return "", apperrors.BadRequest(apperrors.CodeInvalidLocation,
			fmt.Sprintf("coordinates out of range: %f, %f", r.Location.Lat, r.Location.Lon))
	}

	if err := ing.store.CreateReport(ctx, r); err != nil {
		if appErr, ok := apperrors.IsAppError(err); ok && appErr.Code == apperrors.CodeDuplicateReport {
			ing.metrics.ReportsIngested.WithLabelValues(r.Source, "duplicate").Inc()
		} else {
			ing.metrics.ReportsIngested.WithLabelValues(r.Source, "error").Inc()
		}
		return "", err
	}
	ing.metrics.ReportsIngested.WithLabelValues(r.Source, "created").Inc()

	eventID, err := ing.processor.ProcessNewReport(ctx, r.ID)
	if err != nil {
		// The report is stored; clustering failed. The next batch
		// recluster picks it up.
		return "", fmt.Errorf("cluster report %s: %w", r.ID, err)
	}
	return eventID, nil
}

func (ing *Ingestor) ingestOne(ctx context.Context, r domain.Report, res *Result) {
	if r.ExtID != "" {
		exists, err := ing.store.ReportExists(ctx, r.ExtID, r.Source)
		if err != nil {
			res.Errors++
			logger.Error("report existence check failed",
				zap.String("ext_id", r.ExtID),
				zap.Error(err),
			)
			return
		}
		if exists {
			res.Duplicates++
			ing.metrics.ReportsIngested.WithLabelValues(r.Source, "duplicate").Inc()
			return
		}
	}

	if _, err := ing.Ingest(ctx, r); err != nil {
		if appErr, ok := apperrors.IsAppError(err); ok && appErr.Code == apperrors.CodeDuplicateReport {
			res.Duplicates++
			return
		}
		res.Errors++
		logger.Error("report ingestion failed",
			zap.String("ext_id", r.ExtID),
			zap.String("source", r.Source),
			zap.Error(err),
		)
		return
	}
	res.Created++
}
