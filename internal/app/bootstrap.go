// Package app is the composition root. Bootstrap stays orchestration-only.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/riverqueue/river"

	"github.com/sahaayak/disasterhub/internal/api/handlers"
	"github.com/sahaayak/disasterhub/internal/cluster"
	"github.com/sahaayak/disasterhub/internal/config"
	"github.com/sahaayak/disasterhub/internal/domain"
	"github.com/sahaayak/disasterhub/internal/infrastructure"
	"github.com/sahaayak/disasterhub/internal/ingest"
	"github.com/sahaayak/disasterhub/internal/jobs"
	"github.com/sahaayak/disasterhub/internal/observability"
	"github.com/sahaayak/disasterhub/internal/pkg/worker"
	"github.com/sahaayak/disasterhub/internal/service"
	"github.com/sahaayak/disasterhub/internal/usecase"
)

// Application holds composed application dependencies.
type Application struct {
	Config    *config.Config
	Router    *gin.Engine
	DB        *infrastructure.DatabaseClients
	Pools     *worker.Pools
	Processor *usecase.EventProcessor
	Ingestor  *ingest.Ingestor
}

// Bootstrap initializes all dependencies using manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
	}

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize: cfg.Worker.GeneralPoolSize,
		IngestPoolSize:  cfg.Worker.IngestPoolSize,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	metrics := observability.NewMetrics()

	matcher := service.NewMatcher(cfg.Clustering.CellResolution, cfg.Clustering.TimeWindow)

	policy := domain.DefaultVerificationPolicy()
	policy.MinSources = cfg.Clustering.MinSourcesForVerification
	policy.StickyManualOverride = cfg.Clustering.StickyManualVerification
	aggregator := service.NewAggregator(cfg.Clustering.CellResolution, policy)

	params := cluster.Params{
		EpsKM:            cfg.Clustering.EpsKM,
		MinSamples:       cfg.Clustering.MinSamples,
		MinClusterSize:   cfg.Clustering.MinClusterSize,
		TemporalEpsHours: cfg.Clustering.TemporalEpsHours,
	}
	processor := usecase.NewEventProcessor(db.Store, matcher, aggregator, params, metrics, clockwork.NewRealClock())

	fetchers := buildFetchers(cfg.Ingest)
	ingestor := ingest.NewIngestor(fetchers, db.Store, processor, pools.Ingest, metrics)

	workers := river.NewWorkers()
	river.AddWorker(workers, jobs.NewReclusterWorker(processor, 0))
	if cfg.Ingest.Enabled {
		river.AddWorker(workers, jobs.NewFeedIngestWorker(ingestor, cfg.Ingest.Timeout))
	}

	periodic := periodicJobs(cfg)
	if err := db.InitRiverClient(workers, cfg.River, periodic); err != nil {
		pools.Shutdown()
		db.Close()
		return nil, fmt.Errorf("init river client: %w", err)
	}

	server := handlers.NewServer(handlers.ServerDeps{
		Store:       db.Store,
		Ingestor:    ingestor,
		Processor:   processor,
		Pool:        db.Pool,
		RiverClient: db.RiverClient,
	})

	return &Application{
		Config:    cfg,
		Router:    newRouter(cfg, server),
		DB:        db,
		Pools:     pools,
		Processor: processor,
		Ingestor:  ingestor,
	}, nil
}

func buildFetchers(cfg config.IngestConfig) []ingest.Fetcher {
	if !cfg.Enabled {
		return nil
	}
	// An empty URL means the feed is turned off, not misconfigured.
	var fetchers []ingest.Fetcher
	if cfg.USGSURL != "" {
		fetchers = append(fetchers, ingest.NewUSGSFetcher(cfg.USGSURL, cfg.Timeout))
	}
	if cfg.GDACSURL != "" {
		fetchers = append(fetchers, ingest.NewGDACSFetcher(cfg.GDACSURL, cfg.Timeout))
	}
	return fetchers
}

// periodicJobs schedules the recurring recluster pass and, when feed
// ingestion is enabled, the feed poll.
func periodicJobs(cfg *config.Config) []*river.PeriodicJob {
	var periodic []*river.PeriodicJob

	if cfg.Clustering.ReclusterInterval > 0 {
		periodic = append(periodic, river.NewPeriodicJob(
			river.PeriodicInterval(cfg.Clustering.ReclusterInterval),
			func() (river.JobArgs, *river.InsertOpts) {
				return jobs.ReclusterArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: false},
		))
	}

	if cfg.Ingest.Enabled {
		interval := cfg.Ingest.Interval
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		periodic = append(periodic, river.NewPeriodicJob(
			river.PeriodicInterval(interval),
			func() (river.JobArgs, *river.InsertOpts) {
				return jobs.FeedIngestArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		))
	}

	return periodic
}
