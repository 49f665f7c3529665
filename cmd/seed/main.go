// Package main seeds demo disaster reports for local development.
// Reports flow through the same ingest path as the API, so seeded data
// produces real events with verification state.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/sahaayak/disasterhub/internal/cluster"
	"github.com/sahaayak/disasterhub/internal/config"
	"github.com/sahaayak/disasterhub/internal/domain"
	"github.com/sahaayak/disasterhub/internal/infrastructure"
	"github.com/sahaayak/disasterhub/internal/ingest"
	"github.com/sahaayak/disasterhub/internal/observability"
	apperrors "github.com/sahaayak/disasterhub/internal/pkg/errors"
	"github.com/sahaayak/disasterhub/internal/pkg/logger"
	"github.com/sahaayak/disasterhub/internal/service"
	"github.com/sahaayak/disasterhub/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// The seed binary does not expose /metrics, so an unregistered set
	// keeps the default registry clean.
	metrics := observability.NewMetricsForTesting()
	processor := usecase.NewEventProcessor(
		db.Store,
		service.NewMatcher(cfg.Clustering.CellResolution, cfg.Clustering.TimeWindow),
		service.NewAggregator(cfg.Clustering.CellResolution, domain.DefaultVerificationPolicy()),
		cluster.DefaultParams(),
		metrics,
		clockwork.NewRealClock(),
	)
	ingestor := ingest.NewIngestor(nil, db.Store, processor, nil, metrics)

	logger.Info("Seeding demo reports...")

	var seeded, skipped int
	for _, r := range demoReports() {
		if _, err := ingestor.Ingest(ctx, r); err != nil {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) && appErr.Code == apperrors.CodeDuplicateReport {
				skipped++
				continue
			}
			return fmt.Errorf("ingest report %s: %w", r.ExtID, err)
		}
		seeded++
	}

	logger.Info("Seeding completed",
		zap.Int("seeded", seeded),
		zap.Int("skipped", skipped),
	)
	return nil
}

func demoReports() []domain.Report {
	now := time.Now().UTC()
	mag := func(v float64) *float64 { return &v }
	loc := func(lat, lon float64) *domain.Coordinate { return &domain.Coordinate{Lat: lat, Lon: lon} }

	mk := func(extID, source, text, place, disasterType string, m *float64, l *domain.Coordinate, age time.Duration) domain.Report {
		return domain.Report{
			ID:           uuid.Must(uuid.NewV7()).String(),
			ExtID:        extID,
			Source:       source,
			Text:         text,
			Place:        place,
			Language:     "en",
			DisasterType: disasterType,
			Magnitude:    m,
			Location:     l,
			CreatedAt:    now.Add(-age),
		}
	}

	return []domain.Report{
		// An earthquake seen by an official feed and two social sources.
		mk("seed-eq-usgs", domain.SourceUSGS, "M 6.4 - 18km W of Searles Valley, CA", "Searles Valley, CA", "earthquake", mag(6.4), loc(35.705, -117.506), 2*time.Hour),
		mk("seed-eq-tw1", domain.SourceTwitter, "everything was shaking for like 30 seconds", "Ridgecrest, CA", "earthquake", nil, loc(35.622, -117.670), 110*time.Minute),
		mk("seed-eq-rd1", domain.SourceReddit, "strong quake felt across the valley, anyone else?", "Trona, CA", "earthquake", nil, loc(35.762, -117.372), 100*time.Minute),

		// A flood reported by three distinct community sources.
		mk("seed-fl-tw1", domain.SourceTwitter, "water entered the ground floor, roads impassable", "Sylhet", "flood", nil, loc(24.894, 91.868), 5*time.Hour),
		mk("seed-fl-rd1", domain.SourceReddit, "river burst its banks overnight near Sylhet", "Sylhet", "flood", nil, loc(24.905, 91.873), 4*time.Hour),
		mk("seed-fl-cz1", domain.SourceCitizen, "families moving to shelters as water keeps rising", "Sylhet", "flood", nil, loc(24.887, 91.859), 3*time.Hour),

		// A lone wildfire report, stays an unverified singleton event.
		mk("seed-wf-tw1", domain.SourceTwitter, "smoke column visible from the highway", "Alexandroupolis", "wildfire", nil, loc(40.847, 25.874), time.Hour),

		// A report without coordinates, left for the batch recluster pass.
		mk("seed-st-tw1", domain.SourceTwitter, "huge storm rolling in, sky went green", "", "storm", nil, nil, 30*time.Minute),
	}
}
