package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/sahaayak/disasterhub/internal/cluster"
	"github.com/sahaayak/disasterhub/internal/domain"
	"github.com/sahaayak/disasterhub/internal/observability"
	apperrors "github.com/sahaayak/disasterhub/internal/pkg/errors"
	"github.com/sahaayak/disasterhub/internal/pkg/logger"
	"github.com/sahaayak/disasterhub/internal/pkg/worker"
	"github.com/sahaayak/disasterhub/internal/repository"
	"github.com/sahaayak/disasterhub/internal/service"
	"github.com/sahaayak/disasterhub/internal/usecase"
)

func init() {
	_ = logger.Init("error", "json")
}

type stubFetcher struct {
	name    string
	reports []domain.Report
	err     error
}

func (f *stubFetcher) Name() string { return f.name }

func (f *stubFetcher) Fetch(context.Context) ([]domain.Report, error) {
	return f.reports, f.err
}

func feedReport(extID string, lat, lon float64) domain.Report {
	return domain.Report{
		ID:           uuid.Must(uuid.NewV7()).String(),
		ExtID:        extID,
		Source:       domain.SourceUSGS,
		Text:         "M 4.6 earthquake",
		Place:        "Ridgecrest, CA",
		DisasterType: "earthquake",
		Location:     &domain.Coordinate{Lat: lat, Lon: lon},
		CreatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newTestIngestor(t *testing.T, fetchers ...Fetcher) (*Ingestor, *repository.Memory) {
	t.Helper()

	store := repository.NewMemory()
	metrics := observability.NewMetricsForTesting()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	processor := usecase.NewEventProcessor(
		store,
		service.NewMatcher(domain.DefaultCellResolution, 24*time.Hour),
		service.NewAggregator(domain.DefaultCellResolution, domain.DefaultVerificationPolicy()),
		cluster.DefaultParams(),
		metrics,
		clock,
	)

	pools, err := worker.NewPools(context.Background(), worker.DefaultPoolConfig())
	require.NoError(t, err)
	t.Cleanup(pools.Shutdown)

	return NewIngestor(fetchers, store, processor, pools.Ingest, metrics), store
}

func TestIngestor_Run_IngestsAndClusters(t *testing.T) {
	ing, store := newTestIngestor(t,
		&stubFetcher{name: "usgs", reports: []domain.Report{
			feedReport("a", 35.5, -117.7),
			feedReport("b", 35.51, -117.71),
		}},
	)

	res, err := ing.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, res.Fetched)
	require.Equal(t, 2, res.Created)
	require.Zero(t, res.Duplicates)
	require.Zero(t, res.Errors)

	// Both reports land in the same event.
	events, err := store.ListEvents(context.Background(), repository.EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, 2, events[0].ItemCount)
}

func TestIngestor_Run_SkipsAlreadyIngested(t *testing.T) {
	fetcher := &stubFetcher{name: "usgs", reports: []domain.Report{feedReport("a", 35.5, -117.7)}}
	ing, _ := newTestIngestor(t, fetcher)

	res, err := ing.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Created)

	// Second pass delivers the same external ID with a fresh internal ID.
	fetcher.reports = []domain.Report{feedReport("a", 35.5, -117.7)}
	res, err = ing.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, res.Created)
	require.Equal(t, 1, res.Duplicates)
}

func TestIngestor_Run_FailedFeedDoesNotBlockOthers(t *testing.T) {
	ing, _ := newTestIngestor(t,
		&stubFetcher{name: "gdacs", err: errors.New("feed down")},
		&stubFetcher{name: "usgs", reports: []domain.Report{feedReport("a", 35.5, -117.7)}},
	)

	res, err := ing.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Fetched)
	require.Equal(t, 1, res.Created)
}

func TestIngestor_Ingest_InvalidCoordinates(t *testing.T) {
	ing, _ := newTestIngestor(t)

	r := feedReport("bad", 95.0, 200.0)
	_, err := ing.Ingest(context.Background(), r)
	require.Error(t, err)

	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	require.Equal(t, apperrors.CodeInvalidLocation, appErr.Code)
}

func TestIngestor_Ingest_ManualReport(t *testing.T) {
	ing, store := newTestIngestor(t)

	r := domain.Report{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Source:       domain.SourceCitizen,
		Text:         "street flooded near the market",
		Place:        "Dhaka",
		DisasterType: "flood",
		Location:     &domain.Coordinate{Lat: 23.7, Lon: 90.4},
		CreatedAt:    time.Now().UTC(),
	}

	eventID, err := ing.Ingest(context.Background(), r)
	require.NoError(t, err)
	require.NotEmpty(t, eventID)

	e, err := store.GetEvent(context.Background(), eventID)
	require.NoError(t, err)
	require.Equal(t, "Flood in Dhaka", e.Title)
}
