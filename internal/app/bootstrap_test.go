package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahaayak/disasterhub/internal/config"
	"github.com/sahaayak/disasterhub/internal/pkg/logger"
)

func init() {
	_ = logger.Init("error", "json")
}

func TestBootstrap_NoDB(t *testing.T) {
	// Bootstrap without a reachable database should fail at connection.
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Host:     "localhost",
			Port:     65432, // Non-existent port
			User:     "test",
			Password: "test",
			Database: "test",
			SSLMode:  "disable",
			MaxConns: 5,
			MinConns: 1,
		},
		Worker: config.WorkerConfig{
			GeneralPoolSize: 10,
			IngestPoolSize:  5,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	app, err := Bootstrap(ctx, cfg)
	require.Error(t, err, "Bootstrap should fail without database")
	assert.Nil(t, app, "Application should be nil on bootstrap failure")
}

func TestApplication_Shutdown_Nil(t *testing.T) {
	// Shutdown on empty application should not panic.
	app := &Application{}

	assert.NotPanics(t, func() {
		app.Shutdown()
	}, "Shutdown on empty Application should not panic")
}

func TestPeriodicJobs(t *testing.T) {
	cfg := &config.Config{
		Clustering: config.ClusteringConfig{ReclusterInterval: 15 * time.Minute},
		Ingest:     config.IngestConfig{Enabled: true, Interval: 5 * time.Minute},
	}
	assert.Len(t, periodicJobs(cfg), 2)

	cfg.Ingest.Enabled = false
	assert.Len(t, periodicJobs(cfg), 1)

	cfg.Clustering.ReclusterInterval = 0
	assert.Empty(t, periodicJobs(cfg))
}

func TestBuildFetchers(t *testing.T) {
	assert.Nil(t, buildFetchers(config.IngestConfig{Enabled: false}))

	fetchers := buildFetchers(config.IngestConfig{
		Enabled:  true,
		Timeout:  30 * time.Second,
		USGSURL:  "https://example.org/usgs.geojson",
		GDACSURL: "https://example.org/gdacs.rss",
	})
	assert.Len(t, fetchers, 2)

	// A feed with no URL is turned off rather than constructed broken.
	fetchers = buildFetchers(config.IngestConfig{
		Enabled: true,
		Timeout: 30 * time.Second,
		USGSURL: "https://example.org/usgs.geojson",
	})
	assert.Len(t, fetchers, 1)
}
