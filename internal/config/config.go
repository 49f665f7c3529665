// Package config provides configuration management for DisasterHub.
//
// Configuration is loaded from:
// 1. config.yaml file (optional)
// 2. Environment variables (standard names like DATABASE_URL, SERVER_PORT)
// 3. Default values
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Log        LogConfig        `mapstructure:"log"`
	River      RiverConfig      `mapstructure:"river"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Clustering ClusteringConfig `mapstructure:"clustering"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig contains PostgreSQL connection settings.
// A single pgx pool is shared by the repository layer and River.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`

	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
// Priority: DATABASE_URL > constructed from individual fields.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslmode,
	)
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// RiverConfig contains River Queue settings.
type RiverConfig struct {
	MaxWorkers                  int           `mapstructure:"max_workers"`
	CompletedJobRetentionPeriod time.Duration `mapstructure:"completed_job_retention_period"`
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	GeneralPoolSize int `mapstructure:"general_pool_size"`
	IngestPoolSize  int `mapstructure:"ingest_pool_size"`
}

// ClusteringConfig contains event clustering and verification settings.
type ClusteringConfig struct {
	// CellResolution is the H3 resolution used for spatial indexing.
	CellResolution int `mapstructure:"cell_resolution"`
	// TimeWindow bounds how far back candidate events are considered
	// when matching a new report.
	TimeWindow time.Duration `mapstructure:"time_window"`
	// MinClusterSize is the minimum number of reports a batch cluster
	// must contain to produce an event.
	MinClusterSize int `mapstructure:"min_cluster_size"`
	// EpsKM is the DBSCAN neighborhood radius in kilometers.
	EpsKM float64 `mapstructure:"eps_km"`
	// MinSamples is the DBSCAN core point threshold.
	MinSamples int `mapstructure:"min_samples"`
	// TemporalEpsHours, when positive, rescales the DBSCAN time axis so
	// this many hours correspond to eps_km in feature space. Zero keeps
	// hours and kilometers conflated under the single eps_km radius.
	TemporalEpsHours float64 `mapstructure:"temporal_eps_hours"`
	// MinSourcesForVerification is the distinct-source count needed to
	// verify an event without an official source.
	MinSourcesForVerification int `mapstructure:"min_sources_for_verification"`
	// StickyManualVerification keeps manual verification decisions
	// through automatic recomputation.
	StickyManualVerification bool `mapstructure:"sticky_manual_verification"`
	// ReclusterInterval is how often the periodic batch recluster runs.
	// Zero disables the periodic job.
	ReclusterInterval time.Duration `mapstructure:"recluster_interval"`
}

// IngestConfig contains external feed ingestion settings.
type IngestConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
	USGSURL  string        `mapstructure:"usgs_url"`
	GDACSURL string        `mapstructure:"gdacs_url"`
}

// Load reads configuration from file and environment variables.
// Standard environment variables without prefix (DATABASE_URL, SERVER_PORT, etc.).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/disasterhub")

	// Environment variable override.
	// No prefix: uses standard names like DATABASE_URL, SERVER_PORT, LOG_LEVEL.
	// Maps nested config: clustering.eps_km → CLUSTERING_EPS_KM
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file is optional, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	if c.Clustering.CellResolution < 0 || c.Clustering.CellResolution > 15 {
		return fmt.Errorf("clustering.cell_resolution must be between 0 and 15")
	}
	if c.Clustering.EpsKM <= 0 {
		return fmt.Errorf("clustering.eps_km must be positive")
	}
	if c.Clustering.MinSamples < 1 {
		return fmt.Errorf("clustering.min_samples must be at least 1")
	}
	if c.Clustering.MinClusterSize < 1 {
		return fmt.Errorf("clustering.min_cluster_size must be at least 1")
	}
	if c.Clustering.MinSourcesForVerification < 1 {
		return fmt.Errorf("clustering.min_sources_for_verification must be at least 1")
	}
	if c.Ingest.Enabled {
		if c.Ingest.USGSURL == "" && c.Ingest.GDACSURL == "" {
			return fmt.Errorf("ingest.enabled requires at least one feed URL")
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "disasterhub")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "disasterhub")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 50)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "10m")
	v.SetDefault("database.auto_migrate", false)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// River
	v.SetDefault("river.max_workers", 10)
	v.SetDefault("river.completed_job_retention_period", "24h")

	// Worker Pool
	v.SetDefault("worker.general_pool_size", 100)
	v.SetDefault("worker.ingest_pool_size", 20)

	// Clustering
	v.SetDefault("clustering.cell_resolution", 5)
	v.SetDefault("clustering.time_window", "24h")
	v.SetDefault("clustering.min_cluster_size", 2)
	v.SetDefault("clustering.eps_km", 10.0)
	v.SetDefault("clustering.min_samples", 2)
	v.SetDefault("clustering.temporal_eps_hours", 0.0)
	v.SetDefault("clustering.min_sources_for_verification", 3)
	v.SetDefault("clustering.sticky_manual_verification", false)
	v.SetDefault("clustering.recluster_interval", "15m")

	// Ingest
	v.SetDefault("ingest.enabled", false)
	v.SetDefault("ingest.interval", "5m")
	v.SetDefault("ingest.timeout", "30s")
	v.SetDefault("ingest.usgs_url", "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_hour.geojson")
	v.SetDefault("ingest.gdacs_url", "https://www.gdacs.org/xml/rss.xml")
}
