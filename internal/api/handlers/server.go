// Package handlers implements the HTTP API for reports and events.
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"

	"github.com/sahaayak/disasterhub/internal/ingest"
	"github.com/sahaayak/disasterhub/internal/repository"
	"github.com/sahaayak/disasterhub/internal/usecase"
)

// Server implements all API handlers.
type Server struct {
	store       repository.Store
	ingestor    *ingest.Ingestor
	processor   *usecase.EventProcessor
	pool        *pgxpool.Pool
	riverClient *river.Client[pgx.Tx]
}

// ServerDeps holds all dependencies for creating a Server.
// Manual DI, no Wire/Dig.
type ServerDeps struct {
	Store     repository.Store
	Ingestor  *ingest.Ingestor
	Processor *usecase.EventProcessor

	// Pool is optional; readiness reports degraded without it.
	Pool *pgxpool.Pool
	// RiverClient is optional; without it the recluster endpoint runs
	// the batch pass inline instead of enqueueing a job.
	RiverClient *river.Client[pgx.Tx]
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		store:       deps.Store,
		ingestor:    deps.Ingestor,
		processor:   deps.Processor,
		pool:        deps.Pool,
		riverClient: deps.RiverClient,
	}
}

// RegisterRoutes attaches all API routes to the router.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health/live", s.GetLiveness)
	r.GET("/health/ready", s.GetReadiness)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/reports", s.CreateReport)
		v1.GET("/reports", s.ListReports)
		v1.GET("/reports/:id", s.GetReport)

		v1.GET("/events", s.ListEvents)
		v1.GET("/events/:id", s.GetEvent)
		v1.GET("/events/:id/reports", s.GetEventReports)
		v1.POST("/events/:id/verify", s.VerifyEvent)
		v1.POST("/events/recluster", s.Recluster)
	}
}
