package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sahaayak/disasterhub/internal/domain"
	apperrors "github.com/sahaayak/disasterhub/internal/pkg/errors"
)

// CreateReportRequest is the body of POST /api/v1/reports.
type CreateReportRequest struct {
	ExtID        string     `json:"ext_id"`
	Source       string     `json:"source" binding:"required"`
	Text         string     `json:"text"`
	Place        string     `json:"place"`
	Language     string     `json:"language"`
	DisasterType string     `json:"disaster_type"`
	Magnitude    *float64   `json:"magnitude"`
	Lat          *float64   `json:"lat"`
	Lon          *float64   `json:"lon"`
	CreatedAt    *time.Time `json:"created_at"`
}

// CreateReportResponse returns the stored report and its event.
type CreateReportResponse struct {
	Report  domain.Report `json:"report"`
	EventID string        `json:"event_id"`
}

// CreateReport handles POST /api/v1/reports. It ingests a single report
// and routes it into an event.
func (s *Server) CreateReport(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequestField, err.Error()))
		return
	}
	if (req.Lat == nil) != (req.Lon == nil) {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidLocation, "lat and lon must be provided together"))
		return
	}

	created := time.Now().UTC()
	if req.CreatedAt != nil {
		created = req.CreatedAt.UTC()
	}

	r := domain.Report{
		ID:           uuid.Must(uuid.NewV7()).String(),
		ExtID:        req.ExtID,
		Source:       req.Source,
		Text:         req.Text,
		Place:        req.Place,
		Language:     req.Language,
		DisasterType: req.DisasterType,
		Magnitude:    req.Magnitude,
		CreatedAt:    created,
	}
	if req.Lat != nil && req.Lon != nil {
		r.Location = &domain.Coordinate{Lat: *req.Lat, Lon: *req.Lon}
	}

	eventID, err := s.ingestor.Ingest(c.Request.Context(), r)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, CreateReportResponse{Report: r, EventID: eventID})
}

// ListReports handles GET /api/v1/reports.
func (s *Server) ListReports(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	reports, err := s.store.ListReports(c.Request.Context(), limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if reports == nil {
		reports = []domain.Report{}
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// GetReport handles GET /api/v1/reports/:id.
func (s *Server) GetReport(c *gin.Context) {
	r, err := s.store.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
