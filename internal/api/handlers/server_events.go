package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sahaayak/disasterhub/internal/domain"
	"github.com/sahaayak/disasterhub/internal/jobs"
	apperrors "github.com/sahaayak/disasterhub/internal/pkg/errors"
	"github.com/sahaayak/disasterhub/internal/repository"
)

// ListEvents handles GET /api/v1/events.
// Query parameters: disaster_type, verified, since (RFC 3339), limit, offset.
func (s *Server) ListEvents(c *gin.Context) {
	f := repository.EventFilter{
		DisasterType: c.Query("disaster_type"),
		Limit:        intQuery(c, "limit", 50),
		Offset:       intQuery(c, "offset", 0),
	}

	if raw := c.Query("verified"); raw != "" {
		v := raw == "true"
		if raw != "true" && raw != "false" {
			_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequestField, "verified must be true or false"))
			return
		}
		f.Verified = &v
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequestField, "since must be an RFC 3339 timestamp"))
			return
		}
		f.Since = since
	}

	events, err := s.store.ListEvents(c.Request.Context(), f)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// GetEvent handles GET /api/v1/events/:id.
func (s *Server) GetEvent(c *gin.Context) {
	e, err := s.store.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// GetEventReports handles GET /api/v1/events/:id/reports.
func (s *Server) GetEventReports(c *gin.Context) {
	members, err := s.store.EventMembers(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if members == nil {
		members = []domain.Report{}
	}
	c.JSON(http.StatusOK, gin.H{"reports": members})
}

// VerifyEventRequest is the body of POST /api/v1/events/:id/verify.
type VerifyEventRequest struct {
	Verified *bool `json:"verified" binding:"required"`
}

// VerifyEvent handles POST /api/v1/events/:id/verify. It applies an
// operator override of the computed verification state.
func (s *Server) VerifyEvent(c *gin.Context) {
	var req VerifyEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequestField, err.Error()))
		return
	}

	e, err := s.processor.VerifyEvent(c.Request.Context(), c.Param("id"), *req.Verified)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// Recluster handles POST /api/v1/events/recluster. With a job queue the
// pass runs in the background; otherwise it runs inline.
func (s *Server) Recluster(c *gin.Context) {
	if s.riverClient != nil {
		if _, err := s.riverClient.Insert(c.Request.Context(), jobs.ReclusterArgs{}, nil); err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
		return
	}

	created, err := s.processor.Recluster(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed", "events_created": created})
}
