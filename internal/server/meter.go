package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	meterdomain "github.com/mietwerk/mietwerk/internal/meter/domain"
)

type submitReadingRequest struct {
	Reading int64 `json:"reading"`
}

func (s *Server) SubmitReading(c *gin.Context) {
	actor, ok := currentPerson(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	meterID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if s.readingLimiter.Enabled() {
		allowed, err := s.readingLimiter.Allow(c.Request.Context(), actor.ID.String())
		if err != nil {
			// Redis being down must not block submissions.
			allowed = true
		}
		if !allowed {
			if s.obsMetrics != nil {
				s.obsMetrics.RecordRateLimitDenied(c.Request.Context())
			}
			AbortWithError(c, ErrTooManyRequests)
			return
		}
	}

	var req submitReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	update, err := s.meterSvc.SubmitReading(c.Request.Context(), actor, meterdomain.SubmitReadingRequest{
		MeterID: meterID,
		Reading: req.Reading,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	actorID := actor.ID
	_ = s.auditSvc.Record(c.Request.Context(), &actorID, "meter.reading_submitted", "meter", meterID.String(), map[string]any{
		"reading": req.Reading,
	})

	c.JSON(http.StatusCreated, update)
}

func (s *Server) ReadingHistory(c *gin.Context) {
	actor, ok := currentPerson(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	meterID, ok := parseID(c, "id")
	if !ok {
		return
	}

	history, err := s.meterSvc.History(c.Request.Context(), actor, meterID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"readings": history})
}
